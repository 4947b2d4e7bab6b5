package platform

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/at-wat/ebml-go/webm"
	"github.com/jj11hh/opus"
	"github.com/pion/mediadevices"
	"github.com/rs/zerolog"

	"github.com/petems/camtray/internal/audio"
	"github.com/petems/camtray/internal/media"
	"github.com/petems/camtray/internal/recorder"
)

// opusPreSkip is the encoder delay signalled in the Opus header, in 48kHz
// samples.
const opusPreSkip = 312

// NewRecordingProvider returns a provider that muxes the stream into WebM.
// frameSize reports the current video dimensions; it may be nil.
func (p *Platform) NewRecordingProvider(s media.Stream, frameSize func() (int, int)) (recorder.Provider, error) {
	st, ok := s.(*stream)
	if !ok {
		return nil, fmt.Errorf("unsupported stream type %T", s)
	}
	if len(st.video) == 0 {
		return nil, errors.New("stream has no video track")
	}

	wp := &webmProvider{
		video:     st.video[0],
		frameSize: frameSize,
		log:       p.log,
	}
	if len(st.audio) > 0 {
		wp.audio = st.audio[0]
	}
	return wp, nil
}

type webmProvider struct {
	video     *videoTrack
	audio     *audio.Track
	frameSize func() (int, int)
	log       zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	reader mediadevices.EncodedReadCloser
	unsub  func()
}

func (w *webmProvider) Start(onData func([]byte), onStop func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("provider already started")
	}

	// Everything that can fail is set up before the muxer exists, since
	// closing the muxer signals the end of the take.
	reader, err := w.video.track.NewEncodedReader(w.video.codecMIME)
	if err != nil {
		return fmt.Errorf("failed to open video encoder: %w", err)
	}

	var enc *opus.Encoder
	var sampleRate int
	if w.audio != nil {
		sampleRate = w.audio.SampleRate()
		enc, err = opus.NewEncoder(sampleRate, 1, opus.AppAudio)
		if err != nil {
			reader.Close()
			return fmt.Errorf("failed to create opus encoder: %w", err)
		}
	}

	width, height := 0, 0
	if w.frameSize != nil {
		width, height = w.frameSize()
	}
	entries := trackEntries(width, height, sampleRate, enc != nil)

	sink := &segmentWriter{onData: onData, onClose: onStop}
	writers, err := webm.NewSimpleBlockWriter(sink, entries)
	if err != nil {
		reader.Close()
		return fmt.Errorf("failed to create webm muxer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.reader = reader

	start := time.Now()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.pumpVideo(ctx, reader, writers[0], start)
	}()

	if enc != nil {
		samples, unsub := w.audio.Subscribe(32)
		w.unsub = unsub
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.pumpAudio(samples, enc, sampleRate, writers[1])
		}()
	}

	// The muxer flushes and closes sink once every block writer is closed.
	go func() {
		wg.Wait()
		for _, bw := range writers {
			bw.Close()
		}
		w.release(reader)
	}()

	return nil
}

func (w *webmProvider) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return errors.New("provider not started")
	}
	w.cancel()
	w.cancel = nil

	err := w.reader.Close()
	w.reader = nil
	if w.unsub != nil {
		w.unsub()
		w.unsub = nil
	}
	return err
}

// release clears a take whose pumps ended without Stop, such as on an
// encoder error.
func (w *webmProvider) release(reader mediadevices.EncodedReadCloser) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.reader != reader {
		return
	}
	w.cancel()
	w.cancel = nil
	w.reader = nil
	reader.Close()
	if w.unsub != nil {
		w.unsub()
		w.unsub = nil
	}
}

func (w *webmProvider) pumpVideo(ctx context.Context, reader mediadevices.EncodedReadCloser, bw webm.BlockWriteCloser, start time.Time) {
	for ctx.Err() == nil {
		buf, release, err := reader.Read()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Video encoder read error")
			}
			return
		}

		// The muxer writes asynchronously; the encoder reuses its buffer.
		data := append([]byte(nil), buf.Data...)
		release()

		if _, err := bw.Write(isVP8Keyframe(data), time.Since(start).Milliseconds(), data); err != nil {
			w.log.Error().Err(err).Msg("Failed to write video block")
			return
		}
	}
}

func (w *webmProvider) pumpAudio(samples <-chan []float32, enc *opus.Encoder, sampleRate int, bw webm.BlockWriteCloser) {
	frame := sampleRate / 50 // 20ms
	pcm := make([]float32, 0, frame*2)
	var encoded int64

	for block := range samples {
		pcm = append(pcm, block...)
		for len(pcm) >= frame {
			out := make([]byte, 1275)
			n, err := enc.EncodeFloat32(pcm[:frame], out)
			if err != nil {
				w.log.Error().Err(err).Msg("Opus encode error")
				return
			}
			ts := encoded * 1000 / int64(sampleRate)
			if _, err := bw.Write(true, ts, out[:n]); err != nil {
				w.log.Error().Err(err).Msg("Failed to write audio block")
				return
			}
			encoded += int64(frame)
			pcm = append(pcm[:0], pcm[frame:]...)
		}
	}
}

// trackEntries describes the VP8 track and, when withAudio is set, the mono
// Opus track.
func trackEntries(width, height, sampleRate int, withAudio bool) []webm.TrackEntry {
	entries := []webm.TrackEntry{{
		Name:            "Video",
		TrackNumber:     1,
		TrackUID:        1,
		CodecID:         "V_VP8",
		TrackType:       1,
		DefaultDuration: 33333333,
		Video: &webm.Video{
			PixelWidth:  uint64(width),
			PixelHeight: uint64(height),
		},
	}}
	if withAudio {
		entries = append(entries, webm.TrackEntry{
			Name:         "Audio",
			TrackNumber:  2,
			TrackUID:     2,
			CodecID:      "A_OPUS",
			CodecPrivate: opusHead(1, sampleRate),
			TrackType:    2,
			Audio: &webm.Audio{
				SamplingFrequency: float64(sampleRate),
				Channels:          1,
			},
		})
	}
	return entries
}

// opusHead builds the identification header Matroska expects as the Opus
// codec private data.
func opusHead(channels, sampleRate int) []byte {
	h := make([]byte, 19)
	copy(h, "OpusHead")
	h[8] = 1 // version
	h[9] = byte(channels)
	binary.LittleEndian.PutUint16(h[10:], opusPreSkip)
	binary.LittleEndian.PutUint32(h[12:], uint32(sampleRate))
	// output gain (2 bytes) and mapping family (1 byte) stay zero
	return h
}

// isVP8Keyframe reports whether data starts a VP8 key frame: bit 0 of the
// frame tag is 0 for key frames.
func isVP8Keyframe(data []byte) bool {
	return len(data) > 0 && data[0]&0x01 == 0
}

// segmentWriter turns every muxer write into an emitted segment. Close
// marks the end of the take.
type segmentWriter struct {
	onData  func([]byte)
	onClose func()
	once    sync.Once
}

func (s *segmentWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		s.onData(append([]byte(nil), p...))
	}
	return len(p), nil
}

func (s *segmentWriter) Close() error {
	s.once.Do(s.onClose)
	return nil
}
