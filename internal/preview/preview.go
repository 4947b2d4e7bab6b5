// Package preview keeps the latest camera frame on a display surface.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/petems/camtray/internal/media"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

var (
	// ErrNoVideo is returned when the stream has no video track.
	ErrNoVideo = errors.New("stream has no video track")
	// ErrAttached is returned when the sink is already showing a stream.
	ErrAttached = errors.New("preview already attached")
)

type Config struct {
	Logger zerolog.Logger
	// OnPlaying is called once, after the first frame reported its size and
	// playback started.
	OnPlaying func(width, height int)
	// OnFrame is called after every displayed frame. Optional.
	OnFrame func()
}

type Sink struct {
	log       zerolog.Logger
	onPlaying func(width, height int)
	onFrame   func()

	mu      sync.Mutex
	playing bool
	surface *image.RGBA
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config) *Sink {
	return &Sink{
		log:       cfg.Logger,
		onPlaying: cfg.OnPlaying,
		onFrame:   cfg.OnFrame,
	}
}

// Attach binds the first video track of stream to the sink. Frames are
// pulled until ctx is done or Detach is called.
func (s *Sink) Attach(ctx context.Context, stream media.Stream) error {
	tracks := stream.VideoTracks()
	if len(tracks) == 0 {
		return ErrNoVideo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAttached
	}

	reader, err := tracks[0].NewFrameReader()
	if err != nil {
		return fmt.Errorf("failed to open video reader: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done

	go func() {
		defer close(done)
		defer reader.Close()
		s.pump(ctx, reader)
	}()

	// Unblock a pending Read when the context ends.
	go func() {
		<-ctx.Done()
		reader.Close()
	}()

	s.log.Debug().Str("track", tracks[0].Label()).Msg("Preview attached")
	return nil
}

// Detach stops pulling frames. The last frame stays on the surface.
func (s *Sink) Detach() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sink) pump(ctx context.Context, reader media.FrameReader) {
	for {
		frame, release, err := reader.Read()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error().Err(err).Msg("Preview read error")
			}
			return
		}
		first := s.show(frame)
		release()

		if first {
			b := frame.Bounds()
			s.log.Info().Int("width", b.Dx()).Int("height", b.Dy()).Msg("Preview playing")
			if s.onPlaying != nil {
				s.onPlaying(b.Dx(), b.Dy())
			}
		}
		if s.onFrame != nil {
			s.onFrame()
		}
	}
}

// show copies frame onto the surface. It reports whether this was the
// first frame, i.e. whether playback just started.
func (s *Sink) show(frame image.Image) bool {
	b := frame.Bounds()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface == nil || s.surface.Bounds().Size() != b.Size() {
		s.surface = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(s.surface, s.surface.Bounds(), frame, b.Min, draw.Src)

	first := !s.playing
	s.playing = true
	return first
}

// Frame returns a copy of the frame on display and whether playback has
// started.
func (s *Sink) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.surface == nil {
		return nil, false
	}
	cp := image.NewRGBA(s.surface.Bounds())
	copy(cp.Pix, s.surface.Pix)
	return cp, true
}

// Size returns the current frame dimensions, zero before playback.
func (s *Sink) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return 0, 0
	}
	return s.surface.Bounds().Dx(), s.surface.Bounds().Dy()
}

// Playing reports whether the first frame has been displayed.
func (s *Sink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}
