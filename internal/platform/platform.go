// Package platform implements the capture collaborators on top of
// pion/mediadevices (camera, VP8) and PortAudio (microphone, speakers).
package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog"

	// Registers the camera driver with mediadevices.
	_ "github.com/pion/mediadevices/pkg/driver/camera"

	"github.com/petems/camtray/internal/audio"
	"github.com/petems/camtray/internal/config"
	"github.com/petems/camtray/internal/media"
	"github.com/petems/camtray/internal/permissions"
)

// framesPerBuffer is 20ms at 48kHz, one Opus frame.
const framesPerBuffer = 960

type Config struct {
	Audio    config.AudioConfig
	Recorder config.RecorderConfig
	Logger   zerolog.Logger
}

type Platform struct {
	pa  *audio.PortAudio
	cfg Config
	log zerolog.Logger
}

// New initializes the audio backend.
func New(cfg Config) (*Platform, error) {
	pa, err := audio.New()
	if err != nil {
		return nil, err
	}
	return &Platform{pa: pa, cfg: cfg, log: cfg.Logger}, nil
}

// EnumerateDevices lists audio inputs, cameras, then audio outputs.
func (p *Platform) EnumerateDevices(ctx context.Context) ([]media.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audioDevs, err := p.pa.ListDevices()
	if err != nil {
		return nil, err
	}

	var inputs, outputs []media.Device
	for _, d := range audioDevs {
		for _, desc := range d.Descriptors() {
			if desc.Kind == media.AudioInput {
				inputs = append(inputs, desc)
			} else {
				outputs = append(outputs, desc)
			}
		}
	}

	out := inputs
	for _, info := range mediadevices.EnumerateDevices() {
		if info.Kind != mediadevices.VideoInput {
			continue
		}
		out = append(out, media.Device{Kind: media.VideoInput, ID: info.DeviceID, Label: info.Label})
	}
	return append(out, outputs...), nil
}

// GetUserMedia opens the camera and, when requested, the microphone.
func (p *Platform) GetUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if c.Video == nil && !c.Audio {
		return nil, errors.New("at least one of audio and video must be requested")
	}

	if err := permissions.EnsureCapture(c.Audio, c.Video != nil); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &stream{}

	if c.Video != nil {
		vt, err := p.openCamera(*c.Video)
		if err != nil {
			return nil, err
		}
		s.video = append(s.video, vt)
	}

	if c.Audio {
		at, err := p.pa.OpenTrack(p.cfg.Audio.DeviceID, p.sampleRate(), framesPerBuffer)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.audio = append(s.audio, at)
	}

	return s, nil
}

func (p *Platform) sampleRate() int {
	if p.cfg.Audio.SampleRate > 0 {
		return p.cfg.Audio.SampleRate
	}
	return 48000
}

func (p *Platform) openCamera(v media.VideoConstraints) (*videoTrack, error) {
	vp8, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("failed to create vp8 params: %w", err)
	}
	if p.cfg.Recorder.BitRate > 0 {
		vp8.BitRate = p.cfg.Recorder.BitRate
	}

	if v.FacingMode != "" {
		p.log.Debug().Str("facing_mode", v.FacingMode).Msg("Facing mode is advisory and not supported by the camera driver")
	}

	ms, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			applyVideoConstraints(&mc.Media, v)
		},
		Codec: mediadevices.NewCodecSelector(mediadevices.WithVideoEncoders(&vp8)),
	})
	if err != nil {
		return nil, classify(err)
	}

	tracks := ms.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, media.DeviceError(errors.New("no video track"))
	}

	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		tracks[0].Close()
		return nil, fmt.Errorf("unexpected video track type %T", tracks[0])
	}

	return &videoTrack{
		track:     vt,
		label:     cameraLabel(vt.ID()),
		codecMIME: vp8.RTPCodec().MimeType,
	}, nil
}

// applyVideoConstraints maps the range hints onto mediadevices properties.
func applyVideoConstraints(m *prop.Media, v media.VideoConstraints) {
	m.Width = intRange(v.Width)
	m.Height = intRange(v.Height)
	if v.FrameRate != nil {
		m.FrameRate = prop.FloatRanged{
			Min:   float32(v.FrameRate.Min),
			Ideal: float32(v.FrameRate.Ideal),
			Max:   float32(v.FrameRate.Max),
		}
	}
}

func intRange(r media.Range) prop.IntRanged {
	return prop.IntRanged{Min: r.Min, Ideal: r.Ideal, Max: r.Max}
}

// cameraLabel looks up the human readable name of the camera with id.
func cameraLabel(id string) string {
	for _, info := range mediadevices.EnumerateDevices() {
		if info.DeviceID == id {
			return info.Label
		}
	}
	return id
}

// classify maps driver errors onto the reported error kinds.
func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return media.PermissionError(err)
	}
	return media.DeviceError(err)
}

// Close releases the audio backend.
func (p *Platform) Close() error {
	return p.pa.Close()
}

type stream struct {
	video []*videoTrack
	audio []*audio.Track
	once  sync.Once
}

func (s *stream) VideoTracks() []media.VideoTrack {
	out := make([]media.VideoTrack, len(s.video))
	for i, t := range s.video {
		out[i] = t
	}
	return out
}

func (s *stream) AudioTracks() []media.AudioTrack {
	out := make([]media.AudioTrack, len(s.audio))
	for i, t := range s.audio {
		out[i] = t
	}
	return out
}

func (s *stream) Close() error {
	var errs []error
	s.once.Do(func() {
		for _, t := range s.video {
			errs = append(errs, t.track.Close())
		}
		for _, t := range s.audio {
			errs = append(errs, t.Close())
		}
	})
	return errors.Join(errs...)
}
