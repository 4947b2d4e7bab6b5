// Package session acquires the capture stream and wires the components that
// consume it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/camtray/internal/media"
	"github.com/petems/camtray/internal/recorder"
	"github.com/petems/camtray/internal/waveform"
	"github.com/rs/zerolog"
)

// ErrInitialized is returned by a second Init.
var ErrInitialized = errors.New("session already initialized")

// Acquirer opens a stream matching the constraints. It may prompt the user
// for permission.
type Acquirer interface {
	GetUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error)
}

// ListView is an ordered list of text lines on the display.
type ListView interface {
	Append(line string)
}

// Preview is the live display surface.
type Preview interface {
	Attach(ctx context.Context, stream media.Stream) error
	Detach()
}

type Config struct {
	Acquirer  Acquirer
	Connected ListView
	Logger    zerolog.Logger

	// Each consumer is optional; a nil entry is simply not wired.
	Preview     Preview
	NewRecorder func(stream media.Stream) (*recorder.Recorder, error)
	NewRenderer func(stream media.Stream) (*waveform.Renderer, error)

	// OnReady is called once all consumers are wired.
	OnReady func(s *Session)
}

type Session struct {
	acquirer    Acquirer
	connected   ListView
	log         zerolog.Logger
	preview     Preview
	newRecorder func(media.Stream) (*recorder.Recorder, error)
	newRenderer func(media.Stream) (*waveform.Renderer, error)
	onReady     func(*Session)

	mu       sync.Mutex
	started  bool
	stream   media.Stream
	rec      *recorder.Recorder
	renderer *waveform.Renderer
	attached bool
}

func New(cfg Config) *Session {
	return &Session{
		acquirer:    cfg.Acquirer,
		connected:   cfg.Connected,
		log:         cfg.Logger,
		preview:     cfg.Preview,
		newRecorder: cfg.NewRecorder,
		newRenderer: cfg.NewRenderer,
		onReady:     cfg.OnReady,
	}
}

// Init acquires the stream once and wires the configured consumers. On
// failure the error is logged with its kind and nothing is wired; there is
// no retry.
func (s *Session) Init(ctx context.Context, c media.Constraints) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrInitialized
	}
	s.started = true
	s.mu.Unlock()

	stream, err := s.acquirer.GetUserMedia(ctx, c)
	if err != nil {
		s.log.Error().
			Str("kind", media.ErrorName(err)).
			Str("message", err.Error()).
			Msg("Failed to acquire media stream")
		return fmt.Errorf("failed to acquire media stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.wireLocked(ctx, stream)
	s.mu.Unlock()

	if s.onReady != nil {
		s.onReady(s)
	}
	return nil
}

func (s *Session) wireLocked(ctx context.Context, stream media.Stream) {
	if s.preview != nil {
		if err := s.preview.Attach(ctx, stream); err != nil {
			s.log.Error().Err(err).Msg("Failed to attach preview")
		} else {
			s.attached = true
		}
	}

	s.logTracks(stream)

	if s.newRecorder != nil {
		rec, err := s.newRecorder(stream)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to set up recorder")
		} else {
			s.rec = rec
		}
	}

	if s.newRenderer != nil {
		r, err := s.newRenderer(stream)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to set up waveform")
		} else {
			s.renderer = r
			r.Start(ctx)
		}
	}
}

// logTracks lists the stream sources, video before audio.
func (s *Session) logTracks(stream media.Stream) {
	for _, t := range stream.VideoTracks() {
		s.connected.Append("Video Source: " + t.Label())
	}
	for _, t := range stream.AudioTracks() {
		s.connected.Append("Audio Source: " + t.Label())
	}
}

// Recorder returns the wired recorder, or nil.
func (s *Session) Recorder() *recorder.Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Renderer returns the wired waveform renderer, or nil.
func (s *Session) Renderer() *waveform.Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer
}

// Stream returns the acquired stream, or nil.
func (s *Session) Stream() media.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Close unwires every consumer and releases the stream. A recording in
// progress is stopped first so its take is finalized.
func (s *Session) Close() error {
	s.mu.Lock()
	stream, rec, renderer, attached := s.stream, s.rec, s.renderer, s.attached
	s.stream, s.rec, s.renderer, s.attached = nil, nil, nil, false
	s.mu.Unlock()

	if stream == nil {
		return nil
	}

	if renderer != nil {
		renderer.Stop()
	}
	if rec != nil && rec.State() == recorder.Recording {
		if err := rec.Stop(); err != nil {
			s.log.Error().Err(err).Msg("Failed to stop recording")
		}
	}
	if attached {
		s.preview.Detach()
	}

	s.log.Info().Msg("Closing media stream")
	return stream.Close()
}
