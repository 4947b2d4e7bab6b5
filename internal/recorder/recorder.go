// Package recorder buffers encoded segments of a stream between Start and
// Stop and turns each take into a single playable artifact.
package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/camtray/internal/artifact"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyRecording is returned by Start while a take is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop while idle.
	ErrNotRecording = errors.New("not recording")
)

// State of the recorder.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Provider encodes the stream. It emits segments at its own cadence by
// calling onData from its own goroutine and calls onStop exactly once after
// the last segment of the take has been delivered.
type Provider interface {
	Start(onData func(segment []byte), onStop func()) error
	Stop() error
}

// Player is the playback surface a finished recording is bound to.
type Player interface {
	SetSource(url string)
}

type Config struct {
	Provider    Provider
	Store       *artifact.Store
	Player      Player // Optional - can be nil
	MimeType    string
	Logger      zerolog.Logger
	OnFinalized func(*artifact.Artifact) // Optional - can be nil
}

// take holds the segments of one Start/Stop cycle.
type take struct {
	id       int
	segments [][]byte
	done     bool
}

type Recorder struct {
	provider    Provider
	store       *artifact.Store
	player      Player
	mimeType    string
	log         zerolog.Logger
	onFinalized func(*artifact.Artifact)

	mu      sync.Mutex
	state   State
	takes   int
	current *take
	last    *artifact.Artifact
}

func New(cfg Config) *Recorder {
	mimeType := cfg.MimeType
	if mimeType == "" {
		mimeType = "video/webm"
	}
	return &Recorder{
		provider:    cfg.Provider,
		store:       cfg.Store,
		player:      cfg.Player,
		mimeType:    mimeType,
		log:         cfg.Logger,
		onFinalized: cfg.OnFinalized,
	}
}

// Start begins a new take with an empty buffer.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state == Recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.takes++
	t := &take{id: r.takes}
	r.current = t
	r.state = Recording
	r.mu.Unlock()

	// The provider may deliver data before Start returns, so it is called
	// without holding the lock.
	err := r.provider.Start(
		func(segment []byte) { r.append(t, segment) },
		func() { r.finalize(t) },
	)
	if err != nil {
		r.mu.Lock()
		t.done = true
		if r.current == t {
			r.current = nil
			r.state = Idle
		}
		r.mu.Unlock()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	r.log.Info().Int("take", t.id).Msg("Recording started")
	return nil
}

// Stop ends the current take. Finalization happens when the provider signals
// that its last segment has been delivered.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.state = Idle
	id := r.current.id
	r.mu.Unlock()

	if err := r.provider.Stop(); err != nil {
		return fmt.Errorf("failed to stop recording: %w", err)
	}

	r.log.Info().Int("take", id).Msg("Recording stopped")
	return nil
}

func (r *Recorder) append(t *take, segment []byte) {
	if len(segment) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.done {
		return
	}
	t.segments = append(t.segments, segment)
}

func (r *Recorder) finalize(t *take) {
	r.mu.Lock()
	if t.done {
		r.mu.Unlock()
		return
	}
	t.done = true
	data := bytes.Join(t.segments, nil)
	segments := len(t.segments)
	t.segments = nil
	if r.current == t {
		r.current = nil
		r.state = Idle
	}
	previous := r.last
	a := r.store.Put(r.mimeType, data)
	r.last = a
	r.mu.Unlock()

	if previous != nil {
		r.store.Revoke(previous.URL)
	}

	r.log.Info().
		Int("take", t.id).
		Int("segments", segments).
		Int("bytes", a.Size()).
		Str("url", a.URL).
		Msg("Recording finalized")

	if r.player != nil {
		r.player.SetSource(a.URL)
	}
	if r.onFinalized != nil {
		r.onFinalized(a)
	}
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Buffered returns the number of segments held for the active take.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return 0
	}
	return len(r.current.segments)
}

// Last returns the most recently finalized recording, or nil.
func (r *Recorder) Last() *artifact.Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
