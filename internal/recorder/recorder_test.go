package recorder

import (
	"errors"
	"sync"
	"testing"

	"github.com/petems/camtray/internal/artifact"
	"github.com/rs/zerolog"
)

// fakeProvider records the callbacks so tests can emit segments by hand.
type fakeProvider struct {
	mu       sync.Mutex
	onData   func([]byte)
	onStop   func()
	starts   int
	stops    int
	startErr error
	// flush is emitted from Stop before signalling the end of the take,
	// like an encoder draining its last cluster.
	flush []byte
}

func (f *fakeProvider) Start(onData func([]byte), onStop func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.onData = onData
	f.onStop = onStop
	return nil
}

func (f *fakeProvider) Stop() error {
	f.mu.Lock()
	onData, onStop, flush := f.onData, f.onStop, f.flush
	f.stops++
	f.mu.Unlock()

	if flush != nil {
		onData(flush)
	}
	onStop()
	return nil
}

func (f *fakeProvider) emit(seg []byte) {
	f.mu.Lock()
	onData := f.onData
	f.mu.Unlock()
	onData(seg)
}

type fakePlayer struct {
	sources []string
}

func (p *fakePlayer) SetSource(url string) {
	p.sources = append(p.sources, url)
}

func newTestRecorder(p Provider) (*Recorder, *artifact.Store, *fakePlayer) {
	store := artifact.NewStore()
	player := &fakePlayer{}
	r := New(Config{
		Provider: p,
		Store:    store,
		Player:   player,
		Logger:   zerolog.Nop(),
	})
	return r, store, player
}

func TestRecorderFinalizesNonEmptySegmentsInOrder(t *testing.T) {
	p := &fakeProvider{}
	r, store, player := newTestRecorder(p)

	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("expected recording, got %s", r.State())
	}

	p.emit([]byte("ab"))
	p.emit(nil)
	p.emit([]byte{})
	p.emit([]byte("cd"))

	if r.Buffered() != 2 {
		t.Errorf("expected 2 buffered segments, got %d", r.Buffered())
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if r.State() != Idle {
		t.Errorf("expected idle after stop, got %s", r.State())
	}
	if r.Buffered() != 0 {
		t.Errorf("expected empty buffer after finalize, got %d", r.Buffered())
	}

	last := r.Last()
	if last == nil {
		t.Fatal("expected a finalized recording")
	}
	if string(last.Data) != "abcd" {
		t.Errorf("expected abcd, got %q", last.Data)
	}
	if last.MediaType != "video/webm" {
		t.Errorf("expected video/webm, got %s", last.MediaType)
	}
	if len(player.sources) != 1 || player.sources[0] != last.URL {
		t.Errorf("expected player bound to %s, got %v", last.URL, player.sources)
	}
	if _, err := store.Resolve(last.URL); err != nil {
		t.Errorf("expected URL to resolve: %v", err)
	}
}

func TestRecorderIncludesFlushedSegment(t *testing.T) {
	p := &fakeProvider{flush: []byte("tail")}
	r, _, _ := newTestRecorder(p)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	p.emit([]byte("head-"))
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	if got := string(r.Last().Data); got != "head-tail" {
		t.Errorf("expected head-tail, got %q", got)
	}
}

func TestRecorderTakesDoNotMix(t *testing.T) {
	p := &fakeProvider{}
	r, store, player := newTestRecorder(p)

	r.Start()
	p.emit([]byte("one"))
	r.Stop()
	first := r.Last()

	r.Start()
	p.emit([]byte("two"))
	r.Stop()
	second := r.Last()

	if string(second.Data) != "two" {
		t.Errorf("expected second take to contain only its own data, got %q", second.Data)
	}
	if first.URL == second.URL {
		t.Error("expected a new URL per take")
	}
	if _, err := store.Resolve(first.URL); !errors.Is(err, artifact.ErrNotFound) {
		t.Errorf("expected the replaced recording to be revoked, got %v", err)
	}
	if len(player.sources) != 2 {
		t.Errorf("expected two bindings, got %d", len(player.sources))
	}
}

func TestRecorderEmptyTake(t *testing.T) {
	p := &fakeProvider{}
	r, _, _ := newTestRecorder(p)

	r.Start()
	p.emit([]byte{})
	r.Stop()

	if r.Last() == nil || r.Last().Size() != 0 {
		t.Errorf("expected an empty recording, got %+v", r.Last())
	}
}

func TestRecorderWrongStateCalls(t *testing.T) {
	p := &fakeProvider{}
	r, _, _ := newTestRecorder(p)

	if err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	p.emit([]byte("x"))

	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("expected ErrAlreadyRecording, got %v", err)
	}
	if p.starts != 1 {
		t.Errorf("expected provider to be started once, got %d", p.starts)
	}
	// The rejected start must not reset the buffer
	if r.Buffered() != 1 {
		t.Errorf("expected buffer to survive the rejected start, got %d", r.Buffered())
	}

	r.Stop()
	if err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}
	if p.stops != 1 {
		t.Errorf("expected provider to be stopped once, got %d", p.stops)
	}
}

func TestRecorderStartFailureStaysIdle(t *testing.T) {
	p := &fakeProvider{startErr: errors.New("encoder unavailable")}
	r, _, _ := newTestRecorder(p)

	if err := r.Start(); err == nil {
		t.Fatal("expected start to fail")
	}
	if r.State() != Idle {
		t.Errorf("expected idle after failed start, got %s", r.State())
	}
}

func TestRecorderLateSegmentsAfterFinalizeAreDropped(t *testing.T) {
	p := &fakeProvider{}
	r, _, _ := newTestRecorder(p)

	r.Start()
	stale := p.onData
	p.emit([]byte("a"))
	r.Stop()

	stale([]byte("late"))

	if string(r.Last().Data) != "a" {
		t.Errorf("expected finalized data to be unchanged, got %q", r.Last().Data)
	}
	if r.Buffered() != 0 {
		t.Errorf("expected late segment to be dropped, got %d buffered", r.Buffered())
	}
}
