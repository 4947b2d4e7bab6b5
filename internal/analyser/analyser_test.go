package analyser

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petems/camtray/internal/media"
)

type fakeTrack struct {
	mu  sync.Mutex
	ch  chan []float32
	off bool
}

func (t *fakeTrack) ID() string       { return "mic" }
func (t *fakeTrack) Kind() media.Kind { return media.AudioInput }
func (t *fakeTrack) Label() string    { return "Mic" }
func (t *fakeTrack) SampleRate() int  { return 48000 }

func (t *fakeTrack) Subscribe(buffer int) (<-chan []float32, func()) {
	t.ch = make(chan []float32, buffer)
	return t.ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.off {
			t.off = true
			close(t.ch)
		}
	}
}

func TestToByte(t *testing.T) {
	tests := []struct {
		in   float32
		want byte
	}{
		{0, 128},
		{-1, 0},
		{1, 255}, // clamped
		{0.5, 192},
		{-0.5, 64},
		{-2, 0},
		{3, 255},
	}
	for _, tt := range tests {
		if got := toByte(tt.in); got != tt.want {
			t.Errorf("toByte(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestFFTSizeValidation(t *testing.T) {
	for _, size := range []int{0, 16, 1000, 65536} {
		if _, err := New(&fakeTrack{}, size); !errors.Is(err, ErrFFTSize) {
			t.Errorf("size %d: expected ErrFFTSize, got %v", size, err)
		}
	}
}

func TestByteTimeDomainDataReturnsMostRecentSamples(t *testing.T) {
	a := newDetached(32)
	if a.FrequencyBinCount() != 16 {
		t.Fatalf("expected 16 bins, got %d", a.FrequencyBinCount())
	}

	// Silence reads as the midpoint
	dst := make([]byte, a.FrequencyBinCount())
	a.ByteTimeDomainData(dst)
	for i, b := range dst {
		if b != 128 {
			t.Fatalf("sample %d: expected 128 for silence, got %d", i, b)
		}
	}

	// 40 samples wrap the 32 sample window; the last 16 are all 0.5
	samples := make([]float32, 40)
	for i := 24; i < 40; i++ {
		samples[i] = 0.5
	}
	for _, s := range samples {
		a.Write([]float32{s})
	}
	a.ByteTimeDomainData(dst)
	for i, b := range dst {
		if b != 192 {
			t.Fatalf("sample %d: expected 192, got %d", i, b)
		}
	}
}

func TestWriteLargeBlockKeepsTail(t *testing.T) {
	a := newDetached(32)
	block := make([]float32, 100)
	block[99] = -1

	a.Write(block)

	dst := make([]byte, 16)
	a.ByteTimeDomainData(dst)
	if dst[15] != 0 {
		t.Errorf("expected newest sample last, got %d", dst[15])
	}
	if dst[0] != 128 {
		t.Errorf("expected older samples to be silence, got %d", dst[0])
	}
}

func TestNewFollowsTrack(t *testing.T) {
	track := &fakeTrack{}
	a, err := New(track, 32)
	if err != nil {
		t.Fatal(err)
	}

	block := make([]float32, 32)
	for i := range block {
		block[i] = -0.5
	}
	track.ch <- block

	dst := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	for {
		a.ByteTimeDomainData(dst)
		if dst[0] == 64 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if dst[0] != 64 {
		t.Errorf("expected track samples to reach the analyser, got %d", dst[0])
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
}
