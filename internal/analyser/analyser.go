// Package analyser samples the time-domain amplitude of an audio track, the
// way a Web Audio AnalyserNode does.
package analyser

import (
	"errors"
	"math"
	"sync"

	"github.com/petems/camtray/internal/media"
)

// ErrFFTSize is returned for window sizes that are not a power of two in
// [32, 32768].
var ErrFFTSize = errors.New("fft size must be a power of two between 32 and 32768")

type Analyser struct {
	fftSize int

	mu     sync.Mutex
	window []float32 // ring of the last fftSize samples
	pos    int

	cancel func()
	done   chan struct{}
}

// New taps track and keeps its last fftSize samples.
func New(track media.AudioTrack, fftSize int) (*Analyser, error) {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return nil, ErrFFTSize
	}

	blocks, cancel := track.Subscribe(16)
	a := &Analyser{
		fftSize: fftSize,
		window:  make([]float32, fftSize),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		for block := range blocks {
			a.Write(block)
		}
	}()

	return a, nil
}

// newDetached returns an analyser that is only fed through Write.
func newDetached(fftSize int) *Analyser {
	return &Analyser{fftSize: fftSize, window: make([]float32, fftSize)}
}

// Write appends samples to the analysis window.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(samples) >= a.fftSize {
		copy(a.window, samples[len(samples)-a.fftSize:])
		a.pos = 0
		return
	}
	for _, s := range samples {
		a.window[a.pos] = s
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// FFTSize is the analysis window length.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount is half the analysis window.
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// ByteTimeDomainData copies the most recent len(dst) samples into dst as
// unsigned bytes centered at 128.
func (a *Analyser) ByteTimeDomainData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(dst)
	if n > a.fftSize {
		n = a.fftSize
	}
	start := a.pos - n
	if start < 0 {
		start += a.fftSize
	}
	for i := 0; i < n; i++ {
		dst[i] = toByte(a.window[(start+i)%a.fftSize])
	}
}

func toByte(s float32) byte {
	v := math.Floor(128 * (float64(s) + 1))
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

// Close detaches from the track.
func (a *Analyser) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	return nil
}
