// Package waveform draws the live time-domain waveform of the audio track,
// once per display refresh.
package waveform

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/petems/camtray/internal/canvas"
	"github.com/rs/zerolog"
)

// midpoint is the zero level of unsigned 8-bit samples.
const midpoint = 128.0

var (
	Background = color.RGBA{200, 200, 200, 255}
	Stroke     = color.RGBA{0, 0, 0, 255}
)

const lineWidth = 2

// Analyser exposes the most recent time-domain samples of an audio stream.
type Analyser interface {
	// FrequencyBinCount is half the analysis window and the number of
	// samples ByteTimeDomainData writes.
	FrequencyBinCount() int
	ByteTimeDomainData(dst []byte)
}

// Polyline returns the waveform geometry for samples on a width x height
// surface. The last point extends the line to the right edge at the
// vertical center.
func Polyline(samples []byte, width, height float64) []canvas.Point {
	points := make([]canvas.Point, 0, len(samples)+1)
	if len(samples) > 0 {
		slice := width / float64(len(samples))
		x := 0.0
		for _, s := range samples {
			v := float64(s) / midpoint
			points = append(points, canvas.Point{X: x, Y: v * height / 2})
			x += slice
		}
	}
	return append(points, canvas.Point{X: width, Y: height / 2})
}

type Config struct {
	Analyser Analyser
	Canvas   *canvas.Canvas
	FPS      int
	Logger   zerolog.Logger
	// Present is called after every redraw with the canvas image. It runs on
	// the render goroutine and must not retain the image.
	Present func(img *image.RGBA)
}

type Renderer struct {
	analyser Analyser
	canvas   *canvas.Canvas
	interval time.Duration
	log      zerolog.Logger
	present  func(*image.RGBA)

	buf []byte

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) *Renderer {
	fps := cfg.FPS
	if fps <= 0 {
		fps = 60
	}
	return &Renderer{
		analyser: cfg.Analyser,
		canvas:   cfg.Canvas,
		interval: time.Second / time.Duration(fps),
		log:      cfg.Logger,
		present:  cfg.Present,
		buf:      make([]byte, cfg.Analyser.FrequencyBinCount()),
	}
}

// Draw runs a single redraw from the freshest samples and returns the
// plotted geometry.
func (r *Renderer) Draw() []canvas.Point {
	r.analyser.ByteTimeDomainData(r.buf)

	w, h := float64(r.canvas.Width()), float64(r.canvas.Height())
	points := Polyline(r.buf, w, h)

	r.canvas.Fill(Background)
	r.canvas.StrokePolyline(points, lineWidth, Stroke)

	if r.present != nil {
		r.present(r.canvas.Image())
	}
	return points
}

// Start redraws on every refresh tick until Stop is called or ctx is done.
// Calling Start on a running renderer is a no-op.
func (r *Renderer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	ticker := time.NewTicker(r.interval)
	go func(done chan struct{}) {
		defer close(done)
		defer ticker.Stop()
		r.run(ctx, ticker.C)
	}(r.done)

	r.log.Debug().Dur("interval", r.interval).Msg("Waveform renderer started")
}

// Stop cancels the redraw loop and waits for the in-flight frame.
func (r *Renderer) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Debug().Msg("Waveform renderer stopped")
}

// Running reports whether the redraw loop is active.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Renderer) run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			r.Draw()
		}
	}
}
