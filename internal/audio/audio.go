package audio

import (
	"sync"

	"github.com/petems/camtray/internal/media"
)

// Device represents an audio device known to PortAudio
type Device struct {
	ID      string
	Name    string
	Input   bool
	Output  bool
	Default bool
}

// Descriptors converts d into one media.Device per direction it supports.
func (d Device) Descriptors() []media.Device {
	var out []media.Device
	if d.Input {
		out = append(out, media.Device{Kind: media.AudioInput, ID: d.ID, Label: d.Name})
	}
	if d.Output {
		out = append(out, media.Device{Kind: media.AudioOutput, ID: d.ID, Label: d.Name})
	}
	return out
}

// broadcaster fans sample blocks out to subscribers. Slow subscribers lose
// blocks instead of stalling the capture loop.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan []float32
	next   int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan []float32)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan []float32, func()) {
	ch := make(chan []float32, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *broadcaster) publish(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- samples:
		default:
			// Drop if channel full (backpressure)
		}
	}
}

// close ends every subscription.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
