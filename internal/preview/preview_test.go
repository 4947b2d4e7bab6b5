package preview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/petems/camtray/internal/media"
	"github.com/rs/zerolog"
)

// fakeReader hands out frames pushed on a channel.
type fakeReader struct {
	frames    chan image.Image
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{frames: make(chan image.Image), closed: make(chan struct{})}
}

func (r *fakeReader) Read() (image.Image, func(), error) {
	select {
	case f := <-r.frames:
		return f, func() {}, nil
	case <-r.closed:
		return nil, nil, errors.New("reader closed")
	}
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

type fakeVideoTrack struct {
	reader *fakeReader
}

func (t *fakeVideoTrack) ID() string                                 { return "cam0" }
func (t *fakeVideoTrack) Kind() media.Kind                           { return media.VideoInput }
func (t *fakeVideoTrack) Label() string                              { return "Test Camera" }
func (t *fakeVideoTrack) NewFrameReader() (media.FrameReader, error) { return t.reader, nil }

type fakeStream struct {
	video []media.VideoTrack
}

func (s *fakeStream) VideoTracks() []media.VideoTrack { return s.video }
func (s *fakeStream) AudioTracks() []media.AudioTrack { return nil }
func (s *fakeStream) Close() error                    { return nil }

func frame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	return img
}

func TestAttachDefersPlaybackUntilFirstFrame(t *testing.T) {
	reader := newFakeReader()
	stream := &fakeStream{video: []media.VideoTrack{&fakeVideoTrack{reader: reader}}}

	playing := make(chan [2]int, 1)
	s := New(Config{
		Logger:    zerolog.Nop(),
		OnPlaying: func(w, h int) { playing <- [2]int{w, h} },
	})

	if err := s.Attach(context.Background(), stream); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	defer s.Detach()

	if s.Playing() {
		t.Fatal("expected playback to wait for the first frame")
	}
	if _, ok := s.Frame(); ok {
		t.Fatal("expected no frame before playback")
	}

	reader.frames <- frame(6, 4)

	select {
	case size := <-playing:
		if size != [2]int{6, 4} {
			t.Errorf("expected 6x4, got %v", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback")
	}

	img, ok := s.Frame()
	if !ok {
		t.Fatal("expected a frame after playback started")
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 6x4 frame, got %v", img.Bounds())
	}
	if w, h := s.Size(); w != 6 || h != 4 {
		t.Errorf("expected size 6x4, got %dx%d", w, h)
	}
}

func TestOnPlayingFiresOnce(t *testing.T) {
	reader := newFakeReader()
	stream := &fakeStream{video: []media.VideoTrack{&fakeVideoTrack{reader: reader}}}

	var mu sync.Mutex
	var plays, frames int
	s := New(Config{
		Logger:    zerolog.Nop(),
		OnPlaying: func(int, int) { mu.Lock(); plays++; mu.Unlock() },
		OnFrame:   func() { mu.Lock(); frames++; mu.Unlock() },
	})
	if err := s.Attach(context.Background(), stream); err != nil {
		t.Fatal(err)
	}

	reader.frames <- frame(2, 2)
	reader.frames <- frame(4, 2) // resolution change
	reader.frames <- frame(4, 2)
	s.Detach()

	mu.Lock()
	defer mu.Unlock()
	if plays != 1 {
		t.Errorf("expected OnPlaying once, got %d", plays)
	}
	if frames != 3 {
		t.Errorf("expected 3 frames, got %d", frames)
	}
	if w, _ := s.Size(); w != 4 {
		t.Errorf("expected surface to follow the new resolution, got width %d", w)
	}
}

func TestAttachWithoutVideo(t *testing.T) {
	s := New(Config{Logger: zerolog.Nop()})
	if err := s.Attach(context.Background(), &fakeStream{}); !errors.Is(err, ErrNoVideo) {
		t.Errorf("expected ErrNoVideo, got %v", err)
	}
}

func TestAttachTwice(t *testing.T) {
	stream := &fakeStream{video: []media.VideoTrack{&fakeVideoTrack{reader: newFakeReader()}}}
	s := New(Config{Logger: zerolog.Nop()})

	if err := s.Attach(context.Background(), stream); err != nil {
		t.Fatal(err)
	}
	defer s.Detach()

	if err := s.Attach(context.Background(), stream); !errors.Is(err, ErrAttached) {
		t.Errorf("expected ErrAttached, got %v", err)
	}
}
