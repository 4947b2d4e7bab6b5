// Package snapshot captures still frames from the live preview into a
// bounded gallery.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/petems/camtray/internal/artifact"
	"github.com/petems/camtray/internal/canvas"
	"github.com/rs/zerolog"
)

// MediaType of encoded snapshots. PNG keeps snapshots lossless.
const MediaType = "image/png"

var (
	// ErrNoFrame is returned when the preview has not produced a frame yet.
	ErrNoFrame = errors.New("no video frame available")
	// ErrEmptyGallery is returned when downloading with nothing captured.
	ErrEmptyGallery = errors.New("no snapshot to download")
)

// FrameSource provides the frame currently on display.
type FrameSource interface {
	Frame() (image.Image, bool)
}

type Config struct {
	Source      FrameSource
	Store       *artifact.Store
	Gallery     *Gallery
	DownloadDir string
	FileName    string
	Logger      zerolog.Logger
}

type Capturer struct {
	source      FrameSource
	store       *artifact.Store
	gallery     *Gallery
	downloadDir string
	fileName    string
	log         zerolog.Logger

	mu     sync.Mutex
	canvas *canvas.Canvas
}

func New(cfg Config) *Capturer {
	fileName := cfg.FileName
	if fileName == "" {
		fileName = "snapshot.png"
	}
	gallery := cfg.Gallery
	if gallery == nil {
		gallery = NewGallery(GalleryCapacity, nil)
	}
	return &Capturer{
		source:      cfg.Source,
		store:       cfg.Store,
		gallery:     gallery,
		downloadDir: cfg.DownloadDir,
		fileName:    fileName,
		log:         cfg.Logger,
		canvas:      canvas.New(0, 0),
	}
}

// Capture rasterizes the current frame, encodes it and adds it to the
// gallery.
func (c *Capturer) Capture() (*artifact.Artifact, error) {
	frame, ok := c.source.Frame()
	if !ok || frame == nil || frame.Bounds().Empty() {
		return nil, ErrNoFrame
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The source may renegotiate its resolution between captures.
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	c.canvas.Resize(w, h)
	c.canvas.DrawFrame(frame)

	data, err := c.canvas.EncodePNG()
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	a := c.store.Put(MediaType, data)
	a.Width, a.Height = w, h

	for _, old := range c.gallery.Add(a) {
		c.store.Revoke(old.URL)
	}

	c.log.Debug().
		Str("url", a.URL).
		Int("width", w).
		Int("height", h).
		Int("bytes", a.Size()).
		Msg("Snapshot captured")

	return a, nil
}

// Download saves a under the fixed snapshot file name. A nil a means the
// latest snapshot.
func (c *Capturer) Download(a *artifact.Artifact) (string, error) {
	if a == nil {
		a = c.gallery.Latest()
	}
	if a == nil {
		return "", ErrEmptyGallery
	}

	path, err := artifact.Save(a, c.downloadDir, c.fileName)
	if err != nil {
		return "", err
	}

	c.log.Info().Str("path", path).Msg("Snapshot downloaded")
	return path, nil
}

// Gallery returns the gallery snapshots are added to.
func (c *Capturer) Gallery() *Gallery {
	return c.gallery
}
