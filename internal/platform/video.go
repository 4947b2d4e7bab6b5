package platform

import (
	"errors"
	"image"
	"sync/atomic"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/io/video"

	"github.com/petems/camtray/internal/media"
)

var errReaderClosed = errors.New("frame reader closed")

type videoTrack struct {
	track     *mediadevices.VideoTrack
	label     string
	codecMIME string
}

func (t *videoTrack) ID() string       { return t.track.ID() }
func (t *videoTrack) Kind() media.Kind { return media.VideoInput }
func (t *videoTrack) Label() string    { return t.label }

func (t *videoTrack) NewFrameReader() (media.FrameReader, error) {
	return &frameReader{r: t.track.NewReader(false)}, nil
}

// frameReader adapts a mediadevices reader. The camera delivers frames
// continuously, so a closed reader returns at the next frame.
type frameReader struct {
	r      video.Reader
	closed atomic.Bool
}

func (f *frameReader) Read() (image.Image, func(), error) {
	if f.closed.Load() {
		return nil, nil, errReaderClosed
	}
	img, release, err := f.r.Read()
	if err != nil {
		return nil, nil, err
	}
	if f.closed.Load() {
		release()
		return nil, nil, errReaderClosed
	}
	return img, release, nil
}

func (f *frameReader) Close() error {
	f.closed.Store(true)
	return nil
}
