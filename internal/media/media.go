// Package media holds the types shared between the capture components and
// the platform adapters: device descriptors, stream constraints and the
// stream handle itself.
package media

import (
	"image"
	"strings"
)

// Kind is the type of a media device.
type Kind string

const (
	AudioInput  Kind = "audioinput"
	VideoInput  Kind = "videoinput"
	AudioOutput Kind = "audiooutput"
)

// Device describes one device exposed by the platform.
type Device struct {
	Kind  Kind
	ID    string
	Label string
}

// String renders the device the way the detected devices list shows it,
// e.g. "VIDEOINPUT: FaceTime HD Camera".
func (d Device) String() string {
	return strings.ToUpper(string(d.Kind)) + ": " + d.Label
}

// Range is a min/ideal/max hint. Zero fields are unset.
type Range struct {
	Min   int `json:"min"`
	Ideal int `json:"ideal"`
	Max   int `json:"max"`
}

// VideoConstraints are advisory; the platform honors them best effort.
type VideoConstraints struct {
	FacingMode string `json:"facing_mode"` // "user" or "environment"
	Width      Range  `json:"width"`
	Height     Range  `json:"height"`
	FrameRate  *Range `json:"frame_rate,omitempty"`
}

// Constraints select the stream requested from the platform.
type Constraints struct {
	Audio bool              `json:"audio"`
	Video *VideoConstraints `json:"video,omitempty"`
}

// DefaultConstraints requests a front facing 720p camera at 30fps plus the
// microphone.
func DefaultConstraints() Constraints {
	return Constraints{
		Audio: true,
		Video: &VideoConstraints{
			FacingMode: "user",
			Width:      Range{Min: 640, Ideal: 1280, Max: 1920},
			Height:     Range{Min: 480, Ideal: 720, Max: 1080},
			FrameRate:  &Range{Min: 24, Ideal: 30, Max: 60},
		},
	}
}

// Track is one source inside a Stream.
type Track interface {
	ID() string
	Kind() Kind
	Label() string
}

// FrameReader yields decoded video frames. release must be called once the
// frame is no longer used. Close unblocks a pending Read and may be called
// more than once.
type FrameReader interface {
	Read() (frame image.Image, release func(), err error)
	Close() error
}

// VideoTrack is a camera source.
type VideoTrack interface {
	Track
	NewFrameReader() (FrameReader, error)
}

// AudioTrack is a microphone source delivering mono float32 PCM.
type AudioTrack interface {
	Track
	SampleRate() int
	// Subscribe returns a channel of sample blocks and a function that
	// cancels the subscription and closes the channel. Blocks are dropped
	// when the channel is full.
	Subscribe(buffer int) (<-chan []float32, func())
}

// Stream is a live audio+video source. It is owned by the session that
// acquired it; consumers only read from it and must not close it.
type Stream interface {
	VideoTracks() []VideoTrack
	AudioTracks() []AudioTrack
	Close() error
}
