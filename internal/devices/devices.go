// Package devices renders the media devices the platform exposes.
package devices

import (
	"context"

	"github.com/petems/camtray/internal/media"
	"github.com/rs/zerolog"
)

// Enumerator lists the devices currently exposed by the platform.
type Enumerator interface {
	EnumerateDevices(ctx context.Context) ([]media.Device, error)
}

// ListView is an ordered list of text lines on the display.
type ListView interface {
	Append(line string)
}

type Lister struct {
	enum Enumerator
	view ListView
	log  zerolog.Logger
}

func New(enum Enumerator, view ListView, log zerolog.Logger) *Lister {
	return &Lister{enum: enum, view: view, log: log}
}

// List appends one "<KIND>: <label>" line per device, in the order the
// platform reports them. Failures are logged and leave the view untouched.
func (l *Lister) List(ctx context.Context) {
	devs, err := l.enum.EnumerateDevices(ctx)
	if err != nil {
		l.log.Error().
			Str("kind", media.ErrorName(err)).
			Str("message", err.Error()).
			Msg("Failed to enumerate devices")
		return
	}

	for _, d := range devs {
		l.view.Append(d.String())
	}
	l.log.Info().Int("count", len(devs)).Msg("Devices enumerated")
}
