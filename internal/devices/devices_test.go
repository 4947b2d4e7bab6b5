package devices

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/petems/camtray/internal/media"
	"github.com/rs/zerolog"
)

type fakeEnumerator struct {
	devices []media.Device
	err     error
}

func (f *fakeEnumerator) EnumerateDevices(ctx context.Context) ([]media.Device, error) {
	return f.devices, f.err
}

type listView struct {
	lines []string
}

func (v *listView) Append(line string) {
	v.lines = append(v.lines, line)
}

func TestListFormatsInEnumerationOrder(t *testing.T) {
	enum := &fakeEnumerator{devices: []media.Device{
		{Kind: media.AudioInput, Label: "Built-in Microphone"},
		{Kind: media.VideoInput, Label: "FaceTime HD Camera"},
		{Kind: media.AudioOutput, Label: "Speakers"},
	}}
	view := &listView{}

	New(enum, view, zerolog.Nop()).List(context.Background())

	want := []string{
		"AUDIOINPUT: Built-in Microphone",
		"VIDEOINPUT: FaceTime HD Camera",
		"AUDIOOUTPUT: Speakers",
	}
	if len(view.lines) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), view.lines)
	}
	for i := range want {
		if view.lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], view.lines[i])
		}
	}
}

func TestListFailureLogsAndLeavesViewEmpty(t *testing.T) {
	var buf bytes.Buffer
	enum := &fakeEnumerator{err: media.PermissionError(errors.New("enumeration blocked"))}
	view := &listView{}

	New(enum, view, zerolog.New(&buf)).List(context.Background())

	if len(view.lines) != 0 {
		t.Errorf("expected no lines, got %v", view.lines)
	}
	out := buf.String()
	if !strings.Contains(out, media.NotAllowedError) || !strings.Contains(out, "enumeration blocked") {
		t.Errorf("expected kind and message in the log, got %s", out)
	}
}
