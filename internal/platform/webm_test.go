package platform

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/petems/camtray/internal/media"
	"github.com/pion/mediadevices/pkg/prop"
)

func TestOpusHead(t *testing.T) {
	h := opusHead(1, 48000)

	if len(h) != 19 {
		t.Fatalf("expected 19 bytes, got %d", len(h))
	}
	if !bytes.Equal(h[:8], []byte("OpusHead")) {
		t.Errorf("unexpected magic %q", h[:8])
	}
	if h[8] != 1 || h[9] != 1 {
		t.Errorf("expected version 1 mono, got version %d channels %d", h[8], h[9])
	}
	if got := binary.LittleEndian.Uint32(h[12:]); got != 48000 {
		t.Errorf("expected 48000, got %d", got)
	}
}

func TestIsVP8Keyframe(t *testing.T) {
	if isVP8Keyframe(nil) {
		t.Error("empty frame is not a key frame")
	}
	if !isVP8Keyframe([]byte{0x10, 0x02}) {
		t.Error("expected key frame for clear bit 0")
	}
	if isVP8Keyframe([]byte{0x11}) {
		t.Error("expected inter frame for set bit 0")
	}
}

func TestTrackEntries(t *testing.T) {
	video := trackEntries(1280, 720, 0, false)
	if len(video) != 1 || video[0].CodecID != "V_VP8" {
		t.Fatalf("expected a single VP8 track, got %+v", video)
	}
	if video[0].Video.PixelWidth != 1280 || video[0].Video.PixelHeight != 720 {
		t.Errorf("unexpected dimensions %+v", video[0].Video)
	}

	both := trackEntries(640, 480, 48000, true)
	if len(both) != 2 || both[1].CodecID != "A_OPUS" {
		t.Fatalf("expected VP8 and Opus tracks, got %+v", both)
	}
	if both[1].TrackNumber == both[0].TrackNumber {
		t.Error("expected distinct track numbers")
	}
}

func TestSegmentWriterCopiesAndClosesOnce(t *testing.T) {
	var segments [][]byte
	var stops int
	w := &segmentWriter{
		onData:  func(b []byte) { segments = append(segments, b) },
		onClose: func() { stops++ },
	}

	buf := []byte("cluster")
	w.Write(buf)
	w.Write(nil)
	buf[0] = 'X'

	w.Close()
	w.Close()

	if len(segments) != 1 || string(segments[0]) != "cluster" {
		t.Errorf("expected one copied segment, got %q", segments)
	}
	if stops != 1 {
		t.Errorf("expected a single stop signal, got %d", stops)
	}
}

func TestApplyVideoConstraints(t *testing.T) {
	var m prop.Media
	applyVideoConstraints(&m, *media.DefaultConstraints().Video)

	w, ok := m.Width.(prop.IntRanged)
	if !ok {
		t.Fatalf("expected ranged width, got %T", m.Width)
	}
	if w.Min != 640 || w.Ideal != 1280 || w.Max != 1920 {
		t.Errorf("unexpected width %+v", w)
	}
	fr, ok := m.FrameRate.(prop.FloatRanged)
	if !ok {
		t.Fatalf("expected ranged frame rate, got %T", m.FrameRate)
	}
	if fr.Ideal != 30 {
		t.Errorf("expected ideal 30fps, got %v", fr.Ideal)
	}
}
