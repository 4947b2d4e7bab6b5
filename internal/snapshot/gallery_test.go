package snapshot

import (
	"fmt"
	"testing"

	"github.com/petems/camtray/internal/artifact"
)

func shots(n int) []*artifact.Artifact {
	out := make([]*artifact.Artifact, n)
	for i := range out {
		out[i] = &artifact.Artifact{ID: fmt.Sprintf("shot-%d", i)}
	}
	return out
}

func TestGalleryKeepsLastFiveInOrder(t *testing.T) {
	for n := 0; n <= 12; n++ {
		t.Run(fmt.Sprintf("%d captures", n), func(t *testing.T) {
			g := NewGallery(GalleryCapacity, nil)
			all := shots(n)
			for _, a := range all {
				g.Add(a)
			}

			want := all
			if n > GalleryCapacity {
				want = all[n-GalleryCapacity:]
			}

			got := g.Items()
			if len(got) != len(want) {
				t.Fatalf("expected %d items, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("position %d: expected %s, got %s", i, want[i].ID, got[i].ID)
				}
			}
		})
	}
}

func TestGalleryEvictsExactlyOneOldest(t *testing.T) {
	var changes int
	var lastEvicted []*artifact.Artifact
	g := NewGallery(GalleryCapacity, func(items, evicted []*artifact.Artifact) {
		changes++
		lastEvicted = evicted
	})

	all := shots(6)
	for _, a := range all[:5] {
		if evicted := g.Add(a); len(evicted) != 0 {
			t.Fatalf("unexpected eviction while filling: %v", evicted)
		}
	}

	evicted := g.Add(all[5])
	if len(evicted) != 1 || evicted[0] != all[0] {
		t.Fatalf("expected only %s evicted, got %v", all[0].ID, evicted)
	}
	if changes != 6 {
		t.Errorf("expected 6 change notifications, got %d", changes)
	}
	if len(lastEvicted) != 1 {
		t.Errorf("expected observer to see one eviction, got %d", len(lastEvicted))
	}
	if g.Latest() != all[5] {
		t.Errorf("expected latest to be %s", all[5].ID)
	}
	if g.Get(all[0].ID) != nil {
		t.Error("expected evicted snapshot to be gone")
	}
	if g.Get(all[3].ID) != all[3] {
		t.Error("expected retained snapshot to be found by ID")
	}
}

func TestGalleryEmpty(t *testing.T) {
	g := NewGallery(0, nil)
	if g.Latest() != nil {
		t.Error("expected no latest snapshot")
	}
	if g.Len() != 0 {
		t.Errorf("expected empty gallery, got %d", g.Len())
	}
}
