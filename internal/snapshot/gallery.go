package snapshot

import (
	"sync"

	list "github.com/bahlo/generic-list-go"

	"github.com/petems/camtray/internal/artifact"
)

// GalleryCapacity is the number of snapshots kept on display.
const GalleryCapacity = 5

// Gallery is a bounded, insertion ordered list of snapshots. Adding beyond
// capacity evicts the oldest entries first.
type Gallery struct {
	capacity int
	onChange func(items []*artifact.Artifact, evicted []*artifact.Artifact)

	mu    sync.Mutex
	items *list.List[*artifact.Artifact]
}

// NewGallery returns an empty gallery holding at most capacity items.
// onChange, if not nil, is called after every Add with the new contents and
// the entries that were evicted.
func NewGallery(capacity int, onChange func(items, evicted []*artifact.Artifact)) *Gallery {
	if capacity < 1 {
		capacity = GalleryCapacity
	}
	return &Gallery{
		capacity: capacity,
		onChange: onChange,
		items:    list.New[*artifact.Artifact](),
	}
}

// Add appends a and evicts from the front until the gallery fits. It
// returns the evicted entries.
func (g *Gallery) Add(a *artifact.Artifact) []*artifact.Artifact {
	g.mu.Lock()
	g.items.PushBack(a)
	var evicted []*artifact.Artifact
	for g.items.Len() > g.capacity {
		evicted = append(evicted, g.items.Remove(g.items.Front()))
	}
	items := g.snapshotLocked()
	g.mu.Unlock()

	if g.onChange != nil {
		g.onChange(items, evicted)
	}
	return evicted
}

// Items returns the gallery contents, oldest first.
func (g *Gallery) Items() []*artifact.Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Latest returns the most recently added snapshot, or nil.
func (g *Gallery) Latest() *artifact.Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	if back := g.items.Back(); back != nil {
		return back.Value
	}
	return nil
}

// Get returns the snapshot with the given ID, or nil.
func (g *Gallery) Get(id string) *artifact.Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	for e := g.items.Front(); e != nil; e = e.Next() {
		if e.Value.ID == id {
			return e.Value
		}
	}
	return nil
}

func (g *Gallery) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.items.Len()
}

func (g *Gallery) snapshotLocked() []*artifact.Artifact {
	out := make([]*artifact.Artifact, 0, g.items.Len())
	for e := g.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}
