package artifact

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorePutResolveRevoke(t *testing.T) {
	s := NewStore()

	a := s.Put("video/webm", []byte("abc"))
	if !strings.HasPrefix(a.URL, "blob:") {
		t.Fatalf("expected blob URL, got %s", a.URL)
	}
	if a.Size() != 3 {
		t.Errorf("expected size 3, got %d", a.Size())
	}

	got, err := s.Resolve(a.URL)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != a {
		t.Error("expected the same artifact back")
	}

	s.Revoke(a.URL)
	if _, err := s.Resolve(a.URL); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestStoreIssuesUniqueURLs(t *testing.T) {
	s := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		a := s.Put("image/png", nil)
		if seen[a.URL] {
			t.Fatalf("duplicate URL %s", a.URL)
		}
		seen[a.URL] = true
	}
}

func TestSaveOverwritesFixedName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")

	first := &Artifact{Data: []byte("first")}
	second := &Artifact{Data: []byte("second")}

	if _, err := Save(first, dir, "snapshot.png"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	path, err := Save(second, dir, "snapshot.png")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("second")) {
		t.Errorf("expected latest artifact on disk, got %q", data)
	}
}

func TestSaveNil(t *testing.T) {
	if _, err := Save(nil, t.TempDir(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
