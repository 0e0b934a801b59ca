package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSegment(t *testing.T) {
	t.Parallel()

	// sha1("12345")
	const want = "8cb2237d0679ca88db6464eac60da96345513964"
	if got := Segment(12345); got != want {
		t.Errorf("Segment(12345) = %q, want %q", got, want)
	}
	if Segment(-100) == Segment(100) {
		t.Error("negative and positive chat IDs must hash differently")
	}
}

func TestEnsureLayout_Idempotent(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "storage")
	s := New(root, "http://files.example")

	first, err := s.EnsureLayout(-1001)
	if err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	second, err := s.EnsureLayout(-1001)
	if err != nil {
		t.Fatalf("EnsureLayout (second call): %v", err)
	}
	if first != second {
		t.Errorf("base path changed: %q then %q", first, second)
	}
	if want := filepath.Join(root, Segment(-1001)); first != want {
		t.Errorf("base = %q, want %q", first, want)
	}

	for _, dir := range []string{"photos", "documents", "animations", "stickers", "video", "voice"} {
		info, err := os.Stat(filepath.Join(first, dir))
		if err != nil {
			t.Errorf("missing %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "https://files.example/tg/")
	seg := Segment(42)

	tests := []struct {
		rel  string
		want string
	}{
		{"photos/file_1.jpg", "https://files.example/tg/" + seg + "/photos/file_1.jpg"},
		{"documents/my report.pdf", "https://files.example/tg/" + seg + "/documents/my%20report.pdf"},
		{"/voice/a.ogg", "https://files.example/tg/" + seg + "/voice/a.ogg"},
	}
	for _, tt := range tests {
		if got := s.PublicURL(42, tt.rel); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestPath_RejectsEscapes(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "http://x")
	for _, rel := range []string{"", "..", "../etc/passwd", "photos/../../x", "."} {
		if _, err := s.Path(1, rel); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Path(%q) error = %v, want ErrInvalidPath", rel, err)
		}
	}

	got, err := s.Path(1, "photos/a.jpg")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if want := filepath.Join(s.Root(), Segment(1), "photos", "a.jpg"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "http://x")
	base, err := s.EnsureLayout(5)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "photos", "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, info, err := s.Open(Segment(5), "photos/a.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = f.Close()
	if info.Size() != 4 {
		t.Errorf("Size = %d, want 4", info.Size())
	}

	notFound := []struct {
		name, segment, rel string
	}{
		{"missing file", Segment(5), "photos/b.jpg"},
		{"directory", Segment(5), "photos"},
		{"bad segment", "not-a-hash", "photos/a.jpg"},
		{"traversal", Segment(5), "../" + Segment(5) + "/photos/a.jpg"},
	}
	for _, tt := range notFound {
		if _, _, err := s.Open(tt.segment, tt.rel); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: Open error = %v, want ErrNotFound", tt.name, err)
		}
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "http://x")
	base, err := s.EnsureLayout(9)
	if err != nil {
		t.Fatal(err)
	}

	oldFile := filepath.Join(base, "photos", "old.jpg")
	newFile := filepath.Join(base, "photos", "new.jpg")
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	if err := os.Chtimes(oldFile, now.Add(-48*time.Hour), now.Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune(24*time.Hour, now)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old file should be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("new file should remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "photos")); err != nil {
		t.Errorf("layout directory should remain: %v", err)
	}
}

func TestPrune_DisabledAndMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "never-created"), "http://x")
	if n, err := s.Prune(0, time.Now()); n != 0 || err != nil {
		t.Errorf("Prune(0) = (%d, %v), want (0, nil)", n, err)
	}
	if n, err := s.Prune(time.Hour, time.Now()); n != 0 || err != nil {
		t.Errorf("Prune on missing root = (%d, %v), want (0, nil)", n, err)
	}
}
