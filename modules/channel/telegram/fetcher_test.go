package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/internal/filestore"
	"github.com/flemzord/tgrelay/internal/metrics"
)

// fileServer fakes getFile and the file download endpoint. files maps a
// file_id to its file_path; contents maps a file_path to its bytes.
func fileServer(t *testing.T, files map[string]string, contents map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/botTOKEN/getFile":
			var req getFileRequest
			decodeBody(t, r, &req)
			filePath, ok := files[req.FileID]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				writeJSON(t, w, APIResponse[File]{OK: false, ErrorCode: 400, Description: "Bad Request: invalid file_id"})
				return
			}
			writeJSON(t, w, APIResponse[File]{OK: true, Result: File{FileID: req.FileID, FilePath: filePath}})
		case strings.HasPrefix(r.URL.Path, "/file/botTOKEN/"):
			body, ok := contents[strings.TrimPrefix(r.URL.Path, "/file/botTOKEN/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, srv *httptest.Server) (*Fetcher, *filestore.Store) {
	t.Helper()
	store := filestore.New(t.TempDir(), "https://files.example.org/tg")
	return NewFetcher(NewClient("TOKEN", srv.URL), store, 5*time.Second, metrics.New(nil)), store
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	srv := fileServer(t,
		map[string]string{"photo-id": "photos/file_1.jpg"},
		map[string]string{"photos/file_1.jpg": "jpeg-bytes"},
	)
	f, store := newTestFetcher(t, srv)

	got, err := f.Fetch(context.Background(), "photo-id", -100123)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	segment := filestore.Segment(-100123)
	wantPath := filepath.Join(store.Root(), segment, "photos", "file_1.jpg")
	if got.LocalPath != wantPath {
		t.Errorf("LocalPath = %q, want %q", got.LocalPath, wantPath)
	}
	if got.RelativePath != "photos/file_1.jpg" {
		t.Errorf("RelativePath = %q, want %q", got.RelativePath, "photos/file_1.jpg")
	}
	wantURL := "https://files.example.org/tg/" + segment + "/photos/file_1.jpg"
	if got.PublicURL != wantURL {
		t.Errorf("PublicURL = %q, want %q", got.PublicURL, wantURL)
	}
	if got.Size != int64(len("jpeg-bytes")) {
		t.Errorf("Size = %d, want %d", got.Size, len("jpeg-bytes"))
	}
	if got.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", got.MIMEType)
	}
	if got.RemoteID != "photo-id" {
		t.Errorf("RemoteID = %q, want photo-id", got.RemoteID)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("stored content = %q, want %q", data, "jpeg-bytes")
	}

	// The whole layout exists even for directories the file did not use.
	if _, err := os.Stat(filepath.Join(store.Root(), segment, "voice")); err != nil {
		t.Errorf("voice directory missing: %v", err)
	}
}

func TestFetcher_RefetchOverwrites(t *testing.T) {
	t.Parallel()

	contents := map[string]string{"documents/a.txt": "v1"}
	srv := fileServer(t, map[string]string{"doc": "documents/a.txt"}, contents)
	f, _ := newTestFetcher(t, srv)

	if _, err := f.Fetch(context.Background(), "doc", 1); err != nil {
		t.Fatalf("first Fetch() error: %v", err)
	}
	contents["documents/a.txt"] = "v2"
	got, err := f.Fetch(context.Background(), "doc", 1)
	if err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}
	data, _ := os.ReadFile(got.LocalPath)
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}

func TestFetcher_MetadataError(t *testing.T) {
	t.Parallel()

	srv := fileServer(t, map[string]string{"empty": ""}, nil)
	f, _ := newTestFetcher(t, srv)

	for _, id := range []string{"missing", "empty"} {
		_, err := f.Fetch(context.Background(), id, 1)
		var metaErr *MetadataError
		if !errors.As(err, &metaErr) {
			t.Fatalf("Fetch(%q) error = %v, want *MetadataError", id, err)
		}
		if metaErr.FileID != id {
			t.Errorf("FileID = %q, want %q", metaErr.FileID, id)
		}
	}
}

func TestFetcher_DownloadErrorLeavesNoFile(t *testing.T) {
	t.Parallel()

	srv := fileServer(t, map[string]string{"gone": "videos/gone.mp4"}, nil)
	f, store := newTestFetcher(t, srv)

	_, err := f.Fetch(context.Background(), "gone", 7)
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("Fetch() error = %v, want *DownloadError", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Fetch() error = %v, want wrapped 404", err)
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), filestore.Segment(7), "videos"))
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("videos dir has %d entries, want 0 (temp file leaked)", len(entries))
	}
}

func TestFetcher_RejectsTraversal(t *testing.T) {
	t.Parallel()

	srv := fileServer(t, map[string]string{"evil": "../../etc/passwd"}, map[string]string{"../../etc/passwd": "x"})
	f, _ := newTestFetcher(t, srv)

	_, err := f.Fetch(context.Background(), "evil", 1)
	if !errors.Is(err, filestore.ErrInvalidPath) {
		t.Errorf("Fetch() error = %v, want ErrInvalidPath", err)
	}
}
