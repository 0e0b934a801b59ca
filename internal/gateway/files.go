package gateway

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgrelay/internal/filestore"
)

// fileOpener is the part of filestore.Store the gateway serves from.
type fileOpener interface {
	Open(segment, rel string) (*os.File, fs.FileInfo, error)
}

// handleFile serves GET /{segment}/{path}. Missing files, directories and
// paths outside the store all answer 404.
func (g *Gateway) handleFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segment := chi.URLParam(r, "segment")
		rel, err := wildcardPath(r)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		f, info, err := g.files.Open(segment, rel)
		if err != nil {
			if !errors.Is(err, filestore.ErrNotFound) && !errors.Is(err, filestore.ErrInvalidPath) {
				g.logger.Warn("gateway: open file failed", "segment", segment, "path", rel, "error", err)
			}
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}

// wildcardPath returns the decoded {path} wildcard. chi routes on RawPath
// when the request has one, and then the parameter still holds escapes such
// as %2C; otherwise it is already decoded.
func wildcardPath(r *http.Request) (string, error) {
	rel := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return rel, nil
	}
	return url.PathUnescape(rel)
}
