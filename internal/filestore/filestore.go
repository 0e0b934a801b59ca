// Package filestore persists downloaded Telegram files under a per-chat
// directory and derives the public URLs they are served from.
package filestore

import (
	"crypto/sha1" //nolint:gosec // directory naming only, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ServiceName is the AppContext service the store is published under.
const ServiceName = "storage.files"

// Subdirectories created for every chat.
var layoutDirs = []string{"photos", "documents", "animations", "stickers", "video", "voice"}

var segmentPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Sentinel errors.
var (
	// ErrInvalidPath indicates a relative path that is empty, absolute or
	// escapes the chat directory.
	ErrInvalidPath = errors.New("filestore: invalid path")

	// ErrNotFound indicates the requested file does not exist or is a directory.
	ErrNotFound = errors.New("filestore: not found")
)

// Store lays out files as {root}/{sha1(chatID)}/{relative path}.
type Store struct {
	root    string
	baseURL string
}

// New creates a Store rooted at root whose files are served under baseURL.
func New(root, baseURL string) *Store {
	return &Store{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// BaseURL returns the public base URL without a trailing slash.
func (s *Store) BaseURL() string { return s.baseURL }

// Segment returns the hex SHA-1 of the decimal chat ID, used as the chat's
// directory name and URL segment.
func Segment(chatID int64) string {
	sum := sha1.Sum([]byte(strconv.FormatInt(chatID, 10))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// EnsureLayout creates the chat directory and its fixed subdirectories if
// missing and returns the chat directory. It is idempotent.
func (s *Store) EnsureLayout(chatID int64) (string, error) {
	base := filepath.Join(s.root, Segment(chatID))
	for _, dir := range layoutDirs {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return "", fmt.Errorf("filestore: create %s: %w", dir, err)
		}
	}
	return base, nil
}

// Path resolves rel inside the chat directory.
func (s *Store) Path(chatID int64, rel string) (string, error) {
	return s.resolve(Segment(chatID), rel)
}

// PublicURL returns {baseURL}/{sha1(chatID)}/{escaped rel}. Slashes in rel
// are kept as path separators.
func (s *Store) PublicURL(chatID int64, rel string) string {
	parts := strings.Split(strings.TrimLeft(rel, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + Segment(chatID) + "/" + strings.Join(parts, "/")
}

// Open opens a stored file for reading. Malformed segments, unsafe paths,
// missing files and directories all report ErrNotFound.
func (s *Store) Open(segment, rel string) (*os.File, fs.FileInfo, error) {
	if !segmentPattern.MatchString(segment) {
		return nil, nil, ErrNotFound
	}
	full, err := s.resolve(segment, rel)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("filestore: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("filestore: stat: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// Prune removes stored files last modified before now-maxAge and returns how
// many were removed. Directories are left in place.
func (s *Store) Prune(maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-maxAge)

	removed := 0
	var errs []error
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err != nil {
				errs = append(errs, err)
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("filestore: prune: %w", errors.Join(errs...))
	}
	return removed, nil
}

func (s *Store) resolve(segment, rel string) (string, error) {
	rel = strings.TrimLeft(rel, "/")
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	base := filepath.Join(s.root, segment)
	full := filepath.Join(base, filepath.FromSlash(cleaned))
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return full, nil
}
