package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgrelay/internal/filestore"
	"github.com/flemzord/tgrelay/internal/metrics"
)

const tracerName = "github.com/flemzord/tgrelay/modules/channel/telegram"

var tracer = otel.Tracer(tracerName)

// StoredFile describes a Telegram file written to the file store.
type StoredFile struct {
	RemoteID     string
	LocalPath    string
	RelativePath string
	PublicURL    string
	Size         int64
	MIMEType     string
}

// fileFetcher is what the router needs from a Fetcher.
type fileFetcher interface {
	Fetch(ctx context.Context, fileID string, chatID int64) (StoredFile, error)
}

// Fetcher downloads Telegram files into a filestore.Store.
type Fetcher struct {
	client  *Client
	store   *filestore.Store
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewFetcher creates a Fetcher. A zero timeout leaves fetches bounded only
// by the caller's context.
func NewFetcher(client *Client, store *filestore.Store, timeout time.Duration, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		client:  client,
		store:   store,
		timeout: timeout,
		metrics: m,
	}
}

// Fetch resolves fileID, streams its content into the chat's directory and
// returns the stored file. The destination only appears once fully written.
func (f *Fetcher) Fetch(ctx context.Context, fileID string, chatID int64) (sf StoredFile, err error) {
	ctx, span := tracer.Start(ctx, "telegram.fetch", trace.WithAttributes(
		attribute.String("telegram.file_id", fileID),
		attribute.Int64("telegram.chat_id", chatID),
	))
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			f.metrics.DownloadBytes.Add(float64(sf.Size))
			span.SetAttributes(attribute.Int64("file.size", sf.Size))
		}
		f.metrics.DownloadsTotal.WithLabelValues(result).Inc()
		f.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
		span.End()
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	meta, err := f.client.GetFile(ctx, fileID)
	if err != nil {
		return StoredFile{}, &MetadataError{FileID: fileID, Err: err}
	}
	if meta.FilePath == "" {
		return StoredFile{}, &MetadataError{FileID: fileID, Err: errors.New("empty file_path")}
	}
	rel := path.Clean(strings.TrimLeft(meta.FilePath, "/"))

	if _, err := f.store.EnsureLayout(chatID); err != nil {
		return StoredFile{}, &DownloadError{FileID: fileID, FilePath: rel, Err: err}
	}

	dst, err := f.store.Path(chatID, rel)
	if err != nil {
		return StoredFile{}, &DownloadError{FileID: fileID, FilePath: rel, Err: err}
	}

	n, err := f.download(ctx, meta.FilePath, dst)
	if err != nil {
		return StoredFile{}, &DownloadError{FileID: fileID, FilePath: rel, Err: err}
	}

	return StoredFile{
		RemoteID:     fileID,
		LocalPath:    dst,
		RelativePath: rel,
		PublicURL:    f.store.PublicURL(chatID, rel),
		Size:         n,
		MIMEType:     guessMIME(rel),
	}, nil
}

// download writes the remote file to a temp file next to dst, syncs it and
// renames it into place. The temp file is removed on any failure.
func (f *Fetcher) download(ctx context.Context, remotePath, dst string) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := f.client.DownloadFile(ctx, remotePath, tmp)
	if err != nil {
		return 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return 0, fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return 0, fmt.Errorf("rename: %w", err)
	}
	committed = true
	return n, nil
}
