package telegram

import (
	"errors"
	"fmt"
)

// ErrUnsupportedContent indicates an update kind that cannot be relayed to IRC.
var ErrUnsupportedContent = errors.New("telegram: unsupported content")

func unsupportedContent(kind Kind) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedContent, kind)
}

// MetadataError reports a failed getFile lookup.
type MetadataError struct {
	FileID string
	Err    error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("telegram: file metadata for %s: %v", e.FileID, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// DownloadError reports a failed transfer or write of file content.
type DownloadError struct {
	FileID   string
	FilePath string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("telegram: download %s (%s): %v", e.FileID, e.FilePath, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// CommandArityError reports a command invoked with an argument count
// outside its declared range.
type CommandArityError struct {
	Command string
	Got     int
	Min     int
	Max     int
}

func (e *CommandArityError) Error() string {
	return fmt.Sprintf("telegram: command /%s: %d arguments, want %d..%d", e.Command, e.Got, e.Min, e.Max)
}

// UserMessage is the reply sent to the Telegram chat.
func (e *CommandArityError) UserMessage() string {
	return fmt.Sprintf("Invalid argument count. (not in range of %d =< x =< %d)", e.Min, e.Max)
}
