package telegram

import (
	"mime"
	"path/filepath"
	"strings"
)

// guessMIME infers a MIME type from the extension of a Telegram file path.
// Telegram stores voice notes as .oga and animated stickers as .tgs, which
// the system MIME table usually lacks.
func guessMIME(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".oga", ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".tgs":
		return "application/x-tgsticker"
	case "":
		return ""
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
