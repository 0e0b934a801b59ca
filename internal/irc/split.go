package irc

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLineBytes keeps a PRIVMSG body well under the 512-byte protocol
// limit once the prefix and command are added by the server.
const DefaultMaxLineBytes = 400

// SplitLines normalises line endings, splits text on newlines and drops
// empty lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// SplitLong breaks a single line into parts of at most maxBytes bytes,
// preferring to cut at spaces and never inside a UTF-8 sequence. A
// maxBytes <= 0 disables splitting.
func SplitLong(line string, maxBytes int) []string {
	if maxBytes <= 0 || len(line) <= maxBytes {
		return []string{line}
	}

	var parts []string
	for len(line) > maxBytes {
		cut := lastSpace(line, maxBytes)
		if cut <= 0 {
			cut = runeBoundary(line, maxBytes)
		}
		parts = append(parts, strings.TrimRight(line[:cut], " "))
		line = strings.TrimLeft(line[cut:], " ")
	}
	if len(line) > 0 {
		parts = append(parts, line)
	}
	return parts
}

// lastSpace returns the index of the last space within line[:limit+1].
func lastSpace(line string, limit int) int {
	if limit >= len(line) {
		limit = len(line) - 1
	}
	return strings.LastIndexByte(line[:limit+1], ' ')
}

// runeBoundary returns the largest index <= limit that starts a rune.
func runeBoundary(line string, limit int) int {
	for limit > 0 && !utf8.RuneStart(line[limit]) {
		limit--
	}
	if limit == 0 {
		_, size := utf8.DecodeRuneInString(line)
		return size
	}
	return limit
}
