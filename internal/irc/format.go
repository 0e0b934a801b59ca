package irc

import (
	"fmt"
	"strings"

	"github.com/lrstanley/girc"
)

// mIRC control codes.
const (
	colorCode  = "\x03"
	italicCode = "\x1D"
	boldCode   = "\x02"
)

// paletteSize is the number of mIRC colours nicknames are spread over.
const paletteSize = 15

// Color wraps s in an mIRC colour derived from the byte sum of s, so the
// same nickname always gets the same colour.
func Color(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%s%02d%s%s", colorCode, ColorIndex(s), s, colorCode)
}

// ColorIndex returns the palette index Color uses for s.
func ColorIndex(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += int(s[i])
	}
	return sum % paletteSize
}

// Italic wraps s in mIRC italic codes.
func Italic(s string) string {
	return italicCode + s + italicCode
}

// Bold wraps s in mIRC bold codes.
func Bold(s string) string {
	return boldCode + s + boldCode
}

// StripFormatting removes mIRC colour and style codes.
func StripFormatting(s string) string {
	return girc.StripRaw(s)
}

// Flatten collapses line breaks into single spaces so s fits on one IRC line.
func Flatten(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}
