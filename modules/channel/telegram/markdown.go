package telegram

import (
	"regexp"
	"strings"
)

// markdownSpecialChars are the characters that open an entity in Telegram's
// legacy Markdown parse mode.
var markdownSpecialChars = strings.NewReplacer(
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes text for parse_mode "Markdown".
func EscapeMarkdown(text string) string {
	return markdownSpecialChars.Replace(text)
}

var nickPlaceholder = regexp.MustCompile(`(?i)\$nick`)

// renderWelcome substitutes the escaped nick for every "$nick" in tmpl,
// ignoring case.
func renderWelcome(tmpl, nick string) string {
	return nickPlaceholder.ReplaceAllLiteralString(tmpl, EscapeMarkdown(nick))
}
