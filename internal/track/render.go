package track

import (
	"strings"
	"time"

	"arissbot/internal/ariss"
)

var markdownEscaper = strings.NewReplacer("-", "\\-", ".", "\\.")

// EscapeMarkdown escapes the literal '-' and '.' characters for Telegram's
// MarkdownV2 dialect. The stored message templates pre-escape everything
// else they contain.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderSummary builds the human-readable last-heard line, with a
// MarkdownV2 link to findu.com when the page carried one. The whole line,
// link included, goes through EscapeMarkdown, matching the message
// templates the bot has always sent.
func RenderSummary(h ariss.Heard, now time.Time) (string, error) {
	elapsed, err := h.ElapsedSince(now)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("The last station heard was *")
	b.WriteString(h.Callsign)
	b.WriteString(", ")
	b.WriteString(FormatElapsed(elapsed.Seconds()))
	b.WriteString(" ago*. ")
	if h.Link != "" {
		b.WriteString("See details at [findu.com](")
		b.WriteString(h.Link)
		b.WriteString(").")
	}
	return EscapeMarkdown(b.String()), nil
}
