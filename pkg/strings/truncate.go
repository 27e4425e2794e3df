package strings

import (
	"strings"
)

// DefaultSummaryWidth is the default maximum length for summaries in
// listing tables. Shared by the commands so all tables truncate alike.
const DefaultSummaryWidth = 60

// MinSummaryWidth is the smallest accepted width. Anything shorter would
// not leave room for content plus the ellipsis.
const MinSummaryWidth = 4

// TruncateSummary shortens a summary to width characters of single-line
// output. Newlines and whitespace runs collapse into single spaces, an
// ellipsis marks dropped text.
//
// The function operates on runes rather than bytes so multi-byte
// characters never get cut in half. A width below MinSummaryWidth is
// clamped.
func TruncateSummary(s string, width int) string {
	if width < MinSummaryWidth {
		width = MinSummaryWidth
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return s
}
