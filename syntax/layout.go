package syntax

import (
	"strings"
	"unicode/utf8"
)

// Span is a styled slice of the live buffer.
type Span struct {
	Style Style
	Text  string
}

// Project lays highlighted lines over buffer. Runs may have been computed
// from an older text: the walk stops at the first run that would overrun the
// buffer or end inside a character, and the rest of the buffer is painted
// with fallback. A line with fewer runs than its length, as after a failed
// tokenization, has its remaining bytes painted with fallback. Span text is
// always sliced from buffer, so the spans concatenate to buffer.
func Project(lines []Line, buffer string, fallback Style) []Span {
	spans := make([]Span, 0, len(lines)*2+1)
	off := 0
	fits := func(end int) bool {
		return end <= len(buffer) && (end == len(buffer) || utf8.RuneStart(buffer[end]))
	}

walk:
	for _, line := range lines {
		lineEnd := off + line.Len
		for _, run := range line.Runs {
			if run.Text == "" {
				continue
			}
			end := off + len(run.Text)
			if !fits(end) {
				break walk
			}
			spans = append(spans, Span{Style: run.Style, Text: buffer[off:end]})
			off = end
		}
		if off < lineEnd {
			if !fits(lineEnd) {
				break
			}
			spans = append(spans, Span{Style: fallback, Text: buffer[off:lineEnd]})
			off = lineEnd
		}
	}
	if off < len(buffer) {
		spans = append(spans, Span{Style: fallback, Text: buffer[off:]})
	}
	return spans
}

// SplitSpanLines cuts spans into display rows at each '\n', dropping the
// newline itself. There is always at least one row; a trailing newline
// yields a final empty row.
func SplitSpanLines(spans []Span) [][]Span {
	rows := [][]Span{nil}
	for _, sp := range spans {
		text := sp.Text
		for {
			i := strings.IndexByte(text, '\n')
			if i < 0 {
				if text != "" {
					rows[len(rows)-1] = append(rows[len(rows)-1], Span{Style: sp.Style, Text: text})
				}
				break
			}
			if i > 0 {
				rows[len(rows)-1] = append(rows[len(rows)-1], Span{Style: sp.Style, Text: text[:i]})
			}
			rows = append(rows, nil)
			text = text[i+1:]
		}
	}
	return rows
}
