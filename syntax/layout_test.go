package syntax

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func joinSpans(spans []Span) string {
	var sb strings.Builder
	for _, sp := range spans {
		sb.WriteString(sp.Text)
	}
	return sb.String()
}

func TestProject_MatchingBuffer(t *testing.T) {
	c := Default()
	text := "package main\n"
	spans := Project(c.Highlight(text, "Go"), text, c.Fallback())
	require.Equal(t, text, joinSpans(spans))
	require.Equal(t, chroma.Keyword, spans[0].Style.Token)
}

func TestProject_BufferShorterThanRuns(t *testing.T) {
	c := Default()
	fallback := c.Fallback()
	lines := []Line{{Runs: []Run{
		{Style: c.theme.Style(chroma.Keyword), Text: "func"},
		{Style: fallback, Text: " main"},
	}, Len: 9}}

	spans := Project(lines, "func ma", fallback)
	require.Equal(t, []Span{
		{Style: c.theme.Style(chroma.Keyword), Text: "func"},
		{Style: fallback, Text: " ma"},
	}, spans)
}

func TestProject_BufferLongerThanRuns(t *testing.T) {
	c := Default()
	fallback := c.Fallback()
	lines := c.Highlight("ab\n", "")
	spans := Project(lines, "ab\ncd typed", fallback)
	require.Equal(t, "ab\ncd typed", joinSpans(spans))
	require.Equal(t, Span{Style: fallback, Text: "cd typed"}, spans[len(spans)-1])
}

func TestProject_StopsInsideCharacter(t *testing.T) {
	c := Default()
	fallback := c.Fallback()
	// Runs computed for "ab" now laid over "aé": the second run would end inside é.
	lines := []Line{{Runs: []Run{{Style: c.theme.Style(chroma.Name), Text: "a"}, {Style: c.theme.Style(chroma.Name), Text: "b"}}, Len: 2}}
	spans := Project(lines, "aé", fallback)
	require.Equal(t, "aé", joinSpans(spans))
	require.Equal(t, "a", spans[0].Text)
	require.Equal(t, Span{Style: fallback, Text: "é"}, spans[1])
}

func TestProject_EmptyInputs(t *testing.T) {
	require.Empty(t, Project(nil, "", Style{}))
	require.Equal(t, []Span{{Text: "x"}}, Project(nil, "x", Style{}))
}

func TestProject_TruncationSafety(t *testing.T) {
	c := Default()
	refs := []string{"", "Go", "Rust", "markdown"}
	rapid.Check(t, func(rt *rapid.T) {
		ref := rapid.SampledFrom(refs).Draw(rt, "ref")
		tokenized := rapid.StringN(0, 60, -1).Draw(rt, "tokenized")
		lines := c.Highlight(tokenized, ref)

		var buffer string
		switch rapid.IntRange(0, 2).Draw(rt, "shape") {
		case 0:
			runes := []rune(tokenized)
			buffer = string(runes[:rapid.IntRange(0, len(runes)).Draw(rt, "cut")])
		case 1:
			buffer = tokenized + rapid.StringN(0, 20, -1).Draw(rt, "appended")
		default:
			buffer = rapid.StringN(0, 60, -1).Draw(rt, "unrelated")
		}

		var spans []Span
		func() {
			defer func() {
				if r := recover(); r != nil {
					rt.Fatalf("Project panicked: %v", r)
				}
			}()
			spans = Project(lines, buffer, c.Fallback())
		}()
		if got := joinSpans(spans); got != buffer {
			rt.Fatalf("spans give %q, want %q", got, buffer)
		}
		for _, sp := range spans {
			if !utf8.ValidString(sp.Text) {
				rt.Fatalf("span %q is not valid UTF-8", sp.Text)
			}
		}
	})
}

func TestSplitSpanLines(t *testing.T) {
	a := Style{Token: chroma.Keyword}
	b := Style{Token: chroma.Text}
	rows := SplitSpanLines([]Span{
		{Style: a, Text: "func"},
		{Style: b, Text: " x\n\ny"},
		{Style: a, Text: "\n"},
	})
	require.Equal(t, [][]Span{
		{{Style: a, Text: "func"}, {Style: b, Text: " x"}},
		nil,
		{{Style: b, Text: "y"}},
		nil,
	}, rows)

	require.Equal(t, [][]Span{nil}, SplitSpanLines(nil))
}
