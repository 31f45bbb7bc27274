package syntax

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func joinLines(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text())
	}
	return sb.String()
}

func TestHighlight_PlainTextNotes(t *testing.T) {
	c := Default()
	text := "hello\nworld\n"
	ref, ok := c.Detect("notes.txt")
	require.False(t, ok)

	lines := c.Highlight(text, ref)
	require.Len(t, lines, 2)
	require.Equal(t, "hello\n", lines[0].Text())
	require.Equal(t, "world\n", lines[1].Text())
	require.Equal(t, 6, lines[0].Len)
	require.Equal(t, text, joinLines(lines))
}

func TestHighlight_Empty(t *testing.T) {
	require.Empty(t, Default().Highlight("", "Go"))
}

func TestHighlight_GoKeywordsFromTree(t *testing.T) {
	c := Default()
	src := "package main\n\nfunc main() {\n\tprintln(\"hi\") // greet\n}\n"
	lines := c.Highlight(src, "Go")
	require.Equal(t, src, joinLines(lines))
	require.Len(t, lines, 5)

	var sawFunc, sawComment bool
	for _, l := range lines {
		for _, r := range l.Runs {
			if r.Text == "func" && r.Style.Token == chroma.Keyword {
				sawFunc = true
			}
			if r.Text == "// greet" && r.Style.Token == chroma.Comment {
				sawComment = true
			}
		}
	}
	require.True(t, sawFunc, "func should be a keyword run")
	require.True(t, sawComment, "line comment should be a comment run")
}

func TestHighlight_LexerGrammar(t *testing.T) {
	c := Default()
	src := "fn main() {\n    let x = 42;\n}\n"
	lines := c.Highlight(src, "Rust")
	require.Equal(t, src, joinLines(lines))

	var keyword bool
	for _, l := range lines {
		for _, r := range l.Runs {
			if strings.TrimSpace(r.Text) == "fn" && r.Style.Token.InCategory(chroma.Keyword) {
				keyword = true
			}
		}
	}
	require.True(t, keyword)
}

func TestHighlight_MultibyteAcrossTreeSpans(t *testing.T) {
	c := Default()
	src := "// héllo wörld ✓\nvar s = \"日本語\"\n"
	lines := c.Highlight(src, "Go")
	require.Equal(t, src, joinLines(lines))
	for _, l := range lines {
		for _, r := range l.Runs {
			require.True(t, strings.ToValidUTF8(r.Text, "?") == r.Text, "run %q splits a character", r.Text)
		}
	}
}

func TestHighlight_FailingLinesAreIsolated(t *testing.T) {
	c := Default()
	g := &Grammar{
		Name: "flaky",
		tokenise: func(s string) ([]span, error) {
			if strings.Contains(s, "bad") {
				return nil, errors.New("cannot tokenize")
			}
			return []span{{tt: chroma.Name, text: s}}, nil
		},
	}
	text := "one\nbad line\nthree"
	lines := c.highlight(g, text)
	require.Len(t, lines, 3)

	require.Equal(t, "one\n", lines[0].Text())
	require.Empty(t, lines[1].Runs)
	require.Equal(t, len("bad line\n"), lines[1].Len)
	require.Equal(t, "three", lines[2].Text())

	spans := Project(lines, text, c.Fallback())
	var sb strings.Builder
	for _, sp := range spans {
		sb.WriteString(sp.Text)
	}
	require.Equal(t, text, sb.String())
	require.Equal(t, "bad line\n", spans[1].Text)
	require.Equal(t, c.Fallback(), spans[1].Style)
}

func TestToLines_ReconcilesMismatchedTokens(t *testing.T) {
	c := Default()
	src := "ab\r\ncd"
	// A lexer that normalised the line ending.
	spans := []span{{tt: chroma.Name, text: "ab"}, {tt: chroma.Text, text: "\n"}, {tt: chroma.Name, text: "cd"}}
	lines := c.toLines(src, spans)
	require.Equal(t, src, joinLines(lines))
	require.Len(t, lines, 2)
	require.Equal(t, "ab", lines[0].Runs[0].Text)
	require.Equal(t, chroma.Text, lines[0].Runs[1].Style.Token)
}

func TestHighlight_Lossless(t *testing.T) {
	c := Default()
	refs := []string{"", "Go", "C", "markdown", "Haskell", "Rust", "Python", "JSON", "YAML"}
	fragments := []string{
		"func", " ", "main", "(", ")", "{", "}", "\n", "\r\n", "\t", "\"", "'", "//", "/*", "*/",
		"#", "# Title", "`", "```", "--", "{-", "-}", "42", "3.14", "x := 1", "é", "日本", "✓", "\\",
		"let", "fn", "import", "[", "]", ":", ",",
	}
	rapid.Check(t, func(rt *rapid.T) {
		ref := rapid.SampledFrom(refs).Draw(rt, "ref")
		var text string
		if rapid.Bool().Draw(rt, "structured") {
			parts := rapid.SliceOfN(rapid.SampledFrom(fragments), 0, 30).Draw(rt, "parts")
			text = strings.Join(parts, "")
		} else {
			text = rapid.StringN(0, 80, -1).Draw(rt, "text")
		}

		lines := c.Highlight(text, ref)
		if got := joinLines(lines); got != text {
			rt.Fatalf("grammar %q: runs give %q, want %q", ref, got, text)
		}
		total := 0
		for _, l := range lines {
			total += l.Len
		}
		if total != len(text) {
			rt.Fatalf("line lengths sum to %d, want %d", total, len(text))
		}
	})
}

func TestSplitLinesWithEndings(t *testing.T) {
	require.Nil(t, SplitLinesWithEndings(""))
	require.Equal(t, []string{"a\n", "\n", "b"}, SplitLinesWithEndings("a\n\nb"))
	require.Equal(t, []string{"a\n"}, SplitLinesWithEndings("a\n"))
}
