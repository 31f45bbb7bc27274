package syntax

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"

	"hydroxite/log"
)

// Run is one styled piece of a line.
type Run struct {
	Style Style
	Text  string
}

// Line holds the runs of one source line. Len is the byte length of the
// source line, line ending included, even when tokenization failed and Runs
// is empty.
type Line struct {
	Runs []Run
	Len  int
}

// Text concatenates the run texts.
func (l Line) Text() string {
	var sb strings.Builder
	for _, r := range l.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

type span struct {
	tt   chroma.TokenType
	text string
}

// Highlight tokenizes text under the grammar named ref, or plain text when
// ref is empty or unknown. Lines keep their line endings, so the runs of all
// lines concatenate back to text.
func (c *Catalog) Highlight(text, ref string) []Line {
	return c.highlight(c.resolve(ref), text)
}

func (c *Catalog) highlight(g *Grammar, text string) []Line {
	if text == "" {
		return nil
	}
	spans, err := g.spans(text)
	if err == nil {
		return c.toLines(text, spans)
	}
	log.Debug(log.CatSyntax, "document tokenization failed, retrying per line", "grammar", g.Name, "error", err)

	lines := SplitLinesWithEndings(text)
	out := make([]Line, 0, len(lines))
	for i, src := range lines {
		spans, err := g.tokenise(src)
		if err != nil {
			log.Debug(log.CatSyntax, "line tokenization failed", "grammar", g.Name, "line", i, "error", err)
			out = append(out, Line{Len: len(src)})
			continue
		}
		line := Line{Len: len(src)}
		for _, l := range c.toLines(src, spans) {
			line.Runs = append(line.Runs, l.Runs...)
		}
		out = append(out, line)
	}
	return out
}

func (g *Grammar) spans(text string) ([]span, error) {
	if g.tree != nil {
		spans, err := g.tree.spans(text)
		if err == nil {
			return spans, nil
		}
		log.Debug(log.CatSyntax, "tree-sitter parse failed, using lexer", "grammar", g.Name, "error", err)
	}
	return g.tokenise(text)
}

// toLines lays spans over src and cuts them after each newline. Span text
// that stops matching src ends the walk; the rest of src becomes plain text.
func (c *Catalog) toLines(src string, spans []span) []Line {
	var (
		out []Line
		cur Line
		pos int
	)
	emit := func(tt chroma.TokenType, s string) {
		st := c.theme.Style(tt)
		for s != "" {
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				cur.Runs = append(cur.Runs, Run{Style: st, Text: s})
				cur.Len += len(s)
				return
			}
			cur.Runs = append(cur.Runs, Run{Style: st, Text: s[:i+1]})
			cur.Len += i + 1
			out = append(out, cur)
			cur = Line{}
			s = s[i+1:]
		}
	}
	for _, sp := range spans {
		if sp.text == "" {
			continue
		}
		if !strings.HasPrefix(src[pos:], sp.text) {
			break
		}
		emit(sp.tt, sp.text)
		pos += len(sp.text)
	}
	if pos < len(src) {
		emit(chroma.Text, src[pos:])
	}
	if cur.Len > 0 {
		out = append(out, cur)
	}
	return out
}

func lexerTokeniser(lexer chroma.Lexer) func(string) ([]span, error) {
	return func(text string) (out []span, err error) {
		defer func() {
			if r := recover(); r != nil {
				out, err = nil, fmt.Errorf("lexer %s panicked: %v", lexer.Config().Name, r)
			}
		}()
		// EnsureLF stays off: the text must come back byte for byte.
		it, err := lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
		if err != nil {
			return nil, err
		}
		for _, tok := range it.Tokens() {
			out = append(out, span{tt: tok.Type, text: tok.Value})
		}
		return out, nil
	}
}

// SplitLinesWithEndings cuts s after every '\n'. The pieces concatenate back
// to s; an empty s has no lines.
func SplitLinesWithEndings(s string) []string {
	if s == "" {
		return nil
	}
	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
