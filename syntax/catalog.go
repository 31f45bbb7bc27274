// Package syntax turns buffer text into styled runs. The Catalog maps file
// extensions to grammars, tokenizes text line by line under a grammar and a
// dark theme, and Project lays those runs over the live buffer for display.
package syntax

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

const (
	// DefaultTheme is the dark chroma style used when no theme is configured.
	DefaultTheme = "monokai"
	// PlainText names the grammar used when a buffer has no syntax.
	PlainText = "plaintext"
)

// Grammar is a named tokenization ruleset.
type Grammar struct {
	Name       string
	Extensions []string

	tokenise func(text string) ([]span, error)
	tree     *treeGrammar
}

// Catalog is a read-only set of grammars and one theme.
type Catalog struct {
	grammars map[string]*Grammar
	byExt    map[string]*Grammar
	plain    *Grammar
	theme    *Theme
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog with the default theme.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog(DefaultTheme)
	})
	return defaultCatalog
}

// NewCatalog indexes every registered chroma lexer by the plain "*.ext"
// globs it declares. When two lexers claim an extension the higher priority
// wins, then the smaller name.
func NewCatalog(theme string) *Catalog {
	c := &Catalog{
		grammars: make(map[string]*Grammar),
		byExt:    make(map[string]*Grammar),
		theme:    NewTheme(theme),
	}
	priority := make(map[string]float32)

	for _, lx := range lexers.GlobalLexerRegistry.Lexers {
		cfg := lx.Config()
		if cfg == nil || cfg.Name == "" {
			continue
		}
		if _, dup := c.grammars[cfg.Name]; dup {
			continue
		}
		g := &Grammar{
			Name:     cfg.Name,
			tokenise: lexerTokeniser(chroma.Coalesce(lx)),
			tree:     treeGrammars[cfg.Name],
		}
		c.grammars[cfg.Name] = g
		if cfg.Name == PlainText {
			continue
		}
		for _, glob := range cfg.Filenames {
			ext, ok := globExtension(glob)
			if !ok {
				continue
			}
			g.Extensions = append(g.Extensions, ext)
			if cur, taken := c.byExt[ext]; taken {
				p := priority[ext]
				if cfg.Priority < p || (cfg.Priority == p && cur.Name < cfg.Name) {
					continue
				}
			}
			c.byExt[ext] = g
			priority[ext] = cfg.Priority
		}
	}

	c.plain = c.grammars[PlainText]
	if c.plain == nil {
		c.plain = &Grammar{Name: PlainText, tokenise: lexerTokeniser(lexers.Fallback)}
		c.grammars[PlainText] = c.plain
	}
	return c
}

// globExtension returns ".ext" for a glob of the exact form "*.ext".
func globExtension(glob string) (string, bool) {
	rest, ok := strings.CutPrefix(glob, "*.")
	if !ok || rest == "" || strings.ContainsAny(rest, "*?[]{}./\\") {
		return "", false
	}
	return "." + rest, true
}

// Detect maps a path's extension, taken verbatim, to a grammar name.
// Unknown extensions and empty paths report false.
func (c *Catalog) Detect(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	g, ok := c.byExt[ext]
	if !ok {
		return "", false
	}
	return g.Name, true
}

// Lookup finds a grammar by canonical name, then by chroma alias.
func (c *Catalog) Lookup(name string) *Grammar {
	if g, ok := c.grammars[name]; ok {
		return g
	}
	if lx := lexers.Get(name); lx != nil && lx.Config() != nil {
		if g, ok := c.grammars[lx.Config().Name]; ok {
			return g
		}
	}
	return nil
}

// Names lists every grammar name, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.grammars))
	for name := range c.grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Theme returns the catalog theme.
func (c *Catalog) Theme() *Theme { return c.theme }

// Fallback is the style for text no run covers.
func (c *Catalog) Fallback() Style { return c.theme.Style(chroma.Text) }

func (c *Catalog) resolve(ref string) *Grammar {
	if ref != "" {
		if g := c.Lookup(ref); g != nil {
			return g
		}
	}
	return c.plain
}
