package syntax

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// Style is the resolved look of one token class.
type Style struct {
	Token      chroma.TokenType
	Foreground chroma.Colour
	Background chroma.Colour
	Bold       bool
	Italic     bool
	Underline  bool
}

// Theme wraps a chroma style.
type Theme struct {
	style *chroma.Style
}

// NewTheme resolves a chroma style by name. Unknown names get chroma's
// fallback style.
func NewTheme(name string) *Theme {
	st := styles.Get(name)
	if st == nil {
		st = styles.Fallback
	}
	return &Theme{style: st}
}

func (t *Theme) Name() string { return t.style.Name }

// Style resolves a token type, following chroma's category inheritance.
func (t *Theme) Style(tt chroma.TokenType) Style {
	e := t.style.Get(tt)
	return Style{
		Token:      tt,
		Foreground: e.Colour,
		Background: e.Background,
		Bold:       e.Bold == chroma.Yes,
		Italic:     e.Italic == chroma.Yes,
		Underline:  e.Underline == chroma.Yes,
	}
}

// Background is the editor background colour of the theme, if it sets one.
func (t *Theme) Background() chroma.Colour {
	return t.style.Get(chroma.Background).Background
}
