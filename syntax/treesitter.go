package syntax

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	sitter "github.com/smacker/go-tree-sitter"
	sitterc "github.com/smacker/go-tree-sitter/c"
	sittergo "github.com/smacker/go-tree-sitter/golang"
	sittermd "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	sitterhs "github.com/tree-sitter/tree-sitter-haskell/bindings/go"
)

type nodeClassifier func(*sitter.Node, string) (chroma.TokenType, int)

// treeGrammar is a structural backend for a chroma grammar: the buffer is
// parsed whole and classified nodes paint a byte grid.
type treeGrammar struct {
	lang     *sitter.Language
	classify nodeClassifier
}

// Keyed by chroma lexer name.
var treeGrammars = map[string]*treeGrammar{
	"Go":       {lang: sittergo.GetLanguage(), classify: classifyGoNode},
	"C":        {lang: sitterc.GetLanguage(), classify: classifyCNode},
	"markdown": {lang: sittermd.GetLanguage(), classify: classifyMarkdownNode},
	"Haskell":  {lang: sitter.NewLanguage(sitterhs.Language()), classify: classifyHaskellNode},
}

type gridCell struct {
	tt       chroma.TokenType
	priority int
	set      bool
}

func (g *treeGrammar) spans(src string) ([]span, error) {
	root, err := sitter.ParseCtx(context.Background(), []byte(src), g.lang)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New("tree-sitter returned no syntax tree")
	}

	grid := make([]gridCell, len(src))
	walkTree(root, func(n *sitter.Node) {
		tt, pri := g.classify(n, src)
		if tt == chroma.Text {
			return
		}
		applyNodeStyle(grid, int(n.StartByte()), int(n.EndByte()), tt, pri)
	})
	return gridSpans(src, grid), nil
}

// walkTree visits parents before children, so an inner node of equal
// priority repaints its parent's range.
func walkTree(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(i), visit)
	}
}

func applyNodeStyle(grid []gridCell, start, end int, tt chroma.TokenType, priority int) {
	if start < 0 {
		start = 0
	}
	if end > len(grid) {
		end = len(grid)
	}
	for i := start; i < end; i++ {
		if !grid[i].set || priority >= grid[i].priority {
			grid[i] = gridCell{tt: tt, priority: priority, set: true}
		}
	}
}

// gridSpans groups equal cells into spans. A span never ends inside a UTF-8
// sequence; continuation bytes follow the type of their lead byte.
func gridSpans(src string, grid []gridCell) []span {
	typeAt := func(i int) chroma.TokenType {
		if !grid[i].set {
			return chroma.Text
		}
		return grid[i].tt
	}
	var out []span
	for i := 0; i < len(src); {
		tt := typeAt(i)
		j := i + 1
		for j < len(src) && (!utf8.RuneStart(src[j]) || typeAt(j) == tt) {
			j++
		}
		out = append(out, span{tt: tt, text: src[i:j]})
		i = j
	}
	return out
}

var goKeywordTokens = map[string]struct{}{
	"break":       {},
	"case":        {},
	"chan":        {},
	"const":       {},
	"continue":    {},
	"default":     {},
	"defer":       {},
	"else":        {},
	"fallthrough": {},
	"for":         {},
	"func":        {},
	"go":          {},
	"goto":        {},
	"if":          {},
	"import":      {},
	"interface":   {},
	"map":         {},
	"package":     {},
	"range":       {},
	"return":      {},
	"select":      {},
	"struct":      {},
	"switch":      {},
	"type":        {},
	"var":         {},
}

var goPseudoKeywords = map[string]struct{}{
	"nil":   {},
	"true":  {},
	"false": {},
	"iota":  {},
}

func classifyGoNode(node *sitter.Node, src string) (chroma.TokenType, int) {
	if node == nil {
		return chroma.Text, 0
	}
	typ := node.Type()
	switch typ {
	case "comment":
		return chroma.Comment, 90
	case "interpreted_string_literal", "raw_string_literal":
		return chroma.LiteralString, 80
	case "rune_literal":
		return chroma.LiteralStringChar, 80
	case "escape_sequence":
		return chroma.LiteralStringEscape, 85
	case "int_literal", "float_literal", "imaginary_literal":
		return chroma.LiteralNumber, 70
	case "type_identifier":
		return chroma.KeywordType, 60
	case "nil", "true", "false", "iota":
		return chroma.KeywordConstant, 60
	case "field_identifier":
		if p := node.Parent(); p != nil && p.Type() == "method_declaration" {
			return chroma.NameFunction, 60
		}
		return chroma.Text, 0
	case "identifier":
		if _, ok := goPseudoKeywords[nodeText(src, node)]; ok {
			return chroma.KeywordConstant, 60
		}
		if p := node.Parent(); p != nil {
			switch p.Type() {
			case "function_declaration", "call_expression":
				return chroma.NameFunction, 50
			case "type_spec":
				return chroma.KeywordType, 55
			}
		}
		return chroma.Text, 0
	}
	if !node.IsNamed() {
		if _, ok := goKeywordTokens[typ]; ok {
			return chroma.Keyword, 60
		}
	}
	return chroma.Text, 0
}

func classifyMarkdownNode(node *sitter.Node, _ string) (chroma.TokenType, int) {
	if node == nil {
		return chroma.Text, 0
	}
	switch node.Type() {
	case "atx_heading", "setext_heading", "atx_h1_marker", "atx_h2_marker", "atx_h3_marker", "atx_h4_marker", "atx_h5_marker", "atx_h6_marker", "setext_h1_underline", "setext_h2_underline":
		return chroma.GenericHeading, 70
	case "fenced_code_block", "code_fence_content", "fenced_code_block_delimiter", "indented_code_block", "info_string", "language":
		return chroma.LiteralString, 80
	case "link_label", "link_destination", "link_title", "link_reference_definition":
		return chroma.NameAttribute, 70
	case "thematic_break", "block_quote_marker", "list_marker_plus", "list_marker_minus", "list_marker_star", "list_marker_dot", "list_marker_parenthesis", "task_list_marker_checked", "task_list_marker_unchecked", "pipe_table_delimiter_row", "pipe_table_delimiter_cell":
		return chroma.Punctuation, 60
	case "html_block":
		return chroma.Comment, 50
	default:
		return chroma.Text, 0
	}
}

var cKeywordTokens = map[string]struct{}{
	"break":          {},
	"case":           {},
	"const":          {},
	"continue":       {},
	"default":        {},
	"do":             {},
	"else":           {},
	"enum":           {},
	"extern":         {},
	"for":            {},
	"goto":           {},
	"if":             {},
	"inline":         {},
	"register":       {},
	"restrict":       {},
	"return":         {},
	"sizeof":         {},
	"static":         {},
	"struct":         {},
	"switch":         {},
	"typedef":        {},
	"union":          {},
	"volatile":       {},
	"while":          {},
	"_Alignas":       {},
	"_Alignof":       {},
	"_Atomic":        {},
	"_Bool":          {},
	"_Complex":       {},
	"_Generic":       {},
	"_Imaginary":     {},
	"_Noreturn":      {},
	"_Static_assert": {},
	"_Thread_local":  {},
}

func classifyCNode(node *sitter.Node, _ string) (chroma.TokenType, int) {
	if node == nil {
		return chroma.Text, 0
	}
	switch node.Type() {
	case "comment":
		return chroma.Comment, 90
	case "string_literal", "system_lib_string":
		return chroma.LiteralString, 80
	case "char_literal":
		return chroma.LiteralStringChar, 80
	case "number_literal":
		return chroma.LiteralNumber, 70
	case "type_identifier", "primitive_type", "sized_type_specifier", "macro_type_specifier":
		return chroma.KeywordType, 65
	case "#include", "#define", "#if", "#ifdef", "#ifndef", "#else", "#elif", "#elifdef", "#elifndef", "#endif", "preproc_directive":
		return chroma.CommentPreproc, 75
	case "function_declarator":
		return chroma.Text, 0
	case "identifier":
		if p := node.Parent(); p != nil && (p.Type() == "function_declarator" || p.Type() == "call_expression") {
			return chroma.NameFunction, 50
		}
		return chroma.Text, 0
	}
	if !node.IsNamed() {
		if _, ok := cKeywordTokens[node.Type()]; ok {
			return chroma.Keyword, 60
		}
	}
	return chroma.Text, 0
}

var haskellKeywordTokens = map[string]struct{}{
	"let":      {},
	"in":       {},
	"if":       {},
	"then":     {},
	"else":     {},
	"case":     {},
	"of":       {},
	"where":    {},
	"module":   {},
	"import":   {},
	"type":     {},
	"data":     {},
	"newtype":  {},
	"class":    {},
	"instance": {},
	"deriving": {},
	"do":       {},
}

func classifyHaskellNode(node *sitter.Node, _ string) (chroma.TokenType, int) {
	if node == nil {
		return chroma.Text, 0
	}
	switch node.Type() {
	case "comment", "haddock", "pragma":
		return chroma.Comment, 90
	case "string":
		return chroma.LiteralString, 80
	case "char":
		return chroma.LiteralStringChar, 80
	case "integer", "float":
		return chroma.LiteralNumber, 70
	case "constructor":
		return chroma.KeywordType, 65
	}
	if !node.IsNamed() {
		if _, ok := haskellKeywordTokens[node.Type()]; ok {
			return chroma.Keyword, 60
		}
	}
	return chroma.Text, 0
}

func nodeText(src string, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	a := int(node.StartByte())
	b := int(node.EndByte())
	if a < 0 {
		a = 0
	}
	if b > len(src) {
		b = len(src)
	}
	if a >= b {
		return ""
	}
	return src[a:b]
}
