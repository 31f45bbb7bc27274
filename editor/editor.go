package editor

// Core editing logic. This package is UI-agnostic to keep logic testable.

import "unicode"

type Dir int

const (
	DirBack Dir = -1
	DirFwd  Dir = 1
)

type Sel struct {
	Active bool
	A      int // inclusive
	B      int // exclusive-ish in rendering; we normalise anyway
}

func (s Sel) Normalised() (int, int) {
	if !s.Active {
		return 0, 0
	}
	if s.A <= s.B {
		return s.A, s.B
	}
	return s.B, s.A
}

// Clipboard abstracts clipboard operations for testability.
type Clipboard interface {
	GetText() (string, error)
	SetText(string) error
}

// closers pairs an opening rune typed on its own with the rune inserted
// after the caret.
var closers = map[rune]rune{
	'(':  ')',
	'[':  ']',
	'{':  '}',
	'"':  '"',
	'\'': '\'',
}

type Editor struct {
	Buf   []rune
	Caret int
	Sel   Sel

	// AutoPair closes brackets and quotes typed through TypeText.
	AutoPair bool

	clip Clipboard
}

func NewEditor(initial string) *Editor {
	return &Editor{Buf: []rune(initial)}
}

func (e *Editor) SetClipboard(c Clipboard) {
	e.clip = c
}

// String returns the buffer text.
func (e *Editor) String() string { return string(e.Buf) }

// SetText replaces the whole buffer and puts the caret at the start.
func (e *Editor) SetText(s string) {
	e.Buf = []rune(s)
	e.Caret = 0
	e.Sel = Sel{}
}

// ======================
// Editing + selection
// ======================

func (e *Editor) InsertText(text string) {
	// Replace selection if active
	if e.Sel.Active {
		e.deleteSelection()
	}
	rs := []rune(text)
	if len(rs) == 0 {
		return
	}
	e.Caret = clamp(e.Caret, 0, len(e.Buf))
	e.Buf = append(e.Buf[:e.Caret], append(rs, e.Buf[e.Caret:]...)...)
	e.Caret += len(rs)
}

// TypeText inserts keyboard input. With AutoPair on, a lone opening bracket
// or quote gets its closer and the caret stays between the two.
func (e *Editor) TypeText(text string) {
	rs := []rune(text)
	if !e.AutoPair || len(rs) != 1 {
		e.InsertText(text)
		return
	}
	closer, ok := closers[rs[0]]
	if !ok {
		e.InsertText(text)
		return
	}
	e.InsertText(string([]rune{rs[0], closer}))
	e.Caret--
}

func (e *Editor) BackspaceOrDeleteSelection(isBackspace bool) {
	if e.Sel.Active {
		e.deleteSelection()
		return
	}
	if len(e.Buf) == 0 {
		return
	}
	if isBackspace {
		if e.Caret <= 0 {
			return
		}
		e.Buf = append(e.Buf[:e.Caret-1], e.Buf[e.Caret:]...)
		e.Caret--
		return
	}
	// delete forward
	if e.Caret >= len(e.Buf) {
		return
	}
	e.Buf = append(e.Buf[:e.Caret], e.Buf[e.Caret+1:]...)
}

func (e *Editor) deleteSelection() {
	a, b := e.Sel.Normalised()
	a = clamp(a, 0, len(e.Buf))
	b = clamp(b, 0, len(e.Buf))
	if a == b {
		e.Sel.Active = false
		return
	}
	e.Buf = append(e.Buf[:a], e.Buf[b:]...)
	e.Caret = a
	e.Sel.Active = false
}

func (e *Editor) MoveCaret(delta int, extendSelection bool) {
	e.moveTo(e.Caret+delta, extendSelection)
}

func (e *Editor) moveTo(pos int, extendSelection bool) {
	newPos := clamp(pos, 0, len(e.Buf))
	if extendSelection {
		if !e.Sel.Active {
			e.Sel.Active = true
			e.Sel.A = e.Caret
			e.Sel.B = newPos
		} else {
			e.Sel.B = newPos
		}
	} else {
		e.Sel.Active = false
	}
	e.Caret = newPos
}

// MoveLine moves the caret delta lines, keeping the column where the target
// line is long enough.
func (e *Editor) MoveLine(delta int, extendSelection bool) {
	lines := SplitLines(e.Buf)
	ln, col := LineColForPos(lines, e.Caret)
	target := clamp(ln+delta, 0, len(lines)-1)
	e.moveTo(PosForLineCol(lines, target, col), extendSelection)
}

// CaretToLineEdge moves to the start (DirBack) or end (DirFwd) of the
// caret's line.
func (e *Editor) CaretToLineEdge(dir Dir, extendSelection bool) {
	start, end := e.lineBounds(e.Caret)
	if dir == DirBack {
		e.moveTo(start, extendSelection)
		return
	}
	e.moveTo(end, extendSelection)
}

// WordForward moves to the start of the next word.
func (e *Editor) WordForward() {
	i := clamp(e.Caret, 0, len(e.Buf))
	if i < len(e.Buf) {
		cls := runeClass(e.Buf[i])
		for i < len(e.Buf) && cls != classSpace && runeClass(e.Buf[i]) == cls {
			i++
		}
	}
	for i < len(e.Buf) && runeClass(e.Buf[i]) == classSpace {
		i++
	}
	e.moveTo(i, false)
}

// WordBack moves to the start of the current or previous word.
func (e *Editor) WordBack() {
	i := clamp(e.Caret, 0, len(e.Buf))
	for i > 0 && runeClass(e.Buf[i-1]) == classSpace {
		i--
	}
	if i > 0 {
		cls := runeClass(e.Buf[i-1])
		for i > 0 && runeClass(e.Buf[i-1]) == cls {
			i--
		}
	}
	e.moveTo(i, false)
}

// DeleteLine removes the caret's line with its newline and returns the
// removed text.
func (e *Editor) DeleteLine() string {
	if len(e.Buf) == 0 {
		return ""
	}
	start, end := e.lineBounds(e.Caret)
	if end < len(e.Buf) {
		end++ // take the newline
	} else if start > 0 {
		start-- // last line: take the newline before it
	}
	removed := string(e.Buf[start:end])
	e.Buf = append(e.Buf[:start], e.Buf[end:]...)
	e.Sel = Sel{}
	e.Caret = clamp(start, 0, len(e.Buf))
	if ls, _ := e.lineBounds(e.Caret); ls != e.Caret {
		e.Caret = ls
	}
	return removed
}

// OpenLineBelow inserts a newline at the end of the caret's line and puts
// the caret on the new line.
func (e *Editor) OpenLineBelow() {
	_, end := e.lineBounds(e.Caret)
	e.Sel = Sel{}
	e.Caret = end
	e.InsertText("\n")
}

// lineBounds returns [start, end) of the line holding pos, newline excluded.
func (e *Editor) lineBounds(pos int) (int, int) {
	pos = clamp(pos, 0, len(e.Buf))
	start := pos
	for start > 0 && e.Buf[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(e.Buf) && e.Buf[end] != '\n' {
		end++
	}
	return start, end
}

func (e *Editor) CopySelection() {
	if !e.Sel.Active || e.clip == nil {
		return
	}
	a, b := e.Sel.Normalised()
	a = clamp(a, 0, len(e.Buf))
	b = clamp(b, 0, len(e.Buf))
	if a == b {
		return
	}
	_ = e.clip.SetText(string(e.Buf[a:b]))
}

func (e *Editor) CutSelection() {
	if !e.Sel.Active || e.clip == nil {
		return
	}
	e.CopySelection()
	e.deleteSelection()
}

func (e *Editor) PasteClipboard() {
	if e.clip == nil {
		return
	}
	txt, err := e.clip.GetText()
	if err != nil || txt == "" {
		return
	}
	e.InsertText(txt)
}

// Find moves the caret to the next match of query after the caret, wrapping
// to the top. It reports whether a match exists.
func (e *Editor) Find(query string) bool { return e.FindDir(query, DirFwd) }

// FindDir selects the nearest match of query in dir. Backward search starts
// strictly before the caret and wraps to the last match.
func (e *Editor) FindDir(query string, dir Dir) bool {
	q := []rune(query)
	if len(q) == 0 {
		return false
	}
	start := min(len(e.Buf), e.Caret+1)
	if dir == DirBack {
		start = e.Caret
	}
	pos, ok := FindInDir(e.Buf, q, start, dir, true)
	if !ok {
		return false
	}
	e.Sel = Sel{Active: true, A: pos, B: pos + len(q)}
	e.Caret = pos
	return true
}

// ======================
// Line/col mapping
// ======================

func SplitLines(buf []rune) []string {
	lines := make([]string, 0, 64)
	var cur []rune
	for _, r := range buf {
		if r == '\n' {
			lines = append(lines, string(cur))
			cur = cur[:0]
			continue
		}
		cur = append(cur, r)
	}
	lines = append(lines, string(cur))
	return lines
}

// Convert a buffer position to (line, col) assuming lines from splitLines.
func LineColForPos(lines []string, pos int) (int, int) {
	if pos <= 0 {
		return 0, 0
	}
	p := 0
	for i, line := range lines {
		l := len([]rune(line))
		if pos <= p+l {
			return i, pos - p
		}
		p += l + 1
	}
	// end
	if len(lines) == 0 {
		return 0, 0
	}
	last := len(lines) - 1
	return last, len([]rune(lines[last]))
}

// PosForLineCol is the inverse of LineColForPos; col is clamped to the line.
func PosForLineCol(lines []string, line, col int) int {
	if len(lines) == 0 {
		return 0
	}
	line = clamp(line, 0, len(lines)-1)
	p := 0
	for i := 0; i < line; i++ {
		p += len([]rune(lines[i])) + 1
	}
	return p + clamp(col, 0, len([]rune(lines[line])))
}

// ======================
// Search
// ======================

func FindInDir(hay []rune, needle []rune, start int, dir Dir, wrap bool) (int, bool) {
	if len(needle) == 0 {
		return start, true
	}
	if len(hay) == 0 || len(needle) > len(hay) {
		return -1, false
	}
	start = clamp(start, 0, len(hay))

	if dir == DirFwd {
		if pos, ok := scanFwd(hay, needle, start); ok {
			return pos, true
		}
		if wrap {
			return scanFwd(hay, needle, 0)
		}
		return -1, false
	}

	// backward
	searchStart := start - 1 // search strictly before start to get the previous match
	if pos, ok := scanBack(hay, needle, searchStart); ok {
		return pos, true
	}
	if wrap {
		return scanBack(hay, needle, len(hay))
	}
	return -1, false
}

func scanFwd(hay, needle []rune, start int) (int, bool) {
	for i := start; i+len(needle) <= len(hay); i++ {
		if matchAt(hay, needle, i) {
			return i, true
		}
	}
	return -1, false
}

func scanBack(hay, needle []rune, start int) (int, bool) {
	if start < 0 {
		return -1, false
	}
	lastStart := min(start, len(hay)-len(needle))
	for i := lastStart; i >= 0; i-- {
		if matchAt(hay, needle, i) {
			return i, true
		}
	}
	return -1, false
}

func matchAt(hay, needle []rune, i int) bool {
	for j := 0; j < len(needle); j++ {
		if hay[i+j] != needle[j] {
			return false
		}
	}
	return true
}

// ======================
// Util
// ======================

const (
	classSpace = iota
	classWord
	classPunct
)

func runeClass(r rune) int {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
		return classWord
	default:
		return classPunct
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
