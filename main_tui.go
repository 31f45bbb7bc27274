package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"hydroxite/editor"
	"hydroxite/filetree"
	"hydroxite/log"
	"hydroxite/session"
	"hydroxite/syntax"
	"hydroxite/vim"
	"hydroxite/watcher"
)

const gutterWidth = 5

var (
	menuBarStyle    = tcell.StyleDefault.Background(tcell.ColorDarkSlateBlue).Foreground(tcell.ColorWhite)
	menuActiveStyle = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorDarkSlateBlue)
	statusStyle     = tcell.StyleDefault.Background(tcell.ColorDarkSlateBlue).Foreground(tcell.ColorWhite)
	inputStyle      = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGray)
	promptStyle     = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	treeStyle       = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorSilver)
	treeRootStyle   = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightCyan).Bold(true)
	treeOpenStyle   = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	treeCursorStyle = tcell.StyleDefault.Background(tcell.ColorSteelBlue).Foreground(tcell.ColorWhite)
	gutterStyle     = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorDarkCyan)
	popupStyle      = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	popupBorder     = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorLightCyan)
	popupTitle      = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorLightYellow)
	popupDim        = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorSilver)
	popupSelStyle   = tcell.StyleDefault.Background(tcell.ColorLightCyan).Foreground(tcell.ColorBlack)
)

// screenLayout records where things were drawn last frame so mouse clicks
// can be mapped back.
type screenLayout struct {
	w, h    int
	top     int
	bodyH   int
	treeW   int
	editorX int
	menuX   []int
}

// treeChanged is the payload of interrupts posted by the directory watcher.
type treeChanged struct{}

func newScreen() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("opening terminal: %w", err)
	}
	return s, nil
}

func runTUI(screen tcell.Screen, app *appState) error {
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	app.ask = func(label, initial string) (string, bool) {
		return runPrompt(screen, app, label, initial)
	}

	done := make(chan struct{})
	defer close(done)

	var w *watcher.Watcher
	if app.cfg.Tree.Watch {
		var err error
		w, err = watcher.New(watcher.DefaultConfig())
		if err != nil {
			log.ErrorErr(log.CatWatcher, "tree watching disabled", err)
		} else {
			defer func() { _ = w.Stop() }()
			forwardTreeChanges(screen, w.Start(), done)
		}
	}

	var retokenize *time.Timer
	defer func() {
		if retokenize != nil {
			retokenize.Stop()
		}
	}()

	var lastButtons tcell.ButtonMask
	for {
		drawTUI(screen, app)
		if w != nil {
			w.Sync(app.sess.Tree().WatchDirs())
		}
		if wait, stale := app.sess.RetokenizeDue(app.now()); stale {
			if retokenize != nil {
				retokenize.Stop()
			}
			retokenize = time.AfterFunc(wait, func() {
				_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
			})
		}

		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if !handleTUIKey(app, ev) {
				log.Info(log.CatUI, "exiting")
				return nil
			}
		case *tcell.EventMouse:
			buttons := ev.Buttons()
			x, y := ev.Position()
			handleMouse(app, x, y, buttons, lastButtons)
			lastButtons = buttons
			if app.sess.Quitting() {
				return nil
			}
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(treeChanged); ok {
				log.Debug(log.CatWatcher, "redraw for tree change")
			}
		}
	}
}

// forwardTreeChanges wakes the event loop whenever the watcher reports a
// settled burst of directory changes.
func forwardTreeChanges(screen tcell.Screen, changes <-chan struct{}, done <-chan struct{}) {
	go func() {
		for {
			select {
			case <-done:
				return
			case <-changes:
				_ = screen.PostEvent(tcell.NewEventInterrupt(treeChanged{}))
			}
		}
	}()
}

// runPrompt shows a one-line prompt and runs a nested event loop until
// Enter or Esc.
func runPrompt(screen tcell.Screen, app *appState, label, initial string) (string, bool) {
	p := &promptState{label: label, value: initial}
	app.prompt = p
	defer func() { app.prompt = nil }()
	for {
		drawTUI(screen, app)
		switch ev := screen.PollEvent().(type) {
		case nil:
			return "", false
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			k, ok := tcellToKeyEvent(ev)
			if !ok {
				continue
			}
			if done, accepted := p.handle(k); done {
				return p.value, accepted
			}
		}
	}
}

func handleTUIKey(app *appState, ev *tcell.EventKey) bool {
	if app == nil || ev == nil {
		return true
	}
	e, ok := tcellToKeyEvent(ev)
	if !ok {
		return true
	}
	return handleKeyEvent(app, e)
}

func tcellToMods(m tcell.ModMask) modMask {
	var out modMask
	if (m & tcell.ModShift) != 0 {
		out |= modShift
	}
	if (m & tcell.ModCtrl) != 0 {
		out |= modCtrl
	}
	if (m & tcell.ModAlt) != 0 {
		out |= modAlt
	}
	return out
}

func tcellToKeyEvent(ev *tcell.EventKey) (keyEvent, bool) {
	mods := tcellToMods(ev.Modifiers())
	k := ev.Key()
	switch k {
	case tcell.KeyRune:
		r := ev.Rune()
		if mods&modCtrl != 0 {
			r = unicode.ToLower(r)
		}
		return keyEvent{key: keyRune, r: r, mods: mods}, true
	case tcell.KeyUp:
		return keyEvent{key: keyUp, mods: mods}, true
	case tcell.KeyDown:
		return keyEvent{key: keyDown, mods: mods}, true
	case tcell.KeyLeft:
		return keyEvent{key: keyLeft, mods: mods}, true
	case tcell.KeyRight:
		return keyEvent{key: keyRight, mods: mods}, true
	case tcell.KeyPgUp:
		return keyEvent{key: keyPageUp, mods: mods}, true
	case tcell.KeyPgDn:
		return keyEvent{key: keyPageDown, mods: mods}, true
	case tcell.KeyHome:
		return keyEvent{key: keyHome, mods: mods}, true
	case tcell.KeyEnd:
		return keyEvent{key: keyEnd, mods: mods}, true
	case tcell.KeyEscape:
		return keyEvent{key: keyEscape, mods: mods}, true
	case tcell.KeyTab:
		return keyEvent{key: keyTab, mods: mods &^ modCtrl}, true
	case tcell.KeyBacktab:
		return keyEvent{key: keyTab, mods: mods | modShift}, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return keyEvent{key: keyBackspace, mods: mods &^ modCtrl}, true
	case tcell.KeyDelete:
		return keyEvent{key: keyDelete, mods: mods}, true
	case tcell.KeyEnter:
		return keyEvent{key: keyReturn, mods: mods &^ modCtrl}, true
	case tcell.KeyF1:
		return keyEvent{key: keyF1, mods: mods}, true
	case tcell.KeyF2:
		return keyEvent{key: keyF2, mods: mods}, true
	case tcell.KeyF5:
		return keyEvent{key: keyF5, mods: mods}, true
	case tcell.KeyF6:
		return keyEvent{key: keyF6, mods: mods}, true
	case tcell.KeyF10:
		return keyEvent{key: keyF10, mods: mods}, true
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return keyEvent{key: keyRune, r: rune('a' + (k - tcell.KeyCtrlA)), mods: mods | modCtrl}, true
	}
	return keyEvent{}, false
}

// ======================
// Drawing
// ======================

func computeLayout(app *appState, w, h int) screenLayout {
	l := screenLayout{w: w, h: h, top: 1, bodyH: max(1, h-3)}
	if app.sess.Mode() == session.ModeEditing && app.sess.Tree().HasRoot() {
		l.treeW = clamp(w/4, 16, 32)
		if l.treeW > w/2 {
			l.treeW = 0
		}
	}
	l.editorX = l.treeW + gutterWidth
	x := 0
	for _, t := range menuTitles {
		l.menuX = append(l.menuX, x)
		x += runewidth.StringWidth(t) + 2
	}
	return l
}

func drawTUI(s tcell.Screen, app *appState) {
	s.HideCursor()
	w, h := s.Size()
	if w < 20 || h < 6 {
		s.Clear()
		s.Show()
		return
	}
	app.layout = computeLayout(app, w, h)
	base := editorBaseStyle(app.sess.Catalog())
	for y := 0; y < h; y++ {
		fillRow(s, 0, y, w, base)
	}

	drawMenuBar(s, app)
	if app.sess.Mode() == session.ModeSplash {
		drawSplash(s, app, base)
	} else {
		if app.layout.treeW > 0 {
			drawTree(s, app)
		}
		drawEditor(s, app, base)
	}
	drawStatusLine(s, app)
	drawInputLine(s, app)
	if app.sess.AboutOpen() {
		drawAbout(s, app)
	}
	if app.menu != nil {
		drawMenu(s, app)
	}
	s.Show()
}

func editorBaseStyle(cat *syntax.Catalog) tcell.Style {
	fb := cat.Fallback()
	st := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	if fb.Foreground.IsSet() {
		st = st.Foreground(chromaToTcell(fb.Foreground))
	}
	if bg := cat.Theme().Background(); bg.IsSet() {
		st = st.Background(chromaToTcell(bg))
	}
	return st
}

func chromaToTcell(c chroma.Colour) tcell.Color {
	if !c.IsSet() {
		return tcell.ColorDefault
	}
	return tcell.NewRGBColor(int32(c.Red()), int32(c.Green()), int32(c.Blue()))
}

func tuiStyleFor(base tcell.Style, st syntax.Style) tcell.Style {
	out := base
	if st.Foreground.IsSet() {
		out = out.Foreground(chromaToTcell(st.Foreground))
	}
	if st.Background.IsSet() {
		out = out.Background(chromaToTcell(st.Background))
	}
	return out.Bold(st.Bold).Italic(st.Italic).Underline(st.Underline)
}

func drawMenuBar(s tcell.Screen, app *appState) {
	l := app.layout
	fillRow(s, 0, 0, l.w, menuBarStyle)
	for i, t := range menuTitles {
		st := menuBarStyle
		if app.menu != nil && app.menu.title == i {
			st = menuActiveStyle
		}
		drawCellText(s, l.menuX[i], 0, " "+t+" ", st)
	}
	name := "Hydroxite"
	drawCellText(s, l.w-runewidth.StringWidth(name)-1, 0, name, menuBarStyle)
}

var splashLines = []string{
	"[n] New File",
	"[o] Open File",
	"[f] Open Folder",
	"[v] Vim Mode %s",
	"[q] Quit",
}

func drawSplash(s tcell.Screen, app *appState, base tcell.Style) {
	l := app.layout
	check := "[ ]"
	if app.sess.VimEnabled() {
		check = "[x]"
	}
	lines := []string{"Hydroxite " + app.sess.Version(), ""}
	for _, sl := range splashLines {
		if strings.Contains(sl, "%s") {
			sl = fmt.Sprintf(sl, check)
		}
		lines = append(lines, sl)
	}
	y := l.top + max(0, (l.bodyH-len(lines))/2)
	for i, line := range lines {
		st := base
		if i == 0 {
			st = base.Bold(true)
		}
		x := max(0, (l.w-runewidth.StringWidth(lines[2]))/2)
		drawCellText(s, x, y+i, line, st)
	}
}

func treeGlyph(r filetree.Row) string {
	switch {
	case r.IsDir && r.Expanded:
		return "▼ "
	case r.IsDir:
		return "▶ "
	case strings.EqualFold(filepath.Ext(r.Name), ".rs"):
		return "◆ "
	default:
		return "  "
	}
}

func drawTree(s tcell.Screen, app *appState) {
	l := app.layout
	tree := app.sess.Tree()
	rows := tree.Rows()
	listH := max(1, l.bodyH-1)
	app.treeCursor = clamp(app.treeCursor, 0, max(0, len(rows)-1))
	if app.treeCursor < app.treeScroll {
		app.treeScroll = app.treeCursor
	} else if app.treeCursor >= app.treeScroll+listH {
		app.treeScroll = app.treeCursor - listH + 1
	}
	app.treeScroll = clamp(app.treeScroll, 0, max(0, len(rows)-listH))

	inner := l.treeW - 1
	for y := l.top; y < l.top+l.bodyH; y++ {
		fillRow(s, 0, y, inner, treeStyle)
		s.SetContent(inner, y, '│', nil, treeStyle)
	}
	drawCellText(s, 0, l.top, padRight(" "+filepath.Base(tree.Root()), inner), treeRootStyle)

	for i := 0; i < listH; i++ {
		idx := app.treeScroll + i
		if idx >= len(rows) {
			break
		}
		r := rows[idx]
		st := treeStyle
		if r.Selected {
			st = treeOpenStyle
		}
		if app.focus == focusTree && idx == app.treeCursor {
			st = treeCursorStyle
		}
		label := " " + strings.Repeat("  ", r.Depth) + treeGlyph(r) + r.Name
		drawCellText(s, 0, l.top+1+i, padRight(label, inner), st)
	}
}

func drawEditor(s tcell.Screen, app *appState, base tcell.Style) {
	l := app.layout
	ed := app.sess.Editor()
	rows := syntax.SplitSpanLines(app.sess.Spans(app.now()))
	lines := editor.SplitLines(ed.Buf)
	cLine, cCol := editor.LineColForPos(lines, ed.Caret)
	ensureCaretVisible(app, cLine, len(rows), l.bodyH)

	selA, selB := ed.Sel.Normalised()
	off := 0
	for i := 0; i < app.scrollLine && i < len(lines); i++ {
		off += len([]rune(lines[i])) + 1
	}
	for row := 0; row < l.bodyH; row++ {
		ln := app.scrollLine + row
		if ln >= len(rows) || ln >= len(lines) {
			break
		}
		y := l.top + row
		drawCellText(s, l.treeW, y, fmt.Sprintf("%4d ", ln+1), gutterStyle)
		drawSpanRow(s, l.editorX, y, l.w, rows[ln], base, off, selA, selB, app.tabWidth)
		off += len([]rune(lines[ln])) + 1
	}

	overlay := app.prompt != nil || app.menu != nil || app.sess.AboutOpen() || app.sess.Pending() != nil
	caretX := l.editorX + visualColForRuneCol(lines[cLine], cCol, app.tabWidth)
	caretY := l.top + cLine - app.scrollLine
	if !overlay && app.focus == focusEditor && caretX < l.w && caretY >= l.top && caretY < l.top+l.bodyH {
		s.ShowCursor(caretX, caretY)
	}
}

// drawSpanRow paints one display row. off is the rune offset of the row's
// first character in the buffer, used to shade the selection [selA, selB).
func drawSpanRow(s tcell.Screen, x, y, maxX int, spans []syntax.Span, base tcell.Style, off, selA, selB, tabWidth int) {
	vis := 0
	idx := off
	for _, sp := range spans {
		st := tuiStyleFor(base, sp.Style)
		for _, r := range sp.Text {
			cst := st
			if idx >= selA && idx < selB {
				cst = cst.Reverse(true)
			}
			next := advanceCell(vis, r, tabWidth)
			if x+next > maxX {
				return
			}
			if r == '\t' {
				for ; vis < next; vis++ {
					s.SetContent(x+vis, y, ' ', nil, cst)
				}
			} else if next > vis {
				s.SetContent(x+vis, y, r, nil, cst)
			}
			vis = next
			idx++
		}
	}
}

func drawStatusLine(s tcell.Screen, app *appState) {
	l := app.layout
	sess := app.sess
	status := " Hydroxite"
	if sess.Mode() == session.ModeEditing {
		status = fmt.Sprintf(" %s | %s", sess.Title(), syntaxLabel(sess))
		if sess.VimEnabled() {
			status += " | -- " + sess.VimMode().String() + " --"
		}
	}
	if msg := sess.Message(); msg != "" {
		status += " | " + msg
	}
	drawCellText(s, 0, l.h-2, padRight(status, l.w), statusStyle)
}

func drawInputLine(s tcell.Screen, app *appState) {
	l := app.layout
	y := l.h - 1
	sess := app.sess
	var text string
	st := promptStyle
	cursor := false
	switch {
	case app.prompt != nil:
		text = app.prompt.label + app.prompt.value
		cursor = true
	case sess.Pending() != nil:
		p := sess.Pending()
		kind := "folder"
		if p.IsFile {
			kind = "file"
		}
		text = fmt.Sprintf("New %s in %s: %s", kind, displayPath(app, p.Parent), p.Name)
		cursor = true
	case sess.VimEnabled() && sess.VimMode() == vim.ModeCommand:
		text = ":" + sess.VimMachine().CommandLine()
		cursor = true
	default:
		st = inputStyle
		text = "^N new  ^O open  ^L folder  ^S save  ^F find  F1 about  F2 vim  F6 tree  F10 menu  ^Q quit"
	}
	drawCellText(s, 0, y, padRight(text, l.w), st)
	if cursor {
		if cx := runewidth.StringWidth(text); cx < l.w {
			s.ShowCursor(cx, y)
		}
	}
}

// displayPath shows p relative to the tree root when it is inside it.
func displayPath(app *appState, p string) string {
	root := app.sess.Tree().Root()
	if root == "" {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	if rel == "." {
		return filepath.Base(root)
	}
	return filepath.Join(filepath.Base(root), rel)
}

func drawAbout(s tcell.Screen, app *appState) {
	l := app.layout
	lines := []string{
		"Version " + app.sess.Version(),
		"A small editor with a file tree.",
		fmt.Sprintf("%d grammars, theme %s", len(app.sess.Catalog().Names()), app.sess.Catalog().Theme().Name()),
	}
	boxW := min(l.w-4, 48)
	boxH := len(lines) + 5
	x := max(0, (l.w-boxW)/2)
	y := max(1, (l.h-boxH)/2)
	drawBox(s, x, y, boxW, boxH)
	drawCellText(s, x+2, y+1, padRight("About Hydroxite", boxW-4), popupTitle)
	for i, line := range lines {
		drawCellText(s, x+2, y+2+i, padRight(line, boxW-4), popupStyle)
	}
	drawCellText(s, x+2, y+boxH-2, padRight("Esc close", boxW-4), popupDim)
}

// menuRect is the box of an open menu, kept on screen.
func menuRect(m *popupMenu, l screenLayout) (x, y, w, h int) {
	w = 0
	for _, it := range m.items {
		w = max(w, runewidth.StringWidth(it.label)+runewidth.StringWidth(it.keys)+6)
	}
	h = len(m.items) + 2
	x = clamp(m.x, 0, max(0, l.w-w))
	y = clamp(m.y, 1, max(1, l.h-h))
	return x, y, w, h
}

func drawMenu(s tcell.Screen, app *appState) {
	m := app.menu
	x, y, w, h := menuRect(m, app.layout)
	drawBox(s, x, y, w, h)
	for i, it := range m.items {
		st := popupStyle
		if i == m.sel {
			st = popupSelStyle
		}
		gap := w - 4 - runewidth.StringWidth(it.label) - runewidth.StringWidth(it.keys)
		line := it.label + strings.Repeat(" ", max(1, gap)) + it.keys
		drawCellText(s, x+1, y+1+i, padRight(" "+line+" ", w-2), st)
	}
}

func drawBox(s tcell.Screen, x, y, w, h int) {
	for yy := range h {
		for xx := range w {
			ch := ' '
			st := popupStyle
			if yy == 0 || yy == h-1 || xx == 0 || xx == w-1 {
				ch = '│'
				if yy == 0 || yy == h-1 {
					ch = '─'
				}
				if yy == 0 && xx == 0 {
					ch = '┌'
				} else if yy == 0 && xx == w-1 {
					ch = '┐'
				} else if yy == h-1 && xx == 0 {
					ch = '└'
				} else if yy == h-1 && xx == w-1 {
					ch = '┘'
				}
				st = popupBorder
			}
			s.SetContent(x+xx, y+yy, ch, nil, st)
		}
	}
}

func drawCellText(s tcell.Screen, x, y int, text string, st tcell.Style) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w <= 0 {
			continue
		}
		s.SetContent(x, y, r, nil, st)
		x += w
	}
}

func fillRow(s tcell.Screen, x, y, w int, st tcell.Style) {
	for i := range w {
		s.SetContent(x+i, y, ' ', nil, st)
	}
}

// ======================
// Mouse
// ======================

// handleMouse acts on button presses; held buttons and releases are
// ignored except for the wheel.
func handleMouse(app *appState, x, y int, buttons, last tcell.ButtonMask) {
	switch {
	case buttons&tcell.WheelUp != 0:
		scrollAt(app, x, -3)
	case buttons&tcell.WheelDown != 0:
		scrollAt(app, x, 3)
	case buttons&tcell.ButtonPrimary != 0 && last&tcell.ButtonPrimary == 0:
		handleClick(app, x, y, false)
	case buttons&tcell.ButtonSecondary != 0 && last&tcell.ButtonSecondary == 0:
		handleClick(app, x, y, true)
	}
}

func scrollAt(app *appState, x, delta int) {
	if app.sess.Mode() != session.ModeEditing {
		return
	}
	if x < app.layout.treeW {
		app.treeCursor = max(0, app.treeCursor+delta)
		return
	}
	app.sess.MoveLine(delta, false)
}

// handleClick maps a click at (x, y) onto menus, the tree or the editor.
// secondary is the right button.
func handleClick(app *appState, x, y int, secondary bool) {
	l := app.layout
	sess := app.sess
	if m := app.menu; m != nil {
		mx, my, mw, mh := menuRect(m, l)
		if x > mx && x < mx+mw-1 && y > my && y < my+mh-1 {
			runMenuItem(app, y-my-1)
			return
		}
		app.menu = nil
		if y != 0 {
			return
		}
	}
	if sess.AboutOpen() {
		sess.CloseAbout()
		return
	}
	if sess.Pending() != nil || app.prompt != nil {
		return
	}
	if y == 0 {
		for i := len(l.menuX) - 1; i >= 0; i-- {
			if x >= l.menuX[i] && x < l.menuX[i]+runewidth.StringWidth(menuTitles[i])+2 {
				openMenu(app, i)
				return
			}
		}
		return
	}
	if sess.Mode() != session.ModeEditing || y < l.top || y >= l.top+l.bodyH {
		return
	}

	if x < l.treeW {
		rows := sess.Tree().Rows()
		idx := app.treeScroll + y - l.top - 1
		app.focus = focusTree
		if y == l.top || idx >= len(rows) {
			if secondary {
				openContextMenu(app, "", x, y)
			}
			return
		}
		app.treeCursor = idx
		if secondary {
			openContextMenu(app, rows[idx].Path, x, y)
			return
		}
		activateTreeRow(app, &rows[idx])
		return
	}

	if x < l.editorX {
		return
	}
	ed := sess.Editor()
	lines := editor.SplitLines(ed.Buf)
	ln := clamp(app.scrollLine+y-l.top, 0, len(lines)-1)
	col := runeColForVisual(lines[ln], x-l.editorX, app.tabWidth)
	ed.Sel.Active = false
	ed.Caret = editor.PosForLineCol(lines, ln, col)
	app.focus = focusEditor
}
