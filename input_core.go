package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"hydroxite/editor"
	"hydroxite/filetree"
	"hydroxite/fsio"
	"hydroxite/log"
	"hydroxite/session"
	"hydroxite/vim"
)

type modMask uint16

const (
	modShift modMask = 1 << iota
	modCtrl
	modAlt
)

type keyCode int

const (
	keyUnknown keyCode = iota
	keyRune
	keyUp
	keyDown
	keyLeft
	keyRight
	keyPageUp
	keyPageDown
	keyHome
	keyEnd
	keyEscape
	keyTab
	keyBackspace
	keyDelete
	keyReturn
	keyF1
	keyF2
	keyF5
	keyF6
	keyF10
)

// keyEvent is a key press after translation from the terminal library.
// Ctrl+letter arrives as keyRune with modCtrl and a lower-case rune.
type keyEvent struct {
	key  keyCode
	r    rune
	mods modMask
}

func (e keyEvent) plainRune() bool {
	return e.key == keyRune && e.mods&(modCtrl|modAlt) == 0
}

// handleKeyEvent applies one key press. It returns false once the session
// is quitting.
func handleKeyEvent(app *appState, e keyEvent) bool {
	log.Debug(log.CatUI, "key", "key", keyName(e.key), "rune", string(e.r), "mods", modsString(e.mods))
	sess := app.sess

	switch {
	case sess.AboutOpen():
		if e.key == keyEscape || e.key == keyReturn || e.key == keyF1 {
			sess.CloseAbout()
		}
	case app.menu != nil:
		handleMenuKey(app, e)
	case sess.Pending() != nil:
		handlePendingKey(app, e)
	case handleGlobalKey(app, e):
	case sess.Mode() == session.ModeSplash:
		handleSplashKey(app, e)
	case app.focus == focusTree && sess.Tree().HasRoot():
		handleTreeKey(app, e)
	default:
		handleEditorKey(app, e)
	}
	return !sess.Quitting()
}

// handleGlobalKey runs shortcuts that work everywhere outside dialogs and
// reports whether e was one.
func handleGlobalKey(app *appState, e keyEvent) bool {
	if e.key == keyRune && e.mods&modCtrl != 0 {
		switch e.r {
		case 'q':
			cmdExit(app)
		case 'n':
			cmdNewFile(app)
		case 'o':
			cmdOpenFile(app)
		case 'l':
			cmdOpenFolder(app)
		case 's':
			cmdSave(app)
		case 'w':
			cmdSaveAs(app)
		case 'f':
			cmdFind(app)
		case 'g':
			cmdFindNext(app)
		case 'r':
			cmdFindPrev(app)
		case 'c':
			cmdCopy(app)
		case 'x':
			cmdCut(app)
		case 'v':
			cmdPaste(app)
		default:
			return false
		}
		return true
	}
	switch e.key {
	case keyF1:
		cmdAbout(app)
	case keyF2:
		cmdToggleVim(app)
	case keyF5:
		cmdRefresh(app)
	case keyF6:
		cmdToggleFocus(app)
	case keyF10:
		openMenu(app, 0)
	default:
		return false
	}
	return true
}

func handleSplashKey(app *appState, e keyEvent) {
	if e.key == keyReturn {
		cmdNewFile(app)
		return
	}
	if !e.plainRune() {
		return
	}
	switch e.r {
	case 'n':
		cmdNewFile(app)
	case 'o':
		cmdOpenFile(app)
	case 'f':
		cmdOpenFolder(app)
	case 'v':
		cmdToggleVim(app)
	case 'q':
		cmdExit(app)
	}
}

func handleEditorKey(app *appState, e keyEvent) {
	sess := app.sess
	now := app.now()
	if sess.VimEnabled() {
		if k, ok := toVimKey(e); ok {
			sess.HandleVimKey(k, now)
		}
		return
	}

	ed := sess.Editor()
	extend := e.mods&modShift != 0
	switch e.key {
	case keyRune:
		if e.plainRune() {
			sess.InsertText(string(e.r), now)
		}
	case keyReturn:
		sess.Enter(now)
	case keyTab:
		sess.InsertText("\t", now)
	case keyBackspace:
		sess.Backspace(now)
	case keyDelete:
		sess.DeleteForward(now)
	case keyLeft:
		sess.MoveCaret(-1, extend)
	case keyRight:
		sess.MoveCaret(1, extend)
	case keyUp:
		sess.MoveLine(-1, extend)
	case keyDown:
		sess.MoveLine(1, extend)
	case keyHome:
		ed.CaretToLineEdge(editor.DirBack, extend)
	case keyEnd:
		ed.CaretToLineEdge(editor.DirFwd, extend)
	case keyPageUp:
		sess.MoveLine(-app.pageSize(), extend)
	case keyPageDown:
		sess.MoveLine(app.pageSize(), extend)
	case keyEscape:
		ed.Sel.Active = false
	}
}

// toVimKey translates a key for the vim machine. Keys it has no use for are
// dropped.
func toVimKey(e keyEvent) (vim.Key, bool) {
	switch e.key {
	case keyRune:
		if !e.plainRune() {
			return vim.Key{}, false
		}
		return vim.R(e.r), true
	case keyTab:
		return vim.R('\t'), true
	case keyEscape:
		return vim.Key{Kind: vim.KeyEsc}, true
	case keyReturn:
		return vim.Key{Kind: vim.KeyEnter}, true
	case keyBackspace:
		return vim.Key{Kind: vim.KeyBackspace}, true
	case keyLeft:
		return vim.Key{Kind: vim.KeyLeft}, true
	case keyRight:
		return vim.Key{Kind: vim.KeyRight}, true
	case keyUp:
		return vim.Key{Kind: vim.KeyUp}, true
	case keyDown:
		return vim.Key{Kind: vim.KeyDown}, true
	}
	return vim.Key{}, false
}

// ======================
// Tree
// ======================

func handleTreeKey(app *appState, e keyEvent) {
	rows := app.sess.Tree().Rows()
	app.treeCursor = clamp(app.treeCursor, 0, max(0, len(rows)-1))
	var row *filetree.Row
	if len(rows) > 0 {
		row = &rows[app.treeCursor]
	}
	target := ""
	if row != nil {
		target = row.Path
	}

	switch e.key {
	case keyUp:
		app.treeCursor = max(0, app.treeCursor-1)
		return
	case keyDown:
		app.treeCursor = min(max(0, len(rows)-1), app.treeCursor+1)
		return
	case keyHome:
		app.treeCursor = 0
		return
	case keyEnd:
		app.treeCursor = max(0, len(rows)-1)
		return
	case keyReturn, keyRight:
		activateTreeRow(app, row)
		return
	case keyLeft:
		collapseOrParent(app, rows)
		return
	case keyDelete:
		cmdDelete(app, target)
		return
	case keyEscape, keyTab:
		app.focus = focusEditor
		return
	}
	if !e.plainRune() {
		return
	}
	switch e.r {
	case 'k':
		app.treeCursor = max(0, app.treeCursor-1)
	case 'j':
		app.treeCursor = min(max(0, len(rows)-1), app.treeCursor+1)
	case 'l', ' ':
		activateTreeRow(app, row)
	case 'h':
		collapseOrParent(app, rows)
	case 'n':
		app.sess.BeginCreate(target, true)
	case 'N':
		app.sess.BeginCreate(target, false)
	case 'd':
		cmdDelete(app, target)
	case 'r':
		cmdRefresh(app)
	case 'm':
		y := app.layout.top + 1 + app.treeCursor - app.treeScroll
		openContextMenu(app, target, 2, y)
	}
}

func activateTreeRow(app *appState, row *filetree.Row) {
	if row == nil {
		return
	}
	app.sess.SelectPath(row.Path)
	if !row.IsDir && app.sess.Path() == row.Path {
		app.focus = focusEditor
		app.scrollLine = 0
	}
}

// collapseOrParent closes an expanded directory, or moves the cursor to the
// row of the enclosing directory.
func collapseOrParent(app *appState, rows []filetree.Row) {
	if len(rows) == 0 {
		return
	}
	row := rows[app.treeCursor]
	if row.IsDir && row.Expanded {
		app.sess.Tree().Toggle(row.Path)
		return
	}
	parent := filepath.Dir(row.Path)
	for i := app.treeCursor - 1; i >= 0; i-- {
		if rows[i].Path == parent {
			app.treeCursor = i
			return
		}
	}
}

func handlePendingKey(app *appState, e keyEvent) {
	sess := app.sess
	switch e.key {
	case keyEscape:
		sess.CancelCreate()
	case keyBackspace:
		sess.PendingBackspace()
	case keyReturn:
		isFile := sess.Pending().IsFile
		if err := sess.CommitCreate(); err == nil && isFile {
			app.focus = focusEditor
			app.scrollLine = 0
		}
	case keyRune:
		if e.plainRune() {
			sess.PendingInput(string(e.r))
		}
	}
}

// ======================
// Commands
// ======================

func cmdExit(app *appState) { app.sess.Exit() }

func cmdNewFile(app *appState) {
	app.sess.NewFile()
	app.focus = focusEditor
	app.scrollLine = 0
}

func cmdOpenFile(app *appState) {
	if app.sess.OpenFile() {
		app.focus = focusEditor
		app.scrollLine = 0
	}
}

func cmdOpenFolder(app *appState) {
	if app.sess.OpenFolder() {
		app.focus = focusTree
		app.treeCursor = 0
		app.treeScroll = 0
	}
}

func cmdSave(app *appState)   { _ = app.sess.Save() }
func cmdSaveAs(app *appState) { _ = app.sess.SaveAs() }
func cmdCopy(app *appState)   { app.sess.Copy() }
func cmdCut(app *appState)    { app.sess.Cut(app.now()) }
func cmdPaste(app *appState)  { app.sess.Paste(app.now()) }
func cmdAbout(app *appState)  { app.sess.ShowAbout() }

func cmdFind(app *appState) {
	if app.sess.Mode() != session.ModeEditing {
		return
	}
	q, ok := app.ask("Find: ", app.lastFind)
	if !ok || q == "" {
		return
	}
	app.lastFind = q
	app.sess.Find(q)
}

// cmdFindNext repeats the last search, asking for one when there is none.
func cmdFindNext(app *appState) {
	if app.lastFind == "" {
		cmdFind(app)
		return
	}
	if app.sess.Mode() == session.ModeEditing {
		app.sess.Find(app.lastFind)
	}
}

func cmdFindPrev(app *appState) {
	if app.lastFind == "" {
		cmdFind(app)
		return
	}
	if app.sess.Mode() == session.ModeEditing {
		app.sess.FindBack(app.lastFind)
	}
}

func cmdToggleVim(app *appState) {
	on := !app.sess.VimEnabled()
	app.sess.SetVim(on)
	if on {
		app.sess.SetMessage("Vim mode on")
	} else {
		app.sess.SetMessage("Vim mode off")
	}
}

func cmdRefresh(app *appState) {
	if !app.sess.Tree().HasRoot() {
		return
	}
	app.sess.RefreshTree()
	app.treeCursor = 0
	app.treeScroll = 0
	app.sess.SetMessage("Tree refreshed")
}

func cmdToggleFocus(app *appState) {
	if app.focus == focusTree || !app.sess.Tree().HasRoot() {
		app.focus = focusEditor
		return
	}
	app.focus = focusTree
}

func cmdDelete(app *appState, p string) {
	if p == "" {
		return
	}
	answer, ok := app.ask(fmt.Sprintf("Delete %s? (y/n) ", filepath.Base(p)), "")
	if !ok || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
		return
	}
	_ = app.sess.Delete(p)
}

func (app *appState) pageSize() int {
	return max(1, app.layout.bodyH-1)
}

// ======================
// Menus
// ======================

type menuItem struct {
	label string
	keys  string
	run   func(app *appState)
}

// popupMenu is an open drop-down. title indexes menuTitles; the tree
// context menu uses -1.
type popupMenu struct {
	title int
	x, y  int
	items []menuItem
	sel   int
}

var menuTitles = []string{"File", "Edit", "View", "Help"}

func menuItems(app *appState, title int) []menuItem {
	switch title {
	case 0:
		return []menuItem{
			{"New File", "Ctrl+N", cmdNewFile},
			{"Open File...", "Ctrl+O", cmdOpenFile},
			{"Open Folder...", "Ctrl+L", cmdOpenFolder},
			{"Save", "Ctrl+S", cmdSave},
			{"Save As...", "Ctrl+W", cmdSaveAs},
			{"Exit", "Ctrl+Q", cmdExit},
		}
	case 1:
		return []menuItem{
			{"Copy", "Ctrl+C", cmdCopy},
			{"Cut", "Ctrl+X", cmdCut},
			{"Paste", "Ctrl+V", cmdPaste},
			{"Find...", "Ctrl+F", cmdFind},
			{"Find Next", "Ctrl+G", cmdFindNext},
			{"Find Previous", "Ctrl+R", cmdFindPrev},
		}
	case 2:
		check := "[ ]"
		if app.sess.VimEnabled() {
			check = "[x]"
		}
		return []menuItem{
			{"Vim Mode " + check, "F2", cmdToggleVim},
			{"Refresh Tree", "F5", cmdRefresh},
			{"Tree / Editor", "F6", cmdToggleFocus},
		}
	case 3:
		return []menuItem{
			{"About Hydroxite", "F1", cmdAbout},
		}
	}
	return nil
}

func openMenu(app *appState, title int) {
	x := 0
	if title < len(app.layout.menuX) {
		x = app.layout.menuX[title]
	}
	app.menu = &popupMenu{title: title, x: x, y: 1, items: menuItems(app, title)}
}

// openContextMenu shows the tree actions for target at (x, y). An empty
// target means the tree root.
func openContextMenu(app *appState, target string, x, y int) {
	app.menu = &popupMenu{
		title: -1,
		x:     x,
		y:     y,
		items: []menuItem{
			{"New File", "n", func(a *appState) { a.sess.BeginCreate(target, true) }},
			{"New Folder", "N", func(a *appState) { a.sess.BeginCreate(target, false) }},
			{"Delete", "d", func(a *appState) { cmdDelete(a, target) }},
			{"Refresh", "r", cmdRefresh},
		},
	}
	if target == "" {
		// Nothing to delete at the root.
		app.menu.items = append(app.menu.items[:2], app.menu.items[3])
	}
}

func handleMenuKey(app *appState, e keyEvent) {
	m := app.menu
	switch e.key {
	case keyEscape, keyF10:
		app.menu = nil
	case keyUp:
		m.sel = (m.sel - 1 + len(m.items)) % len(m.items)
	case keyDown:
		m.sel = (m.sel + 1) % len(m.items)
	case keyLeft, keyRight:
		if m.title < 0 {
			return
		}
		step := 1
		if e.key == keyLeft {
			step = -1
		}
		openMenu(app, (m.title+step+len(menuTitles))%len(menuTitles))
	case keyReturn:
		runMenuItem(app, m.sel)
	}
}

func runMenuItem(app *appState, i int) {
	m := app.menu
	app.menu = nil
	if m == nil || i < 0 || i >= len(m.items) {
		return
	}
	log.Debug(log.CatUI, "menu", "item", m.items[i].label)
	m.items[i].run(app)
}

// ======================
// Prompt line
// ======================

type promptState struct {
	label string
	value string
}

// handle edits the prompt. done reports that the prompt closed; accepted
// distinguishes Enter from Esc.
func (p *promptState) handle(e keyEvent) (done, accepted bool) {
	switch e.key {
	case keyEscape:
		return true, false
	case keyReturn:
		return true, true
	case keyBackspace:
		if p.value != "" {
			_, size := utf8.DecodeLastRuneInString(p.value)
			p.value = p.value[:len(p.value)-size]
		}
	case keyTab:
		p.value = completePath(p.value)
	case keyRune:
		if e.plainRune() {
			p.value += string(e.r)
		}
	}
	return false, false
}

// completePath extends a typed path to the longest prefix shared by the
// directory entries it matches. A unique directory match gets a trailing
// separator.
func completePath(typed string) string {
	if typed == "" {
		return typed
	}
	dir, prefix := filepath.Split(typed)
	lookIn := dir
	if lookIn == "" {
		lookIn = "."
	}
	entries, err := fsio.ReadDir(lookIn)
	if err != nil {
		return typed
	}
	var matches []os.DirEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return typed
	}
	common := matches[0].Name()
	for _, m := range matches[1:] {
		common = commonPrefix(common, m.Name())
	}
	out := dir + common
	if len(matches) == 1 && matches[0].IsDir() {
		out += string(filepath.Separator)
	}
	return out
}

func commonPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	for n > 0 && n < len(a) && !utf8.RuneStart(a[n]) {
		n--
	}
	return a[:n]
}

func keyName(k keyCode) string {
	switch k {
	case keyRune:
		return "RUNE"
	case keyUp:
		return "UP"
	case keyDown:
		return "DOWN"
	case keyLeft:
		return "LEFT"
	case keyRight:
		return "RIGHT"
	case keyPageUp:
		return "PAGEUP"
	case keyPageDown:
		return "PAGEDOWN"
	case keyHome:
		return "HOME"
	case keyEnd:
		return "END"
	case keyEscape:
		return "ESCAPE"
	case keyTab:
		return "TAB"
	case keyBackspace:
		return "BACKSPACE"
	case keyDelete:
		return "DELETE"
	case keyReturn:
		return "RETURN"
	case keyF1:
		return "F1"
	case keyF2:
		return "F2"
	case keyF5:
		return "F5"
	case keyF6:
		return "F6"
	case keyF10:
		return "F10"
	default:
		return "UNKNOWN"
	}
}
