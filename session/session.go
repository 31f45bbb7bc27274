// Package session is the editor state holder. A Session owns the single
// buffer, its path and detected syntax, the file tree, the dialogs and the
// vim machine, and applies user actions to them. It is driven from one
// goroutine.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hydroxite/editor"
	"hydroxite/filetree"
	"hydroxite/fsio"
	"hydroxite/log"
	"hydroxite/syntax"
	"hydroxite/vim"
)

// Version is reported by the About dialog.
const Version = "0.1.0"

// ErrSaveCancelled is returned when the save picker is dismissed.
var ErrSaveCancelled = errors.New("save cancelled")

// Mode is the coarse screen state.
type Mode int

const (
	ModeSplash Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeSplash:
		return "splash"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Picker is the native file chooser. Each call blocks until the user picks
// or cancels; ok is false on cancel.
type Picker interface {
	PickFile() (path string, ok bool)
	PickFolder() (path string, ok bool)
	SaveFile(suggested string) (path string, ok bool)
}

// PendingCreate is an in-progress "new file" or "new folder" prompt.
type PendingCreate struct {
	Parent string
	Name   string
	IsFile bool
}

// Options configure a Session.
type Options struct {
	Catalog   *syntax.Catalog
	Picker    Picker
	Tree      filetree.Options
	Clipboard editor.Clipboard
	// Debounce is the quiet time after an edit before runs are recomputed.
	Debounce time.Duration
	AutoPair bool
	Vim      bool
}

type Session struct {
	mode    Mode
	ed      *editor.Editor
	path    string
	syntax  string
	dirty   bool
	tree    *filetree.Model
	catalog *syntax.Catalog
	picker  Picker

	about    bool
	pending  *PendingCreate
	vimOn    bool
	vim      *vim.Machine
	quitting bool
	message  string

	lines    []syntax.Line
	stale    bool
	lastEdit time.Time
	debounce time.Duration
}

func New(opts Options) *Session {
	cat := opts.Catalog
	if cat == nil {
		cat = syntax.Default()
	}
	ed := editor.NewEditor("")
	ed.AutoPair = opts.AutoPair
	if opts.Clipboard != nil {
		ed.SetClipboard(opts.Clipboard)
	}
	return &Session{
		mode:     ModeSplash,
		ed:       ed,
		tree:     filetree.New(opts.Tree),
		catalog:  cat,
		picker:   opts.Picker,
		vimOn:    opts.Vim,
		vim:      vim.New(),
		debounce: opts.Debounce,
	}
}

func (s *Session) Mode() Mode                  { return s.mode }
func (s *Session) Editor() *editor.Editor      { return s.ed }
func (s *Session) Text() string                { return s.ed.String() }
func (s *Session) Path() string                { return s.path }
func (s *Session) Syntax() string              { return s.syntax }
func (s *Session) Dirty() bool                 { return s.dirty }
func (s *Session) Tree() *filetree.Model       { return s.tree }
func (s *Session) Catalog() *syntax.Catalog    { return s.catalog }
func (s *Session) Quitting() bool              { return s.quitting }
func (s *Session) Message() string             { return s.message }
func (s *Session) AboutOpen() bool             { return s.about }
func (s *Session) Version() string             { return Version }
func (s *Session) SetMessage(msg string)       { s.message = msg }
func (s *Session) Lines() []syntax.Line        { return s.lines }
func (s *Session) VimEnabled() bool            { return s.vimOn }
func (s *Session) VimMachine() *vim.Machine    { return s.vim }
func (s *Session) SetPicker(p Picker)          { s.picker = p }
func (s *Session) SetAutoPair(enabled bool)    { s.ed.AutoPair = enabled }
func (s *Session) SetDebounce(d time.Duration) { s.debounce = d }

// Title is the buffer name for the status line.
func (s *Session) Title() string {
	name := "[No Name]"
	if s.path != "" {
		name = filepath.Base(s.path)
	}
	if s.dirty {
		name += " *"
	}
	return name
}

// Pending returns a copy of the new-item prompt, or nil.
func (s *Session) Pending() *PendingCreate {
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// ======================
// Documents
// ======================

// NewFile starts an empty unsaved document.
func (s *Session) NewFile() {
	s.ed.SetText("")
	s.path = ""
	s.syntax = ""
	s.dirty = false
	s.mode = ModeEditing
	s.tree.ClearSelection()
	s.retokenize()
	log.Info(log.CatSession, "new file")
}

// OpenFile asks the picker for a file and loads it.
func (s *Session) OpenFile() bool {
	if s.picker == nil {
		return false
	}
	p, ok := s.picker.PickFile()
	if !ok || p == "" {
		return false
	}
	s.Load(p)
	return true
}

// Load replaces the buffer with the contents of path. An unreadable file
// loads as an empty buffer.
func (s *Session) Load(path string) {
	text, err := fsio.ReadText(path)
	if err != nil {
		log.Warn(log.CatSession, "load failed, starting empty", "path", path, "error", err)
		text = ""
	}
	s.ed.SetText(text)
	s.path = path
	s.dirty = false
	if !s.tree.HasRoot() {
		s.tree.SetRoot(filepath.Dir(path))
	}
	s.tree.Select(path)
	s.detect()
	s.retokenize()
	s.mode = ModeEditing
	log.Info(log.CatSession, "loaded", "path", path, "syntax", s.syntax, "bytes", len(text))
}

// OpenFolder asks the picker for a folder and makes it the tree root.
func (s *Session) OpenFolder() bool {
	if s.picker == nil {
		return false
	}
	dir, ok := s.picker.PickFolder()
	if !ok || dir == "" {
		return false
	}
	s.OpenFolderAt(dir)
	return true
}

// OpenFolderAt makes dir the tree root.
func (s *Session) OpenFolderAt(dir string) {
	s.tree.SetRoot(dir)
	s.mode = ModeEditing
}

// Save writes the buffer to its path, asking for one when there is none.
// On failure the buffer and path are untouched.
func (s *Session) Save() error {
	if s.path == "" {
		return s.SaveAs()
	}
	return s.writeTo(s.path)
}

// SaveAs always asks for a destination.
func (s *Session) SaveAs() error {
	if s.picker == nil {
		return ErrSaveCancelled
	}
	suggested := s.path
	if suggested == "" && s.tree.HasRoot() {
		suggested = filepath.Join(s.tree.Root(), "untitled.txt")
	}
	p, ok := s.picker.SaveFile(suggested)
	if !ok || p == "" {
		s.message = "Save cancelled"
		return ErrSaveCancelled
	}
	return s.writeTo(p)
}

func (s *Session) writeTo(p string) error {
	if err := fsio.WriteText(p, s.Text()); err != nil {
		log.ErrorErr(log.CatSession, "save failed", err, "path", p)
		s.message = fmt.Sprintf("Save failed: %v", err)
		return err
	}
	s.path = p
	s.dirty = false
	s.detect()
	s.retokenize()
	s.message = "Saved " + filepath.Base(p)
	log.Info(log.CatSession, "saved", "path", p, "syntax", s.syntax)
	return nil
}

// Exit marks the session as finished. Unsaved changes are not checked.
func (s *Session) Exit() {
	s.quitting = true
	log.Info(log.CatSession, "exit", "dirty", s.dirty)
}

// ======================
// Tree
// ======================

// SelectPath toggles a directory, or selects and loads a file.
func (s *Session) SelectPath(p string) {
	isDir, err := fsio.IsDir(p)
	if err != nil {
		s.message = fmt.Sprintf("Cannot open %s: %v", filepath.Base(p), err)
		return
	}
	if isDir {
		s.tree.Toggle(p)
		return
	}
	s.Load(p)
}

// BeginCreate opens the new-item prompt. The item goes into target when it
// is a directory, next to it when it is a file, and into the tree root when
// target is empty.
func (s *Session) BeginCreate(target string, isFile bool) {
	isDir := false
	if target != "" {
		isDir, _ = fsio.IsDir(target)
	}
	parent := s.tree.ParentFor(target, isDir)
	if parent == "" && s.path != "" {
		parent = filepath.Dir(s.path)
	}
	if parent == "" {
		s.message = "Open a folder first"
		return
	}
	s.pending = &PendingCreate{Parent: parent, IsFile: isFile}
}

// PendingInput appends typed text to the prompt.
func (s *Session) PendingInput(text string) {
	if s.pending != nil {
		s.pending.Name += text
	}
}

// PendingBackspace removes the last character of the prompt.
func (s *Session) PendingBackspace() {
	if s.pending == nil || s.pending.Name == "" {
		return
	}
	rs := []rune(s.pending.Name)
	s.pending.Name = string(rs[:len(rs)-1])
}

// CommitCreate creates the pending item. An invalid name keeps the prompt
// open; any other outcome closes it. A created file is opened.
func (s *Session) CommitCreate() error {
	if s.pending == nil {
		return nil
	}
	pc := *s.pending
	p, err := s.tree.Create(pc.Parent, strings.TrimSpace(pc.Name), pc.IsFile)
	if err != nil {
		s.message = fmt.Sprintf("Create failed: %v", err)
		if !errors.Is(err, filetree.ErrInvalidName) {
			s.pending = nil
		}
		return err
	}
	s.pending = nil
	s.message = "Created " + filepath.Base(p)
	if pc.IsFile {
		s.Load(p)
	}
	return nil
}

// CancelCreate closes the prompt.
func (s *Session) CancelCreate() { s.pending = nil }

// Delete removes p from disk.
func (s *Session) Delete(p string) error {
	if err := s.tree.Delete(p); err != nil {
		s.message = fmt.Sprintf("Delete failed: %v", err)
		return err
	}
	s.message = "Deleted " + filepath.Base(p)
	return nil
}

// RefreshTree collapses and re-reads the tree on the next render.
func (s *Session) RefreshTree() { s.tree.RequestRefresh() }

// ======================
// Dialogs
// ======================

func (s *Session) ShowAbout()  { s.about = true }
func (s *Session) CloseAbout() { s.about = false }

// ======================
// Editing
// ======================

// InsertText types text at the caret.
func (s *Session) InsertText(text string, now time.Time) {
	s.ed.TypeText(text)
	s.edited(now)
}

func (s *Session) Backspace(now time.Time) {
	s.ed.BackspaceOrDeleteSelection(true)
	s.edited(now)
}

func (s *Session) DeleteForward(now time.Time) {
	s.ed.BackspaceOrDeleteSelection(false)
	s.edited(now)
}

// Enter inserts a newline and recomputes highlighting at once.
func (s *Session) Enter(now time.Time) {
	s.ed.InsertText("\n")
	s.edited(now)
	s.detect()
	s.retokenize()
}

func (s *Session) MoveCaret(delta int, extend bool) { s.ed.MoveCaret(delta, extend) }
func (s *Session) MoveLine(delta int, extend bool)  { s.ed.MoveLine(delta, extend) }

func (s *Session) Copy() { s.ed.CopySelection() }

func (s *Session) Cut(now time.Time) {
	if !s.ed.Sel.Active {
		return
	}
	s.ed.CutSelection()
	s.edited(now)
}

func (s *Session) Paste(now time.Time) {
	before := len(s.ed.Buf)
	s.ed.PasteClipboard()
	if len(s.ed.Buf) != before {
		s.edited(now)
	}
}

// Find selects the next match of query after the caret.
func (s *Session) Find(query string) bool { return s.find(query, editor.DirFwd) }

// FindBack selects the previous match of query before the caret.
func (s *Session) FindBack(query string) bool { return s.find(query, editor.DirBack) }

func (s *Session) find(query string, dir editor.Dir) bool {
	if s.ed.FindDir(query, dir) {
		s.message = ""
		return true
	}
	s.message = fmt.Sprintf("Not found: %s", query)
	return false
}

func (s *Session) edited(now time.Time) {
	s.dirty = true
	s.stale = true
	s.lastEdit = now
}

// ======================
// Highlighting
// ======================

func (s *Session) detect() {
	ref, ok := s.catalog.Detect(s.path)
	if !ok {
		ref = ""
	}
	s.syntax = ref
}

func (s *Session) retokenize() {
	s.lines = s.catalog.Highlight(s.Text(), s.syntax)
	s.stale = false
}

// RetokenizeDue reports whether runs are stale and how long until the
// debounce allows recomputing them.
func (s *Session) RetokenizeDue(now time.Time) (time.Duration, bool) {
	if !s.stale {
		return 0, false
	}
	wait := s.debounce - now.Sub(s.lastEdit)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// Spans recomputes stale runs once the debounce has passed and lays the
// current runs over the live buffer.
func (s *Session) Spans(now time.Time) []syntax.Span {
	if wait, stale := s.RetokenizeDue(now); stale && wait == 0 {
		s.retokenize()
	}
	return syntax.Project(s.lines, s.Text(), s.catalog.Fallback())
}

// ======================
// Vim
// ======================

// SetVim turns modal editing on or off. The machine starts in Normal mode.
func (s *Session) SetVim(enabled bool) {
	s.vimOn = enabled
	s.vim.Reset()
	log.Debug(log.CatVim, "vim mode", "enabled", enabled)
}

// VimMode is the machine's current mode.
func (s *Session) VimMode() vim.Mode { return s.vim.Mode() }

// HandleVimKey feeds a key to the machine and applies the resulting action.
func (s *Session) HandleVimKey(k vim.Key, now time.Time) {
	act := s.vim.Feed(k)
	switch act.Kind {
	case vim.ActMove:
		s.applyMotion(act.Motion)
	case vim.ActInsertAfter:
		if s.ed.Caret < len(s.ed.Buf) && s.ed.Buf[s.ed.Caret] != '\n' {
			s.ed.MoveCaret(1, false)
		}
	case vim.ActOpenBelow:
		s.ed.OpenLineBelow()
		s.edited(now)
	case vim.ActInsertText:
		s.InsertText(act.Text, now)
	case vim.ActNewline:
		s.Enter(now)
	case vim.ActBackspace:
		s.Backspace(now)
	case vim.ActDeleteChar:
		if s.ed.Caret < len(s.ed.Buf) && s.ed.Buf[s.ed.Caret] != '\n' {
			s.DeleteForward(now)
		}
	case vim.ActDeleteLine:
		if len(s.ed.Buf) > 0 {
			s.ed.DeleteLine()
			s.edited(now)
		}
	case vim.ActSave:
		if err := s.Save(); err != nil {
			log.Debug(log.CatVim, "write failed", "error", err)
		}
	case vim.ActQuit:
		s.Exit()
	case vim.ActSaveQuit:
		if err := s.Save(); err != nil {
			log.Debug(log.CatVim, "write failed, staying open", "error", err)
			return
		}
		s.Exit()
	case vim.ActUnknownCommand:
		s.message = "Not an editor command: " + act.Command
		log.Debug(log.CatVim, "unknown command", "command", act.Command)
	}
}

func (s *Session) applyMotion(m vim.Motion) {
	switch m {
	case vim.MotionLeft:
		s.ed.MoveCaret(-1, false)
	case vim.MotionRight:
		s.ed.MoveCaret(1, false)
	case vim.MotionUp:
		s.ed.MoveLine(-1, false)
	case vim.MotionDown:
		s.ed.MoveLine(1, false)
	case vim.MotionLineStart:
		s.ed.CaretToLineEdge(editor.DirBack, false)
	case vim.MotionLineEnd:
		s.ed.CaretToLineEdge(editor.DirFwd, false)
	case vim.MotionWordForward:
		s.ed.WordForward()
	case vim.MotionWordBack:
		s.ed.WordBack()
	}
}
