package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hydroxite/filetree"
	"hydroxite/fsio"
	"hydroxite/log"
	"hydroxite/syntax"
	"hydroxite/vim"
)

type fakePicker struct {
	file      string
	folder    string
	save      string
	cancel    bool
	suggested string
	saveCalls int
}

func (p *fakePicker) PickFile() (string, bool)   { return p.file, !p.cancel }
func (p *fakePicker) PickFolder() (string, bool) { return p.folder, !p.cancel }
func (p *fakePicker) SaveFile(suggested string) (string, bool) {
	p.saveCalls++
	p.suggested = suggested
	return p.save, !p.cancel
}

type memClip struct{ text string }

func (c *memClip) GetText() (string, error) { return c.text, nil }
func (c *memClip) SetText(s string) error   { c.text = s; return nil }

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, p *fakePicker) *Session {
	t.Helper()
	if p == nil {
		p = &fakePicker{}
	}
	return New(Options{
		Picker:    p,
		Tree:      filetree.Options{ShowHidden: true},
		Clipboard: &memClip{},
		Debounce:  300 * time.Millisecond,
		AutoPair:  true,
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func joined(lines []syntax.Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text())
	}
	return sb.String()
}

func spanText(spans []syntax.Span) string {
	var sb strings.Builder
	for _, sp := range spans {
		sb.WriteString(sp.Text)
	}
	return sb.String()
}

func typeString(s *Session, text string, now time.Time) {
	for _, r := range text {
		s.InsertText(string(r), now)
	}
}

func TestNew_StartsOnSplash(t *testing.T) {
	s := newSession(t, nil)
	require.Equal(t, ModeSplash, s.Mode())
	require.Equal(t, "splash", s.Mode().String())
	require.Empty(t, s.Text())
	require.Equal(t, Version, s.Version())
}

func TestNewFile_ClearsDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	writeFile(t, path, "package main\n")

	s := newSession(t, nil)
	s.Load(path)
	require.Equal(t, "Go", s.Syntax())

	require.Equal(t, path, s.Tree().Selected())

	s.NewFile()
	require.Equal(t, ModeEditing, s.Mode())
	require.Empty(t, s.Text())
	require.Empty(t, s.Path())
	require.Empty(t, s.Syntax())
	require.False(t, s.Dirty())
	require.Equal(t, "[No Name]", s.Title())
	require.Empty(t, s.Tree().Selected(), "the new document has no tree row")
	require.Equal(t, dir, s.Tree().Root())
}

func TestOpenFile_NotesTxt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "hello\nworld\n")

	s := newSession(t, &fakePicker{file: path})
	require.True(t, s.OpenFile())

	require.Equal(t, ModeEditing, s.Mode())
	require.Equal(t, "hello\nworld\n", s.Text())
	require.Equal(t, path, s.Path())
	require.Empty(t, s.Syntax(), "plain text has no syntax")
	require.Equal(t, s.Text(), joined(s.Lines()))
	require.Equal(t, s.Text(), spanText(s.Spans(t0)))
	require.Equal(t, dir, s.Tree().Root())
	require.Equal(t, path, s.Tree().Selected())
}

func TestOpenFile_Cancelled(t *testing.T) {
	s := newSession(t, &fakePicker{cancel: true})
	require.False(t, s.OpenFile())
	require.Equal(t, ModeSplash, s.Mode())
}

func TestLoad_UnreadableGivesEmptyBuffer(t *testing.T) {
	s := newSession(t, nil)
	missing := filepath.Join(t.TempDir(), "gone.go")
	s.Load(missing)
	require.Equal(t, ModeEditing, s.Mode())
	require.Empty(t, s.Text())
	require.Equal(t, missing, s.Path())
	require.Equal(t, "Go", s.Syntax())
}

func TestLoad_KeepsExistingRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pkg", "a.go")
	writeFile(t, path, "package pkg\n")

	s := newSession(t, nil)
	s.OpenFolderAt(root)
	s.Load(path)
	require.Equal(t, root, s.Tree().Root())
}

func TestOpenFolder(t *testing.T) {
	dir := t.TempDir()
	s := newSession(t, &fakePicker{folder: dir})
	require.True(t, s.OpenFolder())
	require.Equal(t, dir, s.Tree().Root())
	require.Equal(t, ModeEditing, s.Mode())
}

func TestSave_ExistingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "old")

	p := &fakePicker{}
	s := newSession(t, p)
	s.Load(path)
	s.Editor().Caret = 3
	typeString(s, "er", t0)
	require.True(t, s.Dirty())
	require.Equal(t, "a.txt *", s.Title())

	require.NoError(t, s.Save())
	require.Equal(t, "older", readFile(t, path))
	require.False(t, s.Dirty())
	require.Zero(t, p.saveCalls)
	require.Equal(t, "Saved a.txt", s.Message())
}

func TestSave_NewFileAsksAndDetects(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "main.go")
	p := &fakePicker{save: dest}
	s := newSession(t, p)
	s.OpenFolderAt(dir)
	s.NewFile()
	typeString(s, "package main", t0)

	require.NoError(t, s.Save())
	require.Equal(t, 1, p.saveCalls)
	require.Equal(t, filepath.Join(dir, "untitled.txt"), p.suggested)
	require.Equal(t, dest, s.Path())
	require.Equal(t, "Go", s.Syntax())
	require.Equal(t, "package main", readFile(t, dest))
	require.Equal(t, "package main", joined(s.Lines()))
}

func TestSave_Cancelled(t *testing.T) {
	s := newSession(t, &fakePicker{cancel: true})
	s.NewFile()
	typeString(s, "x", t0)
	require.ErrorIs(t, s.Save(), ErrSaveCancelled)
	require.Empty(t, s.Path())
	require.True(t, s.Dirty())
}

func TestSave_FailureKeepsBufferAndPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "i am a file")

	s := newSession(t, &fakePicker{save: filepath.Join(blocker, "out.txt")})
	s.NewFile()
	typeString(s, "precious", t0)

	err := s.Save()
	require.Error(t, err)
	var fe *fsio.Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "precious", s.Text())
	require.Empty(t, s.Path())
	require.True(t, s.Dirty())
	require.Contains(t, s.Message(), "Save failed")
}

func TestSaveAs_AlwaysAsks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	writeFile(t, src, "same")

	p := &fakePicker{save: dst}
	s := newSession(t, p)
	s.Load(src)
	require.NoError(t, s.SaveAs())
	require.Equal(t, src, p.suggested)
	require.Equal(t, dst, s.Path())
	require.Equal(t, "same", readFile(t, dst))
}

func TestSelectPath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	file := filepath.Join(sub, "x.md")
	writeFile(t, file, "# Title\n")

	s := newSession(t, nil)
	s.OpenFolderAt(dir)

	s.SelectPath(sub)
	require.True(t, s.Tree().IsExpanded(sub))
	require.Empty(t, s.Tree().Selected(), "directories are not selected")

	s.SelectPath(file)
	require.Equal(t, file, s.Tree().Selected())
	require.Equal(t, "# Title\n", s.Text())
	require.Equal(t, "markdown", s.Syntax())

	s.SelectPath(sub)
	require.False(t, s.Tree().IsExpanded(sub))

	s.SelectPath(filepath.Join(dir, "missing"))
	require.Contains(t, s.Message(), "Cannot open")
	require.Equal(t, file, s.Path())
}

func TestCreate_FileOpensAndRefreshes(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	s.SelectPath(sub)
	require.True(t, s.Tree().IsExpanded(sub))

	s.BeginCreate("", true)
	require.Equal(t, &PendingCreate{Parent: dir, IsFile: true}, s.Pending())
	s.PendingInput("x.rz")
	s.PendingBackspace()
	s.PendingInput("s")
	require.Equal(t, "x.rs", s.Pending().Name)

	require.NoError(t, s.CommitCreate())
	require.Nil(t, s.Pending())

	created := filepath.Join(dir, "x.rs")
	info, err := os.Stat(created)
	require.NoError(t, err)
	require.Zero(t, info.Size())
	require.Equal(t, created, s.Path())
	require.Equal(t, "Rust", s.Syntax())

	rows := s.Tree().Rows()
	require.Empty(t, s.Tree().Expanded())
	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	require.ElementsMatch(t, []string{"sub", "x.rs"}, names)
}

func TestCreate_FolderNextToFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sub", "a.txt")
	writeFile(t, file, "")

	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	s.BeginCreate(file, false)
	require.Equal(t, filepath.Join(dir, "sub"), s.Pending().Parent)
	s.PendingInput("inner")
	require.NoError(t, s.CommitCreate())

	info, err := os.Stat(filepath.Join(dir, "sub", "inner"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Empty(t, s.Path(), "folders are not opened")
}

func TestCreate_InvalidNameKeepsPrompt(t *testing.T) {
	dir := t.TempDir()
	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	s.BeginCreate(dir, true)
	s.PendingInput("a/b")

	err := s.CommitCreate()
	require.ErrorIs(t, err, filetree.ErrInvalidName)
	require.NotNil(t, s.Pending())
	require.False(t, s.Tree().RefreshPending())

	s.CancelCreate()
	require.Nil(t, s.Pending())
}

func TestCreate_CollisionReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "taken"), "data")
	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	s.Tree().Toggle(filepath.Join(dir, "keep"))

	s.BeginCreate("", true)
	s.PendingInput("taken")
	err := s.CommitCreate()
	require.True(t, fsio.IsKind(err, fsio.KindExists))
	require.Nil(t, s.Pending())
	require.True(t, s.Tree().IsExpanded(filepath.Join(dir, "keep")), "failed create must not refresh")
	require.Equal(t, "data", readFile(t, filepath.Join(dir, "taken")))
}

func TestCreate_NeedsAFolder(t *testing.T) {
	s := newSession(t, nil)
	s.NewFile()
	s.BeginCreate("", true)
	require.Nil(t, s.Pending())
	require.Equal(t, "Open a folder first", s.Message())

	require.NoError(t, s.CommitCreate())
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "deep", "f.txt"), "x")

	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	require.NoError(t, s.Delete(filepath.Join(dir, "sub")))
	require.Empty(t, s.Tree().ListChildren(dir))
	require.Equal(t, "Deleted sub", s.Message())

	err := s.Delete(filepath.Join(dir, "sub"))
	require.Error(t, err)
	require.Contains(t, s.Message(), "Delete failed")
}

func TestRefreshTree(t *testing.T) {
	dir := t.TempDir()
	s := newSession(t, nil)
	s.OpenFolderAt(dir)
	s.Tree().Toggle(filepath.Join(dir, "a"))
	s.RefreshTree()
	s.Tree().Rows()
	require.Empty(t, s.Tree().Expanded())
}

func TestAboutDialog(t *testing.T) {
	s := newSession(t, nil)
	s.ShowAbout()
	require.True(t, s.AboutOpen())
	s.CloseAbout()
	require.False(t, s.AboutOpen())
}

func TestTyping_AutoPairAndEditing(t *testing.T) {
	s := newSession(t, nil)
	s.NewFile()
	s.InsertText("f", t0)
	s.InsertText("(", t0)
	require.Equal(t, "f()", s.Text())
	s.InsertText("x", t0)
	require.Equal(t, "f(x)", s.Text())

	s.Backspace(t0)
	require.Equal(t, "f()", s.Text())
	s.DeleteForward(t0)
	require.Equal(t, "f(", s.Text())

	s.MoveCaret(-2, true)
	s.Copy()
	s.Cut(t0)
	require.Empty(t, s.Text())
	s.Paste(t0)
	s.Paste(t0)
	require.Equal(t, "f(f(", s.Text())
}

func TestSpans_DebouncedRetokenize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	writeFile(t, path, "package main\n")

	s := newSession(t, nil)
	s.Load(path)
	_, stale := s.RetokenizeDue(t0)
	require.False(t, stale)

	s.Editor().Caret = 0
	s.InsertText("x", t0)
	wait, stale := s.RetokenizeDue(t0.Add(100 * time.Millisecond))
	require.True(t, stale)
	require.Equal(t, 200*time.Millisecond, wait)

	// Before the debounce the old runs are laid over the new text.
	spans := s.Spans(t0.Add(100 * time.Millisecond))
	require.Equal(t, "xpackage main\n", spanText(spans))
	require.Equal(t, "package main\n", joined(s.Lines()))

	spans = s.Spans(t0.Add(300 * time.Millisecond))
	require.Equal(t, "xpackage main\n", spanText(spans))
	require.Equal(t, "xpackage main\n", joined(s.Lines()))
	_, stale = s.RetokenizeDue(t0.Add(time.Second))
	require.False(t, stale)
}

func TestEnter_RetokenizesImmediately(t *testing.T) {
	s := newSession(t, nil)
	s.NewFile()
	typeString(s, "ab", t0)
	s.Enter(t0)
	_, stale := s.RetokenizeDue(t0)
	require.False(t, stale)
	require.Equal(t, "ab\n", joined(s.Lines()))
}

func TestFind(t *testing.T) {
	s := newSession(t, nil)
	s.NewFile()
	typeString(s, "one two one", t0)
	s.Editor().Caret = 0
	require.True(t, s.Find("one"))
	require.Equal(t, 8, s.Editor().Caret)
	require.False(t, s.Find("three"))
	require.Equal(t, "Not found: three", s.Message())

	require.True(t, s.FindBack("one"))
	require.Equal(t, 0, s.Editor().Caret)
	require.True(t, s.FindBack("one"), "backward search wraps")
	require.Equal(t, 8, s.Editor().Caret)
	require.Empty(t, s.Message())
}

func TestExit(t *testing.T) {
	s := newSession(t, nil)
	s.NewFile()
	typeString(s, "unsaved", t0)
	s.Exit()
	require.True(t, s.Quitting())
}

func feedVim(s *Session, keys string) {
	for _, r := range keys {
		switch r {
		case '\x1b':
			s.HandleVimKey(vim.Key{Kind: vim.KeyEsc}, t0)
		case '\r':
			s.HandleVimKey(vim.Key{Kind: vim.KeyEnter}, t0)
		default:
			s.HandleVimKey(vim.R(r), t0)
		}
	}
}

func TestVim_InsertAndMotions(t *testing.T) {
	s := newSession(t, nil)
	s.SetAutoPair(false)
	s.NewFile()
	s.SetVim(true)
	require.True(t, s.VimEnabled())
	require.Equal(t, vim.ModeNormal, s.VimMode())

	feedVim(s, "ihello world\x1b")
	require.Equal(t, "hello world", s.Text())
	require.Equal(t, vim.ModeNormal, s.VimMode())

	feedVim(s, "0")
	require.Equal(t, 0, s.Editor().Caret)
	feedVim(s, "w")
	require.Equal(t, 6, s.Editor().Caret)
	feedVim(s, "x")
	require.Equal(t, "hello orld", s.Text())
	feedVim(s, "$")
	require.Equal(t, 10, s.Editor().Caret)
	feedVim(s, "b")
	require.Equal(t, 6, s.Editor().Caret)

	feedVim(s, "a")
	require.Equal(t, 7, s.Editor().Caret)
	feedVim(s, "W\x1b")
	require.Equal(t, "hello oWrld", s.Text())

	feedVim(s, "onext\x1b")
	require.Equal(t, "hello oWrld\nnext", s.Text())
	feedVim(s, "k")
	require.Equal(t, 4, s.Editor().Caret)
	feedVim(s, "dd")
	require.Equal(t, "next", s.Text())
}

func TestVim_WriteQuit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "")

	s := newSession(t, nil)
	s.Load(path)
	s.SetVim(true)
	feedVim(s, "ihi\x1b:wq\r")
	require.Equal(t, "hi", readFile(t, path))
	require.True(t, s.Quitting())
}

func TestVim_WriteQuitStaysWhenSaveFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "")

	var logged bytes.Buffer
	log.InitWriter(&logged, func() time.Time { return t0 })
	t.Cleanup(log.Reset)

	s := newSession(t, &fakePicker{save: filepath.Join(blocker, "x")})
	s.NewFile()
	s.SetVim(true)
	feedVim(s, "ihi\x1b:w\r")
	require.Contains(t, s.Message(), "Save failed")
	require.Contains(t, logged.String(), "[vim] write failed")

	feedVim(s, ":wq\r")
	require.False(t, s.Quitting())
	require.Contains(t, logged.String(), "[vim] write failed, staying open")
}

func TestVim_CommandsAndUnknown(t *testing.T) {
	s := newSession(t, &fakePicker{cancel: true})
	s.NewFile()
	s.SetVim(true)

	feedVim(s, ":w\r")
	require.Equal(t, "Save cancelled", s.Message())
	feedVim(s, ":frob\r")
	require.Equal(t, "Not an editor command: frob", s.Message())
	require.False(t, s.Quitting())
	feedVim(s, ":q\r")
	require.True(t, s.Quitting())
}
