// Package filetree holds the sidebar state: the root folder, which
// directories are expanded, the single selection, and the refresh flag.
// Directory contents are never cached; every render re-reads the expanded
// directories from disk.
package filetree

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"hydroxite/fsio"
	"hydroxite/log"
)

// ErrInvalidName rejects names that are empty, "." or "..", or contain a
// path separator.
var ErrInvalidName = errors.New("invalid name")

// SortMode orders directory listings.
type SortMode string

const (
	SortNone      SortMode = "none"
	SortName      SortMode = "name"
	SortDirsFirst SortMode = "dirs-first"
)

// ParseSortMode accepts "", "none", "name" and "dirs-first".
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortNone:
		return SortNone, nil
	case SortName, SortDirsFirst:
		return SortMode(s), nil
	}
	return SortNone, fmt.Errorf("unknown tree sort %q", s)
}

// Entry is one directory child.
type Entry struct {
	Path  string
	Name  string
	IsDir bool
}

// Row is an Entry placed in the rendered tree.
type Row struct {
	Entry
	Depth    int
	Expanded bool
	Selected bool
}

// Options tune listing.
type Options struct {
	Sort       SortMode
	ShowHidden bool
}

// Model is the tree state. The zero value is not usable; call New.
type Model struct {
	root     string
	expanded map[string]bool
	selected string
	refresh  bool
	opts     Options
}

func New(opts Options) *Model {
	if opts.Sort == "" {
		opts.Sort = SortNone
	}
	return &Model{expanded: make(map[string]bool), opts: opts}
}

// SetRoot switches the tree to dir and forgets all expansion state.
func (m *Model) SetRoot(dir string) {
	m.root = filepath.Clean(dir)
	clear(m.expanded)
	m.refresh = false
	log.Info(log.CatTree, "root set", "dir", m.root)
}

// Root is the open folder, or "" when none is open.
func (m *Model) Root() string { return m.root }

// HasRoot reports whether a folder is open.
func (m *Model) HasRoot() bool { return m.root != "" }

// ListChildren reads dir fresh. An unreadable directory has no children.
func (m *Model) ListChildren(dir string) []Entry {
	des, err := fsio.ReadDir(dir)
	if err != nil {
		log.Debug(log.CatTree, "directory unreadable, showing no children", "dir", dir, "error", err)
		return nil
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if !m.opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			// Follow the link; a dangling one lists as a file.
			isDir, _ = fsio.IsDir(p)
		}
		out = append(out, Entry{Path: p, Name: name, IsDir: isDir})
	}
	switch m.opts.Sort {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortDirsFirst:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].IsDir != out[j].IsDir {
				return out[i].IsDir
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

// Toggle flips the expansion of p and returns the new state.
func (m *Model) Toggle(p string) bool {
	v := !m.expanded[p]
	m.expanded[p] = v
	return v
}

// IsExpanded reports whether p is expanded. Unknown paths are collapsed.
func (m *Model) IsExpanded(p string) bool { return m.expanded[p] }

// Expanded returns a copy of the expansion map.
func (m *Model) Expanded() map[string]bool {
	out := make(map[string]bool, len(m.expanded))
	for k, v := range m.expanded {
		out[k] = v
	}
	return out
}

// Select makes p the only selected path.
func (m *Model) Select(p string) { m.selected = p }

// Selected returns the selected path, or "".
func (m *Model) Selected() string { return m.selected }

// ClearSelection drops the selection.
func (m *Model) ClearSelection() { m.selected = "" }

// RequestRefresh makes the next Rows call forget expansion state.
func (m *Model) RequestRefresh() { m.refresh = true }

// RefreshPending reports whether the next render clears expansion state.
func (m *Model) RefreshPending() bool { return m.refresh }

// Create makes an empty file or directory named name inside parent and
// returns its path. Failure leaves the refresh flag untouched.
func (m *Model) Create(parent, name string, isFile bool) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	p := filepath.Join(parent, name)
	var err error
	if isFile {
		err = fsio.CreateFile(p)
	} else {
		err = fsio.CreateDir(p)
	}
	if err != nil {
		log.ErrorErr(log.CatTree, "create failed", err, "path", p, "file", isFile)
		return "", err
	}
	log.Info(log.CatTree, "created", "path", p, "file", isFile)
	m.refresh = true
	return p, nil
}

// Delete removes p, recursively for directories. A selection at or below p
// is cleared.
func (m *Model) Delete(p string) error {
	if err := fsio.Remove(p); err != nil {
		log.ErrorErr(log.CatTree, "delete failed", err, "path", p)
		return err
	}
	log.Info(log.CatTree, "deleted", "path", p)
	if m.selected != "" && within(m.selected, p) {
		m.selected = ""
	}
	return nil
}

// Rows renders the tree depth-first from the root, descending only into
// expanded directories. A pending refresh clears expansion state first.
func (m *Model) Rows() []Row {
	if m.refresh {
		clear(m.expanded)
		m.refresh = false
		log.Debug(log.CatTree, "refresh: expansion state cleared")
	}
	if m.root == "" {
		return nil
	}
	var rows []Row
	m.appendRows(&rows, m.root, 0)
	return rows
}

func (m *Model) appendRows(rows *[]Row, dir string, depth int) {
	for _, e := range m.ListChildren(dir) {
		open := e.IsDir && m.expanded[e.Path]
		*rows = append(*rows, Row{
			Entry:    e,
			Depth:    depth,
			Expanded: open,
			Selected: e.Path == m.selected,
		})
		if open {
			m.appendRows(rows, e.Path, depth+1)
		}
	}
}

// WatchDirs lists the directories whose contents are on screen: the root and
// every expanded directory under it.
func (m *Model) WatchDirs() []string {
	if m.root == "" {
		return nil
	}
	dirs := []string{m.root}
	for p, open := range m.expanded {
		if open && within(p, m.root) && p != m.root {
			dirs = append(dirs, p)
		}
	}
	sort.Strings(dirs[1:])
	return dirs
}

// ParentFor picks the directory a new item goes into: target itself when it
// is a directory, its parent when it is a file, the root when target is "".
func (m *Model) ParentFor(target string, targetIsDir bool) string {
	switch {
	case target == "":
		return m.root
	case targetIsDir:
		return target
	default:
		return filepath.Dir(target)
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// within reports whether p is base or below it.
func within(p, base string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
