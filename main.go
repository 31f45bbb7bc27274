package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"hydroxite/config"
	"hydroxite/editor"
	"hydroxite/fsio"
	"hydroxite/log"
	"hydroxite/session"
	"hydroxite/syntax"
)

type focusArea int

const (
	focusEditor focusArea = iota
	focusTree
)

type appState struct {
	sess  *session.Session
	cfg   config.Config
	focus focusArea

	scrollLine int
	treeCursor int
	treeScroll int
	tabWidth   int

	menu     *popupMenu
	prompt   *promptState
	lastFind string
	layout   screenLayout

	// ask shows a one-line prompt and blocks until Enter or Esc.
	ask func(label, initial string) (string, bool)
	now func() time.Time
}

type rootOptions struct {
	configFile string
	debug      bool
	vim        bool
	theme      string
}

// systemClipboard is the OS clipboard (pbcopy, xclip, xsel, wl-clipboard
// or the Windows API).
type systemClipboard struct{}

func (systemClipboard) GetText() (string, error) { return clipboard.ReadAll() }
func (systemClipboard) SetText(text string) error { return clipboard.WriteAll(text) }

// memoryClipboard keeps copied text inside the process, for machines with
// no clipboard tool installed.
type memoryClipboard struct {
	mu   sync.Mutex
	text string
}

func (m *memoryClipboard) GetText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *memoryClipboard) SetText(text string) error {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	return nil
}

func newClipboard() editor.Clipboard {
	if clipboard.Unsupported {
		log.Warn(log.CatUI, "no system clipboard, copies stay inside hydroxite")
		return &memoryClipboard{}
	}
	return systemClipboard{}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "hydroxite [path]",
		Short:        "A terminal code editor with a file tree",
		Long:         `Hydroxite edits one file at a time with syntax highlighting, a lazily read file tree and an optional vim mode. Pass a file to open it or a folder to browse it.`,
		Version:      session.Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, opts, args)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"config file (default: ./.hydroxite.yaml or ~/.config/hydroxite/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false,
		"write a debug log (also HYDROXITE_DEBUG=1)")
	cmd.Flags().BoolVar(&opts.vim, "vim", false, "start with vim mode on")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "highlight theme (a chroma style name)")

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, used, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if used != "" {
				_, _ = fmt.Fprintf(out, "# loaded from %s\n", used)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

// loadSettings reads the config file and applies command-line overrides.
func loadSettings(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, _, err := config.Load(opts.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("vim") {
		cfg.VimMode = opts.vim
	}
	if opts.theme != "" {
		cfg.Theme = opts.theme
	}
	return cfg, cfg.Validate()
}

func runApp(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	if opts.debug || os.Getenv("HYDROXITE_DEBUG") != "" {
		cleanup, err := log.Init(cfg.Log.Path)
		if err != nil {
			return err
		}
		defer cleanup()
	}
	log.Info(log.CatUI, "starting", "version", session.Version, "theme", cfg.Theme, "vim", cfg.VimMode)

	app := newApp(cfg, newClipboard())
	if len(args) == 1 {
		if err := openStartPath(app, args[0]); err != nil {
			return err
		}
	}
	screen, err := newScreen()
	if err != nil {
		return err
	}
	return runTUI(screen, app)
}

func newApp(cfg config.Config, clip editor.Clipboard) *appState {
	cat := syntax.Default()
	if cfg.Theme != syntax.DefaultTheme {
		cat = syntax.NewCatalog(cfg.Theme)
	}
	app := &appState{
		cfg:      cfg,
		tabWidth: cfg.TabWidth,
		now:      time.Now,
		ask:      func(string, string) (string, bool) { return "", false },
	}
	app.sess = session.New(session.Options{
		Catalog:   cat,
		Picker:    promptPicker{app: app},
		Tree:      cfg.TreeOptions(),
		Clipboard: clip,
		Debounce:  cfg.HighlightDebounce,
		AutoPair:  true,
		Vim:       cfg.VimMode,
	})
	return app
}

// openStartPath opens the command-line argument: a folder becomes the tree
// root, anything else is loaded as the document. A missing file starts an
// empty buffer that saves to that path.
func openStartPath(app *appState, arg string) error {
	p := absPath(arg)
	isDir, err := fsio.IsDir(p)
	if err != nil && !fsio.IsKind(err, fsio.KindNotFound) {
		return err
	}
	if isDir {
		app.sess.OpenFolderAt(p)
		app.focus = focusTree
		return nil
	}
	app.sess.Load(p)
	app.focus = focusEditor
	return nil
}

// promptPicker answers the session's file chooser requests with a path
// typed on the prompt line.
type promptPicker struct {
	app *appState
}

func (p promptPicker) PickFile() (string, bool) {
	return p.pick("Open file: ", p.app.startDir())
}

func (p promptPicker) PickFolder() (string, bool) {
	return p.pick("Open folder: ", p.app.startDir())
}

func (p promptPicker) SaveFile(suggested string) (string, bool) {
	if suggested == "" {
		suggested = p.app.startDir()
	}
	return p.pick("Save as: ", suggested)
}

func (p promptPicker) pick(label, initial string) (string, bool) {
	v, ok := p.app.ask(label, initial)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return absPath(v), true
}

// startDir is where path prompts begin: the tree root, the current file's
// directory or the working directory, with a trailing separator.
func (app *appState) startDir() string {
	dir := app.sess.Tree().Root()
	if dir == "" && app.sess.Path() != "" {
		dir = filepath.Dir(app.sess.Path())
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if dir == "" {
		return ""
	}
	return strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
}

func absPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func syntaxLabel(sess *session.Session) string {
	if sess.Syntax() == "" {
		return "Plain Text"
	}
	return sess.Syntax()
}

func ensureCaretVisible(app *appState, caretLine, totalLines, visibleLines int) {
	if app == nil {
		return
	}
	if caretLine < 0 {
		caretLine = 0
	}
	if totalLines < 0 {
		totalLines = 0
	}
	if visibleLines <= 0 {
		visibleLines = 1
	}
	maxStart := max(0, totalLines-visibleLines)
	if app.scrollLine > maxStart {
		app.scrollLine = maxStart
	}
	if caretLine < app.scrollLine {
		app.scrollLine = caretLine
	} else if caretLine >= app.scrollLine+visibleLines {
		app.scrollLine = caretLine - visibleLines + 1
	}
	app.scrollLine = clamp(app.scrollLine, 0, maxStart)
}

// visualColForRuneCol converts a rune column into screen cells, expanding
// tabs and counting wide characters twice.
func visualColForRuneCol(line string, runeCol, width int) int {
	col := 0
	vis := 0
	for _, r := range line {
		if col >= runeCol {
			break
		}
		vis = advanceCell(vis, r, width)
		col++
	}
	return vis
}

// runeColForVisual is the inverse of visualColForRuneCol: the rune column
// whose cell span contains vis.
func runeColForVisual(line string, vis, width int) int {
	col := 0
	cur := 0
	for _, r := range line {
		next := advanceCell(cur, r, width)
		if vis < next {
			return col
		}
		cur = next
		col++
	}
	return col
}

func advanceCell(vis int, r rune, tabWidth int) int {
	if r == '\t' {
		if tabWidth <= 0 {
			return vis + 1
		}
		return ((vis / tabWidth) + 1) * tabWidth
	}
	return vis + runewidth.RuneWidth(r)
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

func padRight(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > w {
		return runewidth.Truncate(s, w, "")
	}
	return runewidth.FillRight(s, w)
}

func modsString(m modMask) string {
	parts := ""
	add := func(s string) {
		if parts != "" {
			parts += "|"
		}
		parts += s
	}
	if (m & modShift) != 0 {
		add("SHIFT")
	}
	if (m & modCtrl) != 0 {
		add("CTRL")
	}
	if (m & modAlt) != 0 {
		add("ALT")
	}
	if parts == "" {
		return "none"
	}
	return parts
}
