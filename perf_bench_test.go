package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"hydroxite/config"
	"hydroxite/editor"
	"hydroxite/syntax"
)

func largeGoSource(lines int) string {
	var src strings.Builder
	src.WriteString("package main\n\n")
	for i := range lines {
		if i%10 == 0 {
			src.WriteString("// comment line\n")
			continue
		}
		src.WriteString("var x = \"value\" + 12345\n")
	}
	return src.String()
}

func BenchmarkEditorInsertAtCaret(b *testing.B) {
	e := editor.NewEditor(strings.Repeat("x", 8192))
	e.Caret = len(e.Buf) / 2
	ins := "package"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.InsertText(ins)
		for range len(ins) {
			e.BackspaceOrDeleteSelection(true)
		}
	}
}

func BenchmarkHighlightGo(b *testing.B) {
	cat := syntax.Default()
	src := largeGoSource(5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cat.Highlight(src, "Go")
	}
}

func BenchmarkHighlightRustLexer(b *testing.B) {
	cat := syntax.Default()
	src := strings.Repeat("fn main() { let x: u32 = 42; println!(\"{}\", x); }\n", 2000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cat.Highlight(src, "Rust")
	}
}

func BenchmarkProjectStaleRuns(b *testing.B) {
	cat := syntax.Default()
	src := largeGoSource(5000)
	lines := cat.Highlight(src, "Go")
	edited := src[:len(src)/2] + "x" + src[len(src)/2:]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = syntax.Project(lines, edited, cat.Fallback())
	}
}

func BenchmarkOpenAndDrawLargeFile(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "large.go")
	if err := os.WriteFile(path, []byte(largeGoSource(20000)), 0o644); err != nil {
		b.Fatalf("write fixture: %v", err)
	}
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		b.Fatalf("init simulation screen: %v", err)
	}
	defer s.Fini()
	s.SetSize(120, 40)

	app := newApp(config.Defaults(), &memoryClipboard{})
	now := time.Now()
	app.now = func() time.Time { return now }
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		app.sess.Load(path)
		drawTUI(s, app)
	}
}
