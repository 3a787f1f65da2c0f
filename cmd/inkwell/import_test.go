package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/fatih/color"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadAll_KeepsOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.txt": "alpha",
		"b.md":  "# Beta\n\nbody",
		"c.txt": "gamma",
	})
	paths := []string{filepath.Join(dir, "c.txt"), filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md")}
	docs, err := loadAll(context.Background(), paths, 2, false)
	if err != nil {
		t.Fatalf("loadAll: %v", err)
	}
	want := []string{"c", "a", "Beta"}
	for i, imp := range docs {
		if imp.Title != want[i] {
			t.Errorf("doc %d: expected title %q, got %q", i, want[i], imp.Title)
		}
	}
}

func TestLoadAll_ReportsBadFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "alpha"})
	_, err := loadAll(context.Background(), []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "x.csv")}, 0, false)
	if err == nil || !strings.Contains(err.Error(), "x.csv") {
		t.Errorf("expected error naming the csv file, got %v", err)
	}
}

func TestWriteDocument(t *testing.T) {
	dir := writeFiles(t, map[string]string{"n.txt": "one\n\ntwo"})
	imp, err := loadFile(filepath.Join(dir, "n.txt"), false)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		format, want string
	}{
		{"html", "<p>one</p><p>two</p>\n"},
		{"text", "one\n\ntwo\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeDocument(&buf, imp, tt.format); err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if buf.String() != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.format, tt.want, buf.String())
		}
	}
	if err := writeDocument(&bytes.Buffer{}, imp, "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrintBudget(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printBudget(&buf, "x.txt", editor.ComputeBudget(300, 280))
	if got := buf.String(); got != "x.txt  300/280  (20 over)\n" {
		t.Errorf("unexpected budget line %q", got)
	}
}
