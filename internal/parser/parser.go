// Package parser imports files into editor documents.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// Imported is the result of parsing a file.
type Imported struct {
	Title    string
	Document *doctree.Document
}

// Parser converts raw file bytes into a document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Imported, error)
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Import picks a parser by extension and parses r.
func Import(r io.Reader, filename string) (*Imported, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// lines turns text into inline content, one hard break per newline.
func lines(s string) []doctree.Inline {
	s = norm.NFC.String(s)
	var out []doctree.Inline
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, doctree.HardBreak())
		}
		if line = strings.TrimRight(line, " \t\r"); line != "" {
			out = append(out, doctree.Text(line))
		}
	}
	return out
}

func heading(level int, text string) *doctree.Block {
	b := &doctree.Block{Type: doctree.TypeHeading, Inline: lines(text)}
	b.SetAttr(doctree.AttrLevel, strconv.Itoa(level))
	return b
}

func finish(title string, blocks []*doctree.Block) *Imported {
	return &Imported{Title: title, Document: doctree.FromBlocks(blocks...)}
}
