// Package blobstore stores uploaded images and returns the URL they are
// served from.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/inkwell/internal/ids"
)

// PlaceholderURL is returned by the placeholder backend for every upload.
const PlaceholderURL = "https://placeholder.co/600x400"

// Store persists an object under key and returns its public URL.
// size may be -1 when unknown.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	Name() string
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL/path-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// Key builds a unique object key that keeps a readable form of the
// original filename.
func Key(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if len(ext) > 10 || slugInvalid.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	slug := Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if slug == "" {
		slug = "file"
	}
	return ids.New() + "-" + slug + ext
}

// ContentType guesses a content type from the filename extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Uploader adapts a Store to the editor's upload collaborator.
type Uploader struct {
	Store Store
}

func (u Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	url, err := u.Store.Put(ctx, Key(filename), ContentType(filename), r, -1)
	if err != nil {
		return "", fmt.Errorf("%s put: %w", u.Store.Name(), err)
	}
	return url, nil
}

// Placeholder discards uploads and answers with a fixed image URL.
type Placeholder struct{}

func (Placeholder) Put(_ context.Context, _, _ string, r io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return PlaceholderURL, nil
}

func (Placeholder) Name() string { return "placeholder" }
