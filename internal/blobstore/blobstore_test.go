package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  My_Photo (1) ", "my-photo-1"},
		{"---", ""},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestKey(t *testing.T) {
	keyRe := regexp.MustCompile(`^[0-9a-z]{26}-[a-z0-9-]+(\.[a-z0-9]+)?$`)
	tests := []struct {
		name, suffix string
	}{
		{"Cat Photo.PNG", "-cat-photo.png"},
		{"../../etc/passwd", "-passwd"},
		{"%%%.jpg", "-file.jpg"},
	}
	for _, tt := range tests {
		k := Key(tt.name)
		if !keyRe.MatchString(k) || !strings.HasSuffix(k, tt.suffix) {
			t.Errorf("Key(%q): unexpected key %q", tt.name, k)
		}
	}
	if Key("a.png") == Key("a.png") {
		t.Error("expected unique keys")
	}
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	url, err := s.Put(context.Background(), "abc-cat.png", "image/png", strings.NewReader("png"), 3)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/uploads/abc-cat.png" {
		t.Errorf("unexpected url %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "abc-cat.png"))
	if err != nil || string(data) != "png" {
		t.Errorf("expected stored bytes, got %q (%v)", data, err)
	}

	if _, err := s.Put(context.Background(), "../escape", "", strings.NewReader("x"), 1); err == nil {
		t.Error("expected error for key with a path separator")
	}
}

func TestUploader_Placeholder(t *testing.T) {
	u := Uploader{Store: Placeholder{}}
	url, err := u.Upload(context.Background(), "cat.png", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != PlaceholderURL {
		t.Errorf("expected placeholder url, got %q", url)
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("a.PNG"); got != "image/png" {
		t.Errorf("expected image/png, got %q", got)
	}
	if got := ContentType("noext"); got != "application/octet-stream" {
		t.Errorf("expected octet-stream, got %q", got)
	}
}

func TestMinIOStore_ObjectURL(t *testing.T) {
	s := &MinIOStore{bucket: "images", publicURL: "https://cdn.example.com"}
	if got := s.objectURL("01abc-cat.png"); got != "https://cdn.example.com/images/01abc-cat.png" {
		t.Errorf("unexpected url %q", got)
	}
}
