package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/inkwell/internal/blobstore"
	"github.com/dgallion1/inkwell/internal/enhance"
)

const (
	errNoFile         = "No file provided"
	errUploadFailed   = "Error uploading file"
	errProcessFailed  = "Failed to process content"
	multipartOverhead = 1 << 20
)

// handleUpload stores one image and answers with its URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	body, contentType, err := sniffImage(file)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	filename := sanitizeFilename(header.Filename)
	url, err := s.store.Put(r.Context(), blobstore.Key(filename), contentType, body, header.Size)
	if err != nil {
		s.log.Error("upload failed", "backend", s.store.Name(), "filename", filename, "error", err)
		jsonError(w, errUploadFailed, http.StatusInternalServerError)
		return
	}
	s.log.Info("image stored", "backend", s.store.Name(), "filename", filename, "bytes", header.Size)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

type enhanceRequest struct {
	Content string `json:"content"`
}

// handleEnhance rewrites the posted content with the language model.
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if s.enhancer == nil {
		jsonError(w, errProcessFailed, http.StatusServiceUnavailable)
		return
	}
	var req enhanceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid json body", http.StatusBadRequest)
		return
	}

	out, err := s.enhancer.Enhance(r.Context(), req.Content)
	if err != nil {
		status := enhanceStatus(err)
		if status >= 500 {
			s.log.Error("enhancement failed", "error", err)
			jsonError(w, errProcessFailed, status)
			return
		}
		jsonError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"content": out})
}

func enhanceStatus(err error) int {
	var re *enhance.RetryableError
	switch {
	case errors.Is(err, enhance.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, enhance.ErrContentTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &re):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// formFile reads the multipart "file" field, writing the error response
// itself when there is none.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, nil, false
		}
		jsonError(w, errNoFile, http.StatusBadRequest)
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		jsonError(w, errNoFile, http.StatusBadRequest)
		return nil, nil, false
	}
	if header.Size > s.cfg.MaxUploadBytes {
		file.Close()
		r.MultipartForm.RemoveAll()
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, nil, false
	}
	return file, header, true
}

// sniffImage checks the leading bytes of r and returns a reader over the
// whole content.
func sniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("only image uploads are supported, got %s", contentType)
	}
	return io.MultiReader(bytes.NewReader(head), r), contentType, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
