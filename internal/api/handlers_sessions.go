package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/inkwell/internal/blobstore"
	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/dgallion1/inkwell/internal/ids"
	"github.com/dgallion1/inkwell/internal/parser"
	"github.com/dgallion1/inkwell/internal/schema"
	"github.com/go-chi/chi/v5"
)

type createSessionRequest struct {
	Content string `json:"content"`
	Profile string `json:"profile"`
}

type sessionResponse struct {
	ID      string          `json:"id"`
	Title   string          `json:"title,omitempty"`
	State   editor.State    `json:"state"`
	Notices []editor.Notice `json:"notices"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h, err := s.openSession(req.Profile, "", func(o *editor.Options) { o.Content = req.Content })
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeSession(w, http.StatusCreated, h)
}

// handleImportSession opens a session on an uploaded txt, md, html, pdf
// or docx file.
func (s *Server) handleImportSession(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pdf, ok := p.(*parser.PDFParser); ok {
		pdf.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}
	imp, err := p.Parse(file, filename)
	if err != nil {
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, "could not read "+filename, http.StatusUnprocessableEntity)
		return
	}

	h, err := s.openSession(r.FormValue("profile"), imp.Title, func(o *editor.Options) { o.Document = imp.Document })
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("document imported", "session", h.id, "filename", filename, "chars", imp.Document.CharCount())
	s.writeSession(w, http.StatusCreated, h)
}

func (s *Server) openSession(profileName, title string, init func(*editor.Options)) (*hosted, error) {
	if profileName == "" {
		profileName = s.cfg.EditorProfile
	}
	profile, err := schema.ProfileByName(profileName)
	if err != nil {
		return nil, err
	}

	h := &hosted{id: ids.New(), title: title}
	opts := editor.Options{
		Profile:   profile,
		CharLimit: s.cfg.CharLimit,
		Uploader:  blobstore.Uploader{Store: s.store},
		Logger:    s.log.With("session", h.id),
		OnNotice:  h.addNotice,
	}
	if s.enhancer != nil {
		opts.Enhancer = s.enhancer
	}
	init(&opts)

	sess, err := editor.New(opts)
	if err != nil {
		return nil, err
	}
	h.sess = sess
	s.sessions.put(h)
	s.log.Info("session opened", "session", h.id, "profile", profile.Name)
	return h, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*hosted, bool) {
	h, ok := s.sessions.get(chi.URLParam(r, "sessionID"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return h, ok
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if h, ok := s.session(w, r); ok {
		s.writeSession(w, http.StatusOK, h)
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(chi.URLParam(r, "sessionID")) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, h.sess.HTML())
	case "json":
		data, err := h.sess.JSON()
		if err != nil {
			jsonError(w, "failed to encode document", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, h.sess.PlainText())
	default:
		jsonError(w, "format must be html, json or text", http.StatusBadRequest)
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	var a editor.Action
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&a); err != nil {
		jsonError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if a.Type == "" {
		jsonError(w, "action is required", http.StatusBadRequest)
		return
	}
	s.respond(w, h, h.sess.Dispatch(a))
}

type selectionRequest struct {
	Anchor int  `json:"anchor"`
	Head   int  `json:"head"`
	All    bool `json:"all"`
	Blur   bool `json:"blur"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	var err error
	switch {
	case req.Blur:
		h.sess.Blur()
	case req.All:
		err = h.sess.SelectAll()
	default:
		err = h.sess.Select(req.Anchor, req.Head)
	}
	s.respond(w, h, err)
}

type linkRequest struct {
	Op  string `json:"op"`
	URL string `json:"url"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	var err error
	switch req.Op {
	case "open":
		err = h.sess.OpenLinkDialog()
	case "submit":
		err = h.sess.SubmitLink(req.URL)
	case "cancel":
		err = h.sess.CancelLinkDialog()
	default:
		jsonError(w, "op must be open, submit or cancel", http.StatusBadRequest)
		return
	}
	s.respond(w, h, err)
}

func (s *Server) handleSessionImage(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	body, _, err := sniffImage(file)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	s.respond(w, h, h.sess.AttachImage(r.Context(), sanitizeFilename(header.Filename), body))
}

func (s *Server) handleSessionEnhance(w http.ResponseWriter, r *http.Request) {
	h, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, h, h.sess.Enhance(r.Context()))
}

// respond writes the session state, with the error mapped to a status
// when an operation failed.
func (s *Server) respond(w http.ResponseWriter, h *hosted, err error) {
	if err == nil {
		s.writeSession(w, http.StatusOK, h)
		return
	}
	status := editorStatus(err)
	resp := map[string]any{"error": err.Error()}
	if status != http.StatusGone {
		resp["state"] = h.sess.State()
		resp["notices"] = h.drainNotices()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func editorStatus(err error) int {
	var (
		ve *editor.ValidationError
		ne *editor.NetworkError
		ee *editor.EngineError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ee):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, editor.ErrEnhancementInFlight), errors.Is(err, editor.ErrDialogNotOpen):
		return http.StatusConflict
	case errors.Is(err, editor.ErrNoUploader), errors.Is(err, editor.ErrNoEnhancer):
		return http.StatusServiceUnavailable
	case errors.As(err, &ne):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeSession(w http.ResponseWriter, status int, h *hosted) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(sessionResponse{
		ID:      h.id,
		Title:   h.title,
		State:   h.sess.State(),
		Notices: h.drainNotices(),
	})
}
