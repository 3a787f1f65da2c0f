package editor

import (
	"context"
	"errors"
	"io"

	"github.com/dgallion1/inkwell/internal/schema"
)

// Uploader stores a file and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// AttachImage uploads r and inserts the image at the selection current
// when the upload resolves. Editing continues while the upload is in
// flight; several uploads may run at once. A failed upload leaves the
// document untouched and raises a notice.
func (s *Session) AttachImage(ctx context.Context, filename string, r io.Reader) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.profile.Enabled(schema.Image) {
		s.mu.Unlock()
		return engineErr(ActionSetImage, "image is not enabled in the %s profile", s.profile.Name)
	}
	up := s.opt.Uploader
	if up == nil {
		s.mu.Unlock()
		return ErrNoUploader
	}
	s.uploads++
	s.finish(events{})

	ctx, stop := s.bind(ctx)
	url, err := up.Upload(ctx, filename, r)
	stop()

	s.mu.Lock()
	s.uploads--
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("upload resolved after close, discarded", "file", filename)
		return ErrSessionClosed
	}
	var ev events
	if err != nil {
		s.log.Error("image upload failed", "file", filename, "error", err)
		ev.notices = append(ev.notices, noticeUploadFailed)
		s.finish(ev)
		return asNetworkError("upload", err)
	}
	s.log.Info("image uploaded", "file", filename, "url", url)
	err = s.applyLocked(SetImage(url, filename), &ev)
	if err == nil {
		s.focused = true
	}
	s.finish(ev)
	return err
}

func asNetworkError(op string, err error) error {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}
