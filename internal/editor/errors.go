package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrEnhancementInFlight is returned when an enhancement is triggered
	// while another is still awaiting its response.
	ErrEnhancementInFlight = errors.New("enhancement already in flight")
	// ErrDialogNotOpen is returned when a link is submitted without an
	// open dialog.
	ErrDialogNotOpen = errors.New("link dialog not open")
	// ErrSessionClosed is returned by every operation after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoUploader and ErrNoEnhancer mean the collaborator was not configured.
	ErrNoUploader = errors.New("no storage collaborator configured")
	ErrNoEnhancer = errors.New("no enhancement collaborator configured")
)

// ValidationError reports input rejected before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NetworkError reports a collaborator call that failed or answered with
// a non-success status.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// EngineError reports a dispatch the document could not apply. It is
// never fatal: the document is left as it was.
type EngineError struct {
	Action ActionType
	Reason string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

func engineErr(a ActionType, format string, args ...any) error {
	return &EngineError{Action: a, Reason: fmt.Sprintf(format, args...)}
}
