package editor

import (
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/schema"
)

// DefaultCodeLanguage is the language new code blocks are tagged with.
const DefaultCodeLanguage = "javascript"

// Options configures a Session.
//
// Callbacks run after the session lock is released, in the order the
// changes happened. They may read the session but must not call
// mutating methods synchronously.
type Options struct {
	// Content is initial HTML. Document, when set, takes precedence.
	Content  string
	Document *doctree.Document

	Profile   schema.Profile
	CharLimit int

	// HistoryLimit bounds undo depth; negative disables history.
	HistoryLimit      int
	HistoryGroupDelay time.Duration

	CodeLanguage string

	Uploader Uploader
	Enhancer Enhancer

	Logger *slog.Logger

	OnChange func(html string)
	OnState  func(State)
	OnNotice func(Notice)

	// Now is the clock used for history grouping.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Profile.Name == "" {
		o.Profile = schema.Full
	}
	if o.CharLimit <= 0 {
		o.CharLimit = DefaultCharLimit
	}
	if o.HistoryLimit == 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.HistoryGroupDelay <= 0 {
		o.HistoryGroupDelay = DefaultHistoryGroupDelay
	}
	if o.CodeLanguage == "" {
		o.CodeLanguage = DefaultCodeLanguage
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
