package editor

import "github.com/dgallion1/inkwell/internal/doctree"

// DefaultCharLimit is the character budget of the editor.
const DefaultCharLimit = 280

// warnRatio is the share of the budget at which the level turns to warning.
const warnRatio = 0.8

// BudgetLevel classifies a budget for display.
type BudgetLevel string

const (
	BudgetOK      BudgetLevel = "ok"
	BudgetWarning BudgetLevel = "warning"
	BudgetOver    BudgetLevel = "over"
)

// Budget is the character budget of a document. Exceeding it is
// advisory only.
type Budget struct {
	Limit           int         `json:"limit"`
	Count           int         `json:"count"`
	Remaining       int         `json:"remaining"`
	OverLimit       bool        `json:"overLimit"`
	ProgressPercent float64     `json:"progressPercent"`
	Level           BudgetLevel `json:"level"`
}

// BudgetTracker derives the budget from a document.
type BudgetTracker struct {
	Limit int
}

// NewBudgetTracker returns a tracker for limit; non-positive limits use
// DefaultCharLimit.
func NewBudgetTracker(limit int) *BudgetTracker {
	if limit <= 0 {
		limit = DefaultCharLimit
	}
	return &BudgetTracker{Limit: limit}
}

// Update recomputes the budget for d.
func (t *BudgetTracker) Update(d *doctree.Document) Budget {
	return ComputeBudget(d.CharCount(), t.Limit)
}

// ComputeBudget derives budget figures from a raw count. Non-positive
// limits use DefaultCharLimit.
func ComputeBudget(count, limit int) Budget {
	if limit <= 0 {
		limit = DefaultCharLimit
	}
	ratio := float64(count) / float64(limit)
	b := Budget{
		Limit:           limit,
		Count:           count,
		Remaining:       limit - count,
		OverLimit:       count > limit,
		ProgressPercent: min(ratio, 1) * 100,
		Level:           BudgetOK,
	}
	switch {
	case b.OverLimit:
		b.Level = BudgetOver
	case ratio >= warnRatio:
		b.Level = BudgetWarning
	}
	return b
}
