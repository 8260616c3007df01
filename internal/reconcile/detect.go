package reconcile

import (
	"math"

	"github.com/google/uuid"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/document"
)

// valueEpsilon absorbs float noise from spreadsheet cells; ledger values are
// two-decimal currency or whole headcounts.
const valueEpsilon = 0.005

// Outcome classifies one (ledger cell, extracted value) pair.
type Outcome int

const (
	// OutcomeSkip means the extraction carries no value to reconcile.
	OutcomeSkip Outcome = iota
	// OutcomeApply means the cell is empty or zero and the value is safe
	// to write.
	OutcomeApply
	// OutcomeUnchanged means ledger and extraction already agree.
	OutcomeUnchanged
	// OutcomeDiverged means both sides are non-zero and disagree; the cell
	// is never overwritten automatically.
	OutcomeDiverged
	// OutcomeSuspiciousZero means OCR read a zero, which is more often a
	// misread glyph than a real zero. Quarantined for review.
	OutcomeSuspiciousZero
)

// Change is a pending or applied ledger write.
type Change struct {
	EntityID   string           `json:"entity_id"`
	Name       string           `json:"name,omitempty"`
	Period     document.Period  `json:"period"`
	Column     string           `json:"col"`
	Row        int              `json:"row"`
	Value      float64          `json:"value"`
	Method     constants.Method `json:"method"`
	SourcePath string           `json:"source_path"`
}

// Report accumulates one reconciliation pass over a family's state.
type Report struct {
	Changes     []Change              `json:"changes"`
	Divergences []document.Divergence `json:"divergences"`
	Suspicious  []Change              `json:"suspicious"`
	Unchanged   int                   `json:"unchanged"`
	Skipped     int                   `json:"skipped"`
}

// Compare classifies what should happen to a ledger cell given a freshly
// extracted entry. ledger is nil when the cell is empty.
func Compare(ledger *float64, entry document.StateEntry) Outcome {
	if entry.Value == nil {
		return OutcomeSkip
	}
	v := *entry.Value
	if v == 0 && entry.Method.IsOCR() {
		return OutcomeSuspiciousZero
	}
	if ledger == nil || *ledger == 0 {
		return OutcomeApply
	}
	if math.Abs(*ledger-v) < valueEpsilon {
		return OutcomeUnchanged
	}
	return OutcomeDiverged
}

// Add routes one comparison result into the report. For OutcomeDiverged the
// ledger value must be supplied.
func (r *Report) Add(outcome Outcome, ch Change, ledgerValue float64) {
	switch outcome {
	case OutcomeApply:
		r.Changes = append(r.Changes, ch)
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkip:
		r.Skipped++
	case OutcomeSuspiciousZero:
		r.Suspicious = append(r.Suspicious, ch)
	case OutcomeDiverged:
		r.Divergences = append(r.Divergences, document.Divergence{
			ID:             uuid.New(),
			EntityID:       ch.EntityID,
			Name:           ch.Name,
			Period:         ch.Period,
			Column:         ch.Column,
			Row:            ch.Row,
			LedgerValue:    ledgerValue,
			ExtractedValue: ch.Value,
			Method:         ch.Method,
			SourcePath:     ch.SourcePath,
		})
	}
}
