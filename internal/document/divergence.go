package document

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/obrasoft/docledger/constants"
)

// Resolution is the operator decision applied to a pending divergence.
type Resolution string

const (
	// ResolutionAcceptExtracted materializes the freshly extracted value
	// into the ledger on the next apply pass.
	ResolutionAcceptExtracted Resolution = "accept_extracted"
	// ResolutionKeepLedger keeps the ledger value; terminal, no mutation.
	ResolutionKeepLedger Resolution = "keep_ledger"
)

// Divergence records a conflict between a non-zero ledger value and a freshly
// extracted one. It is created pending and only ever moves forward:
//
//	pending -> resolved(accept_extracted) -> applied
//	pending -> resolved(keep_ledger)                  (terminal)
//
// A resolved record is never re-opened.
type Divergence struct {
	ID       uuid.UUID `json:"id"`
	EntityID string    `json:"entity_id"`
	Name     string    `json:"name,omitempty"`
	Period   Period    `json:"period"`

	// Ledger locator of the conflicting cell.
	Column string `json:"col"`
	Row    int    `json:"row"`

	LedgerValue    float64          `json:"ledger_value"`
	ExtractedValue float64          `json:"extracted_value"`
	Method         constants.Method `json:"method"`
	SourcePath     string           `json:"source_path"`

	Resolved   bool       `json:"resolved"`
	Resolution Resolution `json:"resolution,omitempty"`
	Applied    bool       `json:"applied,omitempty"`
}

// Resolve transitions a pending divergence to resolved. Resolving an already
// resolved record is rejected: operator decisions are final.
func (d *Divergence) Resolve(r Resolution) error {
	if d.Resolved {
		return fmt.Errorf("divergence %s already resolved as %s", d.ID, d.Resolution)
	}
	switch r {
	case ResolutionAcceptExtracted, ResolutionKeepLedger:
	default:
		return fmt.Errorf("unknown resolution %q", r)
	}
	d.Resolved = true
	d.Resolution = r
	return nil
}

// MarkApplied records that the accepted value was written to the ledger.
// Only accept_extracted resolutions can be applied, and only once.
func (d *Divergence) MarkApplied() error {
	if !d.Resolved || d.Resolution != ResolutionAcceptExtracted {
		return fmt.Errorf("divergence %s is not resolved as accept_extracted", d.ID)
	}
	if d.Applied {
		return fmt.Errorf("divergence %s already applied", d.ID)
	}
	d.Applied = true
	return nil
}

// Pending reports whether the record still awaits an operator decision.
func (d *Divergence) Pending() bool {
	return !d.Resolved
}
