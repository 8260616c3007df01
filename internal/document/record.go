package document

import (
	"github.com/obrasoft/docledger/constants"
)

// SourceDocument identifies a candidate file handed to the acquisition stage.
// It is owned transiently by the pipeline and never persisted.
type SourceDocument struct {
	Path     string
	EntityID string
	Period   Period
	Pages    int
	Rotation int // detected page rotation: 0 or 180
}

// Record is the fixed field schema extracted from one document. Every field
// is independently nullable: a miss on one field never blocks another.
type Record struct {
	EntityID string            `json:"entity_id"`
	Period   Period            `json:"period"`
	Family   constants.Family  `json:"family"`
	Subtype  constants.Subtype `json:"subtype,omitempty"`

	// DocNumber is the invoice number. When present it must be below the
	// configured upper bound; larger matches are discarded as unrelated
	// numbers picked up from the text.
	DocNumber *int `json:"doc_number,omitempty"`

	ContractorName   string `json:"contractor_name,omitempty"`
	ContractorTaxID  string `json:"contractor_tax_id,omitempty"` // CNPJ
	SiteRegistration string `json:"site_registration,omitempty"` // CNO

	// Monetary amounts, rounded to two fractional digits.
	Total *float64 `json:"total,omitempty"`
	INSS  *float64 `json:"inss,omitempty"`
	ISS   *float64 `json:"iss,omitempty"`

	// Headcount is the category-01 worker count (payroll family only).
	Headcount *int `json:"headcount,omitempty"`

	Note       string           `json:"note,omitempty"`
	Method     constants.Method `json:"method"`
	SourcePath string           `json:"source_path"`
}

// LedgerValue returns the single value this record contributes to the
// ledger cell for its (entity, period): headcount for payroll reports,
// total service amount for invoices. Nil when the record carries no value.
func (r *Record) LedgerValue() *float64 {
	switch r.Family {
	case constants.FamilyPayroll:
		if r.Headcount == nil {
			return nil
		}
		v := float64(*r.Headcount)
		return &v
	default:
		return r.Total
	}
}

// StateEntry is the persisted form of one extraction result, keyed in the
// state store by entity id and period key.
type StateEntry struct {
	Value      *float64         `json:"value"`
	Method     constants.Method `json:"method"`
	Column     string           `json:"col,omitempty"` // ledger column reference
	SourcePath string           `json:"path"`
}

// EntityState maps period key -> extraction result for one entity.
type EntityState map[string]StateEntry

// State is the whole on-disk store: entity id -> period key -> result.
type State map[string]EntityState
