package constants

import (
	"path/filepath"
	"strings"
)

// Family distinguishes the two document populations the pipeline handles.
// Each family has its own keyword sets, heuristic cascades and ledger value.
type Family string

const (
	// FamilyPayroll covers SEFIP / FGTS payroll-compliance reports; the
	// ledger value is the category-01 worker headcount.
	FamilyPayroll Family = "PAYROLL"
	// FamilyInvoice covers NFS-e municipal service invoices; the ledger
	// value is the total service amount.
	FamilyInvoice Family = "INVOICE"
)

// Subtype classifies a record by the kind of service invoiced. It changes the
// plausibility bands applied to withholdings downstream: security services are
// typically owner-operated (zero INSS expected, flat 5% ISS) while
// construction carries 11% INSS (or 3-4% under Simples) and 1-6% ISS.
type Subtype string

const (
	SubtypeConstruction Subtype = "CONSTRUCTION"
	SubtypeSecurity     Subtype = "SECURITY"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether a filename names a PDF document.
func IsPDF(name string) bool {
	return NormalizeExt(filepath.Ext(name)) == "pdf"
}
