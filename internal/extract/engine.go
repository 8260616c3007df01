package extract

import (
	"strings"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/document"
)

// Keyword lists per document family, used to score rotation probes. They
// are terms that reliably appear on a correctly oriented first page.
var (
	payrollKeywords = []string{
		"Empregador", "RESUMO", "FECHAMENTO", "Trabalhador", "TOMADOR",
		"CAT", "Detalhe", "Guia", "FGTS", "Digital",
	}
	invoiceKeywords = []string{
		"NOTA", "FISCAL", "SERVI", "PRESTADOR", "TOMADOR",
		"CNPJ", "VALOR", "ISS", "INSS", "Compet",
	}
	reversedKeywords = []string{
		"Trabalhadores", "Detalhe", "Guia", "Empregador", "FECHAMENTO", "RESUMO",
	}
)

// OrientationKeywords returns the rotation-probe keyword list for a family.
func OrientationKeywords(family constants.Family) []string {
	if family == constants.FamilyInvoice {
		return invoiceKeywords
	}
	return payrollKeywords
}

// ReversedKeywords returns the keyword list used to detect inverted text
// layers.
func ReversedKeywords() []string {
	return reversedKeywords
}

// Input carries everything the cascade engine needs for one document.
type Input struct {
	Family     constants.Family
	Text       string
	Path       string
	EntityID   string
	PeriodHint document.Period // from the folder layout; lowest priority
	SiteCNO    string
	Window     YearWindow
	OCR        bool // selects OCR-tolerant heuristics and provenance
}

// Run executes the field cascades for the input's family and assembles a
// record. The boolean reports whether the ledger-relevant value was found;
// either way the record's Method says what happened.
func Run(in Input) (document.Record, bool) {
	rec := document.Record{
		EntityID:   in.EntityID,
		Family:     in.Family,
		SourcePath: in.Path,
	}

	if strings.TrimSpace(in.Text) == "" {
		rec.Method = constants.MethodEmptyText
		rec.Period = in.PeriodHint
		return rec, false
	}

	rec.Period = resolvePeriod(in)

	switch in.Family {
	case constants.FamilyInvoice:
		return runInvoice(in, rec)
	default:
		return runPayroll(in, rec)
	}
}

func resolvePeriod(in Input) document.Period {
	if p, ok := PeriodFromText(in.Text, in.Window); ok {
		return p
	}
	if p, ok := PeriodFromFilename(in.Path, in.Window); ok {
		return p
	}
	return in.PeriodHint
}

func runPayroll(in Input, rec document.Record) (document.Record, bool) {
	res, ok := Headcount(in.Text, in.SiteCNO, in.OCR)
	if !ok {
		rec.Method = constants.MethodNoMatch
		return rec, false
	}
	rec.Headcount = &res.Count
	rec.Method = method(in.OCR, res.Variant)
	return rec, true
}

func runInvoice(in Input, rec document.Record) (document.Record, bool) {
	f := Invoice(in.Text, in.SiteCNO)
	if f.DocNumber == nil {
		f.DocNumber = DocNumberFromFilename(in.Path)
	}

	rec.DocNumber = f.DocNumber
	rec.ContractorName = f.ContractorName
	rec.ContractorTaxID = f.ContractorTaxID
	rec.SiteRegistration = f.SiteRegistration
	rec.Total = f.Total
	rec.ISS = f.ISS
	rec.INSS = f.INSS
	rec.Subtype = ClassifySubtype(in.Text)

	notes := CheckWithholdings(rec.Subtype, f.Total, f.INSS, f.ISS)
	if f.Note != "" {
		notes = append([]string{f.Note}, notes...)
	}
	rec.Note = strings.Join(notes, "; ")

	if f.Total == nil {
		rec.Method = constants.MethodNoMatch
		return rec, false
	}
	rec.Method = method(in.OCR, f.Variant)
	return rec, true
}

func method(ocr bool, variant string) constants.Method {
	if ocr {
		return constants.OCRMethod(variant)
	}
	return constants.NativeMethod(variant)
}
