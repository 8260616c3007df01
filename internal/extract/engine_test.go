package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/document"
)

func payrollInput(text string) Input {
	return Input{
		Family:   constants.FamilyPayroll,
		Text:     text,
		Path:     "contratada/SEFIP/08 2024/SEFIP COMPLETA.pdf",
		EntityID: "3",
		SiteCNO:  siteCNO,
		Window:   testWindow,
	}
}

func TestRunPayroll(t *testing.T) {
	rec, ok := Run(payrollInput("Guia do FGTS Digital\n08/2024 27 35.412,88 \n"))
	require.True(t, ok)
	require.NotNil(t, rec.Headcount)
	assert.Equal(t, 27, *rec.Headcount)
	assert.Equal(t, constants.NativeMethod("fgts_digital"), rec.Method)
	assert.Equal(t, document.Period{Year: 2024, Month: 8}, rec.Period)

	v := rec.LedgerValue()
	require.NotNil(t, v)
	assert.Equal(t, 27.0, *v)
}

func TestRunPayrollOCRProvenance(t *testing.T) {
	in := payrollInput("Qtd Trabalhadores FGTS: 9")
	in.OCR = true
	rec, ok := Run(in)
	require.True(t, ok)
	assert.Equal(t, constants.OCRMethod("ocr_fgts"), rec.Method)
	assert.True(t, rec.Method.IsOCR())
}

func TestRunPayrollOCRZeroKeepsProvenance(t *testing.T) {
	// A zero read off a sefip summary row is a value, not a miss; the
	// record must carry it with OCR provenance so the reconcile pass can
	// quarantine the cell instead of leaving it silently empty.
	in := payrollInput("RESUMO DO FECHAMENTO\nCNO 12.3456.7890/12\n01 0 0,00\n")
	in.OCR = true
	rec, ok := Run(in)
	require.True(t, ok)
	require.NotNil(t, rec.Headcount)
	assert.Equal(t, 0, *rec.Headcount)
	assert.Equal(t, constants.OCRMethod("ocr_sefip"), rec.Method)

	v := rec.LedgerValue()
	require.NotNil(t, v)
	assert.Equal(t, 0.0, *v)
}

func TestRunNoMatch(t *testing.T) {
	rec, ok := Run(payrollInput("texto sem qualquer valor"))
	assert.False(t, ok)
	assert.Equal(t, constants.MethodNoMatch, rec.Method)
	assert.Nil(t, rec.LedgerValue())
}

func TestRunEmptyText(t *testing.T) {
	in := payrollInput("   \n  ")
	in.PeriodHint = document.Period{Year: 2024, Month: 8}
	rec, ok := Run(in)
	assert.False(t, ok)
	assert.Equal(t, constants.MethodEmptyText, rec.Method)
	assert.Equal(t, in.PeriodHint, rec.Period)
}

func TestRunPeriodPrecedence(t *testing.T) {
	// The document text wins over the filename, which wins over the folder.
	in := Input{
		Family:     constants.FamilyInvoice,
		Text:       "Competência: 03/2024\nVALOR TOTAL DO SERVIÇO R$ 1.000,00",
		Path:       "contratada/NOTA FISCAL/NFSE 7 COMP 05-2024.pdf",
		EntityID:   "1",
		PeriodHint: document.Period{Year: 2024, Month: 7},
		SiteCNO:    siteCNO,
		Window:     testWindow,
	}
	rec, ok := Run(in)
	require.True(t, ok)
	assert.Equal(t, document.Period{Year: 2024, Month: 3}, rec.Period)

	in.Text = "VALOR TOTAL DO SERVIÇO R$ 1.000,00"
	rec, _ = Run(in)
	assert.Equal(t, document.Period{Year: 2024, Month: 5}, rec.Period)
}

func TestRunInvoiceFilenameNumberFallback(t *testing.T) {
	in := Input{
		Family:   constants.FamilyInvoice,
		Text:     "VALOR TOTAL DO SERVIÇO R$ 2.500,00",
		Path:     "contratada/NOTA FISCAL/NFSE 321 COMP 04-2024.pdf",
		EntityID: "2",
		SiteCNO:  siteCNO,
		Window:   testWindow,
	}
	rec, ok := Run(in)
	require.True(t, ok)
	require.NotNil(t, rec.DocNumber)
	assert.Equal(t, 321, *rec.DocNumber)

	// An in-document number always beats the filename.
	in.Text = "Número da Nota\n0099\n" + in.Text
	rec, _ = Run(in)
	require.NotNil(t, rec.DocNumber)
	assert.Equal(t, 99, *rec.DocNumber)
}

func TestRunInvoiceCollectsReviewNotes(t *testing.T) {
	in := Input{
		Family:   constants.FamilyInvoice,
		Text:     "SERVIÇOS DE VIGILÂNCIA\nVALOR SERVIÇO (R$)  ISS (R$)\n10.000,00  500,00\nINSS (R$)   IR (R$)\n1.100,00  0,00\n",
		Path:     "contratada/NOTA FISCAL/NFSE 4 COMP 02-2024.pdf",
		EntityID: "2",
		SiteCNO:  siteCNO,
		Window:   testWindow,
	}
	rec, ok := Run(in)
	require.True(t, ok)
	assert.Equal(t, constants.SubtypeSecurity, rec.Subtype)
	assert.Contains(t, rec.Note, "INSS retido em nota de segurança")
}
