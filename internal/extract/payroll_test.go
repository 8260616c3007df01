package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteCNO = "123456789012"

func TestHeadcountFGTSDigital(t *testing.T) {
	text := "Guia do FGTS Digital\n" +
		"Competência Trabalhadores Valor\n" +
		"08/2024 27 35.412,88 \n"
	res, ok := Headcount(text, siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 27, res.Count)
	assert.Equal(t, "fgts_digital", res.Variant)
}

func TestHeadcountDetalheTomador(t *testing.T) {
	// Page 2 carries this site's registration; page 1 belongs to another
	// tomador and must be ignored.
	text := "Detalhe da Guia\nTomador: 99.999.999/0001-99\nQtd Trabalhadores: 99\n" +
		"\f" +
		"Detalhe da Guia\nCNO: 12.3456.7890/12\nQtd Trabalhadores: 14\n"
	res, ok := Headcount(text, siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 14, res.Count)
	assert.Equal(t, "fgts_detalhe_tomador", res.Variant)
}

func TestHeadcountSefipClassico(t *testing.T) {
	text := "SEFIP\n\fRESUMO DO FECHAMENTO - TOMADOR/OBRA\n" +
		"CNO 12.3456.7890/12\n" +
		"CATEG  QTD   REMUNERACAO\n" +
		"01 18 54.210,33\n"
	res, ok := Headcount(text, siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 18, res.Count)
	assert.Equal(t, "sefip_classico", res.Variant)
}

func TestHeadcountTotais(t *testing.T) {
	text := "RELATORIO RE\nTOTAIS: 42\n"
	res, ok := Headcount(text, siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 42, res.Count)
	assert.Equal(t, "sefip_totais", res.Variant)
}

func TestHeadcountNoMatch(t *testing.T) {
	_, ok := Headcount("documento sem nada de util", siteCNO, false)
	assert.False(t, ok)
}

func TestHeadcountOCRVariants(t *testing.T) {
	t.Run("qtd trabalhadores", func(t *testing.T) {
		res, ok := Headcount("Qtd Trabalhadores FGTS: 9", siteCNO, true)
		require.True(t, ok)
		assert.Equal(t, 9, res.Count)
		assert.Equal(t, "ocr_fgts", res.Variant)
	})

	t.Run("origem gestao de guias", func(t *testing.T) {
		res, ok := Headcount("12 Origem: Gestão de Guias", siteCNO, true)
		require.True(t, ok)
		assert.Equal(t, 12, res.Count)
	})

	t.Run("sefip row with l for 1", func(t *testing.T) {
		res, ok := Headcount("0l 23 18.400,00", siteCNO, true)
		require.True(t, ok)
		assert.Equal(t, 23, res.Count)
		assert.Equal(t, "ocr_sefip", res.Variant)
	})

	t.Run("sefip zero is a reading, not a miss", func(t *testing.T) {
		text := "RESUMO DO FECHAMENTO\nCNO 12.3456.7890/12\n01 0 0,00\n"
		res, ok := Headcount(text, siteCNO, true)
		require.True(t, ok)
		assert.Equal(t, 0, res.Count)
		assert.Equal(t, "ocr_sefip", res.Variant)
	})

	t.Run("fgts zero falls through", func(t *testing.T) {
		// A guia never covers zero workers; the misread must not win over
		// the sefip row further down.
		text := "Guia do FGTS Digital\n08/2024 0 0,00 \n01 7 9.100,00\n"
		res, ok := Headcount(text, siteCNO, true)
		require.True(t, ok)
		assert.Equal(t, 7, res.Count)
		assert.Equal(t, "ocr_sefip", res.Variant)

		_, ok = Headcount("Qtd Trabalhadores FGTS: 0", siteCNO, true)
		assert.False(t, ok)
	})
}

func TestHeadcountZeroNative(t *testing.T) {
	text := "SEFIP\n\fRESUMO DO FECHAMENTO - TOMADOR/OBRA\n" +
		"CNO 12.3456.7890/12\n" +
		"01 0 0,00\n"
	res, ok := Headcount(text, siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, "sefip_classico", res.Variant)
}

func TestHeadcountExtratoNeedsGuiaMarker(t *testing.T) {
	// Stray counter text outside the guia layouts must not preempt the
	// sefip cascades.
	_, ok := Headcount("RELATORIO QUALQUER\nQtd Trabalhadores FGTS: 9\n", siteCNO, false)
	assert.False(t, ok)

	res, ok := Headcount("Relatório da Guia\nQtd Trabalhadores FGTS: 9\n", siteCNO, false)
	require.True(t, ok)
	assert.Equal(t, 9, res.Count)
	assert.Equal(t, "fgts_extrato", res.Variant)
}

func TestCleanID(t *testing.T) {
	assert.Equal(t, "123456789012", cleanID("12.3456.7890/12"))
	assert.Equal(t, "123456789012", cleanID("12 3456 7890-12"))
}
