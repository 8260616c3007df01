package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Payroll documents come in several report layouts, each with its own place
// for the worker count. The heuristics below are ordered from the most
// specific layout to the loosest catch-all; the first match that validates
// wins and its name becomes the provenance variant.

var (
	fgtsDigitalRowRe   = regexp.MustCompile(`(\d{2}/\d{4})\s+(\d+)\s+[\d.,]+\s`)
	fgtsDigitalAltRe   = regexp.MustCompile(`(?s)Trabalhadores.*?\n.*?(\d{2}/\d{4})\s+(\d+)`)
	qtdTrabalhadoresRe = regexp.MustCompile(`(?i)Qtd\.?\s*Trabalhadores:?\s*(\d+)`)
	qtdTrabFGTSRe      = regexp.MustCompile(`(?i)Qtd\.?\s*Trabalhadores(?:\s+FGTS)?:\s*(\d+)`)
	resumoRowRe        = regexp.MustCompile(`\b01\s+(\d+)\s+[\d.,]+`)
	totaisRe           = regexp.MustCompile(`(?i)TOTAIS:\s*(\d+)`)

	// OCR-degraded forms. The engine confuses 1 and l in the category column.
	ocrQtdTrabRe   = regexp.MustCompile(`(?i)Qtd\.?\s*Trabalhadores\s*(?:FGTS)?:?\s*(\d+)`)
	ocrOrigemRe    = regexp.MustCompile(`\b(\d{1,3})\s+Origem:\s*Gest[aã]o\s+de\s+Guias`)
	ocrResumoRowRe = regexp.MustCompile(`\b0[1l]\s+(\d+)\s+[\d.,]+`)

	nonAlnumRe = regexp.MustCompile(`[./\-\s]`)
)

// HeadcountResult carries the extracted worker count and the layout variant
// that produced it.
type HeadcountResult struct {
	Count   int
	Variant string
}

type headcountHeuristic struct {
	name string
	fn   func(pages []string, full, cno string) (int, bool)
}

var nativeHeadcountHeuristics = []headcountHeuristic{
	{"fgts_digital", headcountFGTSDigital},
	{"fgts_detalhe_tomador", headcountDetalheTomador},
	{"fgts_extrato", headcountExtrato},
	{"sefip_classico", headcountSefipClassico},
	{"sefip_totais", headcountTotais},
	{"nearby_page", headcountNearbyPage},
}

var ocrHeadcountHeuristics = []headcountHeuristic{
	{"ocr_fgts", headcountOCRFGTS},
	{"ocr_fgts_digital", headcountOCRFGTSDigital},
	{"ocr_sefip", headcountOCRSefip},
	{"ocr_totais", headcountTotais},
}

// Headcount runs the layout cascade for payroll text. ocr selects the
// OCR-tolerant variants. cno is the site registration used to locate the
// page belonging to this site in multi-site reports. A zero count from the
// sefip and totais layouts is a real reading and is returned as such; the
// reconcile pass decides whether to trust it.
func Headcount(text, cno string, ocr bool) (HeadcountResult, bool) {
	pages := strings.Split(text, "\f")
	heuristics := nativeHeadcountHeuristics
	if ocr {
		heuristics = ocrHeadcountHeuristics
	}
	for _, h := range heuristics {
		if n, ok := h.fn(pages, text, cno); ok {
			return HeadcountResult{Count: n, Variant: h.name}, true
		}
	}
	return HeadcountResult{}, false
}

// cleanID strips separators so "12.345.67890/12" matches "123456789012"
// regardless of how the report formats the registration.
func cleanID(s string) string {
	return nonAlnumRe.ReplaceAllString(s, "")
}

func pageWithID(pages []string, cno string) int {
	want := cleanID(cno)
	if want == "" {
		return -1
	}
	for i, p := range pages {
		if strings.Contains(cleanID(p), want) {
			return i
		}
	}
	return -1
}

func headcountFGTSDigital(_ []string, full, _ string) (int, bool) {
	if !strings.Contains(full, "Guia do FGTS Digital") && !strings.Contains(full, "GFD") {
		return 0, false
	}
	if m := fgtsDigitalRowRe.FindStringSubmatch(full); m != nil {
		return atoiOK(m[2])
	}
	if m := fgtsDigitalAltRe.FindStringSubmatch(full); m != nil {
		return atoiOK(m[2])
	}
	return 0, false
}

func headcountDetalheTomador(pages []string, full, cno string) (int, bool) {
	if !strings.Contains(full, "Detalhe da Guia") && !strings.Contains(full, "Relatório da Guia") {
		return 0, false
	}
	i := pageWithID(pages, cno)
	if i < 0 {
		return 0, false
	}
	if m := qtdTrabalhadoresRe.FindStringSubmatch(pages[i]); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

// headcountExtrato is the loose fallback for the guia layouts when the
// tomador page lookup fails; other layouts skip it so stray counter text
// cannot preempt the sefip cascades.
func headcountExtrato(_ []string, full, _ string) (int, bool) {
	if !strings.Contains(full, "Detalhe da Guia") && !strings.Contains(full, "Relatório da Guia") {
		return 0, false
	}
	if m := qtdTrabFGTSRe.FindStringSubmatch(full); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

func headcountSefipClassico(pages []string, _, cno string) (int, bool) {
	want := cleanID(cno)
	for _, p := range pages {
		if !strings.Contains(p, "RESUMO DO FECHAMENTO") {
			continue
		}
		if want != "" && !strings.Contains(cleanID(p), want) {
			continue
		}
		if m := resumoRowRe.FindStringSubmatch(p); m != nil {
			return atoiOK(m[1])
		}
	}
	return 0, false
}

func headcountTotais(_ []string, full, _ string) (int, bool) {
	if m := totaisRe.FindStringSubmatch(full); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

// headcountNearbyPage combines the page carrying the site registration with
// its neighbours; some reports place the summary table on the page after the
// identification header.
func headcountNearbyPage(pages []string, _, cno string) (int, bool) {
	i := pageWithID(pages, cno)
	if i < 0 {
		return 0, false
	}
	lo, hi := i-1, i+1
	if lo < 0 {
		lo = 0
	}
	if hi >= len(pages) {
		hi = len(pages) - 1
	}
	window := strings.Join(pages[lo:hi+1], "\n")
	if m := resumoRowRe.FindStringSubmatch(window); m != nil {
		return atoiOK(m[1])
	}
	if m := qtdTrabalhadoresRe.FindStringSubmatch(window); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

// The FGTS guia layouts never cover zero workers, so a zero there is a
// misread digit and the cascade falls through to the next variant.
func headcountOCRFGTS(_ []string, full, _ string) (int, bool) {
	if m := ocrQtdTrabRe.FindStringSubmatch(full); m != nil {
		if n, ok := atoiOK(m[1]); ok && n > 0 {
			return n, true
		}
	}
	if m := ocrOrigemRe.FindStringSubmatch(full); m != nil {
		if n, ok := atoiOK(m[1]); ok && n > 0 {
			return n, true
		}
	}
	return 0, false
}

func headcountOCRFGTSDigital(pages []string, full, cno string) (int, bool) {
	n, ok := headcountFGTSDigital(pages, full, cno)
	return n, ok && n > 0
}

func headcountOCRSefip(_ []string, full, _ string) (int, bool) {
	if m := ocrResumoRowRe.FindStringSubmatch(full); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

func atoiOK(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
