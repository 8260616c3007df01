package extract

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/obrasoft/docledger/internal/document"
)

// YearWindow bounds the plausible years for a period. OCR noise produces
// readings like 13/2024 or 08/0203; anything outside the window is rejected
// and the next heuristic tried.
type YearWindow struct {
	Min int
	Max int
}

// Valid reports whether p is a real month inside the window.
func (w YearWindow) Valid(p document.Period) bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= w.Min && p.Year <= w.Max
}

var (
	monthYearRe    = regexp.MustCompile(`(\d{1,2})\s*/\s*(\d{4})`)
	dayMonthYearRe = regexp.MustCompile(`\d{1,2}/(\d{1,2})/(\d{4})`)
	filenameCompRe = regexp.MustCompile(`(?i)(?:COMP\s*)?(\d{1,2})\s*[-.]\s*(\d{4})`)
	folderSpacedRe = regexp.MustCompile(`^(\d{1,2})\s+(\d{4})$`)
	folderDashedRe = regexp.MustCompile(`^(\d{1,2})-(\d{4})$`)
	yearOnlyRe     = regexp.MustCompile(`^(20\d{2})$`)
	monthOnlyRe    = regexp.MustCompile(`^(\d{1,2})$`)
	competenciaRe  = regexp.MustCompile(`(?i)compet[eê]ncia`)
	periodoLabelRe = regexp.MustCompile(`(?i)\bper[ií]odo\b`)
	monthLabelRe   = regexp.MustCompile(`(?i)\b(?:MES|M[EÊ]S|COMP)\b`)
	fatoGeradorRe  = regexp.MustCompile(`(?i)data\s+fato\s+gerador`)
	referenteRe    = regexp.MustCompile(`(?i)\breferente\b`)
)

// PeriodFromText walks the competência heuristics in order and returns the
// first reading that lands inside the window.
func PeriodFromText(text string, w YearWindow) (document.Period, bool) {
	lines := strings.Split(text, "\n")

	type labelRule struct {
		label *regexp.Regexp
		// lookahead is how many lines past the label line may carry the value
		lookahead int
		dated     bool // value is DD/MM/YYYY instead of MM/YYYY
	}
	rules := []labelRule{
		{competenciaRe, 2, false},
		{periodoLabelRe, 1, false},
		{monthLabelRe, 1, false},
		{fatoGeradorRe, 1, true},
		{referenteRe, 1, false},
	}

	for _, rule := range rules {
		for i, line := range lines {
			if !rule.label.MatchString(line) {
				continue
			}
			for j := i; j <= i+rule.lookahead && j < len(lines); j++ {
				var p document.Period
				var ok bool
				if rule.dated {
					p, ok = matchPeriod(dayMonthYearRe, lines[j])
				} else {
					p, ok = matchPeriod(monthYearRe, lines[j])
				}
				if ok && w.Valid(p) {
					return p, true
				}
			}
		}
	}
	return document.Period{}, false
}

// PeriodFromFilename reads a competência out of names like
// "NFSE 123 COMP 08-2024.pdf". Used only when the document text yields none.
func PeriodFromFilename(name string, w YearWindow) (document.Period, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if p, ok := matchPeriod(filenameCompRe, base); ok && w.Valid(p) {
		return p, true
	}
	return document.Period{}, false
}

// PeriodFromPath reads a competência from folder naming conventions such as
// "08 2024", "08-2024", or nested "2024/08" directories.
func PeriodFromPath(path string, w YearWindow) (document.Period, bool) {
	dir := filepath.Dir(path)
	segs := strings.Split(filepath.ToSlash(dir), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segs[i])
		if p, ok := matchPeriod(folderSpacedRe, seg); ok && w.Valid(p) {
			return p, true
		}
		if p, ok := matchPeriod(folderDashedRe, seg); ok && w.Valid(p) {
			return p, true
		}
		// "2024/08" style: month folder nested inside a year folder
		if i > 0 && monthOnlyRe.MatchString(seg) {
			if ym := yearOnlyRe.FindStringSubmatch(strings.TrimSpace(segs[i-1])); ym != nil {
				month, _ := strconv.Atoi(seg)
				year, _ := strconv.Atoi(ym[1])
				p := document.Period{Year: year, Month: month}
				if w.Valid(p) {
					return p, true
				}
			}
		}
	}
	return document.Period{}, false
}

func matchPeriod(re *regexp.Regexp, s string) (document.Period, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return document.Period{}, false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	return document.Period{Year: year, Month: month}, true
}
