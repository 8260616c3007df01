package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// maxDocNumber is the exclusive upper bound for plausible invoice numbers.
// Larger readings are almost always a tax-authority verification code picked
// up by mistake.
const maxDocNumber = 100000

var (
	cnpjRe            = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	trailingDigitsRe  = regexp.MustCompile(`(\d+)\s*$`)
	notaFiscalLabelRe = regexp.MustCompile(`(?i)N[ºo°]?\s*da\s+Nota\s+Fiscal`)
	numeroNotaBlockRe = regexp.MustCompile(`(?i)N[úu]mero\s+da\s+Nota\s*\n\s*0*(\d+)`)
	filenameNFRe      = regexp.MustCompile(`(?i)(?:NFSE?|NF)\s*(\d+)`)
	razaoSocialRe     = regexp.MustCompile(`(?i)Raz[aã]o\s+Social:?\s*(.+)`)
	cnoLabelRe        = regexp.MustCompile(`(?i)(?:CNO|C\.N\.O\.?|Matr[ií]cula\s+(?:CEI|da\s+Obra))[:\s]+([\d./-]{8,})`)
	inlineTotalRe     = regexp.MustCompile(`(?i)VALOR\s+TOTAL\s+(?:DO\s+)?SERVI[CÇ]O\s*R?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`)
	issLabelRe        = regexp.MustCompile(`(?i)Valor\s+do\s+ISS(?:QN)?`)
	aliquotaRe        = regexp.MustCompile(`(?i)AL[ÍI]QUOTA`)
	inssHeaderRe      = regexp.MustCompile(`(?i)INSS\s*\(R\$\)`)
	inssBlockRe       = regexp.MustCompile(`(?i)INSS\s*\(R\$\)\s*\n\s*(\d{1,3}(?:\.\d{3})*,\d{2})`)
	substituiRe       = regexp.MustCompile(`(?is)substitui.*?N[Fº°]\s*[ºª]?\s*0*(\d+)`)
	looseNumberRe     = regexp.MustCompile(`\b0*(\d+)\b`)
	prestadorRe       = regexp.MustCompile(`(?i)PRESTADOR`)
	tomadorRe         = regexp.MustCompile(`(?i)TOMADOR`)
)

// InvoiceFields holds everything readable off a service invoice. Fields the
// cascades could not resolve stay nil or empty; each is extracted
// independently so a torn header does not void the rest of the document.
type InvoiceFields struct {
	DocNumber        *int
	ContractorName   string
	ContractorTaxID  string
	SiteRegistration string
	Total            *float64
	ISS              *float64
	INSS             *float64
	Note             string
	Variant          string
}

// Invoice runs all invoice field cascades on the document text. siteCNO is
// the expected site registration, used to disambiguate registration readings.
func Invoice(text, siteCNO string) InvoiceFields {
	lines := strings.Split(text, "\n")
	f := InvoiceFields{}

	f.DocNumber = invoiceNumber(lines, text)
	f.ContractorName = razaoSocial(lines)
	f.ContractorTaxID = counterpartyTaxID(text)
	f.SiteRegistration = siteRegistration(text, siteCNO)
	f.Total, f.ISS, f.Variant = totalAndISS(lines, text)
	if f.ISS == nil {
		f.ISS = issValue(lines, text)
	}
	f.INSS = inssValue(lines, text)
	f.Note = substitutionNote(text)

	return f
}

// DocNumberFromFilename is the last-resort invoice number source, used only
// when the document text yields nothing.
func DocNumberFromFilename(name string) *int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := filenameNFRe.FindStringSubmatch(base); m != nil {
		if n, ok := atoiOK(m[1]); ok && n > 0 && n < maxDocNumber {
			return &n
		}
	}
	return nil
}

func invoiceNumber(lines []string, text string) *int {
	// Municipal layouts put the number at the end of the recolhimento line.
	for _, line := range lines {
		if !ContainsFolded(line, "Tipo de Recolhimento") && !ContainsFolded(line, "Local de Recolhimento") {
			continue
		}
		if m := trailingDigitsRe.FindStringSubmatch(line); m != nil {
			if n, ok := atoiOK(m[1]); ok && n > 0 && n < maxDocNumber {
				return &n
			}
		}
	}
	// "Nº da Nota Fiscal" with the value on the same line or shortly below.
	for i, line := range lines {
		if !notaFiscalLabelRe.MatchString(line) {
			continue
		}
		for j := i; j <= i+2 && j < len(lines); j++ {
			candidate := lines[j]
			if j == i {
				candidate = notaFiscalLabelRe.ReplaceAllString(candidate, "")
			}
			if m := looseNumberRe.FindStringSubmatch(candidate); m != nil {
				if n, ok := atoiOK(m[1]); ok && n > 0 && n < maxDocNumber {
					return &n
				}
			}
		}
	}
	if m := numeroNotaBlockRe.FindStringSubmatch(text); m != nil {
		if n, ok := atoiOK(m[1]); ok && n > 0 && n < maxDocNumber {
			return &n
		}
	}
	return nil
}

func razaoSocial(lines []string) string {
	for _, line := range lines {
		m := razaoSocialRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		// Some layouts append the CNPJ on the same line.
		name = strings.TrimSpace(cnpjRe.ReplaceAllString(name, ""))
		name = strings.TrimRight(name, " -–")
		if len(name) > 3 {
			return name
		}
	}
	return ""
}

// counterpartyTaxID prefers the CNPJ inside the PRESTADOR section so the
// issuing contractor is never confused with the site owner listed as TOMADOR.
func counterpartyTaxID(text string) string {
	var start, end = -1, -1
	if loc := prestadorRe.FindStringIndex(text); loc != nil {
		start = loc[0]
	}
	if loc := tomadorRe.FindStringIndex(text); loc != nil {
		end = loc[0]
	}
	if start >= 0 && end > start {
		if m := cnpjRe.FindString(text[start:end]); m != "" {
			return m
		}
	}
	return cnpjRe.FindString(text)
}

func siteRegistration(text, siteCNO string) string {
	if m := cnoLabelRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Fall back to matching the site registration's leading digits anywhere
	// in the document. Six digits is specific enough to avoid dates.
	clean := cleanID(siteCNO)
	if len(clean) >= 6 && strings.Contains(cleanID(text), clean[:6]) {
		return siteCNO
	}
	return ""
}

// totalAndISS reads the service value table: a header line naming both the
// service value and the ISS, followed by a row where the first number is the
// total and the last is the ISS.
func totalAndISS(lines []string, text string) (*float64, *float64, string) {
	for i, line := range lines {
		if !ContainsFolded(line, "VALOR SERVI") || !ContainsFolded(line, "ISS") {
			continue
		}
		for j := i + 1; j <= i+2 && j < len(lines); j++ {
			nums := findBRNumbers(lines[j])
			if len(nums) == 0 {
				continue
			}
			total, ok1 := ParseBRNumber(nums[0])
			if !ok1 {
				continue
			}
			var issPtr *float64
			if len(nums) > 1 {
				if iss, ok2 := ParseBRNumber(nums[len(nums)-1]); ok2 {
					issPtr = &iss
				}
			}
			return &total, issPtr, "header_table"
		}
	}
	if m := inlineTotalRe.FindStringSubmatch(text); m != nil {
		if total, ok := ParseBRNumber(m[1]); ok {
			return &total, nil, "inline_total"
		}
	}
	return nil, nil, ""
}

func issValue(lines []string, text string) *float64 {
	for _, line := range lines {
		if !issLabelRe.MatchString(line) {
			continue
		}
		nums := findBRNumbers(line)
		if len(nums) == 0 {
			continue
		}
		// Multi-column rows (deductions, calculation base) carry the ISS in
		// the fourth column.
		idx := 0
		if (ContainsFolded(line, "Dedu") || ContainsFolded(line, "Base de")) && len(nums) > 3 {
			idx = 3
		} else if len(nums) > 1 {
			idx = len(nums) - 1
		}
		if v, ok := ParseBRNumber(nums[idx]); ok {
			return &v
		}
	}
	// ALÍQUOTA .. ISS window: the value trails the rate inside a short span.
	if loc := aliquotaRe.FindStringIndex(text); loc != nil {
		window := text[loc[1]:]
		if len(window) > 200 {
			window = window[:200]
		}
		if strings.Contains(strings.ToUpper(window), "ISS") {
			if v, ok := lastBRNumber(window); ok {
				return &v
			}
		}
	}
	return nil
}

func inssValue(lines []string, text string) *float64 {
	for i, line := range lines {
		if !inssHeaderRe.MatchString(line) || !ContainsFolded(line, "IR (R$)") {
			continue
		}
		for j := i + 1; j <= i+2 && j < len(lines); j++ {
			nums := findBRNumbers(lines[j])
			if len(nums) == 0 {
				continue
			}
			// Federal retention rows list PIS, COFINS, INSS, IR in order.
			idx := 0
			if (ContainsFolded(line, "PIS") || ContainsFolded(line, "COFINS")) && len(nums) > 2 {
				idx = 2
			}
			if v, ok := ParseBRNumber(nums[idx]); ok {
				return &v // zero is a legitimate reading here
			}
		}
	}
	if m := inssBlockRe.FindStringSubmatch(text); m != nil {
		if v, ok := ParseBRNumber(m[1]); ok {
			return &v
		}
	}
	return nil
}

// substitutionNote flags invoices that replace a cancelled one, so the
// reviewer knows why the ledger cell changed twice in a month.
func substitutionNote(text string) string {
	if m := substituiRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("Substitui NF n%s", m[1])
	}
	return ""
}
