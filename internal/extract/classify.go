package extract

import (
	"regexp"

	"github.com/obrasoft/docledger/constants"
)

// Security-service invoices follow different retention rules than
// construction ones, so the plausibility checks need to know which kind this
// is. 11.02 is the municipal service code for vigilância.
var securityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)VIGIL[AÂ]NCIA`),
	regexp.MustCompile(`(?i)SEGURAN[CÇ]A`),
	regexp.MustCompile(`(?i)MONITORAMENTO`),
	regexp.MustCompile(`11\.02`),
	regexp.MustCompile(`(?i)\bRONDA\b`),
}

// ClassifySubtype decides the service subtype from the invoice text.
// Construction is the default when no security marker appears.
func ClassifySubtype(text string) constants.Subtype {
	for _, re := range securityPatterns {
		if re.MatchString(text) {
			return constants.SubtypeSecurity
		}
	}
	return constants.SubtypeConstruction
}
