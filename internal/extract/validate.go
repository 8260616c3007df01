package extract

import (
	"fmt"

	"github.com/obrasoft/docledger/constants"
)

// CheckWithholdings compares the extracted retentions against the plausible
// bands for the service subtype. Findings are review notes, never
// rejections; a rate outside the band can be legitimate but deserves a
// human look.
func CheckWithholdings(subtype constants.Subtype, total, inss, iss *float64) []string {
	var notes []string
	if total == nil || *total <= 0 {
		return notes
	}

	if inss != nil {
		rate := *inss / *total * 100
		switch subtype {
		case constants.SubtypeSecurity:
			// Security contracts usually carry no INSS retention at all.
			if *inss > 0 {
				notes = append(notes, fmt.Sprintf("INSS retido em nota de segurança: %.2f%%", rate))
			}
		default:
			switch {
			case *inss == 0:
				notes = append(notes, "INSS zerado em nota de construção")
			case rate >= 10 && rate <= 12:
				// standard 11% retention
			case rate >= 3 && rate <= 4:
				// Simples Nacional band
			default:
				notes = append(notes, fmt.Sprintf("INSS fora das faixas esperadas: %.2f%%", rate))
			}
		}
	}

	if iss != nil && *iss > 0 {
		rate := *iss / *total * 100
		var lo, hi float64
		if subtype == constants.SubtypeSecurity {
			lo, hi = 4.5, 5.5
		} else {
			lo, hi = 1, 6
		}
		if rate < lo || rate > hi {
			notes = append(notes, fmt.Sprintf("ISS fora da faixa esperada: %.2f%%", rate))
		}
	}

	return notes
}
