package discovery

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/extract"
)

// Source yields the candidate documents for one family. The filesystem
// implementation below is the normal one; tests substitute their own.
type Source interface {
	Documents(family constants.Family) ([]document.SourceDocument, error)
}

// nonTargetNames marks payroll-folder noise: guides, receipts and protocol
// files that share the folder with the report we want but never carry a
// headcount.
var nonTargetNames = []string{
	"boleto fgts",
	"credito inss",
	"compensacao inss",
	"dctfweb",
	"folha de pagamento",
	"folha de ponto",
	"guia do fgts",
	"holerite",
	"comprovante de declaracao",
	"comprovante de pix",
	"protocolo de envio",
	"parcelamento",
	"relatorio analitico da gps",
}

// payrollPriority orders filename markers from the most to the least
// specific report kind. When a period folder holds several candidates, the
// one matching the earliest marker is processed.
var payrollPriority = []string{
	"relatorio re",
	"re.pdf",
	"sefip completa extrato fgts",
	"sefip completa relatorio fgts",
	"relatorio fgts",
	"sefip completa",
	"sefip comp",
	"sefip",
	"sefipe",
	"fgts",
}

// FSSource discovers documents under the site folder laid out as
// <base>/<contractor>/<subfolder>/<period>/file.pdf, tolerating the period
// appearing in the filename instead of a folder.
type FSSource struct {
	site   *common.SiteConfig
	logger *slog.Logger
}

func NewFSSource(site *common.SiteConfig, logger *slog.Logger) *FSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSSource{site: site, logger: logger}
}

func (s *FSSource) Documents(family constants.Family) ([]document.SourceDocument, error) {
	subfolders := s.site.PayrollSubfolders
	if family == constants.FamilyInvoice {
		subfolders = s.site.InvoiceSubfolders
	}
	window := extract.YearWindow{Min: s.site.MinYear, Max: s.site.MaxYear}

	var out []document.SourceDocument
	for _, c := range s.site.Contractors {
		root := filepath.Join(s.site.BaseDir, c.Folder)
		var candidates []document.SourceDocument

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Contractor folders are hand-maintained; a missing or
				// unreadable one is reported, not fatal.
				s.logger.Warn("discovery.walk_error", "path", path, "error", err)
				return fs.SkipDir
			}
			if d.IsDir() || !constants.IsPDF(d.Name()) {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			if !underSubfolder(rel, subfolders) {
				return nil
			}
			if family == constants.FamilyPayroll && isNonTarget(d.Name()) {
				return nil
			}
			period, ok := extract.PeriodFromPath(rel, window)
			if !ok {
				period, _ = extract.PeriodFromFilename(d.Name(), window)
			}
			candidates = append(candidates, document.SourceDocument{
				Path:     path,
				EntityID: c.ID,
				Period:   period,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}

		if family == constants.FamilyPayroll {
			candidates = bestPerPeriod(candidates)
		}
		out = append(out, candidates...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	s.logger.Info("discovery.done", "family", family, "documents", len(out))
	return out, nil
}

// underSubfolder reports whether the relative path passes through one of the
// configured subfolder names, compared accent- and case-insensitively.
func underSubfolder(rel string, subfolders []string) bool {
	segs := strings.Split(filepath.ToSlash(rel), "/")
	for _, seg := range segs[:max(len(segs)-1, 0)] {
		for _, want := range subfolders {
			if extract.Fold(seg) == extract.Fold(want) {
				return true
			}
		}
	}
	return false
}

func isNonTarget(name string) bool {
	folded := extract.Fold(name)
	for _, marker := range nonTargetNames {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// bestPerPeriod keeps one payroll candidate per (entity, period): the one
// whose filename matches the earliest priority marker; ties keep the first
// seen. Documents with an unknown period all pass through, the extraction
// stage resolves their competência from the text.
func bestPerPeriod(candidates []document.SourceDocument) []document.SourceDocument {
	best := map[string]document.SourceDocument{}
	rank := map[string]int{}
	var unknown []document.SourceDocument

	for _, cand := range candidates {
		if cand.Period.IsZero() {
			unknown = append(unknown, cand)
			continue
		}
		key := cand.EntityID + "|" + cand.Period.Key()
		r := priorityRank(cand.Path)
		if cur, ok := best[key]; !ok || r < rank[key] || (r == rank[key] && cand.Path < cur.Path) {
			best[key] = cand
			rank[key] = r
		}
	}

	out := make([]document.SourceDocument, 0, len(best)+len(unknown))
	for _, cand := range best {
		out = append(out, cand)
	}
	return append(out, unknown...)
}

func priorityRank(path string) int {
	folded := extract.Fold(filepath.Base(path))
	for i, marker := range payrollPriority {
		if strings.Contains(folded, marker) {
			return i
		}
	}
	return len(payrollPriority)
}
