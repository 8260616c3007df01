package pipeline

import (
	"log/slog"

	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/reconcile"
)

// ReconcileState walks a family's extracted state against the ledger and
// performs the safe writes: empty or zero cells get the extracted value,
// agreeing cells are left alone, conflicts are highlighted and queued, OCR
// zeros are highlighted for review. State entries gain their ledger column
// reference as they are matched.
func ReconcileState(site *common.SiteConfig, book LedgerBook, st document.State, q *reconcile.Queue, logger *slog.Logger) (reconcile.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report reconcile.Report

	for _, entityID := range site.EntityIDs() {
		months, ok := st[entityID]
		if !ok {
			continue
		}
		row := site.Row(entityID)
		name, _ := site.Contractor(entityID)

		for _, key := range document.SortedPeriodKeys(months) {
			entry := months[key]
			period, err := document.ParsePeriodKey(key)
			if err != nil {
				logger.Warn("reconcile.bad_period_key", "entity", entityID, "key", key)
				continue
			}
			col := site.Column(period)
			if col == "" || row == 0 {
				continue
			}

			ledgerValue, err := book.Value(col, row)
			if err != nil {
				logger.Warn("reconcile.cell_unreadable", "col", col, "row", row, "error", err)
				continue
			}

			outcome := reconcile.Compare(ledgerValue, entry)
			ch := reconcile.Change{
				EntityID:   entityID,
				Name:       name.Name,
				Period:     period,
				Column:     col,
				Row:        row,
				Method:     entry.Method,
				SourcePath: entry.SourcePath,
			}
			if entry.Value != nil {
				ch.Value = *entry.Value
			}

			switch outcome {
			case reconcile.OutcomeApply:
				if err := book.Write(col, row, ch.Value); err != nil {
					return report, err
				}
			case reconcile.OutcomeSuspiciousZero:
				if err := book.MarkSuspicious(col, row); err != nil {
					return report, err
				}
			case reconcile.OutcomeDiverged:
				if err := book.MarkDivergence(col, row, *ledgerValue, ch.Value); err != nil {
					return report, err
				}
			}

			var lv float64
			if ledgerValue != nil {
				lv = *ledgerValue
			}
			report.Add(outcome, ch, lv)

			entry.Column = col
			months[key] = entry
		}
	}

	q.Absorb(report.Divergences)

	logger.Info("reconcile.done",
		"applied", len(report.Changes),
		"divergences", len(report.Divergences),
		"suspicious", len(report.Suspicious),
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
	)
	return report, nil
}

// ApplyResolved writes every divergence resolved as accept_extracted into
// the ledger and marks it applied. Returns how many cells were written.
func ApplyResolved(book LedgerBook, q *reconcile.Queue, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	applied := 0
	for _, d := range q.Applicable() {
		if err := book.Write(d.Column, d.Row, d.ExtractedValue); err != nil {
			return applied, err
		}
		if err := d.MarkApplied(); err != nil {
			return applied, err
		}
		applied++
		logger.Info("reconcile.divergence_applied",
			"entity", d.EntityID,
			"period", d.Period.Key(),
			"value", d.ExtractedValue,
		)
	}
	return applied, nil
}
