package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/discovery"
	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/state"
)

// DocumentProcessor is what Batch needs from the per-document stage. Tests
// substitute a canned implementation; production wires *Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, doc document.SourceDocument, family constants.Family) document.Record
}

// LedgerBook is the slice of the workbook the pipeline touches.
type LedgerBook interface {
	Value(col string, row int) (*float64, error)
	Name(row int) string
	Write(col string, row int, v float64) error
	MarkDivergence(col string, row int, ledgerValue, extractedValue float64) error
	MarkSuspicious(col string, row int) error
}

// BatchOptions tune a run.
type BatchOptions struct {
	// Force reprocesses documents even when the ledger already has a value
	// for their cell.
	Force bool
	// RetryImageOnly restricts the run to documents whose previous attempt
	// ended as empty_text, to retry them through OCR after a tooling fix.
	RetryImageOnly bool
}

// RunStats summarizes one extraction pass.
type RunStats struct {
	Discovered      int
	Processed       int
	SkippedExisting int
	ValuesFound     int
	NativeValues    int
	OCRValues       int
	Failures        int
}

// Batch drives a whole family through discovery, extraction and the state
// store. The ledger is only read here (for the incremental skip); writes
// happen in the reconcile pass.
type Batch struct {
	site   *common.SiteConfig
	source discovery.Source
	proc   DocumentProcessor
	store  state.Store
	book   LedgerBook
	logger *slog.Logger
	opts   BatchOptions
}

func NewBatch(site *common.SiteConfig, source discovery.Source, proc DocumentProcessor, store state.Store, book LedgerBook, opts BatchOptions, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{site: site, source: source, proc: proc, store: store, book: book, logger: logger, opts: opts}
}

// Run processes every discovered document of a family and returns the pass
// statistics. The state file is saved after each document so an interrupted
// run resumes where it stopped.
func (b *Batch) Run(ctx context.Context, family constants.Family) (*RunStats, error) {
	docs, err := b.source.Documents(family)
	if err != nil {
		return nil, fmt.Errorf("discover %s documents: %w", family, err)
	}

	st, err := b.store.Load(string(family))
	if err != nil {
		return nil, err
	}

	stats := &RunStats{Discovered: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if b.skip(st, doc) {
			stats.SkippedExisting++
			continue
		}

		rec := b.proc.Process(ctx, doc, family)
		stats.Processed++
		if rec.Method.IsFailure() {
			stats.Failures++
		} else {
			stats.ValuesFound++
			if rec.Method.IsOCR() {
				stats.OCRValues++
			} else {
				stats.NativeValues++
			}
		}

		if rec.Period.IsZero() {
			b.logger.Warn("batch.period_unknown", "path", doc.Path, "method", rec.Method)
			continue
		}

		entry := document.StateEntry{
			Value:      rec.LedgerValue(),
			Method:     rec.Method,
			SourcePath: rec.SourcePath,
		}
		if months, ok := st[rec.EntityID]; ok {
			months[rec.Period.Key()] = entry
		} else {
			st = state.Merge(st, document.State{rec.EntityID: {rec.Period.Key(): entry}})
		}
		if err := b.store.Save(string(family), st); err != nil {
			return stats, err
		}

		b.logger.Info("batch.document_done",
			"path", doc.Path,
			"entity", rec.EntityID,
			"period", rec.Period.Key(),
			"method", rec.Method,
		)
	}

	b.logger.Info("batch.done",
		"family", family,
		"discovered", stats.Discovered,
		"processed", stats.Processed,
		"skipped_existing", stats.SkippedExisting,
		"values", stats.ValuesFound,
		"native", stats.NativeValues,
		"ocr", stats.OCRValues,
		"failures", stats.Failures,
	)
	return stats, nil
}

// skip decides whether a document's cell is already settled. A non-zero
// ledger value means a previous run (or a human) filled it in; reprocessing
// would at best agree and at worst raise a spurious divergence.
func (b *Batch) skip(st document.State, doc document.SourceDocument) bool {
	if b.opts.Force || doc.Period.IsZero() {
		return false
	}

	if b.opts.RetryImageOnly {
		// Only documents that previously produced no text are retried.
		prev, ok := st[doc.EntityID][doc.Period.Key()]
		return !ok || prev.Method != constants.MethodEmptyText
	}

	col := b.site.Column(doc.Period)
	row := b.site.Row(doc.EntityID)
	if col == "" || row <= 0 {
		return false
	}
	v, err := b.book.Value(col, row)
	if err != nil {
		b.logger.Warn("batch.ledger_read_failed", "col", col, "row", row, "error", err)
		return false
	}
	return v != nil && *v != 0
}
