package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/acquire"
	"github.com/obrasoft/docledger/internal/discovery"
	"github.com/obrasoft/docledger/internal/ledger"
	"github.com/obrasoft/docledger/internal/pipeline"
	"github.com/obrasoft/docledger/internal/reconcile"
	"github.com/obrasoft/docledger/internal/state"
)

var (
	familyFlag     string
	forceFlag      bool
	retryImageFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process documents and reconcile the extracted values into the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		families, err := selectedFamilies()
		if err != nil {
			return err
		}

		cfg, site, stateDir, err := loadSite()
		if err != nil {
			return err
		}
		logger := slog.Default()

		store, err := state.NewFileStore(stateDir, logger)
		if err != nil {
			return err
		}
		book, err := ledger.Open(site.LedgerPath(), site.LedgerSheet, logger)
		if err != nil {
			return err
		}
		defer book.Close()

		queue, err := reconcile.OpenQueue(stateDir, logger)
		if err != nil {
			return err
		}

		extractor := acquire.NewExtractor(cfg.OCR, logger)
		proc := pipeline.NewProcessor(extractor, site, logger)
		source := discovery.NewFSSource(site, logger)
		opts := pipeline.BatchOptions{Force: forceFlag, RetryImageOnly: retryImageFlag}

		for _, family := range families {
			batch := pipeline.NewBatch(site, source, proc, store, book, opts, logger)
			stats, err := batch.Run(cmd.Context(), family)
			if err != nil {
				return err
			}

			st, err := store.Load(string(family))
			if err != nil {
				return err
			}
			report, err := pipeline.ReconcileState(site, book, st, queue, logger)
			if err != nil {
				return err
			}
			if err := store.Save(string(family), st); err != nil {
				return err
			}
			if err := reconcile.AppendChangeLog(stateDir, report.Changes); err != nil {
				return err
			}
			summary := ledger.RunSummary{
				NativeValues:    stats.NativeValues,
				OCRValues:       stats.OCRValues,
				Failures:        stats.Failures,
				SkippedExisting: stats.SkippedExisting,
				Applied:         len(report.Changes),
				Divergences:     len(report.Divergences),
				SuspiciousZeros: len(report.Suspicious),
				Unchanged:       report.Unchanged,
			}
			if err := book.WriteSummary(site.SummarySheet, summary); err != nil {
				return err
			}

			fmt.Printf("%s: %d documents, %d values, %d applied, %d divergences, %d suspicious zeros, %d skipped existing\n",
				family, stats.Processed, stats.ValuesFound, len(report.Changes),
				len(report.Divergences), len(report.Suspicious), stats.SkippedExisting)
		}

		if err := queue.Save(); err != nil {
			return err
		}
		if n := queue.PendingCount(); n > 0 {
			fmt.Printf("%d divergences pending; review with 'docledger divergences list'\n", n)
		}
		return book.Save()
	},
}

func selectedFamilies() ([]constants.Family, error) {
	switch strings.ToLower(familyFlag) {
	case "payroll":
		return []constants.Family{constants.FamilyPayroll}, nil
	case "invoice":
		return []constants.Family{constants.FamilyInvoice}, nil
	case "all", "":
		return []constants.Family{constants.FamilyPayroll, constants.FamilyInvoice}, nil
	}
	return nil, fmt.Errorf("unknown family %q (payroll, invoice or all)", familyFlag)
}

func init() {
	runCmd.Flags().StringVar(&familyFlag, "family", "all", "document family to process: payroll, invoice or all")
	runCmd.Flags().BoolVar(&forceFlag, "force", false, "reprocess documents whose ledger cell already has a value")
	runCmd.Flags().BoolVar(&retryImageFlag, "retry-image-only", false, "only retry documents that previously produced no text")
	rootCmd.AddCommand(runCmd)
}
