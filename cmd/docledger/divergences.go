package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/ledger"
	"github.com/obrasoft/docledger/internal/pipeline"
	"github.com/obrasoft/docledger/internal/reconcile"
)

var resolveAll bool

var divergencesCmd = &cobra.Command{
	Use:   "divergences",
	Short: "Review and resolve conflicts between the ledger and extracted values",
}

var divergencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show divergences awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, stateDir, err := loadSite()
		if err != nil {
			return err
		}
		queue, err := reconcile.OpenQueue(stateDir, slog.Default())
		if err != nil {
			return err
		}
		pending := queue.Pending()
		if len(pending) == 0 {
			fmt.Println("no pending divergences")
			return nil
		}
		for _, d := range pending {
			fmt.Printf("%s  %s %s  cell %s%d  ledger=%v extracted=%v  (%s)\n",
				d.ID, d.EntityID, d.Period, d.Column, d.Row,
				d.LedgerValue, d.ExtractedValue, d.SourcePath)
		}
		return nil
	},
}

var divergencesAcceptCmd = &cobra.Command{
	Use:   "accept [id]",
	Short: "Accept the extracted value; it is written on the next apply",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolve(args, document.ResolutionAcceptExtracted)
	},
}

var divergencesKeepCmd = &cobra.Command{
	Use:   "keep [id]",
	Short: "Keep the ledger value; the record is closed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolve(args, document.ResolutionKeepLedger)
	},
}

var divergencesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write every accepted value into the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, site, stateDir, err := loadSite()
		if err != nil {
			return err
		}
		logger := slog.Default()
		queue, err := reconcile.OpenQueue(stateDir, logger)
		if err != nil {
			return err
		}
		book, err := ledger.Open(site.LedgerPath(), site.LedgerSheet, logger)
		if err != nil {
			return err
		}
		defer book.Close()

		// Applicable drains as records are marked applied; snapshot first.
		var audit []reconcile.Change
		for _, d := range queue.Applicable() {
			audit = append(audit, reconcile.Change{
				EntityID:   d.EntityID,
				Name:       d.Name,
				Period:     d.Period,
				Column:     d.Column,
				Row:        d.Row,
				Value:      d.ExtractedValue,
				Method:     d.Method,
				SourcePath: d.SourcePath,
			})
		}

		applied, err := pipeline.ApplyResolved(book, queue, logger)
		if err != nil {
			return err
		}
		if err := book.Save(); err != nil {
			return err
		}
		if err := queue.Save(); err != nil {
			return err
		}
		if err := reconcile.AppendChangeLog(stateDir, audit); err != nil {
			return err
		}
		fmt.Printf("%d values applied\n", applied)
		return nil
	},
}

func resolve(args []string, r document.Resolution) error {
	_, _, stateDir, err := loadSite()
	if err != nil {
		return err
	}
	queue, err := reconcile.OpenQueue(stateDir, slog.Default())
	if err != nil {
		return err
	}

	if resolveAll {
		n, err := queue.ResolveAll(r)
		if err != nil {
			return err
		}
		fmt.Printf("%d divergences resolved as %s\n", n, r)
		return queue.Save()
	}

	if len(args) != 1 {
		return fmt.Errorf("pass a divergence id or --all")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid divergence id %q: %w", args[0], err)
	}
	if err := queue.Resolve(id, r); err != nil {
		return err
	}
	return queue.Save()
}

func init() {
	divergencesAcceptCmd.Flags().BoolVar(&resolveAll, "all", false, "resolve every pending divergence")
	divergencesKeepCmd.Flags().BoolVar(&resolveAll, "all", false, "resolve every pending divergence")
	divergencesCmd.AddCommand(divergencesListCmd, divergencesAcceptCmd, divergencesKeepCmd, divergencesApplyCmd)
	rootCmd.AddCommand(divergencesCmd)
}
