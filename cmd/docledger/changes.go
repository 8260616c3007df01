package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obrasoft/docledger/internal/reconcile"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show the audit log of values written into the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, stateDir, err := loadSite()
		if err != nil {
			return err
		}
		items, err := reconcile.ReadChangeLog(stateDir)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no changes recorded")
			return nil
		}
		for _, c := range items {
			fmt.Printf("%s  %s %s  cell %s%d  value=%v  %s  (%s)\n",
				c.AppliedAt.Format("2006-01-02 15:04:05"),
				c.EntityID, c.Period, c.Column, c.Row, c.Value, c.Method, c.SourcePath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
}
