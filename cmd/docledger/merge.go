package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/obrasoft/docledger/internal/state"
)

var (
	mergeFamily  string
	mergePattern string
	mergeDir     string
)

var mergeShardsCmd = &cobra.Command{
	Use:   "merge-shards",
	Short: "Fold partial result files from parallel runs into the state store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if mergeFamily != "PAYROLL" && mergeFamily != "INVOICE" {
			return fmt.Errorf("unknown family %q (PAYROLL or INVOICE)", mergeFamily)
		}
		_, _, stateDir, err := loadSite()
		if err != nil {
			return err
		}
		logger := slog.Default()

		store, err := state.NewFileStore(stateDir, logger)
		if err != nil {
			return err
		}
		base, err := store.Load(mergeFamily)
		if err != nil {
			return err
		}

		dir := mergeDir
		if dir == "" {
			dir = stateDir
		}
		merged, files, err := state.MergeShards(base, dir, mergePattern, logger)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("no shard files matched")
			return nil
		}
		if err := store.Save(mergeFamily, merged); err != nil {
			return err
		}
		fmt.Printf("%d shard files merged, %d entities in store\n", len(files), len(merged))
		return nil
	},
}

func init() {
	mergeShardsCmd.Flags().StringVar(&mergeFamily, "family", "PAYROLL", "state family to merge into: PAYROLL or INVOICE")
	mergeShardsCmd.Flags().StringVar(&mergePattern, "pattern", "shard_*.json", "glob matching shard result files")
	mergeShardsCmd.Flags().StringVar(&mergeDir, "dir", "", "directory holding the shard files (default: state dir)")
	rootCmd.AddCommand(mergeShardsCmd)
}
