package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/portops/triage-cli/internal/imports"
)

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter corpus",
	Long:  "Seeds the training and knowledge corpus from a YAML bundle. Without --file the built-in maritime starter scenarios are used. Seeding is idempotent: existing descriptions and titles are never overwritten.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := imports.New(st).Seed(ctx, seedFilePath)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "seed bundle YAML (default: built-in starter corpus)")
	rootCmd.AddCommand(seedCmd)
}
