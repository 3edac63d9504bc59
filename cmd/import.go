package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/portops/triage-cli/internal/imports"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import corpus data",
}

var importTrainingCmd = &cobra.Command{
	Use:   "training <file>",
	Short: "Import training examples from a CSV or XLSX file",
	Long:  "Reads a spreadsheet with a header row (description, incident_type, pattern_match, root_cause, impact, urgency, affected_systems, category, tags) and loads each row as a training example.",
	Args:  cobra.ExactArgs(1),
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

		result, err := imports.New(st).ImportTraining(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	},
}

var importKnowledgeCmd = &cobra.Command{
	Use:   "knowledge <source>",
	Short: "Import knowledge documents from a file, URL or FTP drop",
	Long:  "Fetches the source (local path, http(s) or ftp URL; .zip archives are unpacked), splits each document into knowledge entries, and loads the new ones. Existing titles are skipped.",
	Args:  cobra.ExactArgs(1),
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

		result, err := imports.New(st).ImportKnowledge(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	importCmd.AddCommand(importTrainingCmd)
	importCmd.AddCommand(importKnowledgeCmd)
	rootCmd.AddCommand(importCmd)
}
