package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portops/triage-cli/internal/analyzer"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <description>",
	Short: "Classify a description with the offline rules only",
	Long:  "Runs the deterministic rule-based classifier without the model, the store, or the network. Useful for spot checks and air-gapped environments.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysis := analyzer.Classify(strings.Join(args, " "))

		if classifyJSON {
			return printJSON(os.Stdout, analysis)
		}
		renderAnalysis(os.Stdout, analysis, nil, nil)
		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(classifyCmd)
}
