// Package cli wires the guarded pipeline into a command-line surface:
// one-shot questions, an interactive session, store seeding, dry-run
// verification, scenario checks, audit inspection, and the MCP server.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rowguard",
	Short: "Guarded natural-language access to a single-tenant record store",
	Long: "Answers natural-language questions about the session user's own database\n" +
		"record through a layered, fail-closed guardrail pipeline: authorization,\n" +
		"SQL safety verification, scoped execution, and output sanitization.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
