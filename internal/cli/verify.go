package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/sqlcheck"
)

var (
	verifyUser    int64
	verifyBackend string
	verifyAPIURL  string
	verifyModel   string
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Int64Var(&verifyUser, "user", 0, "Principal ID the query must be scoped to (required)")
	verifyCmd.Flags().StringVar(&verifyBackend, "backend", "", "Oracle backend (openai|groq|bedrock)")
	verifyCmd.Flags().StringVar(&verifyAPIURL, "api-url", "", "Oracle API base URL")
	verifyCmd.Flags().StringVar(&verifyModel, "model", "", "Oracle model name")
	verifyCmd.MarkFlagRequired("user")
}

var verifyCmd = &cobra.Command{
	Use:   "verify <sql query>",
	Short: "Dry-run a SQL query through safety verification",
	Long: "Checks a query against the mechanical scope gate and the oracle\n" +
		"safety judge without executing it. Exit code 77 indicates the query\n" +
		"would be blocked.",
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	o, err := oracle.New(ctx, oracle.ResolveConfig(verifyBackend, verifyAPIURL, verifyModel))
	if err != nil {
		return fmt.Errorf("failed to configure oracle backend: %w", err)
	}

	v, err := sqlcheck.New(o, verifyUser).Review(ctx, args[0])
	if err != nil {
		return err
	}

	resp := map[string]any{
		"safe":   v.Safe,
		"reason": v.Reason,
	}
	if v.SuggestedQuery != nil {
		resp["suggested_query"] = *v.SuggestedQuery
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))

	if !v.Safe {
		os.Exit(77)
	}
	return nil
}
