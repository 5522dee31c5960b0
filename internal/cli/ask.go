package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rowguard/internal/guard"
)

var (
	askDB       string
	askUser     int64
	askPolicy   string
	askAuditLog string
	askBackend  string
	askAPIURL   string
	askModel    string
)

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askDB, "db", "", "Path to SQLite database (default: users.db)")
	askCmd.Flags().Int64Var(&askUser, "user", 0, "Principal ID to run as (0 = random)")
	askCmd.Flags().StringVar(&askPolicy, "policy", "", "Path to policy YAML (default: ~/.rowguard/policy.yaml)")
	askCmd.Flags().StringVar(&askAuditLog, "audit-log", "", "Path to audit log JSONL file")
	askCmd.Flags().StringVar(&askBackend, "backend", "", "Oracle backend (openai|groq|bedrock)")
	askCmd.Flags().StringVar(&askAPIURL, "api-url", "", "Oracle API base URL")
	askCmd.Flags().StringVar(&askModel, "model", "", "Oracle model name")
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask one question through the guardrail pipeline",
	Long: "Runs a single natural-language question through authorization, SQL\n" +
		"safety verification, execution, and output sanitization.\n" +
		"Exit code 77 indicates a policy denial or block.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sess, err := openSession(ctx, sessionOptions{
		dbPath:   askDB,
		userID:   askUser,
		policy:   askPolicy,
		auditLog: askAuditLog,
		backend:  askBackend,
		apiURL:   askAPIURL,
		model:    askModel,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	request := strings.Join(args, " ")
	out, err := sess.guard.Ask(ctx, request)
	if err != nil {
		var denied *guard.DeniedError
		var blocked *guard.BlockedError
		switch {
		case errors.As(err, &denied):
			fmt.Fprintf(os.Stderr, "Access Denied: %s\n", denied.Reason)
			if len(denied.SensitiveFields) > 0 {
				fmt.Fprintf(os.Stderr, "Sensitive fields detected: %s\n", strings.Join(denied.SensitiveFields, ", "))
			}
			os.Exit(77)
		case errors.As(err, &blocked):
			fmt.Fprintf(os.Stderr, "SQL Query Blocked: %s\n", blocked.Reason)
			if blocked.SuggestedQuery != nil {
				fmt.Fprintf(os.Stderr, "Suggested safe query: %s\n", *blocked.SuggestedQuery)
			}
			os.Exit(77)
		}
		return fmt.Errorf("%s: %w", out.Reason, err)
	}

	if out.Withheld {
		fmt.Fprintf(os.Stderr, "Output withheld: %s\n", out.Reason)
		os.Exit(77)
	}
	if out.Sanitized {
		fmt.Fprintf(os.Stderr, "Output sanitized: %s\n", out.Reason)
	}
	fmt.Println(out.Response)
	return nil
}
