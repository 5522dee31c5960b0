package cli

import (
	"bufio"
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
	chatDB       string
	chatUser     int64
	chatPolicy   string
	chatAuditLog string
	chatBackend  string
	chatAPIURL   string
	chatModel    string
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatDB, "db", "", "Path to SQLite database (default: users.db)")
	chatCmd.Flags().Int64Var(&chatUser, "user", 0, "Principal ID to run as (0 = random)")
	chatCmd.Flags().StringVar(&chatPolicy, "policy", "", "Path to policy YAML (default: ~/.rowguard/policy.yaml)")
	chatCmd.Flags().StringVar(&chatAuditLog, "audit-log", "", "Path to audit log JSONL file")
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "Oracle backend (openai|groq|bedrock)")
	chatCmd.Flags().StringVar(&chatAPIURL, "api-url", "", "Oracle API base URL")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Oracle model name")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive guarded session",
	Long: "Opens a conversation as one store principal. Every question runs\n" +
		"through the full guardrail pipeline. The policy file is hot-reloaded\n" +
		"on change. Type 'quit' to exit.",
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nGoodbye!")
		cancel()
		os.Exit(0)
	}()

	sess, err := openSession(ctx, sessionOptions{
		dbPath:   chatDB,
		userID:   chatUser,
		policy:   chatPolicy,
		auditLog: chatAuditLog,
		backend:  chatBackend,
		apiURL:   chatAPIURL,
		model:    chatModel,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if reloader, err := guard.NewReloader(sess.guard, []string{chatPolicy}); err == nil {
		go reloader.Run(ctx)
	} else {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}

	p := sess.guard.Principal()
	fmt.Println("Welcome to rowguard! Type 'quit' to exit.")
	fmt.Printf("Logged in as: %s (%s)\n", p.DisplayName(), p.Email)
	fmt.Println("You can ask questions about your own data in natural language.")
	fmt.Printf("Your user ID is: %d\n", p.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "quit") {
			fmt.Println("Goodbye!")
			break
		}

		out, err := sess.guard.Ask(ctx, input)
		if err != nil {
			var denied *guard.DeniedError
			var blocked *guard.BlockedError
			switch {
			case errors.As(err, &denied):
				fmt.Printf("\nAccess Denied: %s\n", denied.Reason)
				if len(denied.SensitiveFields) > 0 {
					fmt.Printf("Sensitive fields detected: %s\n", strings.Join(denied.SensitiveFields, ", "))
				}
			case errors.As(err, &blocked):
				fmt.Printf("\nSQL Query Blocked: %s\n", blocked.Reason)
				if blocked.SuggestedQuery != nil {
					fmt.Printf("Suggested safe query: %s\n", *blocked.SuggestedQuery)
				}
			default:
				fmt.Printf("\nError: %s\n", out.Reason)
				fmt.Println("Let's try that again.")
			}
			continue
		}

		if out.Withheld {
			fmt.Printf("\nOutput withheld: %s\n", out.Reason)
			continue
		}
		if out.Sanitized {
			fmt.Printf("\nOutput sanitized: %s\n", out.Reason)
		}
		fmt.Printf("\nAI: %s\n", out.Response)
	}

	return scanner.Err()
}
