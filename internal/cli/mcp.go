package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rowguard/internal/guard"
	rowmcp "github.com/ppiankov/rowguard/internal/mcp"
	"github.com/ppiankov/rowguard/internal/oracle"
)

var (
	mcpDB       string
	mcpUser     int64
	mcpPolicy   string
	mcpAuditLog string
	mcpBackend  string
	mcpAPIURL   string
	mcpModel    string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpDB, "db", "", "Path to SQLite database (default: users.db)")
	mcpCmd.Flags().Int64Var(&mcpUser, "user", 0, "Principal ID to run as (0 = random)")
	mcpCmd.Flags().StringVar(&mcpPolicy, "policy", "", "Path to policy YAML (default: ~/.rowguard/policy.yaml)")
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", "", "Path to audit log JSONL file")
	mcpCmd.Flags().StringVar(&mcpBackend, "backend", "", "Oracle backend (openai|groq|bedrock)")
	mcpCmd.Flags().StringVar(&mcpAPIURL, "api-url", "", "Oracle API base URL")
	mcpCmd.Flags().StringVar(&mcpModel, "model", "", "Oracle model name")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs rowguard as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes pipeline-enforced tools: ask, verify, whoami.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o, err := oracle.New(ctx, oracle.ResolveConfig(mcpBackend, mcpAPIURL, mcpModel))
	if err != nil {
		return fmt.Errorf("failed to configure oracle backend: %w", err)
	}

	srv, err := rowmcp.New(ctx, rowmcp.Config{
		Oracle:       o,
		DBPath:       mcpDB,
		PrincipalID:  mcpUser,
		PolicyPath:   mcpPolicy,
		AuditLogPath: mcpAuditLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	if reloader, err := guard.NewReloader(srv.Guard(), []string{mcpPolicy}); err == nil {
		go reloader.Run(ctx)
	} else {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	p := srv.Guard().Principal()
	fmt.Fprintln(os.Stderr, "rowguard MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Session principal: %s\n", p.Describe())
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
