// Package mcp exposes the guarded pipeline as MCP tools over stdio, so
// agent frontends can ask questions, dry-run queries, and inspect the
// session principal without touching the store directly.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/rowguard/internal/audit"
	"github.com/ppiankov/rowguard/internal/guard"
	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/sqlcheck"
	"github.com/ppiankov/rowguard/internal/store"
)

// Config holds MCP server configuration.
type Config struct {
	Oracle oracle.Oracle

	// DBPath is the record store; empty means the default location.
	DBPath string

	// PrincipalID selects the session principal; 0 picks a random one,
	// mirroring an interactive login.
	PrincipalID int64

	PolicyPath   string
	AuditLogPath string
}

// Server wraps the MCP SDK server around one guarded session.
type Server struct {
	mcpServer *mcpsdk.Server
	guard     *guard.Guard
	store     *store.Store
	safety    *sqlcheck.Stage
	auditLog  *audit.Log
}

// New opens the store, binds a session principal, and registers the
// tools.
func New(ctx context.Context, cfg Config) (*Server, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	principal, err := lookupPrincipal(ctx, st, cfg.PrincipalID)
	if err != nil {
		st.Close()
		return nil, err
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	g, err := guard.New(guard.Options{
		Oracle:     cfg.Oracle,
		Principal:  principal,
		Executor:   st,
		PolicyPath: cfg.PolicyPath,
		Audit:      auditLog,
	})
	if err != nil {
		st.Close()
		if auditLog != nil {
			auditLog.Close()
		}
		return nil, err
	}

	s := &Server{
		guard:    g,
		store:    st,
		safety:   sqlcheck.New(cfg.Oracle, principal.ID),
		auditLog: auditLog,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "rowguard",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

func lookupPrincipal(ctx context.Context, st *store.Store, id int64) (p identity.Principal, err error) {
	if id != 0 {
		p, err = st.Principal(ctx, id)
	} else {
		p, err = st.RandomPrincipal(ctx)
	}
	if err != nil {
		return p, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return p, nil
}

// Guard returns the underlying guard, for policy hot reload wiring.
func (s *Server) Guard() *guard.Guard {
	return s.guard
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the store and audit log.
func (s *Server) Close() error {
	err := s.store.Close()
	if s.auditLog != nil {
		if cerr := s.auditLog.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// registerTools adds all rowguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rowguard_ask",
		Description: "Ask a natural-language question about the session user's own record. Denied or blocked requests return an error with the reason.",
	}, s.handleAsk)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rowguard_verify",
		Description: "Check whether a SQL query would pass safety verification for the session user without executing it (dry-run).",
	}, s.handleVerify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rowguard_whoami",
		Description: "Describe the session principal and policy currently in force.",
	}, s.handleWhoami)
}
