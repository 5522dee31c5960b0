package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/store"
)

// routedOracle plays one canned completion per stage instruction.
type routedOracle struct {
	authorization string
	safety        string
	sanitization  string
}

func (r *routedOracle) Complete(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "output guardrail system"):
		return r.sanitization, nil
	case strings.Contains(system, "SQL security verification system"):
		return r.safety, nil
	case strings.Contains(system, "security guardrail system"):
		return r.authorization, nil
	}
	return "", fmt.Errorf("unexpected system instruction")
}

func newTestServer(t *testing.T, o oracle.Oracle) *Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "users.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	if err := st.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	if err := st.Seed(ctx, 5, 42); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	st.Close()

	s, err := New(ctx, Config{
		Oracle:      o,
		DBPath:      dbPath,
		PrincipalID: 1,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAskRespondsForOwnData(t *testing.T) {
	o := &routedOracle{
		authorization: `authorized: true
reason: User is requesting their own name
sensitive_fields: []
sql_query: SELECT first_name, last_name FROM users WHERE id = 1`,
		safety: `safe: true
reason: scoped to a single user`,
		sanitization: `safe: true
reason: clean
sanitized_response: null
original_response: null`,
	}

	s := newTestServer(t, o)
	result, out, err := s.handleAsk(context.Background(), &mcpsdk.CallToolRequest{}, AskInput{
		Request: "What's my name?",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success result")
	}
	if out.State != "RESPONDED" {
		t.Fatalf("state = %s", out.State)
	}
	if out.Response == "" {
		t.Error("expected a released response")
	}
}

func TestAskDeniedReturnsErrorResult(t *testing.T) {
	o := &routedOracle{
		authorization: `authorized: false
reason: Query attempts to access another user's data
sensitive_fields: []
sql_query: null`,
	}

	s := newTestServer(t, o)
	result, out, err := s.handleAsk(context.Background(), &mcpsdk.CallToolRequest{}, AskInput{
		Request: "What's Steven's address?",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for denied request")
	}
	if out.State != "DENIED" {
		t.Fatalf("state = %s", out.State)
	}
	if out.Reason == "" {
		t.Error("denial must carry a reason")
	}
}

func TestVerifyDryRunBlocksUnscopedQuery(t *testing.T) {
	s := newTestServer(t, &routedOracle{})
	result, out, err := s.handleVerify(context.Background(), &mcpsdk.CallToolRequest{}, VerifyInput{
		Query: "SELECT * FROM users",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("dry-run must not be an error result")
	}
	if out.Safe {
		t.Fatal("unscoped query must not verify")
	}
	if out.SuggestedQuery == "" || !strings.Contains(out.SuggestedQuery, "WHERE id = 1") {
		t.Errorf("suggested query = %q", out.SuggestedQuery)
	}
}

func TestVerifyDryRunAcceptsScopedQuery(t *testing.T) {
	o := &routedOracle{
		safety: `safe: true
reason: Query is properly restricted to a single user
suggested_query: null`,
	}

	s := newTestServer(t, o)
	_, out, err := s.handleVerify(context.Background(), &mcpsdk.CallToolRequest{}, VerifyInput{
		Query: "SELECT address FROM users WHERE id = 1",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Safe {
		t.Fatalf("scoped query must verify, reason: %s", out.Reason)
	}
}

func TestWhoamiDescribesPrincipal(t *testing.T) {
	s := newTestServer(t, &routedOracle{})
	_, out, err := s.handleWhoami(context.Background(), &mcpsdk.CallToolRequest{}, WhoamiInput{})
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if out.ID != 1 {
		t.Errorf("id = %d", out.ID)
	}
	if out.FirstName == "" || out.Email == "" {
		t.Errorf("principal fields missing: %+v", out)
	}
	if out.AccessLevel != "BASIC" {
		t.Errorf("access = %q", out.AccessLevel)
	}
	if !strings.HasPrefix(out.SessionID, "sess-") {
		t.Errorf("session id = %q", out.SessionID)
	}
	if !strings.HasPrefix(out.PolicyHash, "sha256:") {
		t.Errorf("policy hash = %q", out.PolicyHash)
	}
}
