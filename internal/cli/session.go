package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/rowguard/internal/audit"
	"github.com/ppiankov/rowguard/internal/guard"
	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/store"
)

// sessionOptions collects the flags shared by the commands that run the
// pipeline.
type sessionOptions struct {
	dbPath   string
	userID   int64
	policy   string
	auditLog string
	backend  string
	apiURL   string
	model    string
}

// session bundles everything a pipeline command needs to tear down.
type session struct {
	guard    *guard.Guard
	store    *store.Store
	auditLog *audit.Log
}

func (s *session) Close() {
	s.store.Close()
	if s.auditLog != nil {
		s.auditLog.Close()
	}
}

// openSession opens the store, resolves the principal and oracle
// backend, and builds a guard.
func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	st, err := store.Open(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var principal identity.Principal
	if opts.userID != 0 {
		principal, err = st.Principal(ctx, opts.userID)
	} else {
		principal, err = st.RandomPrincipal(ctx)
	}
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to resolve principal (run 'rowguard seed' first?): %w", err)
	}

	o, err := oracle.New(ctx, oracle.ResolveConfig(opts.backend, opts.apiURL, opts.model))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to configure oracle backend: %w", err)
	}

	var log *audit.Log
	if opts.auditLog != "" {
		log, err = audit.Open(opts.auditLog)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	g, err := guard.New(guard.Options{
		Oracle:     o,
		Principal:  principal,
		Executor:   st,
		PolicyPath: opts.policy,
		Audit:      log,
	})
	if err != nil {
		st.Close()
		if log != nil {
			log.Close()
		}
		return nil, err
	}

	return &session{guard: g, store: st, auditLog: log}, nil
}
