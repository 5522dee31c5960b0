// Package guard runs the request pipeline: authorize a natural-language
// request, verify the candidate query, execute it, and sanitize the
// result before release. Every path to a released response passes the
// sanitization stage; every stage decision can be recorded to the audit
// chain.
package guard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/rowguard/internal/audit"
	"github.com/ppiankov/rowguard/internal/authz"
	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/sanitize"
	"github.com/ppiankov/rowguard/internal/sqlcheck"
	"github.com/ppiankov/rowguard/internal/verdict"
)

const assistantTemplate = `You are a helpful assistant for an account records service.
Current user: %s

Answer the user's question conversationally. You have no database access
in this mode: never invent values for the user's stored records, and
never discuss any other user's information. If the question needs stored
data, say the records service could not produce it and suggest rephrasing.`

// Executor runs a verified query and returns its formatted result.
// *store.Store satisfies this.
type Executor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// Options configures a Guard for one principal's session.
type Options struct {
	Oracle    oracle.Oracle
	Principal identity.Principal
	Executor  Executor

	// PolicyPath is the pipeline policy YAML. Empty means the default
	// location; a missing file means built-in defaults.
	PolicyPath string

	// Config, when non-nil, is used as-is and PolicyPath is ignored.
	Config *Config

	// Audit, when non-nil, receives one entry per stage decision.
	Audit *audit.Log
}

// Guard drives the pipeline for a single principal. Safe for concurrent
// use; ReloadPolicy may swap the policy between requests.
type Guard struct {
	oracle     oracle.Oracle
	principal  identity.Principal
	executor   Executor
	session    *identity.Session
	auditLog   *audit.Log
	policyPath string
	assistant  string

	mu            sync.Mutex
	cfg           *Config
	policyHash    string
	authzStage    *authz.Stage
	combinedStage *authz.CombinedStage
	safetyStage   *sqlcheck.Stage
	sanitizeStage *sanitize.Stage
}

// New builds a Guard, loading policy from Options.Config or
// Options.PolicyPath.
func New(opts Options) (*Guard, error) {
	cfg := opts.Config
	hash := emptyHash()
	if cfg == nil {
		var err error
		cfg, hash, err = LoadConfigWithHash(opts.PolicyPath)
		if err != nil {
			return nil, err
		}
	}

	g := &Guard{
		oracle:     opts.Oracle,
		principal:  opts.Principal,
		executor:   opts.Executor,
		session:    identity.NewSession(opts.Principal),
		auditLog:   opts.Audit,
		policyPath: opts.PolicyPath,
		assistant:  fmt.Sprintf(assistantTemplate, opts.Principal.Describe()),
	}
	g.install(cfg, hash)
	return g, nil
}

// install swaps in a policy and rebuilds the stages that render
// instructions from it.
func (g *Guard) install(cfg *Config, hash string) {
	params := authz.Params{
		SensitiveFields: cfg.SensitiveFields,
		ViewableFields:  cfg.ViewableFields,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
	g.policyHash = hash
	g.authzStage = authz.New(g.oracle, g.principal, params)
	g.combinedStage = authz.NewCombined(g.oracle, g.principal, params)
	g.safetyStage = sqlcheck.New(g.oracle, g.principal.ID)
	g.sanitizeStage = sanitize.New(g.oracle, g.principal, cfg.RedactionToken)
}

// ReloadPolicy re-reads the policy file and swaps it in. In-flight
// requests keep the snapshot they started with.
func (g *Guard) ReloadPolicy() error {
	cfg, hash, err := LoadConfigWithHash(g.policyPath)
	if err != nil {
		return err
	}
	g.install(cfg, hash)
	return nil
}

// Session returns the session owned by this guard.
func (g *Guard) Session() *identity.Session {
	return g.session
}

// Principal returns the principal this guard serves.
func (g *Guard) Principal() identity.Principal {
	return g.principal
}

// PolicyHash returns the hash of the policy currently in force.
func (g *Guard) PolicyHash() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policyHash
}

// Config returns a snapshot of the policy currently in force.
func (g *Guard) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.cfg
}

// Ask runs one request through the pipeline. The returned Outcome is
// always non-nil and carries the terminal state. The error is a
// *DeniedError or *BlockedError on policy refusal, a wrapped
// collaborator error when the outcome is ERRORED, and nil when the
// request reached RESPONDED.
func (g *Guard) Ask(ctx context.Context, request string) (*Outcome, error) {
	g.mu.Lock()
	cfg := g.cfg
	hash := g.policyHash
	authzStage := g.authzStage
	combinedStage := g.combinedStage
	safetyStage := g.safetyStage
	sanitizeStage := g.sanitizeStage
	g.mu.Unlock()

	out := &Outcome{State: StateAuthorizing}

	var auth verdict.Authorization
	var combinedSafety *verdict.Safety
	if cfg.Stages.Combined {
		cv, err := combinedStage.Review(ctx, request)
		if err != nil {
			return g.errored(out, "authorization", hash, err)
		}
		a, s := cv.Split()
		auth = a
		if a.Authorized && a.SQLQuery != nil {
			combinedSafety = &s
		}
	} else {
		var err error
		auth, err = authzStage.Review(ctx, request)
		if err != nil {
			return g.errored(out, "authorization", hash, err)
		}
	}

	out.SensitiveFields = auth.SensitiveFields
	if !auth.Authorized {
		out.State = StateDenied
		out.Reason = auth.Reason
		g.record(audit.Entry{Stage: "authorization", Decision: "denied", Reason: auth.Reason, PolicyHash: hash})
		return out, &DeniedError{Reason: auth.Reason, SensitiveFields: auth.SensitiveFields}
	}
	out.State = StateAuthorized

	if auth.SQLQuery == nil {
		g.record(audit.Entry{Stage: "authorization", Decision: "authorized", Reason: auth.Reason, PolicyHash: hash})
		if !cfg.Stages.OpenAnswers {
			out.State = StateDenied
			out.Reason = "request produced no candidate query"
			g.record(audit.Entry{Stage: "authorization", Decision: "denied", Reason: out.Reason, PolicyHash: hash})
			return out, &DeniedError{Reason: out.Reason}
		}
		raw, err := g.oracle.Complete(ctx, g.assistant, request)
		if err != nil {
			return g.errored(out, "assistant", hash, err)
		}
		// The open-answer path always passes sanitization, even when
		// the stage toggle is off for the query path.
		return g.release(ctx, out, cfg, sanitizeStage, hash, request, raw, true)
	}

	query := *auth.SQLQuery
	out.Query = query
	g.record(audit.Entry{Stage: "authorization", Decision: "authorized", Reason: auth.Reason, Query: query, PolicyHash: hash})

	if cfg.Stages.VerifySQL {
		out.State = StateVerifyingSafety
		var sv verdict.Safety
		if combinedSafety != nil {
			// The combined oracle already judged the query, but the
			// mechanical scope gate cannot be delegated to it.
			if gateErr := sqlcheck.Inspect(query, g.principal.ID); gateErr != nil {
				sv = verdict.Safety{Reason: gateErr.Error()}
				if sug := sqlcheck.Rescope(query, g.principal.ID); sug != "" {
					sv.SuggestedQuery = &sug
				}
			} else {
				sv = *combinedSafety
			}
		} else {
			var err error
			sv, err = safetyStage.Review(ctx, query)
			if err != nil {
				return g.errored(out, "safety", hash, err)
			}
		}

		if !sv.Safe {
			out.State = StateBlocked
			out.Reason = sv.Reason
			out.SuggestedQuery = sv.SuggestedQuery
			g.record(audit.Entry{Stage: "safety", Decision: "blocked", Reason: sv.Reason, Query: query, PolicyHash: hash})
			return out, &BlockedError{Query: query, Reason: sv.Reason, SuggestedQuery: sv.SuggestedQuery}
		}
		out.State = StateVerified
		g.record(audit.Entry{Stage: "safety", Decision: "verified", Reason: sv.Reason, Query: query, PolicyHash: hash})
	}

	out.State = StateExecuting
	raw, err := g.executor.Execute(ctx, query)
	if err != nil {
		return g.errored(out, "execution", hash, err)
	}

	return g.release(ctx, out, cfg, sanitizeStage, hash, request, raw, cfg.Stages.SanitizeOutput)
}

// release runs the sanitization stage (when enabled) and finishes the
// request. It prefers the oracle's sanitized text, falls back to the
// mechanical redaction engine, and withholds the response entirely when
// neither produced a releasable rendering of a flagged result.
func (g *Guard) release(ctx context.Context, out *Outcome, cfg *Config, stage *sanitize.Stage, hash, request, raw string, sanitizeOn bool) (*Outcome, error) {
	released := raw

	if sanitizeOn {
		out.State = StateSanitizing
		v, err := stage.Review(ctx, raw)
		if err != nil {
			return g.errored(out, "sanitization", hash, err)
		}

		if v.Safe {
			if v.SanitizedResponse != nil {
				released = *v.SanitizedResponse
			}
		} else {
			sanitized := v.SanitizedResponse
			if sanitized != nil && echoesFlaggedText(*sanitized, raw, v.OriginalResponse) {
				// A rewrite that still carries the flagged text verbatim
				// is no rewrite.
				sanitized = nil
			}
			if sanitized != nil {
				released = *sanitized
			} else {
				redacted, n := sanitize.Apply(raw, cfg.RedactionToken)
				if n == 0 {
					// Flagged but nothing to redact: withhold rather than
					// release text the judge called unsafe.
					out.State = StateResponded
					out.Withheld = true
					out.Reason = v.Reason
					g.record(audit.Entry{Stage: "sanitization", Decision: "withheld", Reason: v.Reason, PolicyHash: hash})
					return out, nil
				}
				released = redacted
			}
			out.Sanitized = true
			out.Reason = v.Reason
		}

		// The engine also scrubs whatever the oracle proposed.
		if scrubbed, n := sanitize.Apply(released, cfg.RedactionToken); n > 0 {
			released = scrubbed
			out.Sanitized = true
		}

		decision := "released"
		if out.Sanitized {
			decision = "sanitized"
		}
		g.record(audit.Entry{Stage: "sanitization", Decision: decision, Reason: v.Reason, PolicyHash: hash})
	}

	out.State = StateResponded
	out.Response = released
	g.session.Append(request, released)
	return out, nil
}

// echoesFlaggedText reports whether a proposed rewrite still contains
// the text the sanitization judge flagged: the raw result, or the
// original the judge quoted back in its verdict.
func echoesFlaggedText(rewrite, raw string, original *string) bool {
	if raw != "" && strings.Contains(rewrite, raw) {
		return true
	}
	if original != nil && *original != "" && strings.Contains(rewrite, *original) {
		return true
	}
	return false
}

// errored finishes a request on collaborator failure: terminal state with
// a retry-safe user-facing reason, the underlying error recorded and
// returned wrapped.
func (g *Guard) errored(out *Outcome, stage, hash string, err error) (*Outcome, error) {
	out.State = StateErrored
	out.Reason = "temporary failure, please retry"
	g.record(audit.Entry{Stage: stage, Decision: "errored", Reason: err.Error(), Query: out.Query, PolicyHash: hash})
	return out, fmt.Errorf("%s stage: %w", stage, err)
}

func (g *Guard) record(entry audit.Entry) {
	if g.auditLog == nil {
		return
	}
	entry.SessionID = g.session.ID
	entry.PrincipalID = g.principal.ID
	// An unwritable audit log must not take the pipeline down with it.
	_ = g.auditLog.Record(entry)
}
