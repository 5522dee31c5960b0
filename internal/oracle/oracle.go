// Package oracle provides text-completion clients for the guardrail
// stages. The oracle is an untrusted collaborator: callers feed its raw
// output through the verdict parser and must treat every call failure as
// fail-closed, never as an implicit allow.
package oracle

import (
	"context"
	"fmt"
)

// Oracle is the single suspension point the pipeline has besides the
// record store. Complete returns the fully assembled completion text;
// there is no streaming contract.
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Func adapts a plain function to the Oracle interface. Used by tests
// and the scenario runner to script responses.
type Func func(ctx context.Context, system, user string) (string, error)

func (f Func) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// CallError wraps any transport, timeout, or protocol failure from an
// oracle backend. The orchestrator maps it to a retryable errored state.
type CallError struct {
	Backend string
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("oracle call failed (%s): %v", e.Backend, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
