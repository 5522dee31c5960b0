package guard

import "fmt"

// State is a pipeline position for one request. DENIED, BLOCKED,
// RESPONDED and ERRORED are terminal.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateAuthorizing     State = "AUTHORIZING"
	StateDenied          State = "DENIED"
	StateAuthorized      State = "AUTHORIZED"
	StateVerifyingSafety State = "VERIFYING_SAFETY"
	StateBlocked         State = "BLOCKED"
	StateVerified        State = "VERIFIED"
	StateExecuting       State = "EXECUTING"
	StateSanitizing      State = "SANITIZING"
	StateResponded       State = "RESPONDED"
	StateErrored         State = "ERRORED"
)

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	State           State
	Reason          string
	SensitiveFields []string
	Query           string
	SuggestedQuery  *string
	Response        string
	Sanitized       bool
	Withheld        bool
}

// DeniedError is returned when the authorization stage refuses a request.
type DeniedError struct {
	Reason          string
	SensitiveFields []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// BlockedError is returned when the safety stage rejects a candidate query.
type BlockedError struct {
	Query          string
	Reason         string
	SuggestedQuery *string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("query blocked: %s", e.Reason)
}
