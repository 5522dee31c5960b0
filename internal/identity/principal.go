// Package identity holds the authenticated principal and its session
// state. A Principal is created once at session start from the record
// store and never mutated; the session transcript is owned exclusively
// by the pipeline orchestrator.
package identity

import "fmt"

// AccessLevel classifies what a principal may do within a session.
type AccessLevel int

const (
	Unauthorized AccessLevel = 0
	Basic        AccessLevel = 1
	Admin        AccessLevel = 2
)

func (l AccessLevel) String() string {
	switch l {
	case Unauthorized:
		return "UNAUTHORIZED"
	case Basic:
		return "BASIC"
	case Admin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// Principal is the party on whose behalf a pipeline run executes.
// Immutable for the session lifetime.
type Principal struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Access    AccessLevel
}

// DisplayName returns "First Last" for prompts and banners.
func (p Principal) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// Describe returns the identity line embedded in stage instructions.
func (p Principal) Describe() string {
	return fmt.Sprintf("%s (ID: %d, Email: %s)", p.DisplayName(), p.ID, p.Email)
}
