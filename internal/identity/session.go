package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Exchange is one completed (request, response) pair.
type Exchange struct {
	Request  string    `json:"request"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Session binds a principal to an append-only conversation transcript.
// Transcript access is synchronized: one session serves every request of
// a conversation, and MCP frontends may run those requests concurrently.
type Session struct {
	ID        string
	Principal Principal
	CreatedAt time.Time

	mu         sync.Mutex
	transcript []Exchange
}

// NewSession creates a session for the given principal with a generated ID.
func NewSession(p Principal) *Session {
	return &Session{
		ID:        generateSessionID(),
		Principal: p,
		CreatedAt: time.Now().UTC(),
	}
}

// Append records a completed exchange. Only the orchestrator calls this,
// and only after a request reaches a responded terminal state.
func (s *Session) Append(request, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Exchange{
		Request:  request,
		Response: response,
		At:       time.Now().UTC(),
	})
}

// Transcript returns a copy of the recorded exchanges.
func (s *Session) Transcript() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exchange, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func generateSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("sess-%x", time.Now().UnixNano())
	}
	return "sess-" + hex.EncodeToString(b)
}
