// Package authz implements the input guardrail: it maps a free-text
// request plus the current principal to an authorization verdict with an
// optional scoped SQL query. The stage trusts nothing — the oracle's
// answer goes through the fail-closed verdict parser, and a call failure
// is surfaced as an error, never as a default verdict.
package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/verdict"
)

// Params configures the authorization instruction. Both lists come from
// the guard policy file so deployments can tune the taxonomy.
type Params struct {
	SensitiveFields []string
	ViewableFields  []string
}

// Stage is the authorization guardrail for one session. The instruction
// is rendered once at construction from principal identity fields only;
// untrusted request text never touches the template.
type Stage struct {
	oracle      oracle.Oracle
	instruction string
}

// instructionTemplate is the fixed system instruction for the
// authorization oracle. Parameterized only by the principal's identity
// and the configured field lists.
const instructionTemplate = `You are a security guardrail system that verifies user identity and query safety.
Current user: %s

Your job is to:
1. Convert natural language queries into SQL queries that only access the current user's data
2. Check if the query might expose sensitive information
3. Return a response in EXACTLY this format:
authorized: true/false
reason: <explanation>
sensitive_fields: [field1, field2, ...]
sql_query: <SQL query if authorized>

Rules:
- Users can ONLY access their own data (must include WHERE id = %d)
- Sensitive fields include: %s
- Users can see their own: %s
- Natural language queries about the user's own data should be converted to SQL
- Always err on the side of caution when protecting user data
- No queries that could expose other users' data
- No queries about finding neighbors or similar users

Examples of natural language to SQL conversion:
- "What's my address?" -> "SELECT address FROM users WHERE id = %[2]d"
- "What's my phone number?" -> "SELECT phone_number FROM users WHERE id = %[2]d"
- "When was I born?" -> "SELECT date_of_birth FROM users WHERE id = %[2]d"
- "What's my name?" -> "SELECT first_name, last_name FROM users WHERE id = %[2]d"

Example denied queries:
- "What's Steven's address?" (trying to access another user's data)
- "Show me all users" (no user restriction)
- "Find users who live near me" (could expose other users' data)

Example response for "What's my address?":
authorized: true
reason: User is requesting their own address
sensitive_fields: []
sql_query: SELECT address FROM users WHERE id = %[2]d

Example response for "What's Steven's address?":
authorized: false
reason: Cannot access another user's data
sensitive_fields: []
sql_query: null`

// New builds the stage for the given principal.
func New(o oracle.Oracle, p identity.Principal, params Params) *Stage {
	return &Stage{
		oracle: o,
		instruction: fmt.Sprintf(instructionTemplate,
			p.Describe(),
			p.ID,
			strings.Join(params.SensitiveFields, ", "),
			strings.Join(params.ViewableFields, ", ")),
	}
}

// Review judges one request. The returned error is a collaborator
// failure; parse failures never surface here — they become a denied
// verdict inside the parser.
func (s *Stage) Review(ctx context.Context, request string) (verdict.Authorization, error) {
	raw, err := s.oracle.Complete(ctx, s.instruction, "Query: "+request)
	if err != nil {
		return verdict.Authorization{}, fmt.Errorf("authorization stage: %w", err)
	}
	return verdict.ParseAuthorization(raw), nil
}

// Instruction exposes the rendered system instruction for diagnostics.
func (s *Stage) Instruction() string {
	return s.instruction
}
