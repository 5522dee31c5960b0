package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/verdict"
)

// combinedTemplate folds authorization and SQL safety judgment into one
// oracle exchange. Used by the single-pass pipeline variant; the
// mechanical scope gate still runs on whatever query comes back.
const combinedTemplate = `You are a security guardrail system that verifies user identity and SQL query safety.
Current user: %s

Your job is to:
1. Convert natural language queries into SQL queries that only access the current user's data
2. Verify the SQL query for potential injection attacks
3. Return a response in EXACTLY this format:
authorized: true/false
reason: <explanation>
sensitive_fields: [field1, field2, ...]
sql_query: <SQL query if authorized>
safe: true/false
sql_reason: <explanation for SQL safety>
suggested_query: <safe alternative query if applicable>

Rules for user authorization:
- Users can ONLY access their own data (must include WHERE id = %d)
- Sensitive fields include: %s
- Users can see their own: %s
- Always err on the side of caution when protecting user data

Rules for SQL safety:
1. Only allow SELECT queries
2. No UNION, JOIN, or subqueries that could expose other users' data
3. No OR conditions that could bypass WHERE clauses
4. No LIKE patterns that could match multiple users
5. Must include proper WHERE clause restrictions
6. No attempts to modify data or schema

Example response for "What's my address?":
authorized: true
reason: User is requesting their own address
sensitive_fields: []
sql_query: SELECT address FROM users WHERE id = %[2]d
safe: true
sql_reason: Query is properly restricted to a single user
suggested_query: null

Example response for "Find users who live near me":
authorized: false
reason: Query could expose other users' data
sensitive_fields: []
sql_query: null
safe: false
sql_reason: Query not generated due to authorization failure
suggested_query: null`

// CombinedStage is the single-pass authorization+safety guardrail.
type CombinedStage struct {
	oracle      oracle.Oracle
	instruction string
}

// NewCombined builds the single-pass stage for the given principal.
func NewCombined(o oracle.Oracle, p identity.Principal, params Params) *CombinedStage {
	return &CombinedStage{
		oracle: o,
		instruction: fmt.Sprintf(combinedTemplate,
			p.Describe(),
			p.ID,
			strings.Join(params.SensitiveFields, ", "),
			strings.Join(params.ViewableFields, ", ")),
	}
}

// Review judges one request in a single oracle pass.
func (s *CombinedStage) Review(ctx context.Context, request string) (verdict.Combined, error) {
	raw, err := s.oracle.Complete(ctx, s.instruction, "Query: "+request)
	if err != nil {
		return verdict.Combined{}, fmt.Errorf("combined stage: %w", err)
	}
	return verdict.ParseCombined(raw), nil
}
