package sqlcheck

import (
	"context"
	"fmt"

	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/verdict"
)

// verifyInstruction is the fixed system instruction for the SQL safety
// oracle. It is not parameterized at all — the query under judgment
// travels only in the user message.
const verifyInstruction = `You are a SQL security verification system that checks SQL queries for potential injection attacks and malicious patterns.

Your job is to analyze SQL queries and return a response in EXACTLY this format:
safe: true/false
reason: <explanation>
suggested_query: <safe alternative query if applicable>

Rules for SQL safety:
1. Only allow SELECT queries
2. No UNION, JOIN, or subqueries that could expose other users' data
3. No string concatenation or dynamic SQL
4. No OR conditions that could bypass WHERE clauses
5. No LIKE patterns that could match multiple users
6. No functions that could be used maliciously (e.g., substr, instr)
7. Must include proper WHERE clause restrictions
8. No attempts to access system tables or metadata
9. No attempts to modify data (INSERT, UPDATE, DELETE)
10. No attempts to create or drop tables

Examples of unsafe queries:
- "SELECT * FROM users WHERE id = 1 OR 1=1"
- "SELECT * FROM users WHERE first_name LIKE '%'"
- "SELECT * FROM users UNION SELECT * FROM users"
- "SELECT * FROM users WHERE id = (SELECT id FROM users LIMIT 1)"

Examples of safe queries:
- "SELECT first_name, last_name FROM users WHERE id = 1"
- "SELECT address FROM users WHERE id = 1"

Example response for unsafe query "SELECT * FROM users WHERE id = 1 OR 1=1":
safe: false
reason: Query contains OR condition that could bypass WHERE clause
suggested_query: SELECT first_name, last_name FROM users WHERE id = 1

Example response for safe query "SELECT address FROM users WHERE id = 1":
safe: true
reason: Query is properly restricted to a single user
suggested_query: null`

// Stage is the oracle-backed second opinion on a proposed query.
type Stage struct {
	oracle      oracle.Oracle
	principalID int64
}

// New builds the stage. The principal ID anchors the mechanical gate.
func New(o oracle.Oracle, principalID int64) *Stage {
	return &Stage{oracle: o, principalID: principalID}
}

// Review runs the mechanical gate and, only if it passes, the oracle
// judge. Gate rejections come back as an unsafe verdict carrying a
// rescoped suggestion — they do not consult the oracle at all, so a
// fooled or degraded oracle can never override the gate.
func (s *Stage) Review(ctx context.Context, query string) (verdict.Safety, error) {
	if err := Inspect(query, s.principalID); err != nil {
		v := verdict.Safety{Safe: false, Reason: err.Error()}
		if sug := Rescope(query, s.principalID); sug != "" {
			v.SuggestedQuery = &sug
		}
		return v, nil
	}

	raw, err := s.oracle.Complete(ctx, verifyInstruction, "SQL Query to verify: "+query)
	if err != nil {
		return verdict.Safety{}, fmt.Errorf("safety stage: %w", err)
	}
	return verdict.ParseSafety(raw), nil
}
