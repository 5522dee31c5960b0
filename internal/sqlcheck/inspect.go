// Package sqlcheck re-judges proposed SQL before anything touches the
// record store. Two layers: a mechanical gate (this file) that cannot be
// talked out of its rules, and an oracle judge (stage.go) for a second
// opinion on anything the gate lets through. The gate exists because the
// proposed query is itself oracle output and therefore untrusted.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	selectRe    = regexp.MustCompile(`(?i)^select\s`)
	commentRe   = regexp.MustCompile(`--|/\*`)
	tautologyRe = regexp.MustCompile(`(?i)\b(\d+)\s*=\s*(\d+)\b`)
	selectAllRe = regexp.MustCompile(`(?i)\bselect\b`)

	// The FROM clause must name the users table and nothing else; the
	// adjacency to WHERE rules out comma-joined second tables.
	fromUsersRe = regexp.MustCompile(`(?i)\bfrom\s+users\s+where\b`)

	// Constructs that join, escape, or widen the single-row scope.
	forbiddenTokens = []string{
		"union", "join", "or", "like", "glob", "regexp", "in",
		"insert", "update", "delete", "drop", "create", "alter",
		"attach", "detach", "pragma", "vacuum", "replace",
	}

	systemTables = []string{"sqlite_master", "sqlite_schema", "sqlite_temp_master"}
)

// scopeRe builds the required single-principal predicate for an ID.
func scopeRe(principalID int64) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)\bwhere\s+id\s*=\s*%d\b`, principalID))
}

// Inspect mechanically verifies that query is a lone read-only SELECT
// scoped to exactly the given principal's row. It is deliberately
// stricter than a SQL grammar: anything it cannot prove harmless is
// rejected with a reason. A nil error means the gate passed.
func Inspect(query string, principalID int64) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")

	if q == "" {
		return fmt.Errorf("empty query")
	}
	if !selectRe.MatchString(q) {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}
	if commentRe.MatchString(q) {
		return fmt.Errorf("SQL comments are not allowed")
	}
	if len(selectAllRe.FindAllString(q, -1)) > 1 {
		return fmt.Errorf("subqueries are not allowed")
	}

	lower := strings.ToLower(q)
	for _, tbl := range systemTables {
		if strings.Contains(lower, tbl) {
			return fmt.Errorf("system table access is not allowed")
		}
	}

	if m := tautologyRe.FindStringSubmatch(q); m != nil && m[1] == m[2] {
		return fmt.Errorf("tautological predicate %s=%s", m[1], m[2])
	}

	for _, tok := range tokens(lower) {
		for _, bad := range forbiddenTokens {
			if tok == bad {
				return fmt.Errorf("forbidden keyword %s", strings.ToUpper(bad))
			}
		}
	}

	if !scopeRe(principalID).MatchString(q) {
		return fmt.Errorf("query is not scoped to WHERE id = %d", principalID)
	}
	if !fromUsersRe.MatchString(q) {
		return fmt.Errorf("query must read from the users table")
	}

	return nil
}

// Rescope derives a policy-conforming suggestion from a rejected query:
// the same select list, re-anchored to the principal's row. Returns ""
// when the select list cannot be recovered.
func Rescope(query string, principalID int64) string {
	m := regexp.MustCompile(`(?i)^\s*select\s+(.+?)\s+from\s+users\b`).FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	cols := strings.TrimSpace(m[1])
	if cols == "" || cols == "*" {
		cols = "first_name, last_name, email"
	}
	return fmt.Sprintf("SELECT %s FROM users WHERE id = %d", cols, principalID)
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '_')
	})
}
