package verdict

import (
	"strings"
)

// Kind selects how a field's line remainder is interpreted.
type Kind int

const (
	// KindBool is true only when the remainder contains the token "true".
	KindBool Kind = iota
	// KindText keeps the trimmed remainder verbatim.
	KindText
	// KindSet parses "[a, b, c]" into trimmed tokens.
	KindSet
	// KindOptional yields nil for empty or literal "null" remainders.
	KindOptional
)

// Field is one expected "name:" line in a verdict schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of expected fields. Order is match precedence:
// for each input line the first field whose prefix matches consumes it.
type Schema []Field

// invalidFormat is the default reason before any reason line is seen,
// and the reason reported when parsing itself fails.
const invalidFormat = "invalid response format"

var (
	authorizationSchema = Schema{
		{Name: "authorized", Kind: KindBool},
		{Name: "reason", Kind: KindText},
		{Name: "sensitive_fields", Kind: KindSet},
		{Name: "sql_query", Kind: KindOptional},
	}

	safetySchema = Schema{
		{Name: "safe", Kind: KindBool},
		{Name: "reason", Kind: KindText},
		{Name: "suggested_query", Kind: KindOptional},
	}

	sanitizationSchema = Schema{
		{Name: "safe", Kind: KindBool},
		{Name: "reason", Kind: KindText},
		{Name: "sanitized_response", Kind: KindOptional},
		{Name: "original_response", Kind: KindOptional},
	}

	combinedSchema = Schema{
		{Name: "authorized", Kind: KindBool},
		{Name: "reason", Kind: KindText},
		{Name: "sensitive_fields", Kind: KindSet},
		{Name: "sql_query", Kind: KindOptional},
		{Name: "safe", Kind: KindBool},
		{Name: "sql_reason", Kind: KindText},
		{Name: "suggested_query", Kind: KindOptional},
	}
)

// record holds parsed field values keyed by field name.
type record struct {
	bools map[string]bool
	texts map[string]string
	sets  map[string][]string
	opts  map[string]*string
}

func newRecord(s Schema) *record {
	r := &record{
		bools: make(map[string]bool),
		texts: make(map[string]string),
		sets:  make(map[string][]string),
		opts:  make(map[string]*string),
	}
	for _, f := range s {
		switch f.Kind {
		case KindBool:
			r.bools[f.Name] = false
		case KindText:
			r.texts[f.Name] = ""
		case KindSet:
			r.sets[f.Name] = []string{}
		case KindOptional:
			r.opts[f.Name] = nil
		}
	}
	if _, ok := r.texts["reason"]; ok {
		r.texts["reason"] = invalidFormat
	}
	return r
}

// parse runs the tolerant line parser. It never propagates a panic: any
// failure mid-parse yields the schema's safe-default record with a
// parse-failure reason. This is the property the whole pipeline leans on.
func parse(s Schema, raw string) (rec *record) {
	rec = newRecord(s)
	defer func() {
		if r := recover(); r != nil {
			rec = newRecord(s)
			if _, ok := rec.texts["reason"]; ok {
				rec.texts["reason"] = "error parsing response"
			}
		}
	}()

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		for _, f := range s {
			prefix := f.Name + ":"
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := strings.TrimSpace(line[len(prefix):])
			switch f.Kind {
			case KindBool:
				rec.bools[f.Name] = containsToken(strings.ToLower(rest), "true")
			case KindText:
				rec.texts[f.Name] = rest
			case KindSet:
				rec.sets[f.Name] = parseSet(rest)
			case KindOptional:
				rec.opts[f.Name] = parseOptional(rest)
			}
			break // first matching prefix consumes the line
		}
	}
	return rec
}

// containsToken reports whether text contains word as a standalone token,
// so that "untrue" or "truelove" never satisfy a boolean field.
func containsToken(text, word string) bool {
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}) {
		if tok == word {
			return true
		}
	}
	return false
}

func parseSet(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" || rest == "[]" {
		return []string{}
	}
	rest = strings.TrimPrefix(rest, "[")
	rest = strings.TrimSuffix(rest, "]")
	var out []string
	for _, tok := range strings.Split(rest, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func parseOptional(rest string) *string {
	rest = strings.TrimSpace(rest)
	if rest == "" || strings.EqualFold(rest, "null") {
		return nil
	}
	return &rest
}

// ParseAuthorization parses oracle text under the authorization schema.
func ParseAuthorization(raw string) Authorization {
	r := parse(authorizationSchema, raw)
	return Authorization{
		Authorized:      r.bools["authorized"],
		Reason:          r.texts["reason"],
		SensitiveFields: r.sets["sensitive_fields"],
		SQLQuery:        r.opts["sql_query"],
	}
}

// ParseSafety parses oracle text under the SQL safety schema.
func ParseSafety(raw string) Safety {
	r := parse(safetySchema, raw)
	return Safety{
		Safe:           r.bools["safe"],
		Reason:         r.texts["reason"],
		SuggestedQuery: r.opts["suggested_query"],
	}
}

// ParseSanitization parses oracle text under the output sanitization schema.
func ParseSanitization(raw string) Sanitization {
	r := parse(sanitizationSchema, raw)
	return Sanitization{
		Safe:              r.bools["safe"],
		Reason:            r.texts["reason"],
		SanitizedResponse: r.opts["sanitized_response"],
		OriginalResponse:  r.opts["original_response"],
	}
}

// ParseCombined parses oracle text under the single-pass combined schema.
// The schema carries two reason fields; they cannot collide because prefix
// matching is anchored at line start, so "sql_reason:" never satisfies the
// bare "reason:" prefix.
func ParseCombined(raw string) Combined {
	r := parse(combinedSchema, raw)
	c := Combined{
		Authorized:      r.bools["authorized"],
		Reason:          r.texts["reason"],
		SensitiveFields: r.sets["sensitive_fields"],
		SQLQuery:        r.opts["sql_query"],
		Safe:            r.bools["safe"],
		SQLReason:       r.texts["sql_reason"],
		SuggestedQuery:  r.opts["suggested_query"],
	}
	return c
}
