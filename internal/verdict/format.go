package verdict

import "strings"

// The String methods re-serialize a verdict into the line-oriented wire
// form the parser accepts. Parsing a serialized verdict yields an equal
// verdict, which is what makes verdicts safe to log and replay.

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatSet(fields []string) string {
	return "[" + strings.Join(fields, ", ") + "]"
}

func formatOptional(v *string) string {
	if v == nil {
		return "null"
	}
	return *v
}

func (v Authorization) String() string {
	var b strings.Builder
	b.WriteString("authorized: " + formatBool(v.Authorized) + "\n")
	b.WriteString("reason: " + v.Reason + "\n")
	b.WriteString("sensitive_fields: " + formatSet(v.SensitiveFields) + "\n")
	b.WriteString("sql_query: " + formatOptional(v.SQLQuery))
	return b.String()
}

func (v Safety) String() string {
	var b strings.Builder
	b.WriteString("safe: " + formatBool(v.Safe) + "\n")
	b.WriteString("reason: " + v.Reason + "\n")
	b.WriteString("suggested_query: " + formatOptional(v.SuggestedQuery))
	return b.String()
}

func (v Sanitization) String() string {
	var b strings.Builder
	b.WriteString("safe: " + formatBool(v.Safe) + "\n")
	b.WriteString("reason: " + v.Reason + "\n")
	b.WriteString("sanitized_response: " + formatOptional(v.SanitizedResponse) + "\n")
	b.WriteString("original_response: " + formatOptional(v.OriginalResponse))
	return b.String()
}

func (v Combined) String() string {
	var b strings.Builder
	b.WriteString("authorized: " + formatBool(v.Authorized) + "\n")
	b.WriteString("reason: " + v.Reason + "\n")
	b.WriteString("sensitive_fields: " + formatSet(v.SensitiveFields) + "\n")
	b.WriteString("sql_query: " + formatOptional(v.SQLQuery) + "\n")
	b.WriteString("safe: " + formatBool(v.Safe) + "\n")
	b.WriteString("sql_reason: " + v.SQLReason + "\n")
	b.WriteString("suggested_query: " + formatOptional(v.SuggestedQuery))
	return b.String()
}
