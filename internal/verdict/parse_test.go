package verdict

import (
	"reflect"
	"strings"
	"testing"
)

func strptr(s string) *string { return &s }

func TestParseAuthorizationWellFormed(t *testing.T) {
	raw := `authorized: true
reason: User is requesting their own address
sensitive_fields: []
sql_query: SELECT address FROM users WHERE id = 7`

	v := ParseAuthorization(raw)

	if !v.Authorized {
		t.Error("expected authorized=true")
	}
	if v.Reason != "User is requesting their own address" {
		t.Errorf("unexpected reason: %q", v.Reason)
	}
	if len(v.SensitiveFields) != 0 {
		t.Errorf("expected empty sensitive_fields, got %v", v.SensitiveFields)
	}
	if v.SQLQuery == nil || *v.SQLQuery != "SELECT address FROM users WHERE id = 7" {
		t.Errorf("unexpected sql_query: %v", v.SQLQuery)
	}
}

func TestParseAuthorizationDenied(t *testing.T) {
	raw := `authorized: false
reason: Cannot access another user's data
sensitive_fields: [ssn, phone_number]
sql_query: null`

	v := ParseAuthorization(raw)

	if v.Authorized {
		t.Error("expected authorized=false")
	}
	want := []string{"ssn", "phone_number"}
	if !reflect.DeepEqual(v.SensitiveFields, want) {
		t.Errorf("sensitive_fields = %v, want %v", v.SensitiveFields, want)
	}
	if v.SQLQuery != nil {
		t.Errorf("expected nil sql_query, got %q", *v.SQLQuery)
	}
}

func TestParseCaseAndWhitespaceTolerance(t *testing.T) {
	raw := "  AUTHORIZED:   TRUE  \n  Reason:  ok  \n  SQL_Query:  SELECT email FROM users WHERE id = 3  "

	v := ParseAuthorization(raw)

	if !v.Authorized {
		t.Error("uppercase field names and values should still parse")
	}
	if v.Reason != "ok" {
		t.Errorf("reason not trimmed: %q", v.Reason)
	}
	if v.SQLQuery == nil || *v.SQLQuery != "SELECT email FROM users WHERE id = 3" {
		t.Errorf("sql_query should keep original casing, got %v", v.SQLQuery)
	}
}

func TestParseBooleanIsTokenStrict(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"authorized: true", true},
		{"authorized: True", true},
		{"authorized: true, the request is fine", true},
		{"authorized: false", false},
		{"authorized: untrue", false},
		{"authorized: truelove", false},
		{"authorized: yes", false},
		{"authorized:", false},
		{"", false},
	}

	for _, tc := range cases {
		v := ParseAuthorization(tc.line)
		if v.Authorized != tc.want {
			t.Errorf("%q: authorized = %v, want %v", tc.line, v.Authorized, tc.want)
		}
	}
}

func TestParseMalformedYieldsSafeDefaults(t *testing.T) {
	inputs := []string{
		"",
		"    \n\n   ",
		"completely unrelated prose from the model",
		"authorized true\nreason ok",          // missing colons
		"sql_query: SELECT * FROM users",      // query without authorization
		"{\"authorized\": true}",              // JSON instead of lines
		strings.Repeat("garbage line\n", 100), // noise
	}

	for _, raw := range inputs {
		v := ParseAuthorization(raw)
		if v.Authorized {
			t.Errorf("%q: malformed input must never authorize", raw)
		}
		if raw == "sql_query: SELECT * FROM users" {
			continue // the one recognized field is allowed to populate
		}
		if v.SQLQuery != nil {
			t.Errorf("%q: expected nil sql_query", raw)
		}
	}

	s := ParseSafety("nonsense")
	if s.Safe || s.SuggestedQuery != nil {
		t.Error("malformed safety input must default to unsafe")
	}
	sa := ParseSanitization("")
	if sa.Safe || sa.SanitizedResponse != nil || sa.OriginalResponse != nil {
		t.Error("empty sanitization input must default to unsafe with nil responses")
	}
}

func TestParseUnmatchedLinesIgnored(t *testing.T) {
	raw := `Here is my analysis of the request:
authorized: true
reason: own data
I hope this helps!
sensitive_fields: []
sql_query: SELECT email FROM users WHERE id = 2`

	v := ParseAuthorization(raw)
	if !v.Authorized || v.SQLQuery == nil {
		t.Error("prose lines around recognized fields must not break parsing")
	}
}

func TestParseSetVariants(t *testing.T) {
	cases := []struct {
		rest string
		want []string
	}{
		{"sensitive_fields: []", []string{}},
		{"sensitive_fields:", []string{}},
		{"sensitive_fields: [ssn]", []string{"ssn"}},
		{"sensitive_fields: [ssn, address, date_of_birth]", []string{"ssn", "address", "date_of_birth"}},
		{"sensitive_fields: ssn, address", []string{"ssn", "address"}},
		{"sensitive_fields: [ , , ]", []string{}},
	}

	for _, tc := range cases {
		v := ParseAuthorization(tc.rest)
		if !reflect.DeepEqual(v.SensitiveFields, tc.want) {
			t.Errorf("%q: got %v, want %v", tc.rest, v.SensitiveFields, tc.want)
		}
	}
}

func TestParseSanitization(t *testing.T) {
	raw := `safe: false
reason: Response contains full SSN number
sanitized_response: Your SSN is REDACTED
original_response: Your SSN is 123-45-6789`

	v := ParseSanitization(raw)

	if v.Safe {
		t.Error("expected safe=false")
	}
	if v.SanitizedResponse == nil || *v.SanitizedResponse != "Your SSN is REDACTED" {
		t.Errorf("unexpected sanitized_response: %v", v.SanitizedResponse)
	}
	if v.OriginalResponse == nil || *v.OriginalResponse != "Your SSN is 123-45-6789" {
		t.Errorf("unexpected original_response: %v", v.OriginalResponse)
	}
}

func TestParseCombined(t *testing.T) {
	raw := `authorized: true
reason: User is requesting their own address
sensitive_fields: [address]
sql_query: SELECT address FROM users WHERE id = 5
safe: true
sql_reason: Query is properly restricted to a single user
suggested_query: null`

	v := ParseCombined(raw)

	if !v.Authorized || !v.Safe {
		t.Error("expected both authorized and safe")
	}
	if v.Reason != "User is requesting their own address" {
		t.Errorf("reason crossed with sql_reason: %q", v.Reason)
	}
	if v.SQLReason != "Query is properly restricted to a single user" {
		t.Errorf("unexpected sql_reason: %q", v.SQLReason)
	}
	if v.SQLQuery == nil || v.SuggestedQuery != nil {
		t.Error("optional fields mis-parsed")
	}
}

func TestRoundTrip(t *testing.T) {
	auths := []Authorization{
		{Authorized: true, Reason: "own data", SensitiveFields: []string{}, SQLQuery: strptr("SELECT email FROM users WHERE id = 9")},
		{Authorized: false, Reason: "cannot access another user's data", SensitiveFields: []string{"ssn", "address"}},
		{Reason: invalidFormat, SensitiveFields: []string{}},
	}
	for _, v := range auths {
		got := ParseAuthorization(v.String())
		if !reflect.DeepEqual(got, v) {
			t.Errorf("authorization round-trip mismatch:\n got %+v\nwant %+v", got, v)
		}
	}

	safeties := []Safety{
		{Safe: true, Reason: "restricted to a single user"},
		{Safe: false, Reason: "tautological predicate", SuggestedQuery: strptr("SELECT address FROM users WHERE id = 1")},
	}
	for _, v := range safeties {
		got := ParseSafety(v.String())
		if !reflect.DeepEqual(got, v) {
			t.Errorf("safety round-trip mismatch:\n got %+v\nwant %+v", got, v)
		}
	}

	sans := []Sanitization{
		{Safe: true, Reason: "only non-sensitive data"},
		{Safe: false, Reason: "full SSN present", SanitizedResponse: strptr("Your SSN is REDACTED"), OriginalResponse: strptr("Your SSN is 123-45-6789")},
	}
	for _, v := range sans {
		got := ParseSanitization(v.String())
		if !reflect.DeepEqual(got, v) {
			t.Errorf("sanitization round-trip mismatch:\n got %+v\nwant %+v", got, v)
		}
	}

	comb := Combined{
		Authorized:      true,
		Reason:          "own data",
		SensitiveFields: []string{"date_of_birth"},
		SQLQuery:        strptr("SELECT date_of_birth FROM users WHERE id = 4"),
		Safe:            true,
		SQLReason:       "single-user scope",
	}
	if got := ParseCombined(comb.String()); !reflect.DeepEqual(got, comb) {
		t.Errorf("combined round-trip mismatch:\n got %+v\nwant %+v", got, comb)
	}
}

func FuzzParseAuthorization(f *testing.F) {
	f.Add("authorized: true\nreason: ok\nsensitive_fields: []\nsql_query: null")
	f.Add("")
	f.Add("authorized: TRUE AUTHORIZED TRUE")
	f.Add("sql_query: SELECT * FROM users; DROP TABLE users")
	f.Add(strings.Repeat("a:", 1000))

	f.Fuzz(func(t *testing.T, raw string) {
		// Must not panic, and malformed input must stay fail-closed.
		v := ParseAuthorization(raw)
		if v.Authorized && !strings.Contains(strings.ToLower(raw), "true") {
			t.Errorf("authorized without the token true in input: %q", raw)
		}
	})
}
