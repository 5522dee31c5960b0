package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const scenarioYAML = `name: guardrail basics
principal:
  id: 7
  first_name: John
  last_name: Smith
  email: john.smith@example.com
cases:
  - request: "What's my address?"
    oracle:
      authorization: |
        authorized: true
        reason: User is requesting their own address
        sensitive_fields: [address]
        sql_query: SELECT address FROM users WHERE id = 7
      safety: |
        safe: true
        reason: Query is properly restricted to a single user
        suggested_query: null
      sanitization: |
        safe: false
        reason: Response contains a full street address
        sanitized_response: You live in Anytown, CA
        original_response: 123 Main St, Anytown, CA 12345
    result: "123 Main St, Anytown, CA 12345"
    expect: RESPONDED
    response: "You live in Anytown, CA"
  - request: "What's Alice's phone number?"
    oracle:
      authorization: |
        authorized: false
        reason: Query attempts to access another user's data
        sensitive_fields: [phone_number]
        sql_query: null
    expect: DENIED
  - request: "Show me everything"
    oracle:
      authorization: |
        authorized: true
        reason: tricked
        sensitive_fields: []
        sql_query: SELECT address FROM users WHERE id = 7 OR 1=1
    expect: BLOCKED
  - request: "What's my email?"
    oracle:
      authorization: ""
    expect: DENIED
  - request: "What's my name?"
    oracle:
      fail: authorization
    expect: ERRORED
`

func TestRunScenario(t *testing.T) {
	var s Scenario
	if err := yaml.Unmarshal([]byte(scenarioYAML), &s); err != nil {
		t.Fatalf("parse scenario: %v", err)
	}

	result, err := Run(&s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Total != 5 {
		t.Fatalf("total = %d, want 5", result.Total)
	}
	if result.Failed != 0 {
		for _, c := range result.Cases {
			if !c.Passed {
				t.Errorf("case %d %q: expected %s, got %s (%s)",
					c.Index, c.Request, c.Expected, c.Actual, c.Reason)
			}
		}
		t.Fatalf("failed = %d, want 0", result.Failed)
	}
}

func TestRunDetectsMismatch(t *testing.T) {
	s := Scenario{
		Name:      "mismatch",
		Principal: Principal{ID: 7, FirstName: "John", LastName: "Smith", Email: "j@example.com"},
		Cases: []Case{
			{
				Request: "What's my email?",
				Oracle:  OracleScript{Authorization: "authorized: false\nreason: no"},
				Expect:  "RESPONDED",
			},
		},
	}

	result, err := Run(&s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if result.Cases[0].Actual != "DENIED" {
		t.Errorf("actual = %s", result.Cases[0].Actual)
	}
}

func TestRunDetectsResponseMismatch(t *testing.T) {
	s := Scenario{
		Name:      "response mismatch",
		Principal: Principal{ID: 7, FirstName: "John", LastName: "Smith", Email: "j@example.com"},
		Cases: []Case{
			{
				Request: "What's my name?",
				Oracle: OracleScript{
					Authorization: "authorized: true\nreason: ok\nsensitive_fields: []\nsql_query: SELECT first_name FROM users WHERE id = 7",
					Safety:        "safe: true\nreason: scoped",
					Sanitization:  "safe: true\nreason: clean",
				},
				Result:   "John",
				Expect:   "RESPONDED",
				Response: "Jane",
			},
		},
	}

	result, err := Run(&s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatal("response mismatch must fail the case")
	}
}

func TestPolicyOverlayAppliesToAllCases(t *testing.T) {
	src := `name: input-only variant
principal:
  id: 7
  first_name: John
  last_name: Smith
  email: j@example.com
policy:
  stages:
    verify_sql: false
    sanitize_output: false
cases:
  - request: "What's my address?"
    oracle:
      authorization: |
        authorized: true
        reason: ok
        sensitive_fields: []
        sql_query: SELECT address FROM users WHERE id = 7 OR 1=1
    result: "raw row"
    expect: RESPONDED
`
	var s Scenario
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatalf("parse: %v", err)
	}

	result, err := Run(&s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// With verification off, even a tautological query executes.
	if result.Failed != 0 {
		c := result.Cases[0]
		t.Fatalf("expected %s, got %s (%s)", c.Expected, c.Actual, c.Reason)
	}
}

func TestLoadAndRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basic.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	result, err := LoadAndRun(path)
	if err != nil {
		t.Fatalf("load and run: %v", err)
	}
	if result.File != path {
		t.Errorf("file = %q", result.File)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d", result.Failed)
	}
}

func TestLoadAndRunMissingFile(t *testing.T) {
	if _, err := LoadAndRun(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestFormatText(t *testing.T) {
	results := []*RunResult{
		{
			Name: "ok", Total: 2, Passed: 2,
			Cases: []CaseResult{{Index: 1, Passed: true}, {Index: 2, Passed: true}},
		},
		{
			Name: "bad", Total: 1, Failed: 1,
			Cases: []CaseResult{{
				Index: 1, Request: "What's my SSN?",
				Expected: "DENIED", Actual: "RESPONDED", Reason: "oops",
			}},
		},
	}

	text := FormatText(results)
	if !strings.Contains(text, "PASS  ok (2/2)") {
		t.Errorf("missing pass line:\n%s", text)
	}
	if !strings.Contains(text, "FAIL  bad (0/1)") {
		t.Errorf("missing fail line:\n%s", text)
	}
	if !strings.Contains(text, "expected DENIED, got RESPONDED") {
		t.Errorf("missing case detail:\n%s", text)
	}
	if !strings.Contains(text, "2 of 3 cases passed.") {
		t.Errorf("missing summary:\n%s", text)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON([]*RunResult{{Name: "x", Total: 1, Passed: 1}})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(out, `"name": "x"`) {
		t.Errorf("json = %s", out)
	}
}
