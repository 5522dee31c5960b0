package scenario

import "gopkg.in/yaml.v3"

// OracleScript holds the canned oracle completion for each stage of a
// case. An absent entry plays back as an empty completion, which the
// verdict parser treats fail-closed. Fail names a stage whose oracle
// call should fail outright instead of completing.
type OracleScript struct {
	Authorization string `yaml:"authorization,omitempty"`
	Safety        string `yaml:"safety,omitempty"`
	Sanitization  string `yaml:"sanitization,omitempty"`
	Assistant     string `yaml:"assistant,omitempty"`
	Fail          string `yaml:"fail,omitempty"`
}

// Principal identifies the session principal a scenario runs as.
type Principal struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// Case is one pipeline run within a scenario.
type Case struct {
	Request string       `yaml:"request"`
	Oracle  OracleScript `yaml:"oracle"`

	// Result is the canned executor output; ExecError makes the
	// executor fail instead.
	Result    string `yaml:"result,omitempty"`
	ExecError string `yaml:"exec_error,omitempty"`

	// Expect is the expected terminal state (DENIED, BLOCKED,
	// RESPONDED, ERRORED). Response, when set, must match the released
	// text exactly.
	Expect   string `yaml:"expect"`
	Response string `yaml:"response,omitempty"`
}

// Scenario is a named collection of pipeline test cases for one
// principal. Policy overlays the default pipeline policy the same way
// a policy file does.
type Scenario struct {
	Name      string    `yaml:"name"`
	Principal Principal `yaml:"principal"`
	Policy    yaml.Node `yaml:"policy,omitempty"`
	Cases     []Case    `yaml:"cases"`
}

// CaseResult is the outcome of running one case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Request  string `json:"request"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
	Response string `json:"response,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
