package audit

// Entry is one line in the hash-chained JSONL audit log: a single stage
// decision for a single request. All fields are scalars (no map[string]any)
// to guarantee deterministic json.Marshal field order for reproducible
// hashing.
type Entry struct {
	Timestamp   string `json:"ts"`
	SessionID   string `json:"session_id"`
	PrincipalID int64  `json:"principal_id"`
	Stage       string `json:"stage"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
	Query       string `json:"query,omitempty"`
	PolicyHash  string `json:"policy_hash,omitempty"`
	PrevHash    string `json:"prev_hash"`
}
