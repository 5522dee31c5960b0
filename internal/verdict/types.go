// Package verdict defines the typed decision records produced by the
// guardrail stages and the tolerant parser that builds them from raw
// oracle text. The parser is the single fail-closed boundary between
// free-text model output and the rest of the pipeline: malformed,
// truncated, or adversarial text can never flip a boolean to true.
package verdict

// Authorization is the input-guard decision for one request.
// SQLQuery is set only when the request was authorized and the oracle
// proposed a scoped retrieval query.
type Authorization struct {
	Authorized      bool
	Reason          string
	SensitiveFields []string
	SQLQuery        *string
}

// Safety is the independent re-judgment of a proposed SQL query.
// SuggestedQuery, when present, is a policy-conforming alternative that
// is surfaced to the user but never executed automatically.
type Safety struct {
	Safe           bool
	Reason         string
	SuggestedQuery *string
}

// Sanitization is the output-guard decision for raw execution results.
// When Safe is false, SanitizedResponse is what the caller must show;
// OriginalResponse is retained for the audit trail only.
type Sanitization struct {
	Safe              bool
	Reason            string
	SanitizedResponse *string
	OriginalResponse  *string
}

// Combined is the single-pass variant that folds authorization and SQL
// safety into one oracle exchange.
type Combined struct {
	Authorized      bool
	Reason          string
	SensitiveFields []string
	SQLQuery        *string
	Safe            bool
	SQLReason       string
	SuggestedQuery  *string
}

// Split separates a Combined verdict into its Authorization and Safety
// halves so the orchestrator can treat both variants uniformly.
func (c Combined) Split() (Authorization, Safety) {
	return Authorization{
			Authorized:      c.Authorized,
			Reason:          c.Reason,
			SensitiveFields: c.SensitiveFields,
			SQLQuery:        c.SQLQuery,
		}, Safety{
			Safe:           c.Safe,
			Reason:         c.SQLReason,
			SuggestedQuery: c.SuggestedQuery,
		}
}
