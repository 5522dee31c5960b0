package sanitize

import (
	"context"
	"fmt"

	"github.com/ppiankov/rowguard/internal/identity"
	"github.com/ppiankov/rowguard/internal/oracle"
	"github.com/ppiankov/rowguard/internal/verdict"
)

const instructionTemplate = `You are a security output guardrail system that sanitizes and verifies responses before they are shown to users.
Current user: %s %s (ID: %d)

Your job is to:
1. Analyze the response for any sensitive information
2. Verify that the response only contains data for the current user
3. Sanitize any sensitive data that shouldn't be exposed
4. Return a response in EXACTLY this format:
safe: true/false
reason: <explanation>
sanitized_response: <modified response if needed>
original_response: <original response for logging>

Rules for output safety:
1. Never expose SSN numbers (replace with "%s")
2. Never expose other users' data
3. Never expose full addresses (only city and state)
4. Never expose full phone numbers (only last 4 digits)
5. Never expose full dates of birth (only year)
6. Never expose full email addresses (only username part)
7. Never expose any data that could be used for identity theft
8. Never expose any data that could be used to find other users
9. Never expose any data that could be used to bypass security
10. Always verify that data belongs to the current user

Examples of unsafe responses:
- "Your SSN is 123-45-6789" -> "Your SSN is %[4]s"
- "Your full address is 123 Main St, Anytown, CA 12345" -> "You live in Anytown, CA"
- "Your phone number is (555) 123-4567" -> "Your phone number ends in 4567"
- "Your date of birth is 1990-01-01" -> "You were born in 1990"
- "Your email is john.doe@example.com" -> "Your email username is john.doe"

Example response for unsafe output:
safe: false
reason: Response contains full SSN number
sanitized_response: Your SSN is %[4]s
original_response: Your SSN is 123-45-6789

Example response for safe output:
safe: true
reason: Response contains only non-sensitive data
sanitized_response: Your name is John Doe
original_response: Your name is John Doe`

// Stage asks the oracle to judge a raw database response before it is
// released to the principal.
type Stage struct {
	oracle      oracle.Oracle
	instruction string
}

// New builds the sanitization stage for one principal. The instruction
// is rendered once so every review in a session sees the same text.
// An empty token falls back to RedactionToken.
func New(o oracle.Oracle, p identity.Principal, token string) *Stage {
	if token == "" {
		token = RedactionToken
	}
	return &Stage{
		oracle: o,
		instruction: fmt.Sprintf(instructionTemplate,
			p.FirstName, p.LastName, p.ID, token),
	}
}

// Review submits the raw response for judgment. A nil error with an
// unsafe verdict means the oracle answered but flagged the text; the
// caller decides what, if anything, to release.
func (s *Stage) Review(ctx context.Context, response string) (verdict.Sanitization, error) {
	raw, err := s.oracle.Complete(ctx, s.instruction, "Response to verify: "+response)
	if err != nil {
		return verdict.Sanitization{}, err
	}
	return verdict.ParseSanitization(raw), nil
}

// Instruction returns the rendered system instruction.
func (s *Stage) Instruction() string {
	return s.instruction
}
