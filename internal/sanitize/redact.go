// Package sanitize screens executed query results before release. The
// oracle judge (stage.go) decides whether text is safe and proposes a
// sanitized rendering; the mechanical engine in this file then scrubs
// whatever is actually released, so a leak requires both layers to fail.
package sanitize

import (
	"regexp"
)

// RedactionToken is the default replacement for identity numbers.
const RedactionToken = "REDACTED"

var (
	// Identity numbers: 3-2-4 digit groups.
	ssnRe = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// Contact numbers: common US formats, captured so the 4-digit
	// suffix survives truncation.
	phoneRe = regexp.MustCompile(`(?:\(\d{3}\)\s?|\d{3}[ .-])\d{3}[ .-](\d{4})\b`)

	// Full ISO dates truncate to year.
	dateRe = regexp.MustCompile(`\b(\d{4})-\d{2}-\d{2}\b`)

	// Email addresses truncate to the local part.
	emailRe = regexp.MustCompile(`\b([a-zA-Z0-9._%+\-]+)@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)
)

// Apply scrubs residual sensitive values from text and returns the
// scrubbed copy plus the number of substitutions made. Zero means the
// text was already clean. An empty token falls back to RedactionToken.
func Apply(text, token string) (string, int) {
	if token == "" {
		token = RedactionToken
	}
	count := 0
	sub := func(re *regexp.Regexp, repl string, literal bool) {
		matches := re.FindAllString(text, -1)
		if len(matches) == 0 {
			return
		}
		count += len(matches)
		if literal {
			text = re.ReplaceAllLiteralString(text, repl)
		} else {
			text = re.ReplaceAllString(text, repl)
		}
	}

	sub(ssnRe, token, true)
	sub(phoneRe, "***-***-$1", false)
	sub(dateRe, "$1", false)
	sub(emailRe, "$1", false)

	return text, count
}
