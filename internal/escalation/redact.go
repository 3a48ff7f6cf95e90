// Package escalation hands flagged interactions to human review with PII
// stripped and regional resources attached.
package escalation

import (
	"errors"
	"regexp"
)

// ErrRedactionIncomplete means PII may remain after redaction. Callers must
// fail closed: drop the content, keep the metadata.
var ErrRedactionIncomplete = errors.New("redaction could not be verified")

// Placeholder tokens substituted for detected PII.
const (
	placeholderEmail = "[EMAIL]"
	placeholderCard  = "[CARD]"
	placeholderID    = "[ID]"
	placeholderPhone = "[PHONE]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	cardPattern  = regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`)
	govIDPattern = regexp.MustCompile(`\b\d{3}[\- ]\d{2}[\- ]\d{4}\b`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

// Redact replaces email, payment-card-like, government-id-like, and
// phone-number patterns with fixed placeholders, then verifies nothing
// slipped through. On verification failure it returns
// ErrRedactionIncomplete and the caller must withhold the content.
func Redact(content string) (string, error) {
	out := emailPattern.ReplaceAllString(content, placeholderEmail)
	out = cardPattern.ReplaceAllString(out, placeholderCard)
	out = govIDPattern.ReplaceAllString(out, placeholderID)
	out = phonePattern.ReplaceAllString(out, placeholderPhone)

	if containsPII(out) {
		return "", ErrRedactionIncomplete
	}
	return out, nil
}

func containsPII(s string) bool {
	return emailPattern.MatchString(s) ||
		cardPattern.MatchString(s) ||
		govIDPattern.MatchString(s) ||
		phonePattern.MatchString(s)
}
