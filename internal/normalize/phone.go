package normalize

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneParts holds the stored forms of a phone number: the raw value
// as the remote platform sent it, an E.164 rendering when parseable,
// and the last-10-digit form used for cross-entity matching.
type PhoneParts struct {
	Raw     string
	E164    string
	LastTen string
}

// NormalizePhone is best-effort: numbers the library cannot parse fall
// back to plain digit stripping and never fail the record.
func NormalizePhone(raw string) PhoneParts {
	out := PhoneParts{Raw: strings.TrimSpace(raw)}
	if out.Raw == "" {
		return out
	}

	digits := digitsOnly(out.Raw)
	out.LastTen = lastN(digits, 10)

	num, err := phonenumbers.Parse(out.Raw, "US")
	if err == nil && phonenumbers.IsValidNumber(num) {
		out.E164 = phonenumbers.Format(num, phonenumbers.E164)
		out.LastTen = lastN(digitsOnly(out.E164), 10)
	}
	return out
}

// LastTenDigits matches two numbers the way the dashboard does:
// by their trailing ten digits, ignoring country code and formatting.
func LastTenDigits(raw string) string {
	return lastN(digitsOnly(raw), 10)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
