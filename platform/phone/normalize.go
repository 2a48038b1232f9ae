// Package phone normalizes phone numbers for storage and reduces them to the
// key used for duplicate detection.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	// DefaultRegion reads national numbers when no region is configured.
	DefaultRegion = "PK"
	// MatchKeyLength is how many trailing digits two contacts must share.
	MatchKeyLength = 9
)

// NormalizeE164 formats input as E.164, reading numbers without a country
// prefix in region. Input that does not parse to a valid number is returned
// trimmed but otherwise untouched, so the raw value is kept on the lead.
func NormalizeE164(input, region string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	if num, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return raw
}

// MatchKey reduces a raw phone string to the digits used for duplicate detection:
// non-digits are stripped, a "00" international prefix and then a single trunk "0"
// are dropped, and only the last MatchKeyLength digits are kept.
//
// Country-code variance is absorbed by comparing the national tail only. Two distinct
// numbers sharing their last nine digits are treated as the same contact.
// The reduction is repeated until stable so that MatchKey(MatchKey(x)) == MatchKey(x)
// also holds when a truncated tail starts with a zero. "" never matches a lead.
func MatchKey(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	for {
		next := reduceOnce(digits)
		if next == digits {
			return digits
		}
		digits = next
	}
}

func reduceOnce(digits string) string {
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	if strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	if len(digits) > MatchKeyLength {
		digits = digits[len(digits)-MatchKeyLength:]
	}
	return digits
}
