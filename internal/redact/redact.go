// Package redact irreversibly replaces credential-shaped substrings with a
// fixed marker before any text is stored or logged, and screens freshly
// supplied credentials for obvious junk values.
package redact

import (
	"regexp"
	"strings"
)

// Marker is the fixed replacement for redacted substrings.
const Marker = "[REDACTED]"

// minEntropyRatio is the unique-character ratio below which a candidate
// credential is treated as junk rather than a real secret.
const minEntropyRatio = 0.30

// Provider-shaped token patterns, ordered so the more specific prefixes win
// before the generic high-entropy sweep: Anthropic, OpenAI/Mistral style,
// Google API keys, raw Authorization header values.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{24,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/\-]{16,}`),
}

// entropyCandidate matches long unbroken token runs that are then filtered by
// a character-diversity check so prose and identifiers survive.
var entropyCandidate = regexp.MustCompile(`[A-Za-z0-9_\-]{28,}`)

// Redactor scans string fields for credential material. The zero value is
// not usable; construct with New.
type Redactor struct{}

// New returns a Redactor.
func New() *Redactor { return &Redactor{} }

// Redact replaces every credential-shaped substring in s with Marker. It runs
// on every string headed to storage or logs, including developer-supplied
// free text such as error messages.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	for _, p := range tokenPatterns {
		s = p.ReplaceAllString(s, Marker)
	}
	s = entropyCandidate.ReplaceAllStringFunc(s, func(m string) string {
		if uniqueRatio(m) >= 0.5 && hasDigitAndLetter(m) {
			return Marker
		}
		return m
	})
	return s
}

// RedactMap redacts every value of a metadata map, returning a new map.
func (r *Redactor) RedactMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.Redact(v)
	}
	return out
}

// placeholder fragments that mark a value as clearly not a real credential.
var placeholderFragments = []string{
	"test", "demo", "sample", "example", "placeholder", "your-api-key", "changeme",
}

// IsSuspicious flags values matching common placeholder patterns, values
// built from a single repeated character, and values with character-level
// entropy below the junk threshold. Advisory only: it blocks obvious junk,
// not a substitute for provider-side validation.
func IsSuspicious(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if len(v) < 8 {
		return true
	}
	for _, frag := range placeholderFragments {
		if strings.Contains(v, frag) {
			return true
		}
	}
	if strings.Contains(v, "0000") {
		return true
	}
	if singleRepeatedChar(v) {
		return true
	}
	return uniqueRatio(v) < minEntropyRatio
}

func singleRepeatedChar(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return len(s) > 0
}

func uniqueRatio(s string) float64 {
	if s == "" {
		return 0
	}
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return float64(len(seen)) / float64(len([]rune(s)))
}

func hasDigitAndLetter(s string) bool {
	var digit, letter bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		}
		if digit && letter {
			return true
		}
	}
	return false
}
