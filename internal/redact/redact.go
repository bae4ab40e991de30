// Package redact implements the sensitive-data filter (spec.md §4.2):
// pattern-driven substitution of "[REDACTED]" for credentials, tokens,
// and emails. Grounded on the teacher's general regex-filter idiom
// (internal/logging and internal/retrieval both compile package-level
// regexes once and reuse them); no third-party secret-scanning library
// is wired because the spec's contract is a direct substring
// substitution, not classification — see DESIGN.md.
package redact

import "regexp"

const redactedPlaceholder = "[REDACTED]"

// Filter applies an ordered set of regular expressions, substituting
// redactedPlaceholder for every match. filter never fails; a bad
// pattern is only ever surfaced at AddPattern time.
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter returns a Filter with no patterns registered.
func NewFilter() *Filter {
	return &Filter{}
}

// NewDefaultFilter returns a Filter pre-loaded with the platform's
// default patterns: credential assignments, bearer tokens, PEM private
// key blocks, and email addresses.
func NewDefaultFilter() *Filter {
	f := NewFilter()
	for _, p := range defaultPatterns {
		// Default patterns are known-good at compile time; a failure
		// here is a programmer error, not a runtime condition.
		if err := f.AddPattern(p); err != nil {
			panic("redact: invalid default pattern: " + err.Error())
		}
	}
	return f
}

var defaultPatterns = []string{
	// credential-assignment: key/secret/password/token = "value" (>=8 chars)
	`(?i)(?:api[_-]?key|secret|password|passwd|token)\s*[:=]\s*['"]?[A-Za-z0-9/_+.=-]{8,}['"]?`,
	// bearer tokens
	`(?i)bearer\s+[A-Za-z0-9._~+/=-]{8,}`,
	// PEM private key blocks
	`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`,
	// email addresses
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
}

// AddPattern compiles and registers a new regular expression. Returns
// an error if the pattern fails to compile; the filter is unchanged on
// failure.
func (f *Filter) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	f.patterns = append(f.patterns, re)
	return nil
}

// Filter applies all registered patterns, in insertion order, to text
// and returns the redacted result. Never fails.
func (f *Filter) Filter(text string) string {
	for _, re := range f.patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
