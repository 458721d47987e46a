// Package sanitize redacts personally-identifiable and sensitive
// information from document text before it is persisted, using a fixed
// regex pattern table plus caller-supplied client-specific patterns. An
// optional Entity layer (NER) can be plugged in via the EntityRecognizer
// interface; none ships by default because no NER library is present in
// the example corpus this module was grounded on — see DESIGN.md.
package sanitize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// patterns mirrors the original sanitizer's SANITIZATION_PATTERNS table.
var patterns = []pattern{
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
	{"phone", regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{"url", regexp.MustCompile(`https?://[^\s]+`)},
	{"ipv4", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"ipv6", regexp.MustCompile(`\b(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}\b`)},
	{"mac_address", regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	{"aws_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"azure_key", regexp.MustCompile(`\b[A-Za-z0-9+/]{88}==\b`)},
	{"api_key", regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret|token)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`)},
	{"domain", regexp.MustCompile(`\b[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.(?:com|org|net|io|dev|ai)\b`)},
}

// highRiskTerms flags a detected pattern name as requiring manual review
// before the sanitized text is indexed. Paths and content are checked
// against the client indicators instead, not against these terms.
var highRiskTerms = []string{"hospital", "university", "client", "engagement", "ssn", "credit_card"}

// EntityRecognizer is an optional pluggable NER layer. Longest-match-first
// replacement is applied to whatever entities it returns, mirroring the
// original's spaCy-based sanitize_ner pass.
type EntityRecognizer interface {
	Recognize(text string) []Entity
}

// Entity is a single named-entity span returned by an EntityRecognizer.
type Entity struct {
	Text  string
	Label string // PERSON, ORG, GPE
}

// Result is the outcome of sanitizing one document.
type Result struct {
	Sanitized        string
	RedactionCounts  map[string]int
	DetectedPatterns []string // e.g. "email: 2 occurrences", one entry per pattern/layer that fired
	RedactionCount   int      // len(DetectedPatterns), the original's redaction_count
	RequiresReview   bool
}

// Sanitizer redacts PII via regex, optional client patterns, and an
// optional NER layer.
type Sanitizer struct {
	clientPatterns   []pattern
	clientIndicators []string
	ner              EntityRecognizer
}

// New creates a Sanitizer. clientPatterns maps a caller-supplied label to a
// regex (e.g. a project-specific identifier format); clientIndicators are
// substrings of path/content that force RequiresReview.
func New(clientPatterns map[string]*regexp.Regexp, clientIndicators []string) *Sanitizer {
	s := &Sanitizer{clientIndicators: clientIndicators}
	for name, re := range clientPatterns {
		s.clientPatterns = append(s.clientPatterns, pattern{name: name, re: re})
	}
	sort.Slice(s.clientPatterns, func(i, j int) bool { return s.clientPatterns[i].name < s.clientPatterns[j].name })
	return s
}

// WithNER attaches an optional entity-recognition layer.
func (s *Sanitizer) WithNER(ner EntityRecognizer) *Sanitizer {
	s.ner = ner
	return s
}

// Sanitize redacts regex-matched PII, then client patterns, then (if
// configured) NER entities, and reports whether the result needs manual
// review.
func (s *Sanitizer) Sanitize(path, content string) Result {
	text := content
	counts := make(map[string]int)
	var detected []string

	for _, p := range patterns {
		matches := p.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		counts[p.name] += len(matches)
		detected = append(detected, fmt.Sprintf("%s: %d occurrences", p.name, len(matches)))
		text = p.re.ReplaceAllString(text, fmt.Sprintf("[REDACTED_%s]", strings.ToUpper(p.name)))
	}

	for _, p := range s.clientPatterns {
		matches := p.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		counts[p.name] += len(matches)
		detected = append(detected, fmt.Sprintf("%s: %d occurrences", p.name, len(matches)))
		text = p.re.ReplaceAllString(text, "[REDACTED_CLIENT]")
	}

	if s.ner != nil {
		entities := s.ner.Recognize(text)
		sort.Slice(entities, func(i, j int) bool { return len(entities[i].Text) > len(entities[j].Text) })
		for _, e := range entities {
			if !strings.Contains(e.Label, "PERSON") && !strings.Contains(e.Label, "ORG") && !strings.Contains(e.Label, "GPE") {
				continue
			}
			if strings.Contains(text, e.Text) {
				counts["ner_"+e.Label]++
				detected = append(detected, fmt.Sprintf("%s: %s", e.Label, e.Text))
				text = strings.ReplaceAll(text, e.Text, fmt.Sprintf("[REDACTED_%s]", e.Label))
			}
		}
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	return Result{
		Sanitized:        text,
		RedactionCounts:  counts,
		DetectedPatterns: detected,
		RedactionCount:   len(detected),
		RequiresReview:   s.requiresReview(path, content, counts, total),
	}
}

// piiProbes is a smaller, standalone pattern list re-run over already
// sanitized text to catch anything the main pass missed; it mirrors the
// original's validate_sanitization rather than reusing the full patterns
// table, since text that slipped past redaction wants a second, independent
// check rather than the same regexes run twice.
var piiProbes = []pattern{
	{"email", regexp.MustCompile(`@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"ssn", regexp.MustCompile(`\d{3}-\d{2}-\d{4}`)},
	{"phone", regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)},
	{"ip address", regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)},
}

// validate re-runs piiProbes over sanitizedText and reports whether any
// still match. It exists to let tests assert that Sanitize left nothing
// behind; it is not part of the indexing path.
func validate(sanitizedText string) (clean bool, failures []string) {
	for _, p := range piiProbes {
		if p.re.MatchString(sanitizedText) {
			failures = append(failures, p.name)
		}
	}
	return len(failures) == 0, failures
}

func (s *Sanitizer) requiresReview(path, content string, counts map[string]int, total int) bool {
	lowerPath := strings.ToLower(path)
	lowerContent := strings.ToLower(content)
	for _, ind := range s.clientIndicators {
		li := strings.ToLower(ind)
		if strings.Contains(lowerPath, li) || strings.Contains(lowerContent, li) {
			return true
		}
	}
	if total > 10 {
		return true
	}
	for name := range counts {
		for _, term := range highRiskTerms {
			if strings.Contains(name, term) {
				return true
			}
		}
	}
	return false
}
