// Package security implements the Injection Scanner and Provenance Tracker:
// detecting prompt-injection patterns in document text and scoring the
// trust level of its source path.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Severity ranks a detected injection pattern category.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	default:
		return "NONE"
	}
}

type injectionCategory struct {
	name     string
	severity Severity
	patterns []*regexp.Regexp
}

// categories mirrors the original INJECTION_PATTERNS table: six categories
// ranked by severity.
var categories = []injectionCategory{
	{
		name: "instruction_override", severity: SeverityCritical,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above)\s+instructions`),
			regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|above)\s+instructions`),
			regexp.MustCompile(`(?i)forget\s+(?:everything|all)\s+(?:you\s+)?(?:were\s+told|know)`),
			regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
		},
	},
	{
		name: "role_hijack", severity: SeverityCritical,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an)\s+\w+`),
			regexp.MustCompile(`(?i)act\s+as\s+(?:if\s+you\s+are\s+)?(?:a|an)\s+\w+`),
			regexp.MustCompile(`(?i)pretend\s+(?:to\s+be|you\s+are)\s+`),
			regexp.MustCompile(`(?i)system\s*:\s*you\s+(?:are|must)`),
		},
	},
	{
		name: "prompt_extraction", severity: SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:show|reveal|print|output)\s+(?:me\s+)?your\s+(?:system\s+)?prompt`),
			regexp.MustCompile(`(?i)what\s+(?:are|is)\s+your\s+instructions`),
			regexp.MustCompile(`(?i)repeat\s+(?:the\s+)?(?:text|words)\s+above`),
		},
	},
	{
		name: "delimiter_injection", severity: SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\[/?(?:system|inst|s)\]`),
			regexp.MustCompile(`(?i)<\|(?:system|im_start|im_end)\|>`),
			regexp.MustCompile("(?i)```\\s*(?:system|assistant)"),
		},
	},
	{
		name: "indirect_manipulation", severity: SeverityMedium,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)when\s+(?:you\s+)?(?:see|read)\s+this,?\s+(?:you\s+)?(?:should|must|will)`),
			regexp.MustCompile(`(?i)the\s+(?:real|actual|true)\s+(?:task|instruction)\s+is`),
		},
	},
	{
		name: "encoded_injection", severity: SeverityMedium,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`), // long base64-like runs
			regexp.MustCompile(`(?:\\u00[0-9a-fA-F]{2}){4,}`),
		},
	},
	{
		name: "suspicious_context", severity: SeverityLow,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)do\s+not\s+tell\s+(?:the\s+)?user`),
			regexp.MustCompile(`(?i)this\s+is\s+(?:a\s+)?(?:secret|hidden)\s+instruction`),
		},
	},
}

// homoglyphs mirrors the original HOMOGLYPHS table: Cyrillic/Turkish
// lookalikes of Latin letters and zero-width characters, which NFKC
// normalization leaves in place, plus variant-width spaces, which NFKC
// already folds to an ASCII space. Keys are written as \u escapes
// so the table can't silently collide on two visually-identical glyphs.
var homoglyphs = map[rune]rune{
	'\u0430': 'a', // CYRILLIC SMALL LETTER A
	'\u0435': 'e', // CYRILLIC SMALL LETTER IE
	'\u043E': 'o', // CYRILLIC SMALL LETTER O
	'\u0440': 'p', // CYRILLIC SMALL LETTER ER
	'\u0441': 'c', // CYRILLIC SMALL LETTER ES
	'\u0445': 'x', // CYRILLIC SMALL LETTER HA
	'\u0443': 'y', // CYRILLIC SMALL LETTER U
	'\u0456': 'i', // CYRILLIC SMALL LETTER BYELORUSSIAN-UKRAINIAN I
	'\u0131': 'i', // LATIN SMALL LETTER DOTLESS I (Turkish)

	'\u200B': 0, // ZERO WIDTH SPACE
	'\u200C': 0, // ZERO WIDTH NON-JOINER
	'\u200D': 0, // ZERO WIDTH JOINER
	'\uFEFF': 0, // BYTE ORDER MARK / ZERO WIDTH NO-BREAK SPACE

	'\u00A0': ' ', // NO-BREAK SPACE
	'\u2000': ' ', // EN QUAD
	'\u2001': ' ', // EM QUAD
	'\u2002': ' ', // EN SPACE
	'\u2003': ' ', // EM SPACE
	'\u2004': ' ', // THREE-PER-EM SPACE
	'\u2005': ' ', // FOUR-PER-EM SPACE
	'\u2006': ' ', // SIX-PER-EM SPACE
	'\u2007': ' ', // FIGURE SPACE
	'\u2008': ' ', // PUNCTUATION SPACE
	'\u2009': ' ', // THIN SPACE
	'\u200A': ' ', // HAIR SPACE
	'\u202F': ' ', // NARROW NO-BREAK SPACE
	'\u205F': ' ', // MEDIUM MATHEMATICAL SPACE
}

// NormalizeUnicode applies NFKC normalization then folds known homoglyphs
// and invisible characters, so injection patterns can't hide behind
// lookalike code points.
func NormalizeUnicode(text string) string {
	normalized := norm.NFKC.String(text)
	var b []rune
	for _, r := range normalized {
		if repl, ok := homoglyphs[r]; ok {
			if repl != 0 {
				b = append(b, repl)
			}
			continue
		}
		b = append(b, r)
	}
	return string(b)
}

// Match is a single detected injection-pattern occurrence.
type Match struct {
	Category string
	Severity Severity
	Text     string
	Start    int
	End      int
}

// ScanResult is the outcome of scanning one document's text.
type ScanResult struct {
	Matches         []Match
	HighestSeverity Severity
	IsSafe          bool   // false only when StrictMode and highest severity is HIGH/CRITICAL
	Sanitized       string // content with matched spans replaced by [QUOTED_CONTENT: "..."]
	OriginalHash    string // SHA-256 of text, as passed in, before normalization
	SanitizedHash   string // SHA-256 of Sanitized
}

// Scan normalizes text, runs every category's patterns, and (always)
// produces a sanitized copy with matches quoted out. IsSafe only reflects
// strictMode's blocking gate; Sanitized is returned regardless so callers
// can choose to persist it even in non-strict mode. OriginalHash and
// SanitizedHash let callers (the Provenance Tracker) record the pre-scan
// and post-scan content hashes separately, per spec.md §4.3.
func Scan(text string, strictMode bool) ScanResult {
	normalized := NormalizeUnicode(text)

	var matches []Match
	highest := SeverityNone
	for _, cat := range categories {
		for _, re := range cat.patterns {
			for _, loc := range re.FindAllStringIndex(normalized, -1) {
				matches = append(matches, Match{
					Category: cat.name,
					Severity: cat.severity,
					Text:     normalized[loc[0]:loc[1]],
					Start:    loc[0],
					End:      loc[1],
				})
				if cat.severity > highest {
					highest = cat.severity
				}
			}
		}
	}

	isSafe := true
	if strictMode && (highest == SeverityHigh || highest == SeverityCritical) {
		isSafe = false
	}

	sanitized := sanitizeMatches(normalized, matches)

	return ScanResult{
		Matches:         matches,
		HighestSeverity: highest,
		IsSafe:          isSafe,
		Sanitized:       sanitized,
		OriginalHash:    sha256Hex(text),
		SanitizedHash:   sha256Hex(sanitized),
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// sanitizeMatches replaces each matched span with a [QUOTED_CONTENT: "..."]
// marker, processed back-to-front by position so earlier offsets stay valid
// as later ones are rewritten.
func sanitizeMatches(text string, matches []Match) string {
	if len(matches) == 0 {
		return text
	}

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	result := text
	for _, m := range ordered {
		replacement := `[QUOTED_CONTENT: "` + m.Text + `"]`
		result = result[:m.Start] + replacement + result[m.End:]
	}
	return result
}
