// Package chunk splits extracted document text into bounded, overlapping
// chunks. Dispatch is by file kind: markdown-style paragraph splitting,
// code-aware line splitting at "good" break points, or generic sentence
// splitting for everything else.
package chunk

import (
	"regexp"
	"strings"
)

// Options configures chunk size targets. Size and MinSize are expressed in
// estimated tokens (see EstimateTokens).
type Options struct {
	Size    int
	MinSize int
}

// DefaultOptions matches the original chunker's defaults (chunk_size=384,
// min_chunk_size=100).
func DefaultOptions() Options {
	return Options{Size: 384, MinSize: 100}
}

// EstimateTokens approximates token count as one token per four characters,
// the same rough heuristic the original chunker uses. It intentionally does
// not tokenize with a real BPE vocabulary — this is a sizing heuristic, not
// a token-accounting guarantee.
func EstimateTokens(text string) int {
	return len(text) / 4
}

var codeExtensions = map[string]bool{
	"py": true, "ts": true, "js": true, "go": true, "java": true,
	"sh": true, "json": true, "yml": true, "yaml": true,
}

// Split dispatches to the chunker appropriate for format, returning the
// ordered list of chunk texts.
func Split(content, format string, opts Options) []string {
	switch {
	case format == "md":
		return chunkMarkdown(content, opts)
	case codeExtensions[format]:
		return chunkCode(content, opts)
	default:
		return chunkGeneric(content, opts)
	}
}

// chunkMarkdown splits on blank-line-separated paragraphs, greedily filling
// each chunk until adding the next paragraph would exceed opts.Size AND the
// accumulated chunk already meets opts.MinSize. The last paragraph of each
// chunk seeds the next chunk as overlap.
func chunkMarkdown(content string, opts Options) []string {
	paragraphs := splitBlankLines(content)
	return greedyFill(paragraphs, opts)
}

// chunkGeneric splits on sentence boundaries and greedily fills chunks the
// same way chunkMarkdown does over paragraphs.
func chunkGeneric(content string, opts Options) []string {
	sentences := sentenceSplit(content)
	return greedyFill(sentences, opts)
}

var blankLineRe = regexp.MustCompile(`\n\s*\n+`)

func splitBlankLines(content string) []string {
	parts := blankLineRe.Split(content, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

var sentenceRe = regexp.MustCompile(`(?s)(.*?[.!?])\s+`)

func sentenceSplit(content string) []string {
	var sentences []string
	rest := content
	for {
		loc := sentenceRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		sentences = append(sentences, rest[loc[2]:loc[3]])
		rest = rest[loc[1]:]
	}
	if strings.TrimSpace(rest) != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// greedyFill is the shared accumulation loop used by the markdown and
// generic chunkers: append units until the chunk would exceed opts.Size,
// flush (if it already meets opts.MinSize), and seed the next chunk with
// the last unit as overlap.
func greedyFill(units []string, opts Options) []string {
	var chunks []string
	var current strings.Builder
	var last string

	for _, unit := range units {
		candidate := current.String()
		if candidate != "" {
			candidate += "\n\n" + unit
		} else {
			candidate = unit
		}

		if EstimateTokens(candidate) > opts.Size && EstimateTokens(current.String()) >= opts.MinSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(last + "\n\n" + unit) // overlap seed: previous chunk's last unit, then this unit
			last = unit
			continue
		}

		current.Reset()
		current.WriteString(candidate)
		last = unit
	}

	if trimmed := strings.TrimSpace(current.String()); trimmed != "" && EstimateTokens(trimmed) >= opts.MinSize {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

var goodBreakPrefixes = []string{
	"def ", "class ", "function ", "const ", "export ",
	"#", "//", "/*", "*", `"""`, "'''",
}

func isGoodBreakPoint(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	for _, p := range goodBreakPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	switch trimmed {
	case "}", "};", "})", "});":
		return true
	}
	return false
}

// chunkCode splits line-by-line, only flushing a chunk once the current
// line is a "good" break point (a blank line, a def/class/function
// signature, a comment, or a closing brace) or the final line, so chunks
// don't split mid statement. The last 3 lines of a flushed chunk seed the next chunk as
// overlap.
func chunkCode(content string, opts Options) []string {
	lines := strings.Split(content, "\n")

	var chunks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" && EstimateTokens(text) >= opts.MinSize {
			chunks = append(chunks, text)
		}
	}

	for i, line := range lines {
		current = append(current, line)
		text := strings.Join(current, "\n")

		if EstimateTokens(text) > opts.Size && EstimateTokens(strings.Join(current[:len(current)-1], "\n")) >= opts.MinSize {
			if isGoodBreakPoint(line) || i == len(lines)-1 {
				flush()
				overlapStart := len(current) - 3
				if overlapStart < 0 {
					overlapStart = 0
				}
				current = append([]string{}, current[overlapStart:]...)
			}
		}
	}
	flush()

	return chunks
}
