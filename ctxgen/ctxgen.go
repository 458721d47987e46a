// Package ctxgen implements Anthropic-style contextual retrieval: for each
// chunk of a document, generate a short sentence situating it within the
// whole document, using a local LLM. Chunks that are already self-contained
// (headers, code fences, short list items, table rows) are skipped.
package ctxgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vexrag/vexrag/llm"
	"github.com/vexrag/vexrag/notify"
)

// ContextualChunk pairs a chunk with its generated (or skipped) context.
type ContextualChunk struct {
	ChunkIndex      int
	OriginalChunk   string
	GeneratedContext string
	ContextualChunk string
}

// Generator produces situating context for chunks via a local LLM.
type Generator struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int
}

// New creates a Generator bound to provider, using model at the given
// temperature and output token cap.
func New(provider llm.Provider, model string, temperature float64, maxTokens int) *Generator {
	if temperature == 0 {
		temperature = 0.3
	}
	if maxTokens == 0 {
		maxTokens = 100
	}
	return &Generator{provider: provider, model: model, temperature: temperature, maxTokens: maxTokens}
}

const promptTemplate = `<document>
%s
</document>

Here is the chunk we want to situate within the whole document:
<chunk>
%s
</chunk>

Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.`

// generateContext calls the LLM once for a single chunk. A false second
// return (either an error, an empty response, or a response under 10
// characters) signals the caller should fall back.
func (g *Generator) generateContext(ctx context.Context, fullDocument, chunk string) (string, bool) {
	prompt := fmt.Sprintf(promptTemplate, fullDocument, chunk)

	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		Model:       g.model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", false
	}

	text := strings.TrimSpace(resp.Content)
	if len(text) < 10 {
		return "", false
	}
	return text, true
}

// listItemRe matches a chunk that opens as a "- ", "* " or "N. " list item.
var listItemRe = regexp.MustCompile(`^(- |\* |\d+\. )`)

// shouldGenerateContext implements the selective-generation heuristic:
// chunks that are already self-contained don't benefit from an LLM call.
func shouldGenerateContext(chunkText string) bool {
	text := strings.TrimSpace(chunkText)

	if len(text) < 100 {
		return false
	}
	if strings.HasPrefix(text, "#") {
		return false
	}
	if strings.HasPrefix(text, "```") {
		return false
	}
	if idx := min(len(text), 50); strings.Contains(text[:idx], "```") {
		return false
	}

	lines := strings.Split(text, "\n")
	if len(lines) <= 2 && listItemRe.MatchString(text) {
		return false
	}

	if strings.HasPrefix(text, "|") && strings.Count(text, "|") > 2 {
		return false
	}

	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// fallbackContext is used whenever generation fails; skipped chunks keep
// an empty context instead.
func fallbackContext(filePath, project string) string {
	return fmt.Sprintf("This is from %s in the %s project.", filePath, project)
}

func buildContextual(idx int, original, generatedContext string) ContextualChunk {
	if generatedContext == "" {
		return ContextualChunk{ChunkIndex: idx, OriginalChunk: original, GeneratedContext: "", ContextualChunk: original}
	}
	return ContextualChunk{
		ChunkIndex:       idx,
		OriginalChunk:    original,
		GeneratedContext: generatedContext,
		ContextualChunk:  generatedContext + "\n\n" + original,
	}
}

// GenerateParallel runs context generation over chunks with up to
// maxWorkers concurrent LLM calls, skipping self-contained chunks. Progress
// events (stage CONTEXT) are emitted as each generation completes; notifier
// may be nil, in which case events are dropped.
func (g *Generator) GenerateParallel(
	ctx context.Context,
	chunks []string,
	fullDocument, filePath, project string,
	maxWorkers int,
	notifier notify.Notifier,
) []ContextualChunk {
	if notifier == nil {
		notifier = notify.NullNotifier{}
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	results := make([]ContextualChunk, len(chunks))
	var needsGeneration []int
	for i, c := range chunks {
		if shouldGenerateContext(c) {
			needsGeneration = append(needsGeneration, i)
		} else {
			results[i] = buildContextual(i, c, "")
		}
	}

	total := len(needsGeneration)
	notifier.Notify(notify.ProgressEvent{
		Stage:   notify.StageContext,
		Message: fmt.Sprintf("Generating context for %d chunks", total),
		Current: 0,
		Total:   total,
		FilePath: filePath,
	})

	if total == 0 {
		return results
	}

	sem := semaphore.NewWeighted(int64(maxWorkers))
	var wg sync.WaitGroup
	var completed int
	var mu sync.Mutex

	for _, idx := range needsGeneration {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			generated, ok := g.generateContext(ctx, fullDocument, chunks[idx])
			if !ok {
				generated = fallbackContext(filePath, project)
			}
			results[idx] = buildContextual(idx, chunks[idx], generated)

			mu.Lock()
			completed++
			current := completed
			mu.Unlock()

			notifier.Notify(notify.ProgressEvent{
				Stage:    notify.StageContext,
				Message:  "Generating context",
				Current:  current,
				Total:    total,
				FilePath: filePath,
			})
		}()
	}
	wg.Wait()

	return results
}
