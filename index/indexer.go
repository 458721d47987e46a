// Package index implements Indexer orchestration: the single entry point
// that turns a loaded Document into persisted Passages, running it through
// path validation, optional security scanning, chunking, contextual
// retrieval, and embedding.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vexrag/vexrag/chunk"
	"github.com/vexrag/vexrag/ctxgen"
	"github.com/vexrag/vexrag/embed"
	"github.com/vexrag/vexrag/errs"
	"github.com/vexrag/vexrag/loader"
	"github.com/vexrag/vexrag/notify"
	"github.com/vexrag/vexrag/sanitize"
	"github.com/vexrag/vexrag/security"
	"github.com/vexrag/vexrag/store"
)

// Options configures one index_document call.
type Options struct {
	Project          string
	Scan             bool // run the Injection Scanner; the zero value skips it
	StrictMode       bool
	Sanitize         bool // run the PII Sanitizer before scanning
	AllowedBasePaths []string
	ChunkOptions     chunk.Options
	ContextWorkers   int
}

// Indexer wires the Document Loader, Sanitizer, Injection Scanner,
// Provenance Tracker, Chunker, Context Generator, Embedder, and Passage
// Store into the single `index_document` operation.
type Indexer struct {
	loader     *loader.Loader
	sanitizer  *sanitize.Sanitizer
	provenance *security.ProvenanceTracker
	ctxgen     *ctxgen.Generator
	embedder   *embed.Embedder
	store      *store.Store
	notifier   notify.Notifier
}

// New builds an Indexer from its component dependencies. notifier may be
// nil (treated as a no-op sink).
func New(
	l *loader.Loader,
	sanitizer *sanitize.Sanitizer,
	provenance *security.ProvenanceTracker,
	generator *ctxgen.Generator,
	embedder *embed.Embedder,
	st *store.Store,
	notifier notify.Notifier,
) *Indexer {
	if notifier == nil {
		notifier = notify.NullNotifier{}
	}
	return &Indexer{
		loader:     l,
		sanitizer:  sanitizer,
		provenance: provenance,
		ctxgen:     generator,
		embedder:   embedder,
		store:      st,
		notifier:   notifier,
	}
}

// IndexFile loads filePath and indexes it. It is a thin convenience over
// indexDocument for CLI/server callers that only have a path.
func (ix *Indexer) IndexFile(ctx context.Context, filePath string, opts Options) (int, error) {
	resolved, err := ValidatePath(filePath, opts.AllowedBasePaths)
	if err != nil {
		return 0, err
	}

	ix.notifier.Start(resolved, 6)

	doc, err := ix.loader.Load(ctx, resolved)
	if err != nil {
		ix.notifier.Finish(false, err.Error())
		return 0, err
	}
	ix.notifier.Notify(notify.ProgressEvent{Stage: notify.StageLoading, Message: "Loaded document", FilePath: resolved, Current: 1, Total: 1})

	n, err := ix.indexDocument(ctx, resolved, doc.Content, doc.Format, opts)
	if err != nil {
		ix.notifier.Finish(false, err.Error())
		return 0, err
	}
	ix.notifier.Finish(true, fmt.Sprintf("Indexed %d passages", n))
	return n, nil
}

// indexDocument implements the 8-step index_document algorithm against
// already-extracted content.
func (ix *Indexer) indexDocument(ctx context.Context, filePath, content, format string, opts Options) (int, error) {
	// Step 2: optional security scan (and optional PII sanitization first).
	securityRisk := "CLEAN"
	trustLevel := "VERIFIED"
	trustScore := 0.75

	if opts.Sanitize && ix.sanitizer != nil {
		result := ix.sanitizer.Sanitize(filePath, content)
		content = result.Sanitized
	}

	preScanContent := content
	var scan security.ScanResult
	if opts.Scan {
		scan = security.Scan(content, opts.StrictMode)
		if !scan.IsSafe {
			return 0, errs.New(errs.SecurityViolation, "index.indexDocument",
				fmt.Errorf("strict-mode scan blocked %s: highest severity %s", filePath, scan.HighestSeverity))
		}
		content = scan.Sanitized
		if scan.HighestSeverity != security.SeverityNone {
			securityRisk = scan.HighestSeverity.String()
		}
		ix.notifier.Notify(notify.ProgressEvent{Stage: notify.StageSecurity, Message: "Security scan complete", FilePath: filePath, Current: 1, Total: 1})
	}

	if ix.provenance != nil {
		originalHash, sanitizedHash := scan.OriginalHash, scan.SanitizedHash
		if !opts.Scan {
			originalHash = sha256Hex(preScanContent)
			sanitizedHash = originalHash
		}
		prov := ix.provenance.CreateProvenance(filePath, security.SourceFile, originalHash, sanitizedHash, scan, nil)
		trustLevel = prov.TrustLevel
		trustScore = prov.TrustScore
	}

	// Step 3: content hash over post-scan content.
	contentHash := sha256Hex(content)

	// Step 4: idempotent reindex / hash-change replacement.
	existingHash, exists, err := ix.store.HashForFilePath(ctx, filePath)
	if err != nil {
		return 0, err
	}
	if exists && existingHash == contentHash {
		n, err := ix.store.CountByFilePath(ctx, filePath)
		if err != nil {
			return 0, err
		}
		return n, nil
	}
	replacing := exists

	// Step 5: chunk.
	ext := format
	chunks := chunk.Split(content, ext, opts.ChunkOptions)
	ix.notifier.Notify(notify.ProgressEvent{Stage: notify.StageChunking, Message: fmt.Sprintf("Split into %d chunks", len(chunks)), Current: len(chunks), Total: len(chunks), FilePath: filePath})

	if len(chunks) == 0 {
		return 0, errs.New(errs.EmptyDocument, "index.indexDocument", fmt.Errorf("%s produced no chunks", filePath))
	}

	// Step 6: parallel context generation.
	workers := opts.ContextWorkers
	if workers <= 0 {
		workers = 4
	}
	contextual := ix.ctxgen.GenerateParallel(ctx, chunks, content, filePath, opts.Project, workers, ix.notifier)

	// Step 7: embed in order, dropping entries whose embedding is nil.
	texts := make([]string, len(contextual))
	for i, c := range contextual {
		texts[i] = c.ContextualChunk
	}
	vectors := ix.embedder.EmbedBatch(ctx, texts, ix.notifier)

	// Step 8: assemble rows and write in a single batch.
	now := time.Now().UTC()
	sourceFile := filepath.Base(filePath)
	rows := make([]store.Passage, 0, len(contextual))
	for i, c := range contextual {
		if vectors[i] == nil {
			continue
		}
		rows = append(rows, store.Passage{
			ChunkID:          uuid.NewString(),
			ChunkIndex:       c.ChunkIndex,
			OriginalChunk:    c.OriginalChunk,
			ContextualChunk:  c.ContextualChunk,
			GeneratedContext: c.GeneratedContext,
			Embedding:        vectors[i],
			SourceFile:       sourceFile,
			SourceProject:    opts.Project,
			FilePath:         filePath,
			FileType:         ext,
			ContentHash:      contentHash,
			IndexedAt:        now,
			LastUpdated:      now,
			TokenCount:       chunk.EstimateTokens(c.OriginalChunk),
			TrustLevel:       trustLevel,
			TrustScore:       trustScore,
			SecurityRisk:     securityRisk,
		})
	}

	if replacing {
		if err := ix.store.ReplaceByFilePath(ctx, filePath, rows); err != nil {
			return 0, err
		}
	} else if err := ix.store.Add(ctx, rows); err != nil {
		return 0, err
	}

	ix.notifier.Notify(notify.ProgressEvent{Stage: notify.StageIndexing, Message: fmt.Sprintf("Wrote %d passages", len(rows)), Current: len(rows), Total: len(rows), FilePath: filePath})
	slog.Info("indexed document", "file_path", filePath, "passages", len(rows), "project", opts.Project)

	return len(rows), nil
}

// DeleteByFile removes every passage for filePath, returning the number
// of rows removed.
func (ix *Indexer) DeleteByFile(ctx context.Context, filePath string) (int64, error) {
	return ix.store.DeleteByFilePath(ctx, filePath)
}

// DeleteByProject removes every passage for sourceProject, returning the
// number of rows removed.
func (ix *Indexer) DeleteByProject(ctx context.Context, sourceProject string) (int64, error) {
	return ix.store.DeleteByProject(ctx, sourceProject)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
