package security

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

// trustLevelConfig pairs a base trust score with the path substrings that
// identify it, mirroring the original TRUST_LEVELS table. Order matters:
// levels are checked in this order, first match wins.
type trustLevelConfig struct {
	level   string
	score   float64
	sources []string
}

var trustLevels = []trustLevelConfig{
	{level: "TRUSTED", score: 1.0, sources: []string{".claude/", "docs/", "claude.md", ".md"}},
	{level: "VERIFIED", score: 0.75, sources: []string{"output/research/", ".py", ".ts", ".yml"}},
	{level: "UNTRUSTED", score: 0.5, sources: []string{"external/", "downloads/", "temp/"}},
}

// riskPenalties reduces trust_score when injection patterns were detected,
// keyed by the scan's highest severity.
var riskPenalties = map[Severity]float64{
	SeverityCritical: 0.5,
	SeverityHigh:     0.3,
	SeverityMedium:   0.15,
	SeverityLow:      0.05,
}

const minTrustScore = 0.1

// SourceType identifies how a document entered the pipeline.
type SourceType string

const (
	SourceFile   SourceType = "FILE"
	SourceURL    SourceType = "URL"
	SourceAPI    SourceType = "API"
	SourceManual SourceType = "MANUAL"
)

// Provenance records where a document came from and how much it should be
// trusted.
type Provenance struct {
	SourcePath      string            `json:"source_path"`
	SourceType      SourceType        `json:"source_type"`
	IndexerID       string            `json:"indexer_id"`
	IndexedAt       string            `json:"indexed_at"`
	TrustLevel      string            `json:"trust_level"`
	TrustScore      float64           `json:"trust_score"`
	ContentHash     string            `json:"content_hash"`
	SanitizedHash   string            `json:"sanitized_hash"`
	HighestSeverity Severity          `json:"-"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ProvenanceTracker determines trust levels and keeps an in-memory record
// of every document it has scored, optionally appending each one to a JSONL
// audit log.
type ProvenanceTracker struct {
	indexerID string

	mu       sync.Mutex
	tracked  map[string]Provenance
	auditLog *os.File
}

// NewProvenanceTracker creates a tracker. auditLogPath may be empty, in
// which case no audit log is written.
func NewProvenanceTracker(indexerID, auditLogPath string) (*ProvenanceTracker, error) {
	t := &ProvenanceTracker{
		indexerID: indexerID,
		tracked:   make(map[string]Provenance),
	}
	if auditLogPath != "" {
		f, err := os.OpenFile(auditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		t.auditLog = f
	}
	return t, nil
}

// Close releases the audit log file handle, if one was opened.
func (t *ProvenanceTracker) Close() error {
	if t.auditLog == nil {
		return nil
	}
	return t.auditLog.Close()
}

// DetermineTrustLevel resolves a path and source type to a base trust
// level and score, before any injection-risk penalty is applied.
func DetermineTrustLevel(sourcePath string, sourceType SourceType) (string, float64) {
	if sourceType == SourceURL || sourceType == SourceAPI {
		return "UNTRUSTED", 0.5
	}

	lower := strings.ToLower(sourcePath)
	for _, lvl := range trustLevels {
		for _, pattern := range lvl.sources {
			if strings.Contains(lower, pattern) {
				return lvl.level, lvl.score
			}
		}
	}
	return "VERIFIED", 0.75
}

// CreateProvenance scores a document's trust level, applies any
// injection-risk penalty from scan, records it, and (if an audit log is
// configured) appends it as a JSON line.
func (t *ProvenanceTracker) CreateProvenance(
	sourcePath string,
	sourceType SourceType,
	contentHash, sanitizedHash string,
	scan ScanResult,
	metadata map[string]string,
) Provenance {
	level, score := DetermineTrustLevel(sourcePath, sourceType)

	if len(scan.Matches) > 0 {
		if penalty, ok := riskPenalties[scan.HighestSeverity]; ok {
			score -= penalty
			if score < minTrustScore {
				score = minTrustScore
			}
		}
	}

	p := Provenance{
		SourcePath:      sourcePath,
		SourceType:      sourceType,
		IndexerID:       t.indexerID,
		IndexedAt:       time.Now().UTC().Format(time.RFC3339),
		TrustLevel:      level,
		TrustScore:      score,
		ContentHash:     contentHash,
		SanitizedHash:   sanitizedHash,
		HighestSeverity: scan.HighestSeverity,
		Metadata:        metadata,
	}

	t.mu.Lock()
	t.tracked[sourcePath] = p
	t.mu.Unlock()

	if t.auditLog != nil {
		if line, err := json.Marshal(p); err == nil {
			t.auditLog.Write(append(line, '\n'))
		}
	}

	return p
}

// Get returns the previously recorded provenance for sourcePath, if any.
func (t *ProvenanceTracker) Get(sourcePath string) (Provenance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.tracked[sourcePath]
	return p, ok
}
