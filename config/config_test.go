package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vexrag/vexrag/errs"
)

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("project:\n  name: acme\ndatabase:\n  path: /tmp/test.db\nembedding_dim: 512\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("expected database.path override, got %q", cfg.Database.Path)
	}
	if cfg.Project.Name != "acme" {
		t.Errorf("expected project.name override, got %q", cfg.Project.Name)
	}
	if cfg.EmbeddingDim != 512 {
		t.Errorf("expected embedding_dim override, got %d", cfg.EmbeddingDim)
	}
	// Unset fields keep their defaults.
	if cfg.Chunk.Size != Default().Chunk.Size {
		t.Errorf("expected default chunk size to survive partial override, got %d", cfg.Chunk.Size)
	}
}

func TestLoadMissingReturnsConfigMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	_, err = Load("")
	if err == nil {
		t.Fatal("expected an error when no config file exists")
	}
	if kind, ok := errs.Of(err); !ok || kind != errs.ConfigMissing {
		t.Errorf("expected ConfigMissing error kind, got %v", err)
	}
}

func TestLoadEnvVarPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yml")
	if err := os.WriteFile(path, []byte("database:\n  path: /tmp/env.db\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	os.Setenv("RAG_CONFIG", path)
	defer os.Unsetenv("RAG_CONFIG")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("expected database.path from RAG_CONFIG path, got %q", cfg.Database.Path)
	}
}

func TestLoadIndexingSanitizationOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("indexing:\n  enable_sanitization: false\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexing.EnableSanitization {
		t.Error("expected indexing.enable_sanitization override to false")
	}
}

func TestDefaultIsPopulated(t *testing.T) {
	cfg := Default()
	if cfg.EmbeddingDim <= 0 {
		t.Error("expected a positive default embedding dimension")
	}
	if cfg.Retrieval.DefaultTopK <= 0 {
		t.Error("expected a positive default top_k")
	}
	if cfg.Chunk.Size <= cfg.Chunk.MinSize {
		t.Error("expected chunk size to exceed min size")
	}
	if cfg.Database.Path == "" {
		t.Error("expected a default database path")
	}
	if !cfg.Indexing.EnableSanitization {
		t.Error("expected sanitization enabled by default")
	}
}
