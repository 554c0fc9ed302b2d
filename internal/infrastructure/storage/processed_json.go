package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// processedDocument is the on-disk layout of the JSON processed ledger
type processedDocument struct {
	ProcessedTransactionIDs []string `json:"processed_transaction_ids"`
	LastUpdated             string   `json:"last_updated"`
}

// JSONFileStore keeps processed ids in one JSON document. Every save
// rewrites the whole file through a temp file and rename.
type JSONFileStore struct {
	path string
}

var _ processed.Store = (*JSONFileStore)(nil)

// NewJSONFileStore creates a store at path. The file and its parent
// directory are created on first save.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the document location
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the document. A missing or empty file is an empty snapshot.
func (s *JSONFileStore) Load(_ context.Context) (processed.Snapshot, error) {
	var snap processed.Snapshot

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return snap, nil
	}

	var doc processedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return snap, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	snap.IDs = doc.ProcessedTransactionIDs
	if doc.LastUpdated != "" {
		if t, err := time.Parse(time.RFC3339Nano, doc.LastUpdated); err == nil {
			snap.LastUpdated = t
		}
	}
	return snap, nil
}

// Save writes the full document atomically
func (s *JSONFileStore) Save(_ context.Context, snap processed.Snapshot) error {
	ids := snap.IDs
	if ids == nil {
		ids = []string{}
	}
	doc := processedDocument{
		ProcessedTransactionIDs: ids,
		LastUpdated:             snap.LastUpdated.UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processed ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
