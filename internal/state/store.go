package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/obrasoft/docledger/internal/document"
)

// Store persists extraction results between runs. The ledger writer and the
// incremental skip logic both read through it.
type Store interface {
	Load(family string) (document.State, error)
	Save(family string, st document.State) error
}

// FileStore keeps one JSON file per document family under the site's state
// directory. The whole file is rewritten on every save; the volumes involved
// (hundreds of entries) never justify anything finer-grained.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(family string) string {
	return filepath.Join(s.dir, fmt.Sprintf("results_%s.json", family))
}

// Load reads the state file for a family. A missing file is an empty state,
// not an error; the first run starts from nothing.
func (s *FileStore) Load(family string) (document.State, error) {
	raw, err := os.ReadFile(s.path(family))
	if errors.Is(err, fs.ErrNotExist) {
		return document.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st document.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path(family), err)
	}
	return st, nil
}

// Save rewrites the family's state file. Written via a temp file and rename
// so an interrupted run never leaves a truncated store behind.
func (s *FileStore) Save(family string, st document.State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path(family) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path(family)); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	s.logger.Debug("state saved", "file", s.path(family), "entities", len(st))
	return nil
}

// Merge folds incoming into base at entity granularity: every entity present
// in incoming replaces its whole month map in base. Entities absent from
// incoming are untouched.
func Merge(base, incoming document.State) document.State {
	if base == nil {
		base = document.State{}
	}
	for entity, months := range incoming {
		base[entity] = months
	}
	return base
}

// MergeShards merges partial-result files produced by parallel shard runs,
// in lexical filename order so a later shard wins on overlap. Pattern is a
// glob like "shard_*.json".
func MergeShards(base document.State, dir, pattern string, logger *slog.Logger) (document.State, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return base, nil, fmt.Errorf("bad shard pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	merged := Merge(document.State{}, base)
	for _, file := range matches {
		raw, err := os.ReadFile(file)
		if err != nil {
			return base, nil, fmt.Errorf("read shard %s: %w", file, err)
		}
		var shard document.State
		if err := json.Unmarshal(raw, &shard); err != nil {
			return base, nil, fmt.Errorf("parse shard %s: %w", file, err)
		}
		merged = Merge(merged, shard)
		logger.Info("shard merged", "file", file, "entities", len(shard))
	}
	return merged, matches, nil
}
