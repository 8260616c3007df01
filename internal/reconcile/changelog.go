package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// changeLogName sits next to divergences.json in the state directory.
const changeLogName = "changes_log.json"

// AppliedChange is one audited ledger write.
type AppliedChange struct {
	Change
	AppliedAt time.Time `json:"applied_at"`
}

// AppendChangeLog appends the cell writes of one pass to the audit log,
// creating the file on first use. The log only grows; it is the record of
// what the tool put into the ledger and when.
func AppendChangeLog(stateDir string, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	path := filepath.Join(stateDir, changeLogName)

	var items []AppliedChange
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read change log: %w", err)
	default:
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("parse change log %s: %w", path, err)
		}
	}

	now := time.Now()
	for _, ch := range changes {
		items = append(items, AppliedChange{Change: ch, AppliedAt: now})
	}

	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode change log: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write change log: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadChangeLog loads the audit log, returning an empty slice when no pass
// has written anything yet.
func ReadChangeLog(stateDir string) ([]AppliedChange, error) {
	raw, err := os.ReadFile(filepath.Join(stateDir, changeLogName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}
	var items []AppliedChange
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse change log: %w", err)
	}
	return items, nil
}
