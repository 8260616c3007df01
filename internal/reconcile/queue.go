package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/document"
)

// Queue is the persisted divergence backlog for a site. Detection appends
// pending records, operators resolve them, apply writes the accepted values
// and marks them done. Records stay in the file as an audit trail.
type Queue struct {
	path   string
	logger *slog.Logger

	Items []document.Divergence
}

// OpenQueue loads the divergence file from the state directory, creating an
// empty queue when none exists yet.
func OpenQueue(stateDir string, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{path: filepath.Join(stateDir, "divergences.json"), logger: logger}
	raw, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read divergences: %w", err)
	}
	if err := json.Unmarshal(raw, &q.Items); err != nil {
		return nil, fmt.Errorf("parse divergences %s: %w", q.path, err)
	}
	return q, nil
}

// Save rewrites the divergence file.
func (q *Queue) Save() error {
	raw, err := json.MarshalIndent(q.Items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode divergences: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write divergences: %w", err)
	}
	return os.Rename(tmp, q.path)
}

// Absorb merges freshly detected divergences into the queue. A conflict that
// matches an existing record for the same cell and value pair is dropped:
// resolved decisions are final and pending ones are not duplicated.
func (q *Queue) Absorb(detected []document.Divergence) int {
	added := 0
	for _, d := range detected {
		if q.find(d) != nil {
			continue
		}
		q.Items = append(q.Items, d)
		added++
	}
	if added > 0 {
		q.log().Info("divergences.detected", "new", added, "pending", q.PendingCount())
	}
	return added
}

func (q *Queue) log() *slog.Logger {
	if q.logger == nil {
		return slog.Default()
	}
	return q.logger
}

func (q *Queue) find(d document.Divergence) *document.Divergence {
	for i := range q.Items {
		e := &q.Items[i]
		if e.EntityID == d.EntityID && e.Period == d.Period &&
			math.Abs(e.LedgerValue-d.LedgerValue) < valueEpsilon &&
			math.Abs(e.ExtractedValue-d.ExtractedValue) < valueEpsilon {
			return e
		}
	}
	return nil
}

// Pending returns the records still awaiting a decision.
func (q *Queue) Pending() []document.Divergence {
	var out []document.Divergence
	for _, d := range q.Items {
		if d.Pending() {
			out = append(out, d)
		}
	}
	return out
}

// PendingCount reports how many records await a decision.
func (q *Queue) PendingCount() int {
	n := 0
	for _, d := range q.Items {
		if d.Pending() {
			n++
		}
	}
	return n
}

// Resolve applies a decision to one record by id.
func (q *Queue) Resolve(id uuid.UUID, r document.Resolution) error {
	for i := range q.Items {
		if q.Items[i].ID == id {
			return q.Items[i].Resolve(r)
		}
	}
	return common.NewAppError("DIVERGENCE_NOT_FOUND",
		fmt.Sprintf("no divergence with id %s", id), common.ErrNotFound)
}

// ResolveAll applies one decision to every pending record and returns how
// many it touched.
func (q *Queue) ResolveAll(r document.Resolution) (int, error) {
	n := 0
	for i := range q.Items {
		if !q.Items[i].Pending() {
			continue
		}
		if err := q.Items[i].Resolve(r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Applicable returns the records resolved as accept_extracted but not yet
// written to the ledger.
func (q *Queue) Applicable() []*document.Divergence {
	var out []*document.Divergence
	for i := range q.Items {
		d := &q.Items[i]
		if d.Resolved && d.Resolution == document.ResolutionAcceptExtracted && !d.Applied {
			out = append(out, d)
		}
	}
	return out
}
