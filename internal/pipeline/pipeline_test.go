package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/reconcile"
)

func testSite() *common.SiteConfig {
	return &common.SiteConfig{
		SiteName:     "Obra Teste",
		Registration: "123456789012",
		RowStart:     5,
		MinYear:      2020,
		MaxYear:      2030,
		PeriodStart:  document.Period{Year: 2024, Month: 1},
		PeriodEnd:    document.Period{Year: 2024, Month: 12},
		Contractors: []common.Contractor{
			{ID: "1", Folder: "CONTRATADA UM", Name: "CONTRATADA UM"},
			{ID: "3", Folder: "CONTRATADA TRES", Name: "CONTRATADA TRES"},
		},
	}
}

type fakeSource struct{ docs []document.SourceDocument }

func (f fakeSource) Documents(constants.Family) ([]document.SourceDocument, error) {
	return f.docs, nil
}

type fakeProcessor struct {
	records map[string]document.Record // keyed by path
	calls   []string
}

func (f *fakeProcessor) Process(_ context.Context, doc document.SourceDocument, _ constants.Family) document.Record {
	f.calls = append(f.calls, doc.Path)
	return f.records[doc.Path]
}

type fakeStore struct {
	states map[string]document.State
	saves  int
}

func newFakeStore() *fakeStore { return &fakeStore{states: map[string]document.State{}} }

func (f *fakeStore) Load(family string) (document.State, error) {
	if st, ok := f.states[family]; ok {
		return st, nil
	}
	return document.State{}, nil
}

func (f *fakeStore) Save(family string, st document.State) error {
	f.states[family] = st
	f.saves++
	return nil
}

type fakeBook struct {
	cells       map[string]float64
	divergences []string
	suspicious  []string
}

func newFakeBook() *fakeBook { return &fakeBook{cells: map[string]float64{}} }

func cellKey(col string, row int) string { return fmt.Sprintf("%s%d", col, row) }

func (f *fakeBook) Value(col string, row int) (*float64, error) {
	if v, ok := f.cells[cellKey(col, row)]; ok {
		return &v, nil
	}
	return nil, nil
}

func (f *fakeBook) Name(int) string { return "" }

func (f *fakeBook) Write(col string, row int, v float64) error {
	f.cells[cellKey(col, row)] = v
	return nil
}

func (f *fakeBook) MarkDivergence(col string, row int, _, _ float64) error {
	f.divergences = append(f.divergences, cellKey(col, row))
	return nil
}

func (f *fakeBook) MarkSuspicious(col string, row int) error {
	f.suspicious = append(f.suspicious, cellKey(col, row))
	return nil
}

func fptr(v float64) *float64 { return &v }

func doc(path, entity string, month int) document.SourceDocument {
	return document.SourceDocument{Path: path, EntityID: entity, Period: document.Period{Year: 2024, Month: month}}
}

func record(entity string, month, headcount int, m constants.Method) document.Record {
	hc := headcount
	return document.Record{
		EntityID:   entity,
		Period:     document.Period{Year: 2024, Month: month},
		Family:     constants.FamilyPayroll,
		Headcount:  &hc,
		Method:     m,
		SourcePath: "doc.pdf",
	}
}

func TestBatchRunStoresResults(t *testing.T) {
	site := testSite()
	store := newFakeStore()
	book := newFakeBook()
	proc := &fakeProcessor{records: map[string]document.Record{
		"a.pdf": record("1", 8, 14, constants.NativeMethod("sefip_classico")),
		"b.pdf": record("3", 8, 9, constants.OCRMethod("ocr_fgts")),
	}}
	source := fakeSource{docs: []document.SourceDocument{
		doc("a.pdf", "1", 8),
		doc("b.pdf", "3", 8),
	}}

	batch := NewBatch(site, source, proc, store, book, BatchOptions{}, nil)
	stats, err := batch.Run(context.Background(), constants.FamilyPayroll)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.ValuesFound)
	// Saved once per document so an interruption loses at most one result.
	assert.Equal(t, 2, store.saves)

	st := store.states["PAYROLL"]
	require.NotNil(t, st["1"]["2024-08"].Value)
	assert.Equal(t, 14.0, *st["1"]["2024-08"].Value)
}

func TestBatchSkipsFilledLedgerCells(t *testing.T) {
	site := testSite()
	book := newFakeBook()
	// Entity 1, August 2024: column J (C + 7 months), row 5.
	book.cells["J5"] = 14

	proc := &fakeProcessor{records: map[string]document.Record{
		"a.pdf": record("1", 8, 14, constants.NativeMethod("sefip_classico")),
	}}
	source := fakeSource{docs: []document.SourceDocument{doc("a.pdf", "1", 8)}}

	batch := NewBatch(site, source, proc, newFakeStore(), book, BatchOptions{}, nil)
	stats, err := batch.Run(context.Background(), constants.FamilyPayroll)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.SkippedExisting)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, proc.calls)
}

func TestBatchForceReprocesses(t *testing.T) {
	site := testSite()
	book := newFakeBook()
	book.cells["J5"] = 14

	proc := &fakeProcessor{records: map[string]document.Record{
		"a.pdf": record("1", 8, 14, constants.NativeMethod("sefip_classico")),
	}}
	source := fakeSource{docs: []document.SourceDocument{doc("a.pdf", "1", 8)}}

	batch := NewBatch(site, source, proc, newFakeStore(), book, BatchOptions{Force: true}, nil)
	stats, err := batch.Run(context.Background(), constants.FamilyPayroll)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.SkippedExisting)
	assert.Equal(t, 1, stats.Processed)
}

func TestBatchRetryImageOnly(t *testing.T) {
	site := testSite()
	store := newFakeStore()
	store.states["PAYROLL"] = document.State{
		"1": {"2024-08": {Method: constants.MethodEmptyText, SourcePath: "a.pdf"}},
		"3": {"2024-08": {Value: fptr(9), Method: constants.NativeMethod("sefip_classico"), SourcePath: "b.pdf"}},
	}
	proc := &fakeProcessor{records: map[string]document.Record{
		"a.pdf": record("1", 8, 14, constants.OCRMethod("ocr_fgts")),
		"b.pdf": record("3", 8, 9, constants.NativeMethod("sefip_classico")),
	}}
	source := fakeSource{docs: []document.SourceDocument{
		doc("a.pdf", "1", 8),
		doc("b.pdf", "3", 8),
	}}

	batch := NewBatch(site, source, proc, store, newFakeBook(), BatchOptions{RetryImageOnly: true}, nil)
	stats, err := batch.Run(context.Background(), constants.FamilyPayroll)
	require.NoError(t, err)

	// Only the document that previously yielded no text is retried.
	assert.Equal(t, []string{"a.pdf"}, proc.calls)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.SkippedExisting)
}

func TestBatchRecordsFailures(t *testing.T) {
	site := testSite()
	store := newFakeStore()
	proc := &fakeProcessor{records: map[string]document.Record{
		"a.pdf": {
			EntityID:   "1",
			Period:     document.Period{Year: 2024, Month: 8},
			Family:     constants.FamilyPayroll,
			Method:     constants.MethodTimeout,
			SourcePath: "a.pdf",
		},
	}}
	source := fakeSource{docs: []document.SourceDocument{doc("a.pdf", "1", 8)}}

	batch := NewBatch(site, source, proc, store, newFakeBook(), BatchOptions{}, nil)
	stats, err := batch.Run(context.Background(), constants.FamilyPayroll)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failures)
	// The failure is persisted so a later retry-image-only pass can find it.
	entry := store.states["PAYROLL"]["1"]["2024-08"]
	assert.Equal(t, constants.MethodTimeout, entry.Method)
	assert.Nil(t, entry.Value)
}

func TestReconcileState(t *testing.T) {
	site := testSite()
	book := newFakeBook()
	book.cells["J5"] = 14 // entity 1, August: agrees
	book.cells["J6"] = 11 // entity 3, August: conflicts with extracted 9

	st := document.State{
		"1": {
			"2024-08": {Value: fptr(14), Method: constants.NativeMethod("sefip_classico"), SourcePath: "a.pdf"},
			"2024-09": {Value: fptr(15), Method: constants.NativeMethod("sefip_classico"), SourcePath: "c.pdf"},
		},
		"3": {
			"2024-08": {Value: fptr(9), Method: constants.NativeMethod("sefip_classico"), SourcePath: "b.pdf"},
			"2024-10": {Value: fptr(0), Method: constants.OCRMethod("ocr_fgts"), SourcePath: "d.pdf"},
		},
	}
	q := &reconcile.Queue{}

	report, err := ReconcileState(site, book, st, q, nil)
	require.NoError(t, err)

	// September for entity 1 was empty and got filled.
	assert.Equal(t, 15.0, book.cells["K5"])
	assert.Len(t, report.Changes, 1)

	// August for entity 1 already agreed.
	assert.Equal(t, 1, report.Unchanged)

	// August for entity 3 conflicts: highlighted, queued, never overwritten.
	require.Len(t, report.Divergences, 1)
	assert.Equal(t, 11.0, report.Divergences[0].LedgerValue)
	assert.Equal(t, 9.0, report.Divergences[0].ExtractedValue)
	assert.Equal(t, []string{"J6"}, book.divergences)
	assert.Equal(t, 11.0, book.cells["J6"])
	assert.Equal(t, 1, q.PendingCount())

	// October's OCR zero is quarantined.
	assert.Len(t, report.Suspicious, 1)
	assert.Equal(t, []string{"L6"}, book.suspicious)
	_, written := book.cells["L6"]
	assert.False(t, written)

	// Matched entries gain their ledger column reference.
	assert.Equal(t, "J", st["1"]["2024-08"].Column)
}

func TestReconcileStateIdempotent(t *testing.T) {
	site := testSite()
	book := newFakeBook()
	st := document.State{
		"1": {"2024-09": {Value: fptr(15), Method: constants.NativeMethod("sefip_classico"), SourcePath: "c.pdf"}},
	}
	q := &reconcile.Queue{}

	_, err := ReconcileState(site, book, st, q, nil)
	require.NoError(t, err)
	report, err := ReconcileState(site, book, st, q, nil)
	require.NoError(t, err)

	// Second pass finds the value already applied and changes nothing.
	assert.Empty(t, report.Changes)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, q.PendingCount())
}

func TestApplyResolved(t *testing.T) {
	book := newFakeBook()
	book.cells["J6"] = 11

	q := &reconcile.Queue{}
	var report reconcile.Report
	report.Add(reconcile.OutcomeDiverged, reconcile.Change{
		EntityID: "3",
		Period:   document.Period{Year: 2024, Month: 8},
		Column:   "J",
		Row:      6,
		Value:    9,
		Method:   constants.NativeMethod("sefip_classico"),
	}, 11)
	q.Absorb(report.Divergences)

	// Nothing to apply while the divergence is pending.
	applied, err := ApplyResolved(book, q, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 11.0, book.cells["J6"])

	require.NoError(t, q.Items[0].Resolve(document.ResolutionAcceptExtracted))
	applied, err = ApplyResolved(book, q, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 9.0, book.cells["J6"])

	// A second apply pass is a no-op.
	applied, err = ApplyResolved(book, q, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}
