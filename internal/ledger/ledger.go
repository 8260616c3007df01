package ledger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	divergenceFill = "FFFF00" // yellow
	suspiciousFill = "FF9999" // pink
	commentAuthor  = "docledger"
)

// Book wraps the site's spreadsheet. All writes go to the configured sheet;
// the caller owns the column/row arithmetic (it lives with the site config).
type Book struct {
	f      *excelize.File
	path   string
	sheet  string
	logger *slog.Logger

	divergenceStyle int
	suspiciousStyle int
}

// Open loads the workbook and prepares the highlight styles.
func Open(path, sheet string, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		f.Close()
		return nil, fmt.Errorf("ledger %s has no sheet %q", path, sheet)
	}

	b := &Book{f: f, path: path, sheet: sheet, logger: logger}
	if b.divergenceStyle, err = fillStyle(f, divergenceFill); err != nil {
		f.Close()
		return nil, err
	}
	if b.suspiciousStyle, err = fillStyle(f, suspiciousFill); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("register fill style: %w", err)
	}
	return id, nil
}

// Close releases the workbook without saving.
func (b *Book) Close() error {
	return b.f.Close()
}

// Save writes the workbook back to disk.
func (b *Book) Save() error {
	if err := b.f.Save(); err != nil {
		return fmt.Errorf("save ledger %s: %w", b.path, err)
	}
	return nil
}

// CellName returns the A1-style reference for a column letter and row.
func CellName(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// Value reads a ledger cell as a number. Empty cells return nil. Cells
// formatted the Brazilian way ("1.234,56") are normalized before parsing.
func (b *Book) Value(col string, row int) (*float64, error) {
	raw, err := b.f.GetCellValue(b.sheet, CellName(col, row))
	if err != nil {
		return nil, fmt.Errorf("read cell %s: %w", CellName(col, row), err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		normalized := strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", ".")
		if v, err = strconv.ParseFloat(normalized, 64); err != nil {
			return nil, fmt.Errorf("cell %s is not numeric: %q", CellName(col, row), raw)
		}
	}
	return &v, nil
}

// Name reads the entity name from column B of a row.
func (b *Book) Name(row int) string {
	v, _ := b.f.GetCellValue(b.sheet, CellName("B", row))
	return strings.TrimSpace(v)
}

// Write sets a cell to a numeric value.
func (b *Book) Write(col string, row int, v float64) error {
	cell := CellName(col, row)
	if err := b.f.SetCellValue(b.sheet, cell, v); err != nil {
		return fmt.Errorf("write cell %s: %w", cell, err)
	}
	b.logger.Debug("ledger.cell_written", "cell", cell, "value", v)
	return nil
}

// MarkDivergence highlights a conflicting cell in yellow and attaches a
// comment quoting both values. The cell value itself is left alone.
func (b *Book) MarkDivergence(col string, row int, ledgerValue, extractedValue float64) error {
	cell := CellName(col, row)
	if err := b.f.SetCellStyle(b.sheet, cell, cell, b.divergenceStyle); err != nil {
		return fmt.Errorf("style cell %s: %w", cell, err)
	}
	text := fmt.Sprintf("DIVERGÊNCIA — CONFERIR\nPlanilha: %v | PDF: %v", ledgerValue, extractedValue)
	return b.comment(cell, text)
}

// MarkSuspicious highlights an OCR-zero cell in pink for manual review.
func (b *Book) MarkSuspicious(col string, row int) error {
	cell := CellName(col, row)
	if err := b.f.SetCellStyle(b.sheet, cell, cell, b.suspiciousStyle); err != nil {
		return fmt.Errorf("style cell %s: %w", cell, err)
	}
	return b.comment(cell, "ZERO OCR — CONFERIR")
}

func (b *Book) comment(cell, text string) error {
	err := b.f.AddComment(b.sheet, excelize.Comment{
		Cell:   cell,
		Author: commentAuthor,
		Width:  400,
		Height: 120,
		Paragraph: []excelize.RichTextRun{
			{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("comment cell %s: %w", cell, err)
	}
	return nil
}

// RunSummary is the counter block appended to the summary sheet after a run.
type RunSummary struct {
	NativeValues    int
	OCRValues       int
	Failures        int
	SkippedExisting int
	Applied         int
	Divergences     int
	SuspiciousZeros int
	Unchanged       int
}

// WriteSummary appends a run summary block to the given sheet, creating the
// sheet when missing.
func (b *Book) WriteSummary(sheet string, s RunSummary) error {
	if index, _ := b.f.GetSheetIndex(sheet); index == -1 {
		if _, err := b.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	rows, err := b.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	start := len(rows) + 2

	lines := [][]any{
		{"Execução", time.Now().Format("2006-01-02 15:04:05")},
		{"Extraídos via texto", s.NativeValues},
		{"Extraídos via OCR", s.OCRValues},
		{"Falhas de extração", s.Failures},
		{"Pulados (já preenchidos)", s.SkippedExisting},
		{"Valores aplicados", s.Applied},
		{"Divergências pendentes", s.Divergences},
		{"Zeros OCR suspeitos", s.SuspiciousZeros},
		{"Já corretos", s.Unchanged},
	}
	for i, line := range lines {
		for j, v := range line {
			cell, _ := excelize.CoordinatesToCellName(j+1, start+i)
			if err := b.f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write summary cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
