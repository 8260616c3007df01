package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/obrasoft/docledger/internal/common"
)

// minUsableText is the minimum text-layer length for a document to be
// considered natively extractable. Scanned PDFs often carry a watermark-only
// text layer of a few characters.
const minUsableText = 50

// Extractor acquires text from PDF documents: directly from the text layer
// when one exists, through the OCR path otherwise.
type Extractor struct {
	cfg    common.OCRConfig
	runner Runner
	logger *slog.Logger
}

// NewExtractor applies the usual defaults and wires the real exec runner.
func NewExtractor(cfg common.OCRConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NativeResult is the outcome of a text-layer read.
type NativeResult struct {
	Text       string
	Pages      int
	Sufficient bool
}

// ExtractNative reads the document's text layer. An empty or too-short text
// layer is signalled through Sufficient=false, not an error: it routes the
// document to the OCR path.
func (e *Extractor) ExtractNative(ctx context.Context, path string) (NativeResult, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return NativeResult{}, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(text, "\f")
	res := NativeResult{
		Text:       text,
		Pages:      pages,
		Sufficient: len(strings.TrimSpace(text)) >= minUsableText,
	}
	if !res.Sufficient {
		e.logger.Debug("native text insufficient", "path", path, "bytes", len(text))
	}
	return res, nil
}

// PageCount returns the number of pages in a PDF without rendering it.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}
