package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrTimeout is returned when a document exceeds its bounded OCR duration.
// It degrades to the "timeout" provenance tag; it never aborts a batch.
var ErrTimeout = errors.New("ocr timed out")

// OCRResult is the outcome of the raster OCR path.
type OCRResult struct {
	Text     string
	Pages    int
	Rotation int // 0 or 180, applied uniformly to all pages
}

// ExtractOCR renders the leading pages at the configured DPI, probes page 1
// for 180° rotation by keyword scoring, and OCRs every page in the chosen
// orientation. maxPages caps the rendered pages; 0 means the configured
// default. The whole call is bounded by the configured timeout. An engine
// that returns nothing yields empty text, not an error.
func (e *Extractor) ExtractOCR(ctx context.Context, path string, keywords []string, maxPages int) (OCRResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docledger-ocr-*")
	if err != nil {
		return OCRResult{}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	if maxPages <= 0 || maxPages > e.cfg.MaxPages {
		maxPages = e.cfg.MaxPages
	}
	pages, err := e.renderPages(ctx, path, tmpDir, maxPages)
	if err != nil {
		return OCRResult{}, e.timeoutOr(ctx, err)
	}
	if len(pages) == 0 {
		return OCRResult{}, fmt.Errorf("pdftoppm produced no images")
	}

	rotation, err := e.detectRotation(ctx, pages[0], keywords)
	if err != nil {
		if tErr := e.timeoutOr(ctx, err); errors.Is(tErr, ErrTimeout) {
			return OCRResult{}, tErr
		}
		// Probe failures fall back to 0°; the document may still read fine.
		e.logger.Warn("rotation probe failed", "path", path, "error", err)
		rotation = 0
	}

	var b strings.Builder
	for i, img := range pages {
		if rotation == 180 {
			if img, err = rotate180(img); err != nil {
				return OCRResult{}, err
			}
		}
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			return OCRResult{}, e.timeoutOr(ctx, err)
		}
		if i > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
	}

	return OCRResult{Text: b.String(), Pages: len(pages), Rotation: rotation}, nil
}

// renderPages rasterizes the leading pages and returns the PNG paths sorted
// in page order.
func (e *Extractor) renderPages(ctx context.Context, path, tmpDir string, maxPages int) ([]string, error) {
	last := maxPages
	if n, err := PageCount(path); err == nil && n < last {
		last = n
	}
	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", "-f", "1", "-l", fmt.Sprintf("%d", last), path, prefix}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	return matches, nil
}

// detectRotation OCRs page 1 as rendered and rotated 180°, scores both
// transcripts against the family keyword list, and picks the orientation
// with the strictly higher score. Ties keep 0°.
func (e *Extractor) detectRotation(ctx context.Context, firstPage string, keywords []string) (int, error) {
	text0, err := e.tesseract(ctx, firstPage)
	if err != nil {
		return 0, err
	}
	flippedPath, err := rotate180(firstPage)
	if err != nil {
		return 0, err
	}
	text180, err := e.tesseract(ctx, flippedPath)
	if err != nil {
		return 0, err
	}

	score0 := keywordScore(text0, keywords)
	score180 := keywordScore(text180, keywords)
	e.logger.Debug("rotation probe", "score_0", score0, "score_180", score180)
	if score180 > score0 {
		return 180, nil
	}
	return 0, nil
}

// rotate180 writes a 180°-rotated copy next to the input and returns its path.
func rotate180(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open page image: %w", err)
	}
	out := strings.TrimSuffix(path, ".png") + ".r180.png"
	if err := imaging.Save(imaging.Rotate180(img), out); err != nil {
		return "", fmt.Errorf("save rotated image: %w", err)
	}
	return out, nil
}

func (e *Extractor) tesseract(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imagePath, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func keywordScore(text string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	return score
}

// timeoutOr maps context expiry onto ErrTimeout, otherwise returns err as-is.
func (e *Extractor) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
