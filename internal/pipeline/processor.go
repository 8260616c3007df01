package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/obrasoft/docledger/constants"
	"github.com/obrasoft/docledger/internal/acquire"
	"github.com/obrasoft/docledger/internal/common"
	"github.com/obrasoft/docledger/internal/document"
	"github.com/obrasoft/docledger/internal/extract"
)

// Processor runs one document through acquisition, normalization and field
// extraction. Failures never propagate as errors: they degrade into records
// whose Method says what happened, so a bad scan cannot stall a batch.
type Processor struct {
	extractor *acquire.Extractor
	site      *common.SiteConfig
	logger    *slog.Logger
}

func NewProcessor(extractor *acquire.Extractor, site *common.SiteConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{extractor: extractor, site: site, logger: logger}
}

// Process extracts a record from one document. The text layer is tried
// first; scanned documents fall through to OCR.
func (p *Processor) Process(ctx context.Context, doc document.SourceDocument, family constants.Family) document.Record {
	window := extract.YearWindow{Min: p.site.MinYear, Max: p.site.MaxYear}
	in := extract.Input{
		Family:     family,
		Path:       doc.Path,
		EntityID:   doc.EntityID,
		PeriodHint: doc.Period,
		SiteCNO:    p.site.Registration,
		Window:     window,
	}

	native, err := p.extractor.ExtractNative(ctx, doc.Path)
	if err != nil {
		p.logger.Error("process.native_failed", "path", doc.Path, "error", err)
		return p.failed(in, constants.ErrorMethod("pdftotext"))
	}

	if native.Sufficient {
		text := native.Text
		if acquire.IsReversed(text, extract.ReversedKeywords()) {
			p.logger.Info("process.reversed_text", "path", doc.Path)
			text = acquire.Unreverse(text)
		}
		in.Text = text
		rec, _ := extract.Run(in)
		return rec
	}

	return p.processOCR(ctx, in)
}

// invoiceOCRPages caps invoice OCR lower than payroll: an NFS-e fits on one
// page, anything past the first few is attachments.
const invoiceOCRPages = 4

func (p *Processor) processOCR(ctx context.Context, in extract.Input) document.Record {
	maxPages := 0
	if in.Family == constants.FamilyInvoice {
		maxPages = invoiceOCRPages
	}
	res, err := p.extractor.ExtractOCR(ctx, in.Path, extract.OrientationKeywords(in.Family), maxPages)
	switch {
	case errors.Is(err, acquire.ErrTimeout):
		p.logger.Warn("process.ocr_timeout", "path", in.Path)
		return p.failed(in, constants.MethodTimeout)
	case err != nil:
		p.logger.Error("process.ocr_failed", "path", in.Path, "error", err)
		return p.failed(in, constants.ErrorMethod("ocr"))
	}

	if strings.TrimSpace(res.Text) == "" {
		return p.failed(in, constants.MethodEmptyText)
	}

	in.Text = res.Text
	in.OCR = true
	rec, _ := extract.Run(in)
	return rec
}

func (p *Processor) failed(in extract.Input, m constants.Method) document.Record {
	return document.Record{
		EntityID:   in.EntityID,
		Period:     in.PeriodHint,
		Family:     in.Family,
		Method:     m,
		SourcePath: in.Path,
	}
}
