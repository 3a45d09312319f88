package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// minPagePlainTextChars below this, a page is treated as probably
// image-only and handed to OCR if one is configured (§4.1).
const minPagePlainTextChars = 10

// OCREngine recognizes text in a rendered page image. Pages whose
// extracted layer text falls under minPagePlainTextChars are assumed to
// be scans and routed through it when one is configured; a PDFExtractor
// built with a nil engine simply skips OCR and keeps the short text
// layer as-is.
type OCREngine interface {
	RecognizeText(ctx context.Context, pageImage []byte) (string, error)
}

// PDFExtractor walks a PDF page by page, emitting one block per page
// (§4.1's page-wise extraction obligation) and falling back to OCR for
// pages whose text layer looks like it came from a scanned image.
type PDFExtractor struct {
	OCR OCREngine
}

func NewPDFExtractor(ocr OCREngine) *PDFExtractor {
	return &PDFExtractor{OCR: ocr}
}

func (p *PDFExtractor) Extract(ctx context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	blocks := make([]domain.ContentBlock, 0, total)
	fontCache := make(map[string]*pdf.Font)
	ocrUsed := false

	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, textErr := page.GetPlainText(fontCache)
		text = strings.TrimSpace(text)

		kind := domain.BlockKindText
		if textErr != nil || len(text) < minPagePlainTextChars {
			// No page rasterizer is wired into this corpus, so the OCR
			// engine receives the whole PDF; an engine backed by a real
			// rasterizing OCR service is expected to page-select itself.
			if p.OCR != nil {
				if ocrText, ocrErr := p.OCR.RecognizeText(ctx, data); ocrErr == nil && strings.TrimSpace(ocrText) != "" {
					text = strings.TrimSpace(ocrText)
					kind = domain.BlockKindImageText
					ocrUsed = true
				}
			}
		}
		if text == "" {
			continue
		}
		blocks = append(blocks, domain.ContentBlock{
			Kind:    kind,
			Content: text,
			Page:    pageIndex,
		})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no extractable text in %d pages", total)
	}
	if ocrUsed {
		blocks[0].Metadata = map[string]any{"ocr_used": true}
	}
	return blocks, nil
}

var _ Extractor = (*PDFExtractor)(nil)
