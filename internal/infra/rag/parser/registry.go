// Package parser implements the ParserRegistry contract (§4.1): it
// turns a blob of a declared or sniffed content kind into an ordered
// sequence of content blocks, dispatching to a per-kind extractor and
// never aborting ingestion on a single extractor's failure.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// Extractor turns a blob into content blocks for one declared kind.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]domain.ContentBlock, error)
}

// Registry dispatches by declared content kind, falling back to
// magic-byte sniffing and then file extension (§4.1).
type Registry struct {
	byKind map[string]Extractor
}

// NewRegistry constructs a registry with the given per-kind extractors.
// Keys are lower-case kind identifiers: "pdf", "docx", "xlsx", "pptx",
// "doc", "xls", "ppt", "rtf", "md", "txt", "csv".
func NewRegistry(extractors map[string]Extractor) *Registry {
	reg := &Registry{byKind: make(map[string]Extractor, len(extractors))}
	for k, v := range extractors {
		reg.byKind[strings.ToLower(k)] = v
	}
	return reg
}

// Parse implements domain.ParserRegistry.
func (r *Registry) Parse(ctx context.Context, declaredKind, filename string, data []byte) ([]domain.ContentBlock, string, error) {
	kind := strings.ToLower(strings.TrimSpace(declaredKind))
	method := "declared"
	if kind == "" || r.byKind[kind] == nil {
		if sniffed := sniff(data); sniffed != "" {
			kind = sniffed
			method = "sniffed"
		}
	}
	if kind == "" || r.byKind[kind] == nil {
		if ext := extensionKind(filename); ext != "" {
			kind = ext
			method = "extension"
		}
	}

	extractor, ok := r.byKind[kind]
	if !ok {
		return []domain.ContentBlock{errorBlock(fmt.Sprintf("unsupported content kind %q", kind))}, "unknown", nil
	}

	blocks, err := extractor.Extract(ctx, filename, data)
	if err != nil {
		return []domain.ContentBlock{errorBlock(err.Error())}, kind + ":" + method, nil
	}
	cleaned := make([]domain.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		b.Content = clean(b.Content)
		if b.Content == "" && b.Kind != domain.BlockKindError {
			continue
		}
		cleaned = append(cleaned, b)
	}
	return cleaned, kind + ":" + method, nil
}

func errorBlock(message string) domain.ContentBlock {
	return domain.ContentBlock{Kind: domain.BlockKindError, Content: message}
}

// sniff classifies by magic bytes: PDF header, OOXML/OLE2 zip or
// compound-file signatures (§4.1). It cannot distinguish docx/xlsx/pptx
// from bytes alone; callers fall through to the extension check for that.
func sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return "pdf"
	case bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}):
		return "" // a valid OOXML zip; extension decides which kind
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}):
		return "" // OLE2 compound file; extension decides doc/xls/ppt
	default:
		return ""
	}
}

func extensionKind(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf", "docx", "xlsx", "pptx", "doc", "xls", "ppt", "rtf", "md", "markdown", "txt", "csv":
		if ext == "markdown" {
			return "md"
		}
		return ext
	default:
		return ""
	}
}

var _ domain.ParserRegistry = (*Registry)(nil)
