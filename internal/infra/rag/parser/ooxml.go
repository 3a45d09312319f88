package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/qax-os/excelize/v2"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// XLSXExtractor reads a spreadsheet with excelize, emitting one table
// block per sheet. The first non-empty row is treated as a header when
// it looks probable (every cell non-numeric); subsequent rows are
// rendered as "header: value" pairs so the embedded text stays
// self-describing (§4.1 "per-logical-unit" obligation for OOXML).
type XLSXExtractor struct{}

func (XLSXExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var blocks []domain.ContentBlock
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		header, dataRows := splitHeader(rows)
		var b strings.Builder
		for _, row := range dataRows {
			for i, cell := range row {
				if cell == "" {
					continue
				}
				if i < len(header) && header[i] != "" {
					b.WriteString(header[i])
					b.WriteString(": ")
				}
				b.WriteString(cell)
				b.WriteString("  ")
			}
			b.WriteString("\n")
		}
		content := strings.TrimSpace(b.String())
		if content == "" {
			continue
		}
		blocks = append(blocks, domain.ContentBlock{
			Kind:      domain.BlockKindTable,
			Content:   content,
			SheetName: sheet,
		})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no readable sheets")
	}
	return blocks, nil
}

// splitHeader treats the first row as a header when none of its cells
// parse as a plain number; otherwise there's no header and every row is
// data.
func splitHeader(rows [][]string) ([]string, [][]string) {
	first := rows[0]
	probable := len(first) > 0
	for _, cell := range first {
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			probable = false
			break
		}
	}
	if probable {
		return first, rows[1:]
	}
	return nil, rows
}

// DOCXExtractor walks word/document.xml directly: excelize has no docx
// support and pulling in a second full OOXML library for paragraph text
// alone isn't worth it, so the zip+XML walk is hand-rolled the way the
// teacher hand-rolls its own lightweight wire formats.
type DOCXExtractor struct{}

func (DOCXExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	raw, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	paragraphs, err := extractWordParagraphs(raw)
	if err != nil {
		return nil, err
	}

	blocks := make([]domain.ContentBlock, 0, len(paragraphs))
	for i, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockKindText, Content: p, SubIndex: i})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no paragraph text found")
	}
	return blocks, nil
}

type wordBody struct {
	Paragraphs []wordParagraph `xml:"p"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []string `xml:"t"`
}

func extractWordParagraphs(raw []byte) ([]string, error) {
	var doc struct {
		Body wordBody `xml:"body"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document.xml: %w", err)
	}
	out := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		out = append(out, b.String())
	}
	return out, nil
}

// PPTXExtractor emits one slide block per slide plus, when present, a
// companion notes block, mirroring the spec's "slide plus its notes"
// logical unit (§4.1).
type PPTXExtractor struct{}

func (PPTXExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	slideNames := make([]string, 0)
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	sort.Slice(slideNames, func(i, j int) bool {
		return slideOrdinal(slideNames[i]) < slideOrdinal(slideNames[j])
	})

	var blocks []domain.ContentBlock
	for _, name := range slideNames {
		raw, err := readZipFile(zr, name)
		if err != nil {
			continue
		}
		text := extractShapeText(raw)
		ord := slideOrdinal(name)
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockKindSlide, Content: text, Page: ord})
		}

		notesName := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", ord)
		if notesRaw, err := readZipFile(zr, notesName); err == nil {
			notesText := extractShapeText(notesRaw)
			if strings.TrimSpace(notesText) != "" {
				blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockKindNotes, Content: notesText, Page: ord})
			}
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no readable slides")
	}
	return blocks, nil
}

func slideOrdinal(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(filepathBase(name), "slide"), ".xml")
	base = strings.TrimSuffix(strings.TrimPrefix(base, "notesSlide"), ".xml")
	n, _ := strconv.Atoi(base)
	return n
}

func filepathBase(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// extractShapeText pulls every <a:t> run out of a slide or notes XML
// part without modeling the full DrawingML shape tree.
func extractShapeText(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var content string
				_ = dec.DecodeElement(&content, &el)
				b.WriteString(content)
				b.WriteString(" ")
			}
		}
	}
	return b.String()
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
