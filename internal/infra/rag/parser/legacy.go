package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

const (
	legacyMinRunLength = 20
	legacyMaxBlocks    = 400
	legacyMaxTotalSize = 4 << 20 // 4 MiB of salvaged text, whichever file
	legacyMinLetterPct = 0.30
)

// LegacyExtractor salvages text from pre-OOXML binary formats (doc,
// xls, ppt) that have no public pure-Go reader in this corpus: it scans
// the raw bytes for runs of plausible ASCII and UTF-16LE text, the same
// strings(1)-style technique the original implementation falls back to
// for these formats, and keeps only runs that pass a quality heuristic
// so binary noise salvaged by accident doesn't pollute the index.
type LegacyExtractor struct{}

func (LegacyExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	runs := append(scanASCIIRuns(data), scanUTF16Runs(data)...)

	var blocks []domain.ContentBlock
	total := 0
	for i, run := range runs {
		if !plausibleText(run) {
			continue
		}
		if len(blocks) >= legacyMaxBlocks || total+len(run) > legacyMaxTotalSize {
			break
		}
		blocks = append(blocks, domain.ContentBlock{
			Kind:     domain.BlockKindText,
			Content:  run,
			SubIndex: i,
		})
		total += len(run)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no salvageable text runs found")
	}
	return blocks, nil
}

// scanASCIIRuns collects maximal runs of printable ASCII/space bytes at
// least legacyMinRunLength long.
func scanASCIIRuns(data []byte) []string {
	var runs []string
	start := -1
	for i, b := range data {
		printable := (b >= 0x20 && b < 0x7F) || b == '\t'
		if printable {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			if i-start >= legacyMinRunLength {
				runs = append(runs, string(data[start:i]))
			}
			start = -1
		}
	}
	if start != -1 && len(data)-start >= legacyMinRunLength {
		runs = append(runs, string(data[start:]))
	}
	return runs
}

// scanUTF16Runs collects maximal runs of plausible UTF-16LE text, the
// encoding legacy Word/Excel binaries store most string content in.
func scanUTF16Runs(data []byte) []string {
	var runs []string
	var units []uint16
	flush := func() {
		if len(units) < legacyMinRunLength/2 {
			units = units[:0]
			return
		}
		decoded := string(utf16.Decode(units))
		if strings.TrimSpace(decoded) != "" {
			runs = append(runs, decoded)
		}
		units = units[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		r := rune(u)
		if u != 0 && (unicode.IsPrint(r) || r == '\t') && r < 0xFFF0 {
			units = append(units, u)
			continue
		}
		flush()
	}
	flush()
	return runs
}

// plausibleText applies the §4.1 salvage quality gate: a high enough
// letter ratio, more than one word, and mixed case, so a run of
// incidental binary bytes that happens to decode as printable
// characters doesn't get mistaken for prose.
func plausibleText(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < legacyMinRunLength {
		return false
	}
	var letters, total int
	hasUpper, hasLower := false, false
	for _, r := range s {
		total++
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				hasUpper = true
			}
			if unicode.IsLower(r) {
				hasLower = true
			}
		}
	}
	if total == 0 || float64(letters)/float64(total) < legacyMinLetterPct {
		return false
	}
	if len(strings.Fields(s)) < 2 {
		return false
	}
	return hasUpper && hasLower
}
