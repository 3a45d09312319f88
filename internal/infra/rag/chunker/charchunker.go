package chunker

import (
	"strings"
	"unicode/utf8"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

const (
	defaultChunkChars   = 500
	defaultOverlapChars = 50
	maxChunksPerInput   = 200
	maxChunkIterations  = 1000
)

// CharChunker implements the primary character-budget chunker of §4.2:
// fixed-size windows with a small overlap, preferring to break on
// paragraph or sentence boundaries rather than mid-word. Oversized
// paragraphs are cut by the window itself; the token-budget chunker is
// consulted only for a piece over three windows long, which the window
// slicing does not produce.
type CharChunker struct {
	ChunkChars   int
	OverlapChars int
	backstop     *SimpleChunker
}

// NewCharChunker constructs a chunker with the §4.2 defaults.
func NewCharChunker(chunkChars, overlapChars, backstopMaxTokens int) *CharChunker {
	if chunkChars <= 0 {
		chunkChars = defaultChunkChars
	}
	if overlapChars < 0 || overlapChars >= chunkChars {
		overlapChars = defaultOverlapChars
	}
	return &CharChunker{
		ChunkChars:   chunkChars,
		OverlapChars: overlapChars,
		backstop:     NewSimpleChunker(backstopMaxTokens, overlapChars/10),
	}
}

// Chunk splits text into overlapping character windows, satisfying
// domain.Chunker.
func (c *CharChunker) Chunk(text string) []domain.ChunkCandidate {
	return c.chunkWithOffset(text, 0)
}

// ChunkBlocks chunks each content block independently, carrying its
// block metadata (kind, page, section name) onto every chunk it
// produces, and assigns a single dense document-scoped index across
// all blocks (§4.1: "each chunk inherits block metadata").
func (c *CharChunker) ChunkBlocks(blocks []domain.ContentBlock) []domain.ChunkCandidate {
	var out []domain.ChunkCandidate
	index := 0
	for _, block := range blocks {
		pieces := c.chunkWithOffset(block.Content, 0)
		for _, piece := range pieces {
			piece.Index = index
			index++
			piece.ChunkType = blockChunkType(block.Kind)
			if block.Page > 0 {
				page := block.Page
				piece.PageNumber = &page
			}
			if block.SectionName != "" {
				name := block.SectionName
				piece.SectionName = &name
			} else if block.SheetName != "" {
				name := block.SheetName
				piece.SectionName = &name
			}
			piece.Metadata = block.Metadata
			out = append(out, piece)
		}
	}
	if len(out) > maxChunksPerInput {
		out = out[:maxChunksPerInput]
	}
	return out
}

func blockChunkType(kind domain.BlockKind) domain.ChunkType {
	switch kind {
	case domain.BlockKindTable:
		return domain.ChunkTypeTable
	case domain.BlockKindSlide:
		return domain.ChunkTypeSlide
	case domain.BlockKindNotes:
		return domain.ChunkTypeNotes
	case domain.BlockKindImageText:
		return domain.ChunkTypeImageText
	case domain.BlockKindError:
		return domain.ChunkTypeError
	default:
		return domain.ChunkTypeText
	}
}

func (c *CharChunker) chunkWithOffset(text string, startIndex int) []domain.ChunkCandidate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.ChunkChars {
		return []domain.ChunkCandidate{{Index: startIndex, Content: text, TokenCount: estimateTokenCount(text)}}
	}

	runes := []rune(text)
	var out []domain.ChunkCandidate
	pos := 0
	index := startIndex
	for iter := 0; pos < len(runes) && iter < maxChunkIterations && len(out) < maxChunksPerInput; iter++ {
		end := pos + c.ChunkChars
		if end > len(runes) {
			end = len(runes)
		} else {
			end = preferBoundary(runes, pos, end)
		}
		piece := strings.TrimSpace(string(runes[pos:end]))
		if piece != "" {
			if utf8.RuneCountInString(piece) > c.ChunkChars*3 {
				// a degenerate boundary search left an oversized piece; fall
				// back to the token-budget chunker for this slice only.
				for _, sub := range c.backstop.Chunk(piece) {
					sub.Index = index
					index++
					out = append(out, sub)
				}
			} else {
				out = append(out, domain.ChunkCandidate{Index: index, Content: piece, TokenCount: estimateTokenCount(piece)})
				index++
			}
		}
		if end >= len(runes) {
			break
		}
		next := end - c.OverlapChars
		if next <= pos {
			next = end
		}
		pos = next
	}
	return out
}

// preferBoundary nudges the chunk end backward to the nearest paragraph
// break, then sentence break, within a small lookback window, so chunks
// don't split mid-sentence when avoidable.
func preferBoundary(runes []rune, start, end int) int {
	lookback := end - start/2
	if lookback > 120 {
		lookback = 120
	}
	floor := end - lookback
	if floor < start {
		floor = start
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
				return i + 1
			}
		}
	}
	return end
}

func estimateTokenCount(text string) int {
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	tokens := runes / 4
	if tokens < words {
		tokens = words
	}
	return tokens
}
