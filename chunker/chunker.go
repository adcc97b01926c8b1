// Copyright 2026 Paperflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paperflow/paperflow/core"
)

const (
	defaultTokenTarget      = 700
	defaultOverlapTokens    = 120
	defaultPreviewCharLimit = 240
)

// Block is a geometry-tagged text region extracted from a paginated source.
type Block struct {
	PageNumber  int
	BlockNo     int
	BoundingBox [4]float64
	Text        string
}

// Chunker segments page-organized text into token-bounded, overlapping
// passages with deterministic content-derived ids.
type Chunker struct {
	tokenizer        *Tokenizer
	tokenTarget      int
	overlapTokens    int
	previewCharLimit int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenTarget sets the maximum tokens per chunk.
// Default is 700.
func WithTokenTarget(target int) Option {
	return func(c *Chunker) {
		if target > 0 {
			c.tokenTarget = target
		}
	}
}

// WithOverlapTokens sets the target tokens to overlap between consecutive
// chunks on the same page.
// Default is 120.
func WithOverlapTokens(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlapTokens = overlap
		}
	}
}

// WithPreviewCharLimit sets the maximum characters of the stored preview.
// Default is 240.
func WithPreviewCharLimit(limit int) Option {
	return func(c *Chunker) {
		if limit > 0 {
			c.previewCharLimit = limit
		}
	}
}

// New creates a chunker with the provided options applied.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		tokenizer:        NewTokenizer(),
		tokenTarget:      defaultTokenTarget,
		overlapTokens:    defaultOverlapTokens,
		previewCharLimit: defaultPreviewCharLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// segment is the smallest accumulation unit: a whole block or line, or a
// split of one that exceeded the token budget on its own.
type segment struct {
	blockNo   int
	lineStart int
	lineEnd   int
	bbox      [4]float64
	text      string
	tokens    int
}

// ChunkBlocks chunks geometry-tagged blocks into retrieval passages.
//
// Blocks are ordered per page by vertical then horizontal position then
// block index. Oversized blocks are split at sentence boundaries first, then
// at hard token boundaries. Trailing segments of a closed chunk seed the
// next chunk up to the overlap budget; when overlap plus the next segment
// would exceed the token target the overlap is dropped entirely (a pragmatic
// choice kept as documented behavior). Overlap never crosses a page
// boundary.
func (c *Chunker) ChunkBlocks(documentID string, blocks []Block) []core.ChunkRecord {
	byPage := make(map[int][]Block)
	pageNumbers := make([]int, 0)
	for _, block := range blocks {
		if _, seen := byPage[block.PageNumber]; !seen {
			pageNumbers = append(pageNumbers, block.PageNumber)
		}
		byPage[block.PageNumber] = append(byPage[block.PageNumber], block)
	}
	sort.Ints(pageNumbers)

	var chunks []core.ChunkRecord
	chunkIndex := 0

	for _, pageNumber := range pageNumbers {
		pageBlocks := byPage[pageNumber]
		sort.SliceStable(pageBlocks, func(i, j int) bool {
			a, b := pageBlocks[i], pageBlocks[j]
			if a.BoundingBox[1] != b.BoundingBox[1] {
				return a.BoundingBox[1] < b.BoundingBox[1]
			}
			if a.BoundingBox[0] != b.BoundingBox[0] {
				return a.BoundingBox[0] < b.BoundingBox[0]
			}
			return a.BlockNo < b.BlockNo
		})

		var segments []segment
		for _, block := range pageBlocks {
			segments = append(segments, c.splitBlock(block)...)
		}

		chunks = append(chunks, c.assemble(documentID, pageNumber, segments, &chunkIndex, blockSpan, unionBBox)...)
	}
	return chunks
}

// ChunkPages chunks line-organized pages into retrieval passages. Lines are
// the smallest stable unit; oversized lines are token-split. The bounding
// box is a sentinel for line-organized input.
func (c *Chunker) ChunkPages(documentID string, pages []core.PageText) []core.ChunkRecord {
	var chunks []core.ChunkRecord
	chunkIndex := 0

	for _, page := range pages {
		var segments []segment
		for idx, line := range page.Lines {
			lineNo := idx + 1
			cleaned := strings.TrimRight(line, "\n")
			if strings.TrimSpace(cleaned) == "" {
				continue
			}
			tokens := c.tokenizer.Count(cleaned)
			if tokens <= c.tokenTarget {
				segments = append(segments, segment{
					lineStart: lineNo,
					lineEnd:   lineNo,
					text:      cleaned,
					tokens:    tokens,
				})
				continue
			}
			for _, piece := range c.tokenizer.HardSplit(cleaned, c.tokenTarget) {
				segments = append(segments, segment{
					lineStart: lineNo,
					lineEnd:   lineNo,
					text:      piece.Text,
					tokens:    piece.TokenCount,
				})
			}
		}

		chunks = append(chunks, c.assemble(documentID, page.PageNumber, segments, &chunkIndex, lineSpan, sentinelBBox)...)
	}
	return chunks
}

// splitBlock turns one block into segments that each fit the token target,
// preferring sentence boundaries over hard token cuts.
func (c *Chunker) splitBlock(block Block) []segment {
	tokens := c.tokenizer.Count(block.Text)
	if tokens <= c.tokenTarget {
		return []segment{{
			blockNo: block.BlockNo,
			bbox:    block.BoundingBox,
			text:    block.Text,
			tokens:  tokens,
		}}
	}

	sentences := make([]string, 0)
	for _, sentence := range core.SplitSentences(block.Text) {
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{block.Text}
	}

	var segments []segment
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(current, " "))
		current = nil
		tokens := currentTokens
		currentTokens = 0
		if text == "" {
			return
		}
		segments = append(segments, segment{
			blockNo: block.BlockNo,
			bbox:    block.BoundingBox,
			text:    text,
			tokens:  tokens,
		})
	}

	for _, sentence := range sentences {
		sentenceTokens := c.tokenizer.Count(sentence)
		if sentenceTokens > c.tokenTarget {
			flush()
			for _, piece := range c.tokenizer.HardSplit(sentence, c.tokenTarget) {
				segments = append(segments, segment{
					blockNo: block.BlockNo,
					bbox:    block.BoundingBox,
					text:    piece.Text,
					tokens:  piece.TokenCount,
				})
			}
			continue
		}

		if currentTokens+sentenceTokens > c.tokenTarget && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += sentenceTokens
	}
	flush()
	return segments
}

// assemble greedily accumulates ordered segments into chunks, seeding each
// next chunk with the closing chunk's trailing overlap.
func (c *Chunker) assemble(
	documentID string,
	pageNumber int,
	segments []segment,
	chunkIndex *int,
	span func([]segment) string,
	box func([]segment) [4]float64,
) []core.ChunkRecord {
	var chunks []core.ChunkRecord
	var current []segment
	currentTokens := 0

	finalize := func() {
		if len(current) == 0 {
			return
		}

		parts := make([]string, len(current))
		for i, seg := range current {
			parts[i] = seg.text
		}
		text := strings.TrimSpace(strings.Join(parts, "\n"))
		if text == "" {
			current = nil
			currentTokens = 0
			return
		}

		preview := strings.TrimRight(truncateHead(text, c.previewCharLimit), " \t\n")
		if len(text) > c.previewCharLimit {
			preview += "…"
		}

		chunks = append(chunks, core.ChunkRecord{
			ChunkID:      core.HashText(fmt.Sprintf("%s:%d:%d:%s", documentID, pageNumber, *chunkIndex, text)),
			DocumentID:   documentID,
			PageNumber:   pageNumber,
			ChunkIndex:   *chunkIndex,
			TokenCount:   currentTokens,
			CitationSpan: fmt.Sprintf("p%d:%s", pageNumber, span(current)),
			PreviewText:  preview,
			BoundingBox:  box(current),
			Text:         text,
		})
		*chunkIndex++

		// Seed the next chunk with trailing segments up to the overlap budget.
		var overlap []segment
		overlapTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			overlap = append([]segment{current[i]}, overlap...)
			overlapTokens += current[i].tokens
			if overlapTokens >= c.overlapTokens {
				break
			}
		}
		current = overlap
		currentTokens = overlapTokens
	}

	for _, seg := range segments {
		if len(current) > 0 && currentTokens+seg.tokens > c.tokenTarget {
			finalize()
		}
		// Overlap that leaves no room for the next segment is dropped outright.
		if len(current) > 0 && currentTokens+seg.tokens > c.tokenTarget {
			current = nil
			currentTokens = 0
		}
		current = append(current, seg)
		currentTokens += seg.tokens
	}
	finalize()

	return chunks
}

func blockSpan(segments []segment) string {
	start, end := segments[0].blockNo, segments[0].blockNo
	for _, seg := range segments[1:] {
		start = min(start, seg.blockNo)
		end = max(end, seg.blockNo)
	}
	return fmt.Sprintf("b%d-%d", start, end)
}

func lineSpan(segments []segment) string {
	start, end := segments[0].lineStart, segments[0].lineEnd
	for _, seg := range segments[1:] {
		start = min(start, seg.lineStart)
		end = max(end, seg.lineEnd)
	}
	return fmt.Sprintf("l%d-%d", start, end)
}

func unionBBox(segments []segment) [4]float64 {
	union := segments[0].bbox
	for _, seg := range segments[1:] {
		union[0] = min(union[0], seg.bbox[0])
		union[1] = min(union[1], seg.bbox[1])
		union[2] = max(union[2], seg.bbox[2])
		union[3] = max(union[3], seg.bbox[3])
	}
	return union
}

func sentinelBBox([]segment) [4]float64 {
	return [4]float64{}
}

// truncateHead cuts text to at most limit runes without normalizing it; the
// chunk text keeps its internal newlines, only the preview is shortened.
func truncateHead(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
