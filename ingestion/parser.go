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


package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/paperflow/paperflow/chunker"
	"github.com/paperflow/paperflow/core"
)

// linesPerPage is the synthetic page size applied to line-organized sources.
const linesPerPage = 160

// Parser turns raw document bytes into page-organized text.
// Implementations must be safe for concurrent use.
type Parser interface {
	Parse(data []byte) ([]core.PageText, error)
}

// BlockParser turns raw document bytes into geometry-tagged text blocks plus
// a page count. Paginated formats such as PDF register one of these; none
// ships in-process.
type BlockParser interface {
	ParseBlocks(data []byte) ([]chunker.Block, int, error)
}

// ParseFunc adapts a function to the Parser interface.
type ParseFunc func(data []byte) ([]core.PageText, error)

func (f ParseFunc) Parse(data []byte) ([]core.PageText, error) { return f(data) }

func decodeText(data []byte) string {
	return string(bytes.ToValidUTF8(data, []byte("�")))
}

func normalizeLines(lines []string) []string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.TrimRight(line, " \t"))
	}
	for len(cleaned) > 0 && strings.TrimSpace(cleaned[len(cleaned)-1]) == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}
	return cleaned
}

// paginateLines slices normalized lines into fixed-size synthetic pages.
// Empty input yields a single empty page so the document still exists.
func paginateLines(lines []string) []core.PageText {
	lines = normalizeLines(lines)
	if len(lines) == 0 {
		return []core.PageText{{PageNumber: 0, Lines: []string{}}}
	}
	var pages []core.PageText
	for offset := 0; offset < len(lines); offset += linesPerPage {
		end := offset + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, core.PageText{
			PageNumber: len(pages),
			Lines:      append([]string(nil), lines[offset:end]...),
		})
	}
	return pages
}

// ParseText decodes UTF-8 text (replacing invalid sequences) and paginates
// its lines.
func ParseText(data []byte) ([]core.PageText, error) {
	return paginateLines(strings.Split(strings.ReplaceAll(decodeText(data), "\r\n", "\n"), "\n")), nil
}

// ParseCSV renders each CSV row as one comma-joined line, dropping trailing
// empty cells, then paginates.
func ParseCSV(data []byte) ([]core.PageText, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var lines []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
		}
		values := make([]string, len(row))
		for i, cell := range row {
			values[i] = strings.TrimSpace(cell)
		}
		for len(values) > 0 && values[len(values)-1] == "" {
			values = values[:len(values)-1]
		}
		if len(values) > 0 {
			lines = append(lines, strings.Join(values, ", "))
		}
	}
	return paginateLines(lines), nil
}

// PagesFromBlocks regroups geometry-tagged blocks into per-page line lists
// for the document store. Every page up to pageCount exists, even when no
// block landed on it.
func PagesFromBlocks(blocks []chunker.Block, pageCount int) []core.PageText {
	byPage := make(map[int][]string)
	for _, block := range blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		byPage[block.PageNumber] = append(byPage[block.PageNumber], text)
	}
	pages := make([]core.PageText, pageCount)
	for i := range pages {
		lines := byPage[i]
		if lines == nil {
			lines = []string{}
		}
		pages[i] = core.PageText{PageNumber: i, Lines: lines}
	}
	return pages
}
