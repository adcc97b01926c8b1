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


package docstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/paperflow/paperflow/core"
)

// DocumentInfo summarizes a stored document for listings.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
}

type storedDocument struct {
	filename string
	pages    []core.PageText
}

// DocumentStore holds page-organized text for ingested documents. It is safe
// for concurrent use; contents live for the process lifetime only.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*storedDocument
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*storedDocument)}
}

// StorePages records (or replaces) a document's page texts.
func (s *DocumentStore) StorePages(documentID, filename string, pages []core.PageText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[documentID] = &storedDocument{
		filename: filename,
		pages:    append([]core.PageText(nil), pages...),
	}
}

// Remove drops a document's pages if present.
func (s *DocumentStore) Remove(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
}

// HasDocument reports whether the document's pages are stored.
func (s *DocumentStore) HasDocument(documentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[documentID]
	return ok
}

// PageCount returns the number of stored pages, zero for unknown documents.
func (s *DocumentStore) PageCount(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return 0
	}
	return len(doc.pages)
}

// ListDocuments lists stored documents ordered by document id.
func (s *DocumentStore) ListDocuments() []DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]DocumentInfo, 0, len(s.docs))
	for id, doc := range s.docs {
		infos = append(infos, DocumentInfo{
			DocumentID: id,
			Filename:   doc.filename,
			PageCount:  len(doc.pages),
		})
	}
	sort.Slice(infos, func(a, b int) bool { return infos[a].DocumentID < infos[b].DocumentID })
	return infos
}

// ReadPage renders one page as numbered lines, optionally restricted to a
// 1-based inclusive line range. The end line clamps to the page length; a
// start line past the end yields an out-of-range message rather than an
// error. Unknown documents return ErrDocumentNotFound, unknown pages
// ErrPageNotFound.
func (s *DocumentStore) ReadPage(documentID string, page int, startLine, endLine *int) (string, error) {
	s.mu.RLock()
	doc, ok := s.docs[documentID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("document %q: %w", documentID, ErrDocumentNotFound)
	}

	var target *core.PageText
	for i := range doc.pages {
		if doc.pages[i].PageNumber == page {
			target = &doc.pages[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("document %q page %d: %w", documentID, page, ErrPageNotFound)
	}

	total := target.LineCount()
	if startLine == nil && endLine == nil {
		return fmt.Sprintf("Page %d (%d lines):\n%s", page, total, formatNumberedLines(target.Lines, 1)), nil
	}

	start := 1
	if startLine != nil {
		start = *startLine
	}
	if start < 1 {
		start = 1
	}
	end := total
	if endLine != nil && *endLine < end {
		end = *endLine
	}
	if start > total || end < start {
		return fmt.Sprintf("Page %d: requested lines %d-%d are out of range (page has %d lines)", page, start, end, total), nil
	}

	numbered := formatNumberedLines(target.Lines[start-1:end], start)
	return fmt.Sprintf("Page %d (lines %d-%d of %d):\n%s", page, start, end, total, numbered), nil
}

// formatNumberedLines right-aligns 1-based line numbers in a three-wide
// gutter so agent tool output stays visually stable across pages.
func formatNumberedLines(lines []string, start int) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = fmt.Sprintf("%3d | %s", start+i, line)
	}
	return strings.Join(out, "\n")
}
