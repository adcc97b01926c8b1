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


package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/paperflow/paperflow/core"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Tokenize lowercases text and splits it into alphanumeric terms.
func Tokenize(text string) []string {
	var (
		terms   []string
		current strings.Builder
	)
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		terms = append(terms, current.String())
	}
	return terms
}

// Signature fingerprints an ordered chunk sequence so repeated upserts of
// unchanged content can be skipped.
func Signature(chunks []core.ChunkRecord) string {
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ChunkID
	}
	return core.HashText(strings.Join(ids, "|"))
}

// Index ranks the chunks of a single document with BM25.
type Index struct {
	documentID string
	chunks     []core.ChunkRecord
	terms      []map[string]int
	lengths    []int
	docFreq    map[string]int
	avgLength  float64
	signature  string
}

// BuildIndex tokenizes every chunk of a document and precomputes the term
// statistics BM25 needs. An empty chunk slice yields an index that matches
// nothing.
func BuildIndex(documentID string, chunks []core.ChunkRecord) *Index {
	ix := &Index{
		documentID: documentID,
		chunks:     append([]core.ChunkRecord(nil), chunks...),
		terms:      make([]map[string]int, len(chunks)),
		lengths:    make([]int, len(chunks)),
		docFreq:    make(map[string]int),
		signature:  Signature(chunks),
	}

	total := 0
	for i, chunk := range ix.chunks {
		freq := make(map[string]int)
		for _, term := range Tokenize(chunk.Text) {
			freq[term]++
		}
		ix.terms[i] = freq
		ix.lengths[i] = chunkTermCount(freq)
		total += ix.lengths[i]
		for term := range freq {
			ix.docFreq[term]++
		}
	}
	if len(ix.chunks) > 0 {
		ix.avgLength = float64(total) / float64(len(ix.chunks))
	}
	return ix
}

func chunkTermCount(freq map[string]int) int {
	n := 0
	for _, c := range freq {
		n += c
	}
	return n
}

// DocumentID reports which document the index covers.
func (ix *Index) DocumentID() string { return ix.documentID }

// ChunkCount reports how many chunks are ranked by the index.
func (ix *Index) ChunkCount() int { return len(ix.chunks) }

func (ix *Index) idf(term string) float64 {
	df := ix.docFreq[term]
	n := float64(len(ix.chunks))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

func (ix *Index) score(queryTerms []string, i int) float64 {
	freq := ix.terms[i]
	length := float64(ix.lengths[i])
	score := 0.0
	for _, term := range queryTerms {
		tf := float64(freq[term])
		if tf == 0 {
			continue
		}
		norm := bm25K1 * (1 - bm25B + bm25B*length/ix.avgLength)
		score += ix.idf(term) * tf * (bm25K1 + 1) / (tf + norm)
	}
	return score
}

type scoredChunk struct {
	chunk core.ChunkRecord
	score float64
}

// Search ranks the document's chunks against the query. Chunks scoring at or
// below zero are excluded; results sort by descending score with chunk
// position breaking ties.
func (ix *Index) Search(query string, limit int) []scoredChunk {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || len(ix.chunks) == 0 {
		return nil
	}

	var results []scoredChunk
	for i := range ix.chunks {
		s := ix.score(queryTerms, i)
		if s <= 0 {
			continue
		}
		results = append(results, scoredChunk{chunk: ix.chunks[i], score: s})
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].score != results[b].score {
			return results[a].score > results[b].score
		}
		return results[a].chunk.ChunkIndex < results[b].chunk.ChunkIndex
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// IndexStore holds one BM25 index per ingested document.
type IndexStore struct {
	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewIndexStore returns an empty store.
func NewIndexStore() *IndexStore {
	return &IndexStore{indexes: make(map[string]*Index)}
}

// Upsert replaces the index for a document. Re-indexing an unchanged chunk
// sequence is a no-op; the return value reports whether the index was
// rebuilt.
func (s *IndexStore) Upsert(documentID string, chunks []core.ChunkRecord) bool {
	sig := Signature(chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.indexes[documentID]; ok && existing.signature == sig {
		return false
	}
	s.indexes[documentID] = BuildIndex(documentID, chunks)
	return true
}

// Remove drops the index for a document if present.
func (s *IndexStore) Remove(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, documentID)
}

// HasDocument reports whether a document has been indexed.
func (s *IndexStore) HasDocument(documentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[documentID]
	return ok
}

// IndexedChunkCount reports the number of chunks indexed for a document,
// zero when the document is unknown.
func (s *IndexStore) IndexedChunkCount(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ix, ok := s.indexes[documentID]
	if !ok {
		return 0
	}
	return ix.ChunkCount()
}

// DocumentIDs lists the indexed documents in ascending order.
func (s *IndexStore) DocumentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.indexes))
	for id := range s.indexes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Search ranks chunks across the requested documents, or across every
// indexed document when documentIDs is empty. Per-document rankings merge
// into a single list ordered by descending score with chunk id breaking
// ties, truncated to topK (minimum one result slot).
func (s *IndexStore) Search(query string, topK int, documentIDs []string) []core.EvidenceChunk {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	limit := topK
	if limit < 1 {
		limit = 1
	}

	s.mu.RLock()
	targets := make([]*Index, 0, len(s.indexes))
	if len(documentIDs) == 0 {
		for _, ix := range s.indexes {
			targets = append(targets, ix)
		}
	} else {
		for _, id := range documentIDs {
			if ix, ok := s.indexes[id]; ok {
				targets = append(targets, ix)
			}
		}
	}
	s.mu.RUnlock()

	var merged []core.EvidenceChunk
	for _, ix := range targets {
		for _, hit := range ix.Search(query, limit) {
			merged = append(merged, evidenceFromChunk(hit.chunk, hit.score))
		}
	}
	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].Score != merged[b].Score {
			return merged[a].Score > merged[b].Score
		}
		return merged[a].ChunkID < merged[b].ChunkID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func evidenceFromChunk(chunk core.ChunkRecord, score float64) core.EvidenceChunk {
	page := chunk.PageNumber
	return core.EvidenceChunk{
		DocumentID: chunk.DocumentID,
		ChunkID:    chunk.ChunkID,
		PageNumber: &page,
		Text:       chunk.Text,
		Score:      score,
		SourceTool: core.ToolKeywordSearch,
	}
}

// LexicalSearch scores chunks by raw query term overlap. It backs keyword
// search when no BM25 index exists for the requested documents.
func LexicalSearch(chunks []core.ChunkRecord, query string, topK int) []core.EvidenceChunk {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}
	limit := topK
	if limit < 1 {
		limit = 1
	}

	var results []core.EvidenceChunk
	for _, chunk := range chunks {
		seen := make(map[string]bool)
		for _, term := range Tokenize(chunk.Text) {
			seen[term] = true
		}
		overlap := 0
		for _, term := range queryTerms {
			if seen[term] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		results = append(results, evidenceFromChunk(chunk, float64(overlap)))
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ChunkID < results[b].ChunkID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
