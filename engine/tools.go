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


package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/retrieval"
)

// KeywordSearch ranks chunks with BM25, optionally restricted to explicit
// document ids. When the index yields nothing for a non-empty query, a
// lexical overlap pass over the stored chunk records backs it up.
func (e *Engine) KeywordSearch(query string, topK int, documentIDs []string) []core.EvidenceChunk {
	prompt := strings.TrimSpace(query)
	if prompt == "" {
		return nil
	}

	evidence := e.index.Search(prompt, topK, documentIDs)
	if len(evidence) > 0 {
		return evidence
	}
	return retrieval.LexicalSearch(e.storedChunks(documentIDs), prompt, topK)
}

// storedChunks gathers the chunk records of the scoped documents, or of
// every known document when the scope is empty.
func (e *Engine) storedChunks(documentIDs []string) []core.ChunkRecord {
	ids := documentIDs
	if len(ids) == 0 {
		records, err := e.repository.ListDocuments()
		if err != nil {
			e.logger.Warn("listing documents for lexical fallback failed", "err", err)
			return nil
		}
		for _, record := range records {
			ids = append(ids, record.DocumentID)
		}
	}

	var chunks []core.ChunkRecord
	for _, id := range ids {
		stored, err := e.repository.ListChunks(id)
		if err != nil {
			e.logger.Warn("listing chunks for lexical fallback failed", "document_id", id, "err", err)
			continue
		}
		chunks = append(chunks, stored...)
	}
	return chunks
}

// ReadDocument reads one page (optionally a 1-based line sub-range) of a
// named document and wraps it as a single evidence chunk. An empty document
// id resolves to the first stored document; an empty store yields no
// evidence. Absent documents or pages surface as an error the caller treats
// as data, not as a node failure.
func (e *Engine) ReadDocument(page int, startLine, endLine *int, documentID string) ([]core.EvidenceChunk, error) {
	if documentID == "" {
		docs := e.documents.ListDocuments()
		if len(docs) == 0 {
			return nil, nil
		}
		documentID = docs[0].DocumentID
	}

	text, err := e.documents.ReadPage(documentID, page, startLine, endLine)
	if err != nil {
		return nil, err
	}

	chunkID := fmt.Sprintf("%s:page:%d", documentID, page)
	if startLine != nil || endLine != nil {
		start := 1
		if startLine != nil {
			start = *startLine
		}
		end := "end"
		if endLine != nil {
			end = strconv.Itoa(*endLine)
		}
		chunkID += fmt.Sprintf(":lines:%d-%s", start, end)
	}

	pageNumber := page
	return []core.EvidenceChunk{{
		DocumentID: documentID,
		ChunkID:    chunkID,
		PageNumber: &pageNumber,
		Text:       text,
		Score:      1.0,
		SourceTool: core.ToolReadDocument,
	}}, nil
}

// ParallelSearch fans the sub-operations out on the worker pool and blocks
// until all complete. A failing sub-operation contributes an error payload
// for itself without aborting its siblings. Combined evidence is
// deduplicated by (document id, chunk id) in sub-operation order.
func (e *Engine) ParallelSearch(ctx context.Context, query string, queries []core.ParallelQuery) ([]core.EvidenceChunk, []core.SubOperationError) {
	groups := make([][]core.EvidenceChunk, len(queries))
	failures := make([]*core.SubOperationError, len(queries))

	var wg sync.WaitGroup
	for i, sub := range queries {
		wg.Add(1)
		run := func() {
			defer wg.Done()
			groups[i], failures[i] = e.runSubOperation(ctx, query, i, sub)
		}
		if err := e.pool.Submit(run); err != nil {
			failures[i] = &core.SubOperationError{Index: i, Tool: sub.Type, Error: err.Error()}
			wg.Done()
		}
	}
	wg.Wait()

	var flattened []core.EvidenceChunk
	var errs []core.SubOperationError
	for i := range queries {
		flattened = append(flattened, groups[i]...)
		if failures[i] != nil {
			errs = append(errs, *failures[i])
		}
	}
	return retrieval.DedupeEvidence(flattened), errs
}

func (e *Engine) runSubOperation(ctx context.Context, query string, index int, sub core.ParallelQuery) ([]core.EvidenceChunk, *core.SubOperationError) {
	if err := ctx.Err(); err != nil {
		return nil, &core.SubOperationError{Index: index, Tool: sub.Type, Error: err.Error()}
	}

	switch sub.Type {
	case core.ToolReadDocument:
		evidence, err := e.ReadDocument(sub.Page, sub.StartLine, sub.EndLine, sub.DocumentID)
		if err != nil {
			return nil, &core.SubOperationError{Index: index, Tool: sub.Type, Error: err.Error()}
		}
		return evidence, nil
	case core.ToolKeywordSearch:
		rendered := core.RenderTemplate(sub.QueryTemplate, query)
		return e.KeywordSearch(rendered, sub.TopK, sub.DocumentIDs), nil
	default:
		return nil, &core.SubOperationError{
			Index: index,
			Tool:  sub.Type,
			Error: fmt.Sprintf("unsupported sub-operation type %q", sub.Type),
		}
	}
}
