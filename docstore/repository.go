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
	"sync"

	"github.com/paperflow/paperflow/core"
)

// Repository persists document bookkeeping and chunk records. Implementations
// must be safe for concurrent use.
type Repository interface {
	SaveDocument(record core.DocumentRecord) error
	GetDocument(documentID string) (core.DocumentRecord, error)
	GetDocumentByChecksum(checksum string) (core.DocumentRecord, error)
	ListDocuments() ([]core.DocumentRecord, error)
	ReplaceChunks(documentID string, chunks []core.ChunkRecord) error
	ListChunks(documentID string) ([]core.ChunkRecord, error)
}

// InMemoryRepository keeps records in process memory for the pipeline's
// lifetime.
type InMemoryRepository struct {
	mu     sync.RWMutex
	docs   map[string]core.DocumentRecord
	chunks map[string][]core.ChunkRecord
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		docs:   make(map[string]core.DocumentRecord),
		chunks: make(map[string][]core.ChunkRecord),
	}
}

func (r *InMemoryRepository) SaveDocument(record core.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[record.DocumentID] = record
	return nil
}

func (r *InMemoryRepository) GetDocument(documentID string) (core.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.docs[documentID]
	if !ok {
		return core.DocumentRecord{}, fmt.Errorf("document %q: %w", documentID, ErrDocumentNotFound)
	}
	return record, nil
}

func (r *InMemoryRepository) GetDocumentByChecksum(checksum string) (core.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.docs {
		if record.Checksum == checksum {
			return record, nil
		}
	}
	return core.DocumentRecord{}, fmt.Errorf("checksum %q: %w", checksum, ErrDocumentNotFound)
}

func (r *InMemoryRepository) ListDocuments() ([]core.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]core.DocumentRecord, 0, len(r.docs))
	for _, record := range r.docs {
		records = append(records, record)
	}
	sort.Slice(records, func(a, b int) bool { return records[a].DocumentID < records[b].DocumentID })
	return records, nil
}

// ReplaceChunks swaps a document's full chunk set. Chunk sets are never
// patched incrementally.
func (r *InMemoryRepository) ReplaceChunks(documentID string, chunks []core.ChunkRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[documentID] = append([]core.ChunkRecord(nil), chunks...)
	return nil
}

func (r *InMemoryRepository) ListChunks(documentID string) ([]core.ChunkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chunks, ok := r.chunks[documentID]
	if !ok {
		return nil, nil
	}
	return append([]core.ChunkRecord(nil), chunks...), nil
}
