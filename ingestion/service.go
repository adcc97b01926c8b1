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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/paperflow/paperflow/chunker"
	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/retrieval"
)

// RawDocument is an uploaded document before parsing.
type RawDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Ingestor parses uploaded documents, chunks them, persists page text and
// chunk records, and keeps the retrieval index current. Ingestion is
// idempotent: re-uploading identical bytes returns the existing document.
type Ingestor struct {
	repository   docstore.Repository
	documents    *docstore.DocumentStore
	index        *retrieval.IndexStore
	chunker      *chunker.Chunker
	parsers      map[Kind]Parser
	blockParsers map[Kind]BlockParser
	pool         *ants.Pool
	logger       *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor) error

// WithPoolSize sets the worker pool size for batch ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ing *Ingestor) error {
		if size < 1 {
			size = 1
		}
		if ing.pool != nil {
			ing.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ing.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ing *Ingestor) error {
		if logger == nil {
			logger = slog.Default()
		}
		ing.logger = logger.With("component", "ingestor")
		return nil
	}
}

// WithParser registers or replaces the parser for a document kind.
func WithParser(kind Kind, parser Parser) Option {
	return func(ing *Ingestor) error {
		if parser == nil {
			return fmt.Errorf("parser for kind %q is nil", kind)
		}
		ing.parsers[kind] = parser
		return nil
	}
}

// WithBlockParser registers a geometry-aware parser for a document kind.
// Block-parsed documents are chunked with bounding boxes and block spans.
func WithBlockParser(kind Kind, parser BlockParser) Option {
	return func(ing *Ingestor) error {
		if parser == nil {
			return fmt.Errorf("block parser for kind %q is nil", kind)
		}
		ing.blockParsers[kind] = parser
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(ing *Ingestor) error {
		if c == nil {
			return errors.New("chunker is nil")
		}
		ing.chunker = c
		return nil
	}
}

// NewIngestor creates an ingestor wired to the given stores. Text and CSV
// parsing ship built in; paginated formats need a registered parser.
func NewIngestor(
	repository docstore.Repository,
	documents *docstore.DocumentStore,
	index *retrieval.IndexStore,
	opts ...Option,
) (*Ingestor, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if index == nil {
		return nil, ErrIndexStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ing := &Ingestor{
		repository: repository,
		documents:  documents,
		index:      index,
		chunker:    chunker.New(),
		parsers: map[Kind]Parser{
			KindText: ParseFunc(ParseText),
			KindCSV:  ParseFunc(ParseCSV),
		},
		blockParsers: make(map[Kind]BlockParser),
		pool:         pool,
		logger:       slog.Default().With("component", "ingestor"),
	}
	for _, opt := range opts {
		if err := opt(ing); err != nil {
			ing.pool.Release()
			return nil, err
		}
	}
	return ing, nil
}

// Ingest parses, chunks, stores and indexes one document. The document id is
// the content checksum, so identical bytes land on the same document and
// re-ingestion is a cheap lookup.
func (ing *Ingestor) Ingest(ctx context.Context, raw RawDocument) (core.DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return core.DocumentRef{}, err
	}

	checksum := core.HashBytes(raw.Data)
	if existing, err := ing.repository.GetDocumentByChecksum(checksum); err == nil {
		chunks, err := ing.repository.ListChunks(existing.DocumentID)
		if err != nil {
			return core.DocumentRef{}, err
		}
		ing.logger.Debug("document already ingested",
			"document_id", existing.DocumentID, "filename", raw.Filename)
		return core.DocumentRef{
			DocumentID: existing.DocumentID,
			Filename:   existing.Filename,
			PageCount:  existing.PageCount,
			ChunkCount: len(chunks),
		}, nil
	}

	kind, _, err := DetectKind(raw.Data, raw.Filename, raw.ContentType)
	if err != nil {
		return core.DocumentRef{}, err
	}

	pages, chunks, err := ing.parse(checksum, kind, raw.Data)
	if err != nil {
		return core.DocumentRef{}, err
	}

	ing.documents.StorePages(checksum, raw.Filename, pages)
	record := core.DocumentRecord{
		DocumentID: checksum,
		Filename:   raw.Filename,
		Kind:       string(kind),
		Checksum:   checksum,
		PageCount:  len(pages),
		IngestedAt: time.Now().UTC(),
	}
	if err := ing.repository.SaveDocument(record); err != nil {
		return core.DocumentRef{}, err
	}
	if err := ing.repository.ReplaceChunks(checksum, chunks); err != nil {
		return core.DocumentRef{}, err
	}
	ing.index.Upsert(checksum, chunks)

	ing.logger.Info("document ingested",
		"document_id", checksum,
		"filename", raw.Filename,
		"kind", kind,
		"pages", len(pages),
		"chunks", len(chunks))

	return core.DocumentRef{
		DocumentID: checksum,
		Filename:   raw.Filename,
		PageCount:  len(pages),
		ChunkCount: len(chunks),
	}, nil
}

func (ing *Ingestor) parse(documentID string, kind Kind, data []byte) ([]core.PageText, []core.ChunkRecord, error) {
	if blockParser, ok := ing.blockParsers[kind]; ok {
		blocks, pageCount, err := blockParser.ParseBlocks(data)
		if err != nil {
			return nil, nil, classifyParseError(kind, err)
		}
		return PagesFromBlocks(blocks, pageCount), ing.chunker.ChunkBlocks(documentID, blocks), nil
	}

	parser, ok := ing.parsers[kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no parser registered for kind %q", ErrUnsupportedType, kind)
	}
	pages, err := parser.Parse(data)
	if err != nil {
		return nil, nil, classifyParseError(kind, err)
	}
	return pages, ing.chunker.ChunkPages(documentID, pages), nil
}

func classifyParseError(kind Kind, err error) error {
	if errors.Is(err, ErrParseFailed) || errors.Is(err, ErrEncryptedDocument) || errors.Is(err, ErrUnsupportedType) {
		return err
	}
	return fmt.Errorf("%w: kind %q: %v", ErrParseFailed, kind, err)
}

// IngestAll ingests a batch concurrently on the worker pool. Results keep
// input order; per-document failures are joined into the returned error
// while successful documents still come back.
func (ing *Ingestor) IngestAll(ctx context.Context, raws []RawDocument) ([]core.DocumentRef, error) {
	refs := make([]core.DocumentRef, len(raws))
	errs := make([]error, len(raws))

	var wg sync.WaitGroup
	for i, raw := range raws {
		wg.Add(1)
		submitErr := ing.pool.Submit(func() {
			defer wg.Done()
			refs[i], errs[i] = ing.Ingest(ctx, raw)
		})
		if submitErr != nil {
			errs[i] = submitErr
			wg.Done()
		}
	}
	wg.Wait()

	out := make([]core.DocumentRef, 0, len(raws))
	var failures []error
	for i := range raws {
		if errs[i] != nil {
			failures = append(failures, fmt.Errorf("%s: %w", raws[i].Filename, errs[i]))
			continue
		}
		out = append(out, refs[i])
	}
	return out, errors.Join(failures...)
}

// Release stops the worker pool. The ingestor must not be used afterwards.
func (ing *Ingestor) Release() {
	ing.pool.Release()
}
