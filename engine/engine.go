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
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/ingestion"
	"github.com/paperflow/paperflow/retrieval"
	"github.com/paperflow/paperflow/session"
)

// Engine executes pipeline run specifications: it validates the graph,
// drives nodes in topological order, emits the event stream and implements
// cooperative pause/resume. One engine serves many concurrent runs; the
// stores behind it are shared and thread-safe.
type Engine struct {
	index      *retrieval.IndexStore
	documents  *docstore.DocumentStore
	repository docstore.Repository
	ingestor   *ingestion.Ingestor
	generator  ai.Generator
	sessions   session.Store
	registry   *registry
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithGenerator wires the language-model service used by agent nodes.
// Without one, agent nodes fall back to deterministic answers classified as
// missing credentials.
func WithGenerator(generator ai.Generator) Option {
	return func(e *Engine) error {
		e.generator = generator
		return nil
	}
}

// WithSessionStore wires conversation memory. Runs naming a session id get
// their prior turns folded into agent synthesis input and their final answer
// recorded.
func WithSessionStore(store session.Store) Option {
	return func(e *Engine) error {
		e.sessions = store
		return nil
	}
}

// WithPoolSize sets the worker pool size for parallel-search fan-out.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "engine")
		return nil
	}
}

// NewEngine creates an engine over the shared stores.
func NewEngine(
	index *retrieval.IndexStore,
	documents *docstore.DocumentStore,
	repository docstore.Repository,
	ingestor *ingestion.Ingestor,
	opts ...Option,
) (*Engine, error) {
	if index == nil {
		return nil, ErrIndexStoreRequired
	}
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		index:      index,
		documents:  documents,
		repository: repository,
		ingestor:   ingestor,
		registry:   newRegistry(),
		pool:       pool,
		logger:     slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.pool.Release()
			return nil, err
		}
	}
	return e, nil
}

// Pause requests suspension of an active run at its next node boundary.
func (e *Engine) Pause(runID string) error {
	return e.registry.pause(runID)
}

// Resume releases a paused run.
func (e *Engine) Resume(runID string) error {
	return e.registry.resume(runID)
}

// Release stops the fan-out worker pool. Active runs must finish first.
func (e *Engine) Release() {
	e.pool.Release()
}
