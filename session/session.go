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


package session

import (
	"context"
	"sync"
	"time"

	"github.com/paperflow/paperflow/core"
)

// DefaultMaxTurns bounds how much conversation history a session keeps.
const DefaultMaxTurns = 20

// Turn is one recorded exchange in a session: the user's query and the
// pipeline's final answer with its citations.
type Turn struct {
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Citations []core.Citation `json:"citations,omitempty"`
	ToolsUsed []string        `json:"tools_used,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store keeps per-session conversation turns. Implementations must be safe
// for concurrent use.
type Store interface {
	// AppendTurn records a turn, evicting the oldest entries beyond the
	// store's turn cap.
	AppendTurn(ctx context.Context, turn Turn) error

	// ListTurns returns a session's retained turns in append order. An
	// unknown session yields an empty slice, not an error.
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-memory Store keyed by session id.
type MemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string][]Turn
}

// NewMemoryStore creates a store retaining up to maxTurns turns per
// session; values below 2 are raised to 2.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns < 2 {
		maxTurns = 2
	}
	return &MemoryStore{
		maxTurns: maxTurns,
		sessions: make(map[string][]Turn),
	}
}

func (s *MemoryStore) AppendTurn(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[turn.SessionID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[turn.SessionID] = turns
	return nil
}

func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.sessions[sessionID]...), nil
}

func (s *MemoryStore) Close() error { return nil }
