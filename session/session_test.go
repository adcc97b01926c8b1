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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(sessionID, content string) Turn {
	return Turn{
		SessionID: sessionID,
		RunID:     "run-1",
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	turns, err := store.ListTurns(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, store.AppendTurn(ctx, turn("s1", "first")))
	require.NoError(t, store.AppendTurn(ctx, turn("s1", "second")))
	require.NoError(t, store.AppendTurn(ctx, turn("s2", "other session")))

	turns, err = store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, "second", turns[1].Content)

	turns, err = store.ListTurns(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func testStoreEviction(t *testing.T, store Store) {
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, store.AppendTurn(ctx, turn("s1", fmt.Sprintf("turn-%d", i))))
	}

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3, "oldest turns beyond the cap are evicted")
	assert.Equal(t, "turn-3", turns[0].Content)
	assert.Equal(t, "turn-5", turns[2].Content)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(DefaultMaxTurns)
	defer store.Close()
	testStoreContract(t, store)
}

func TestMemoryStoreEviction(t *testing.T) {
	store := NewMemoryStore(3)
	defer store.Close()
	testStoreEviction(t, store)
}

func TestMemoryStoreMinimumCap(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendTurn(ctx, turn("s1", fmt.Sprintf("turn-%d", i))))
	}
	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadgerStore("", true, DefaultMaxTurns)
	require.NoError(t, err)
	defer store.Close()
	testStoreContract(t, store)
}

func TestBadgerStoreEviction(t *testing.T) {
	store, err := OpenBadgerStore("", true, 3)
	require.NoError(t, err)
	defer store.Close()
	testStoreEviction(t, store)
}

func TestBadgerStoreRoundTripsCitations(t *testing.T) {
	store, err := OpenBadgerStore("", true, DefaultMaxTurns)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	entry := turn("s1", "answer text")
	entry.ToolsUsed = []string{"keyword_search"}
	require.NoError(t, store.AppendTurn(ctx, entry))

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"keyword_search"}, turns[0].ToolsUsed)
}
