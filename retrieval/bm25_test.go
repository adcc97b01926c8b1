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
	"testing"

	"github.com/paperflow/paperflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(docID string, index int, text string) core.ChunkRecord {
	return core.ChunkRecord{
		ChunkID:    core.HashText(docID + ":" + text),
		DocumentID: docID,
		PageNumber: 0,
		ChunkIndex: index,
		TokenCount: len(Tokenize(text)),
		Text:       text,
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"attention", "is", "all", "you", "need"}, Tokenize("Attention is ALL you need!"))
	assert.Equal(t, []string{"bm25", "rank"}, Tokenize("  BM25/rank  "))
	assert.Empty(t, Tokenize("--- !!! ---"))
}

func TestIndexStoreSearchRanksMatchingChunks(t *testing.T) {
	store := NewIndexStore()
	store.Upsert("doc-1", []core.ChunkRecord{
		chunk("doc-1", 0, "Attention mechanisms weigh token relevance."),
		chunk("doc-1", 1, "Convolutions slide filters over grids."),
		chunk("doc-1", 2, "Attention attention everywhere, attention dominates."),
	})

	results := store.Search("attention", 10, nil)
	require.Len(t, results, 2, "chunks without query terms are excluded")
	assert.Contains(t, results[0].Text, "attention dominates")
	for _, ev := range results {
		assert.Equal(t, core.ToolKeywordSearch, ev.SourceTool)
		assert.Positive(t, ev.Score)
		require.NotNil(t, ev.PageNumber)
	}
}

func TestIndexStoreSearchEmptyQuery(t *testing.T) {
	store := NewIndexStore()
	store.Upsert("doc-1", []core.ChunkRecord{chunk("doc-1", 0, "some text")})

	assert.Empty(t, store.Search("", 5, nil))
	assert.Empty(t, store.Search("   ", 5, nil))
}

func TestIndexStoreSearchTopKFloor(t *testing.T) {
	store := NewIndexStore()
	store.Upsert("doc-1", []core.ChunkRecord{
		chunk("doc-1", 0, "positional encoding positional"),
		chunk("doc-1", 1, "positional encoding helps"),
	})

	// A non-positive budget still yields one result.
	assert.Len(t, store.Search("positional", 0, nil), 1)
	assert.Len(t, store.Search("positional", -3, nil), 1)
	assert.Len(t, store.Search("positional", 1, nil), 1)
}

func TestIndexStoreSearchDocumentFilter(t *testing.T) {
	store := NewIndexStore()
	store.Upsert("doc-1", []core.ChunkRecord{chunk("doc-1", 0, "gradient descent converges")})
	store.Upsert("doc-2", []core.ChunkRecord{chunk("doc-2", 0, "gradient boosting ensembles")})

	all := store.Search("gradient", 10, nil)
	assert.Len(t, all, 2)

	only := store.Search("gradient", 10, []string{"doc-2"})
	require.Len(t, only, 1)
	assert.Equal(t, "doc-2", only[0].DocumentID)

	assert.Empty(t, store.Search("gradient", 10, []string{"doc-404"}))
}

func TestIndexStoreUpsertIdempotent(t *testing.T) {
	store := NewIndexStore()
	chunks := []core.ChunkRecord{chunk("doc-1", 0, "stable content")}

	assert.True(t, store.Upsert("doc-1", chunks))
	assert.False(t, store.Upsert("doc-1", chunks), "unchanged chunk sequence must be a no-op")

	replaced := []core.ChunkRecord{chunk("doc-1", 0, "different content")}
	assert.True(t, store.Upsert("doc-1", replaced))
	assert.Equal(t, 1, store.IndexedChunkCount("doc-1"))
}

func TestIndexStoreLifecycle(t *testing.T) {
	store := NewIndexStore()
	assert.False(t, store.HasDocument("doc-1"))
	assert.Zero(t, store.IndexedChunkCount("doc-1"))

	store.Upsert("doc-1", []core.ChunkRecord{chunk("doc-1", 0, "a"), chunk("doc-1", 1, "b")})
	store.Upsert("doc-2", []core.ChunkRecord{chunk("doc-2", 0, "c")})
	assert.True(t, store.HasDocument("doc-1"))
	assert.Equal(t, 2, store.IndexedChunkCount("doc-1"))
	assert.Equal(t, []string{"doc-1", "doc-2"}, store.DocumentIDs())

	store.Remove("doc-1")
	assert.False(t, store.HasDocument("doc-1"))
	assert.Equal(t, []string{"doc-2"}, store.DocumentIDs())
}

func TestLexicalSearchOverlapScoring(t *testing.T) {
	chunks := []core.ChunkRecord{
		chunk("doc-1", 0, "alpha beta gamma"),
		chunk("doc-1", 1, "alpha beta"),
		chunk("doc-1", 2, "delta epsilon"),
	}

	results := LexicalSearch(chunks, "alpha beta gamma", 10)
	require.Len(t, results, 2)
	assert.Equal(t, 3.0, results[0].Score)
	assert.Equal(t, 2.0, results[1].Score)

	assert.Empty(t, LexicalSearch(chunks, "", 10))
	assert.Empty(t, LexicalSearch(chunks, "zeta", 10))
}

func TestSignatureTracksChunkIDs(t *testing.T) {
	a := []core.ChunkRecord{chunk("doc-1", 0, "one"), chunk("doc-1", 1, "two")}
	b := []core.ChunkRecord{chunk("doc-1", 0, "one"), chunk("doc-1", 1, "two")}
	c := []core.ChunkRecord{chunk("doc-1", 1, "two"), chunk("doc-1", 0, "one")}

	assert.Equal(t, Signature(a), Signature(b))
	assert.NotEqual(t, Signature(a), Signature(c), "signature is order sensitive")
}
