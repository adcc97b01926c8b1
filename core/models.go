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


package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// HashText generates a deterministic hex identifier from text content using
// BLAKE2b hashing. Identical content always produces identical ids.
func HashText(text string) string {
	return HashBytes([]byte(text))
}

// HashBytes generates a deterministic hex identifier from raw bytes.
func HashBytes(data []byte) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EvidenceChunk is a retrieved span of document text with a relevance score
// and a provenance tag naming the tool that produced it.
// It is immutable once produced.
type EvidenceChunk struct {
	DocumentID string   `json:"document_id"`
	ChunkID    string   `json:"chunk_id"`
	PageNumber *int     `json:"page_number,omitempty"`
	Text       string   `json:"text"`
	Score      float64  `json:"score"`
	SourceTool ToolName `json:"source_tool"`
}

// Citation is a deduplicated, user-facing reference derived from evidence.
// Citations are built from EvidenceChunk values, never constructed directly.
type Citation struct {
	DocumentID      string   `json:"document_id"`
	ChunkID         string   `json:"chunk_id"`
	PageNumber      *int     `json:"page_number,omitempty"`
	SupportingQuote string   `json:"supporting_quote"`
	SourceTool      ToolName `json:"source_tool"`
	Score           *float64 `json:"score,omitempty"`
}

// AgentOutputEnvelope is the terminal artifact produced by agent and output
// nodes.
type AgentOutputEnvelope struct {
	Answer          string          `json:"answer"`
	Citations       []Citation      `json:"citations"`
	ToolsUsed       []string        `json:"tools_used"`
	Evidence        []EvidenceChunk `json:"evidence"`
	UpstreamAnswers []string        `json:"upstream_answers"`
}

// DocumentRef identifies an ingested document to pipeline consumers.
type DocumentRef struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

// ChunkRecord is a persisted retrieval passage. A document's full chunk set
// is replaced wholesale on re-chunking, never patched incrementally.
type ChunkRecord struct {
	ChunkID      string     `json:"chunk_id"`
	DocumentID   string     `json:"document_id"`
	PageNumber   int        `json:"page_number"`
	ChunkIndex   int        `json:"chunk_index"`
	TokenCount   int        `json:"token_count"`
	CitationSpan string     `json:"citation_span"`
	PreviewText  string     `json:"preview_text"`
	BoundingBox  [4]float64 `json:"bounding_box"`
	Text         string     `json:"text"`
}

// DocumentRecord is the persisted bookkeeping entry for an ingested document.
// DocumentID doubles as the content checksum, making re-ingestion idempotent.
type DocumentRecord struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Kind       string    `json:"kind"`
	Checksum   string    `json:"checksum"`
	PageCount  int       `json:"page_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// PageText is the page-organized text of a parsed document: one entry per
// page, one string per line.
type PageText struct {
	PageNumber int      `json:"page_number"`
	Lines      []string `json:"lines"`
}

// LineCount returns the number of lines on the page.
func (p PageText) LineCount() int { return len(p.Lines) }

// SubOperationError is the error payload reported for a single failed
// parallel-search sub-operation. A failing sub-operation does not abort its
// siblings.
type SubOperationError struct {
	Index int      `json:"index"`
	Tool  ToolName `json:"tool"`
	Error string   `json:"error"`
}

// NodeOutput is the result recorded under a node's id for downstream use.
// Fields are populated per node type; once recorded the output is immutable
// for the remainder of the run.
type NodeOutput struct {
	PromptText        string               `json:"prompt_text,omitempty"`
	Documents         []DocumentRef        `json:"documents,omitempty"`
	IndexedChunkCount int                  `json:"indexed_chunk_count,omitempty"`
	Query             string               `json:"query,omitempty"`
	DocumentID        string               `json:"document_id,omitempty"`
	Page              *int                 `json:"page,omitempty"`
	Evidence          []EvidenceChunk      `json:"evidence,omitempty"`
	EvidenceCount     int                  `json:"evidence_count,omitempty"`
	Errors            []SubOperationError  `json:"errors,omitempty"`
	AgentOutput       *AgentOutputEnvelope `json:"agent_output,omitempty"`
	Answer            string               `json:"answer,omitempty"`
	Citations         []Citation           `json:"citations,omitempty"`
	ToolsUsed         []string             `json:"tools_used,omitempty"`
	Output            *AgentOutputEnvelope `json:"output,omitempty"`
}
