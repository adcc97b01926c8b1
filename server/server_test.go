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


package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/ai/mock"
	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/engine"
	"github.com/paperflow/paperflow/ingestion"
	"github.com/paperflow/paperflow/retrieval"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	index := retrieval.NewIndexStore()
	documents := docstore.NewDocumentStore()
	repository := docstore.NewInMemoryRepository()
	ingestor, err := ingestion.NewIngestor(repository, documents, index)
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)

	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(_ context.Context, _ ai.GenerateRequest) (string, error) {
		return "Synthesized answer.", nil
	}
	eng, err := engine.NewEngine(index, documents, repository, ingestor, engine.WithGenerator(generator))
	require.NoError(t, err)
	t.Cleanup(eng.Release)

	s, err := NewServer(eng, ingestor, repository)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	return recorder
}

func uploadDocument(t *testing.T, s *Server, filename, content string) core.DocumentRef {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var ref core.DocumentRef
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &ref))
	return ref
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	recorder := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestIngestAndListDocuments(t *testing.T) {
	s := newTestServer(t)

	ref := uploadDocument(t, s, "notes.txt", "Attention works well.")
	assert.NotEmpty(t, ref.DocumentID)
	assert.Equal(t, "notes.txt", ref.Filename)
	assert.Equal(t, 1, ref.PageCount)

	// Same bytes land on the same document.
	again := uploadDocument(t, s, "copy.txt", "Attention works well.")
	assert.Equal(t, ref.DocumentID, again.DocumentID)

	recorder := doJSON(t, s, http.MethodGet, "/v1/documents", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listed listDocumentsResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, ref.DocumentID, listed.Documents[0].DocumentID)
}

func TestIngestRejectsMissingFile(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var payload APIErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "file_required", payload.Error.Code)
	assert.True(t, payload.Error.Recoverable)
	assert.NotEmpty(t, payload.Error.RequestID)
}

func TestKeywordSearchTool(t *testing.T) {
	s := newTestServer(t)
	uploadDocument(t, s, "notes.txt", "Attention works well. It compares query and key vectors.")

	recorder := doJSON(t, s, http.MethodPost, "/v1/pipeline/tools/keyword-search", keywordSearchRequest{
		Query: "attention",
		TopK:  4,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response evidenceResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response.Evidence)
	assert.Equal(t, core.ToolKeywordSearch, response.Evidence[0].SourceTool)

	recorder = doJSON(t, s, http.MethodPost, "/v1/pipeline/tools/keyword-search", keywordSearchRequest{
		Query: "   ",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReadDocumentTool(t *testing.T) {
	s := newTestServer(t)
	ref := uploadDocument(t, s, "notes.txt", "line one\nline two\nline three")

	recorder := doJSON(t, s, http.MethodPost, "/v1/pipeline/tools/read-document", readDocumentRequest{
		Page:       0,
		DocumentID: ref.DocumentID,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	var response evidenceResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Evidence, 1)
	assert.Contains(t, response.Evidence[0].Text, "line one")

	recorder = doJSON(t, s, http.MethodPost, "/v1/pipeline/tools/read-document", readDocumentRequest{
		Page:       0,
		DocumentID: "missing",
	})
	require.Equal(t, http.StatusNotFound, recorder.Code)
	var payload APIErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "document_not_found", payload.Error.Code)
}

func TestAgentRunEndpoint(t *testing.T) {
	s := newTestServer(t)
	uploadDocument(t, s, "notes.txt", "Attention works well.")

	recorder := doJSON(t, s, http.MethodPost, "/v1/pipeline/agents/run", engine.AgentRunRequest{
		Prompt: "Summarize the document",
		Tools:  []core.ToolName{core.ToolKeywordSearch},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope core.AgentOutputEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "Synthesized answer.", envelope.Answer)
}

func TestRunStream(t *testing.T) {
	s := newTestServer(t)

	spec := core.RunSpec{
		Query: "How does attention work?",
		Nodes: []core.NodeSpec{
			{ID: "in-1", Type: core.NodeTypeIngest, Config: core.IngestConfig{}},
			{ID: "search-1", Type: core.NodeTypeKeywordSearch, Config: core.KeywordSearchConfig{
				QueryTemplate: core.DefaultTemplate,
				TopK:          4,
			}},
			{ID: "agent-1", Type: core.NodeTypeAgent, Config: core.AgentConfig{
				PromptTemplate:  core.DefaultTemplate,
				ReasoningEffort: core.ReasoningMedium,
			}},
			{ID: "out-1", Type: core.NodeTypeOutput, Config: core.OutputConfig{}},
		},
		Edges: []core.EdgeSpec{
			{Source: "in-1", Target: "search-1"},
			{Source: "search-1", Target: "agent-1"},
			{Source: "agent-1", Target: "out-1"},
		},
	}
	specJSON, err := json.Marshal(spec)
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("spec", string(specJSON)))
	part, err := writer.CreateFormFile("file:in-1", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Attention works well. It compares query and key vectors."))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/pipeline/runs/stream", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/x-ndjson", recorder.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	var first, last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "run_started", first["event"])
	assert.Equal(t, "run_completed", last["event"])
}

func TestRunStreamRejectsMissingSpec(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/pipeline/runs/stream", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var payload APIErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "pipeline_spec_required", payload.Error.Code)
}

func TestPauseUnknownRunReturns404(t *testing.T) {
	s := newTestServer(t)

	recorder := doJSON(t, s, http.MethodPost, "/v1/pipeline/runs/missing-run/pause", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	var payload APIErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "run_not_found", payload.Error.Code)
	assert.False(t, payload.Error.Recoverable)
}
