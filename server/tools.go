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
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/engine"
)

type keywordSearchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	DocumentIDs []string `json:"document_ids"`
}

type readDocumentRequest struct {
	Page       int    `json:"page"`
	StartLine  *int   `json:"start_line"`
	EndLine    *int   `json:"end_line"`
	DocumentID string `json:"document_id"`
}

type parallelSearchRequest struct {
	Query   string               `json:"query"`
	Queries []core.ParallelQuery `json:"queries"`
}

type evidenceResponse struct {
	Evidence []core.EvidenceChunk     `json:"evidence"`
	Errors   []core.SubOperationError `json:"errors,omitempty"`
}

func (s *Server) handleKeywordSearch(c *gin.Context) {
	var req keywordSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error(), true)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(c, http.StatusBadRequest, "query_required", "Field 'query' must not be empty", true)
		return
	}
	if req.TopK <= 0 {
		req.TopK = core.DefaultTopK
	}

	evidence := s.engine.KeywordSearch(req.Query, req.TopK, req.DocumentIDs)
	c.JSON(http.StatusOK, evidenceResponse{Evidence: emptyIfNil(evidence)})
}

func (s *Server) handleReadDocument(c *gin.Context) {
	var req readDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error(), true)
		return
	}

	evidence, err := s.engine.ReadDocument(req.Page, req.StartLine, req.EndLine, req.DocumentID)
	if err != nil {
		switch {
		case errors.Is(err, docstore.ErrDocumentNotFound):
			writeError(c, http.StatusNotFound, "document_not_found", err.Error(), false)
		case errors.Is(err, docstore.ErrPageNotFound):
			writeError(c, http.StatusNotFound, "page_not_found", err.Error(), false)
		default:
			writeError(c, http.StatusInternalServerError, "read_failed", err.Error(), true)
		}
		return
	}
	c.JSON(http.StatusOK, evidenceResponse{Evidence: emptyIfNil(evidence)})
}

func (s *Server) handleParallelSearch(c *gin.Context) {
	var req parallelSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error(), true)
		return
	}

	evidence, failures := s.engine.ParallelSearch(c.Request.Context(), req.Query, req.Queries)
	c.JSON(http.StatusOK, evidenceResponse{Evidence: emptyIfNil(evidence), Errors: failures})
}

func (s *Server) handleAgentRun(c *gin.Context) {
	var req engine.AgentRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error(), true)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(c, http.StatusBadRequest, "prompt_required", "Field 'prompt' must not be empty", true)
		return
	}

	envelope := s.engine.RunAgent(c.Request.Context(), req)
	c.JSON(http.StatusOK, envelope)
}

func emptyIfNil(evidence []core.EvidenceChunk) []core.EvidenceChunk {
	if evidence == nil {
		return []core.EvidenceChunk{}
	}
	return evidence
}
