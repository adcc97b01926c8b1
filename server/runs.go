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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/engine"
	"github.com/paperflow/paperflow/ingestion"
)

// fileFieldPrefix keys uploaded files to their pipeline node: the multipart
// field "file:<node-id>" attaches the upload to that node.
const fileFieldPrefix = "file:"

// handleRunStream executes a pipeline and streams its lifecycle events as
// NDJSON. The request is multipart: a "spec" field with the RunSpec JSON plus
// optional per-node file fields.
func (s *Server) handleRunStream(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(c, http.StatusBadRequest, "pipeline_spec_required",
			"Request must be multipart form data with a 'spec' field", true)
		return
	}

	specValue := c.Request.FormValue("spec")
	if specValue == "" {
		writeError(c, http.StatusBadRequest, "pipeline_spec_required",
			"Form field 'spec' must contain JSON", true)
		return
	}

	var spec core.RunSpec
	if err := json.Unmarshal([]byte(specValue), &spec); err != nil {
		writeError(c, http.StatusBadRequest, "pipeline_spec_invalid",
			fmt.Sprintf("Invalid pipeline spec: %s", err), true)
		return
	}

	files, err := collectNodeFiles(c.Request.MultipartForm)
	if err != nil {
		writeError(c, http.StatusBadRequest, "pipeline_file_unreadable", err.Error(), true)
		return
	}

	runID := uuid.NewString()
	events := s.engine.Run(c.Request.Context(), &spec, files, runID)

	header := c.Writer.Header()
	header.Set("Content-Type", "application/x-ndjson")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for event := range events {
		line, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to encode run event", "run_id", runID, "err", err)
			return
		}
		if _, err := c.Writer.Write(append(line, '\n')); err != nil {
			// Client went away; the run keeps draining until its
			// context cancels.
			s.logger.Debug("event stream write failed", "run_id", runID, "err", err)
			return
		}
		c.Writer.Flush()
	}
}

func collectNodeFiles(form *multipart.Form) (map[string]ingestion.RawDocument, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}

	files := make(map[string]ingestion.RawDocument)
	for field, headers := range form.File {
		if !strings.HasPrefix(field, fileFieldPrefix) || len(headers) == 0 {
			continue
		}
		nodeID := strings.TrimPrefix(field, fileFieldPrefix)
		header := headers[0]

		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload for node %q: %w", nodeID, err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload for node %q: %w", nodeID, err)
		}

		filename := header.Filename
		if filename == "" {
			filename = "upload"
		}
		files[nodeID] = ingestion.RawDocument{
			Filename:    filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return files, nil
}

func (s *Server) handlePauseRun(c *gin.Context) {
	runID := c.Param("id")
	if err := s.engine.Pause(runID); err != nil {
		s.writeRunControlError(c, runID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused", "run_id": runID})
}

func (s *Server) handleResumeRun(c *gin.Context) {
	runID := c.Param("id")
	if err := s.engine.Resume(runID); err != nil {
		s.writeRunControlError(c, runID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed", "run_id": runID})
}

func (s *Server) writeRunControlError(c *gin.Context, runID string, err error) {
	if errors.Is(err, engine.ErrRunNotFound) {
		writeError(c, http.StatusNotFound, "run_not_found",
			fmt.Sprintf("No active run with id %s", runID), false)
		return
	}
	writeError(c, http.StatusInternalServerError, "run_control_failed", err.Error(), true)
}
