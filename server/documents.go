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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/ingestion"
)

type listDocumentsResponse struct {
	Documents []core.DocumentRecord `json:"documents"`
}

// handleIngestDocument uploads one document: multipart form with a "file"
// field. Re-uploading identical bytes returns the existing document.
func (s *Server) handleIngestDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "file_required",
			"Request must be multipart form data with a 'file' field", true)
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "file_unreadable", err.Error(), true)
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		writeError(c, http.StatusBadRequest, "file_unreadable", err.Error(), true)
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "upload"
	}
	ref, err := s.ingestor.Ingest(c.Request.Context(), ingestion.RawDocument{
		Filename:    filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingestion.ErrUnsupportedType):
			writeError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), false)
		case errors.Is(err, ingestion.ErrEncryptedDocument):
			writeError(c, http.StatusUnprocessableEntity, "document_encrypted", err.Error(), false)
		case errors.Is(err, ingestion.ErrParseFailed):
			writeError(c, http.StatusUnprocessableEntity, "parse_failed", err.Error(), false)
		default:
			writeError(c, http.StatusInternalServerError, "ingest_failed", err.Error(), true)
		}
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	records, err := s.repository.ListDocuments()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "list_failed", err.Error(), true)
		return
	}
	if records == nil {
		records = []core.DocumentRecord{}
	}
	c.JSON(http.StatusOK, listDocumentsResponse{Documents: records})
}
