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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/engine"
	"github.com/paperflow/paperflow/ingestion"
)

// maxUploadBytes bounds multipart memory buffering per request.
const maxUploadBytes = 64 << 20

var (
	ErrEngineRequired     = errors.New("engine is required")
	ErrIngestorRequired   = errors.New("ingestor is required")
	ErrRepositoryRequired = errors.New("repository is required")
)

// Server exposes pipeline execution, retrieval tools and document ingestion
// over HTTP.
type Server struct {
	engine     *engine.Engine
	ingestor   *ingestion.Ingestor
	repository docstore.Repository
	logger     *slog.Logger
	router     *gin.Engine
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger replaces the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// NewServer wires the HTTP routes onto the given engine and stores.
func NewServer(
	eng *engine.Engine,
	ingestor *ingestion.Ingestor,
	repository docstore.Repository,
	opts ...Option,
) (*Server, error) {
	if eng == nil {
		return nil, ErrEngineRequired
	}
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Server{
		engine:     eng,
		ingestor:   ingestor,
		repository: repository,
		logger:     slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())
	s.routes(router)
	s.router = router
	return s, nil
}

// Handler returns the router as an http.Handler for serving and tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/v1")
	v1.POST("/documents", s.handleIngestDocument)
	v1.GET("/documents", s.handleListDocuments)

	pipeline := v1.Group("/pipeline")
	pipeline.POST("/runs/stream", s.handleRunStream)
	pipeline.POST("/runs/:id/pause", s.handlePauseRun)
	pipeline.POST("/runs/:id/resume", s.handleResumeRun)
	pipeline.POST("/tools/keyword-search", s.handleKeywordSearch)
	pipeline.POST("/tools/read-document", s.handleReadDocument)
	pipeline.POST("/tools/parallel-search", s.handleParallelSearch)
	pipeline.POST("/agents/run", s.handleAgentRun)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
