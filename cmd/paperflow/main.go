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


package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/ai/openai"
	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/engine"
	"github.com/paperflow/paperflow/ingestion"
	"github.com/paperflow/paperflow/retrieval"
	"github.com/paperflow/paperflow/server"
	"github.com/paperflow/paperflow/session"
)

func main() {
	app := &cli.App{
		Name:  "paperflow",
		Usage: "Document pipeline engine: ingest, search, and synthesize answers over uploaded documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: append(modelFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address",
						Value:   ":8080",
					},
					&cli.StringFlag{
						Name:  "session-db",
						Usage: "Path to the session store directory (in-memory when empty)",
					},
				),
			},
			{
				Name:      "run",
				Usage:     "Execute a pipeline spec and stream NDJSON events to stdout",
				ArgsUsage: "SPEC_FILE",
				Action:    runCommand,
				Flags: append(modelFlags(),
					&cli.StringSliceFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Attach a file to a node as NODE_ID=PATH (repeatable)",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Override the spec's top-level query",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest documents and print their ids",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
			},
			{
				Name:      "search",
				Usage:     "Ingest documents and run a keyword search over them",
				ArgsUsage: "FILE...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search query",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results to return",
						Value: core.DefaultTopK,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "model-host",
			Usage: "OpenAI-compatible completion host URL (empty for the default endpoint)",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Completion model identifier",
			Value: "gpt-4o-mini",
		},
	}
}

// stack bundles the stores and services every command builds the same way.
type stack struct {
	index      *retrieval.IndexStore
	documents  *docstore.DocumentStore
	repository *docstore.InMemoryRepository
	ingestor   *ingestion.Ingestor
}

func buildStack() (*stack, error) {
	index := retrieval.NewIndexStore()
	documents := docstore.NewDocumentStore()
	repository := docstore.NewInMemoryRepository()
	ingestor, err := ingestion.NewIngestor(repository, documents, index)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}
	return &stack{
		index:      index,
		documents:  documents,
		repository: repository,
		ingestor:   ingestor,
	}, nil
}

// buildGenerator returns nil when no API key is configured; the engine then
// answers from evidence instead of the model.
func buildGenerator(c *cli.Context) (ai.Generator, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("model-host")),
		ai.WithModel(c.String("model")),
	)
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	generator, err := openai.NewGenerator(config)
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			slog.Warn("no API key configured, agent nodes will answer from evidence only")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return generator, nil
}

func serveCommand(c *cli.Context) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.ingestor.Release()

	generator, err := buildGenerator(c)
	if err != nil {
		return err
	}

	opts := []engine.Option{}
	if generator != nil {
		opts = append(opts, engine.WithGenerator(generator))
	}

	if dbPath := c.String("session-db"); dbPath != "" {
		sessions, err := session.OpenBadgerStore(dbPath, false, session.DefaultMaxTurns)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer sessions.Close()
		opts = append(opts, engine.WithSessionStore(sessions))
	} else {
		opts = append(opts, engine.WithSessionStore(session.NewMemoryStore(session.DefaultMaxTurns)))
	}

	eng, err := engine.NewEngine(st.index, st.documents, st.repository, st.ingestor, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Release()

	srv, err := server.NewServer(eng, st.ingestor, st.repository)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.ListenAndServe(c.String("addr"))
}

func runCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one spec file argument")
	}

	specData, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read spec: %w", err)
	}
	var spec core.RunSpec
	if err := json.Unmarshal(specData, &spec); err != nil {
		return fmt.Errorf("invalid pipeline spec: %w", err)
	}
	if query := c.String("query"); query != "" {
		spec.Query = query
	}

	files, err := loadNodeFiles(c.StringSlice("file"))
	if err != nil {
		return err
	}

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.ingestor.Release()

	generator, err := buildGenerator(c)
	if err != nil {
		return err
	}
	opts := []engine.Option{}
	if generator != nil {
		opts = append(opts, engine.WithGenerator(generator))
	}

	eng, err := engine.NewEngine(st.index, st.documents, st.repository, st.ingestor, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Release()

	encoder := json.NewEncoder(os.Stdout)
	failed := false
	for event := range eng.Run(c.Context, &spec, files, "") {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		if event.Kind() == core.EventRunFailed {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("run failed")
	}
	return nil
}

func loadNodeFiles(specs []string) (map[string]ingestion.RawDocument, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	files := make(map[string]ingestion.RawDocument, len(specs))
	for _, spec := range specs {
		nodeID, path, ok := strings.Cut(spec, "=")
		if !ok || nodeID == "" || path == "" {
			return nil, fmt.Errorf("invalid --file value %q: expected NODE_ID=PATH", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files[nodeID] = ingestion.RawDocument{
			Filename: filepath.Base(path),
			Data:     data,
		}
	}
	return files, nil
}

func ingestDocuments(c *cli.Context, st *stack) ([]core.DocumentRef, error) {
	raws := make([]ingestion.RawDocument, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		raws = append(raws, ingestion.RawDocument{
			Filename: filepath.Base(path),
			Data:     data,
		})
	}
	return st.ingestor.IngestAll(c.Context, raws)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected at least one file argument")
	}

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.ingestor.Release()

	refs, err := ingestDocuments(c, st)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	for _, ref := range refs {
		fmt.Printf("%s  %s  pages=%d chunks=%d\n", ref.DocumentID, ref.Filename, ref.PageCount, ref.ChunkCount)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected at least one file argument")
	}

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.ingestor.Release()

	if _, err := ingestDocuments(c, st); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	evidence := st.index.Search(c.String("query"), c.Int("top-k"), nil)
	if len(evidence) == 0 {
		fmt.Println("no results")
		return nil
	}
	for _, chunk := range evidence {
		page := "?"
		if chunk.PageNumber != nil {
			page = fmt.Sprintf("%d", *chunk.PageNumber)
		}
		fmt.Printf("%.4f  %s p%s  %s\n", chunk.Score, chunk.DocumentID[:12], page, core.Truncate(chunk.Text, 120))
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
