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


package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/ai/mock"
	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/docstore"
	"github.com/paperflow/paperflow/ingestion"
	"github.com/paperflow/paperflow/retrieval"
	"github.com/paperflow/paperflow/session"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	index := retrieval.NewIndexStore()
	documents := docstore.NewDocumentStore()
	repository := docstore.NewInMemoryRepository()
	ingestor, err := ingestion.NewIngestor(repository, documents, index)
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)

	e, err := NewEngine(index, documents, repository, ingestor, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func textFile(name, content string) ingestion.RawDocument {
	return ingestion.RawDocument{
		Filename:    name,
		ContentType: "text/plain",
		Data:        []byte(content),
	}
}

func drain(events <-chan core.RunEvent) []core.RunEvent {
	var collected []core.RunEvent
	for event := range events {
		collected = append(collected, event)
	}
	return collected
}

func eventKinds(events []core.RunEvent) []core.EventKind {
	kinds := make([]core.EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func findCompleted(t *testing.T, events []core.RunEvent, nodeID string) core.NodeCompletedEvent {
	t.Helper()
	for _, event := range events {
		if completed, ok := event.(core.NodeCompletedEvent); ok && completed.NodeID == nodeID {
			return completed
		}
	}
	t.Fatalf("no node_completed event for %q", nodeID)
	return core.NodeCompletedEvent{}
}

func searchPipeline() *core.RunSpec {
	return &core.RunSpec{
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
}

func TestRunSearchPipeline(t *testing.T) {
	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(_ context.Context, _ ai.GenerateRequest) (string, error) {
		return "Attention weighs every input token against every other.", nil
	}
	e := newTestEngine(t, WithGenerator(generator))

	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well. It compares query and key vectors."),
	}
	events := drain(e.Run(context.Background(), searchPipeline(), files, "run-1"))
	require.NotEmpty(t, events)

	kinds := eventKinds(events)
	assert.Equal(t, core.EventRunStarted, kinds[0])
	assert.Equal(t, core.EventRunCompleted, kinds[len(kinds)-1])
	assert.NotContains(t, kinds, core.EventNodeFailed)
	assert.NotContains(t, kinds, core.EventRunFailed)

	searchOutput := findCompleted(t, events, "search-1").Output
	require.NotEmpty(t, searchOutput.Evidence)
	assert.Equal(t, core.ToolKeywordSearch, searchOutput.Evidence[0].SourceTool)
	assert.Contains(t, strings.ToLower(searchOutput.Evidence[0].Text), "attention")

	agentOutput := findCompleted(t, events, "agent-1").Output
	require.NotNil(t, agentOutput.AgentOutput)
	assert.Equal(t, "Attention weighs every input token against every other.", agentOutput.Answer)
	assert.NotEmpty(t, agentOutput.Citations)

	var tokens []string
	for _, event := range events {
		if token, ok := event.(core.NodeTokenEvent); ok {
			assert.Equal(t, "agent-1", token.NodeID)
			tokens = append(tokens, token.Token)
		}
	}
	assert.Equal(t, agentOutput.Answer, strings.Join(tokens, ""))

	outOutput := findCompleted(t, events, "out-1").Output
	require.NotNil(t, outOutput.Output)
	assert.Equal(t, agentOutput.Answer, outOutput.Answer)

	completed, ok := events[len(events)-1].(core.RunCompletedEvent)
	require.True(t, ok)
	require.Contains(t, completed.Outputs, "out-1")
	assert.Equal(t, agentOutput.Answer, completed.Outputs["out-1"].Answer)
}

func TestRunInvalidGraphEmitsSingleFailure(t *testing.T) {
	e := newTestEngine(t)

	spec := &core.RunSpec{
		Query: "anything",
		Nodes: []core.NodeSpec{
			{ID: "in-1", Type: core.NodeTypeInput, Config: core.InputConfig{PromptText: "hello"}},
		},
		Edges: []core.EdgeSpec{{Source: "in-1", Target: "ghost"}},
	}
	events := drain(e.Run(context.Background(), spec, nil, ""))

	require.Len(t, events, 1)
	failed, ok := events[0].(core.RunFailedEvent)
	require.True(t, ok)
	assert.NotEmpty(t, failed.Error)
	assert.NotEmpty(t, failed.RunID)

	t.Run("empty query", func(t *testing.T) {
		empty := &core.RunSpec{
			Nodes: []core.NodeSpec{
				{ID: "in-1", Type: core.NodeTypeInput, Config: core.InputConfig{PromptText: "hello"}},
			},
		}
		events := drain(e.Run(context.Background(), empty, nil, ""))
		require.Len(t, events, 1)
		assert.Equal(t, core.EventRunFailed, events[0].Kind())
	})
}

func TestRunIngestNodeRequiresFile(t *testing.T) {
	e := newTestEngine(t)

	spec := &core.RunSpec{
		Query: "anything",
		Nodes: []core.NodeSpec{{ID: "in-1", Type: core.NodeTypeIngest, Config: core.IngestConfig{}}},
	}
	events := drain(e.Run(context.Background(), spec, nil, ""))

	kinds := eventKinds(events)
	assert.Equal(t, core.EventRunStarted, kinds[0])
	assert.Contains(t, kinds, core.EventNodeFailed)
	assert.Equal(t, core.EventRunFailed, kinds[len(kinds)-1])
}

func TestRunAgentFallbackWithoutCredentials(t *testing.T) {
	e := newTestEngine(t)

	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well. It compares query and key vectors."),
	}
	events := drain(e.Run(context.Background(), searchPipeline(), files, ""))

	kinds := eventKinds(events)
	assert.Equal(t, core.EventRunCompleted, kinds[len(kinds)-1])

	agentOutput := findCompleted(t, events, "agent-1").Output
	assert.Contains(t, agentOutput.Answer, retrieval.ModelFailureMarker)
	assert.Contains(t, agentOutput.Answer, "No API key is configured")
	assert.Contains(t, strings.ToLower(agentOutput.Answer), "attention")
	assert.Contains(t, agentOutput.ToolsUsed, "agent_generation_failed")
	assert.Contains(t, agentOutput.ToolsUsed, "agent_generation_failed:missing_api_key")
}

func TestRunReadNodeReportsLookupErrorsAsData(t *testing.T) {
	e := newTestEngine(t)

	spec := &core.RunSpec{
		Query: "read something",
		Nodes: []core.NodeSpec{
			{ID: "read-1", Type: core.NodeTypeReadDocument, Config: core.ReadDocumentConfig{
				Page:       3,
				DocumentID: "no-such-document",
			}},
		},
	}
	events := drain(e.Run(context.Background(), spec, nil, ""))

	kinds := eventKinds(events)
	assert.NotContains(t, kinds, core.EventNodeFailed)
	assert.Equal(t, core.EventRunCompleted, kinds[len(kinds)-1])

	output := findCompleted(t, events, "read-1").Output
	require.Len(t, output.Errors, 1)
	assert.Equal(t, core.ToolReadDocument, output.Errors[0].Tool)
	assert.Empty(t, output.Evidence)
}

func TestPauseResumeAtNodeBoundary(t *testing.T) {
	e := newTestEngine(t)
	const runID = "run-pause"

	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(_ context.Context, _ ai.GenerateRequest) (string, error) {
		// Request the pause while the agent node runs so the scheduler
		// suspends before the output node starts.
		require.NoError(t, e.Pause(runID))
		return "paused answer", nil
	}
	require.NoError(t, WithGenerator(generator)(e))

	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well."),
	}
	events := e.Run(context.Background(), searchPipeline(), files, runID)

	var collected []core.RunEvent
	for event := range events {
		collected = append(collected, event)
		if event.Kind() == core.EventRunPaused {
			require.NoError(t, e.Resume(runID))
		}
	}

	kinds := eventKinds(collected)
	assert.Contains(t, kinds, core.EventRunPaused)
	assert.Contains(t, kinds, core.EventRunResumed)
	assert.Equal(t, core.EventRunCompleted, kinds[len(kinds)-1])

	pausedAt := -1
	startedOut := -1
	for i, event := range collected {
		if event.Kind() == core.EventRunPaused {
			pausedAt = i
		}
		if started, ok := event.(core.NodeStartedEvent); ok && started.NodeID == "out-1" {
			startedOut = i
		}
	}
	require.GreaterOrEqual(t, pausedAt, 0)
	require.GreaterOrEqual(t, startedOut, 0)
	assert.Less(t, pausedAt, startedOut)
}

func TestRunAbandonedStreamReleasesRegistry(t *testing.T) {
	const runID = "run-abandoned"

	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(_ context.Context, _ ai.GenerateRequest) (string, error) {
		// A long answer produces far more token events than the channel
		// buffers, so the scheduler must notice the dead consumer mid-send.
		return strings.TrimSpace(strings.Repeat("attention ", 200)), nil
	}
	e := newTestEngine(t, WithGenerator(generator))

	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well."),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := e.Run(ctx, searchPipeline(), files, runID)
	<-events
	cancel()

	require.Eventually(t, func() bool {
		return errors.Is(e.Pause(runID), ErrRunNotFound)
	}, 2*time.Second, 10*time.Millisecond, "abandoned run must leave the registry")
}

func TestPauseUnknownRun(t *testing.T) {
	e := newTestEngine(t)

	assert.ErrorIs(t, e.Pause("missing-run"), ErrRunNotFound)
	assert.ErrorIs(t, e.Resume("missing-run"), ErrRunNotFound)
}

func TestRunRecordsSessionTurns(t *testing.T) {
	store := session.NewMemoryStore(session.DefaultMaxTurns)
	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(_ context.Context, _ ai.GenerateRequest) (string, error) {
		return "Attention compares query and key vectors.", nil
	}
	e := newTestEngine(t, WithGenerator(generator), WithSessionStore(store))

	spec := searchPipeline()
	spec.SessionID = "session-1"
	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well. It compares query and key vectors."),
	}
	events := drain(e.Run(context.Background(), spec, files, ""))
	require.Equal(t, core.EventRunCompleted, events[len(events)-1].Kind())

	turns, err := store.ListTurns(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, spec.Query, turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "Attention compares query and key vectors.", turns[1].Content)
}

func TestRunParallelSearchNode(t *testing.T) {
	e := newTestEngine(t)

	files := map[string]ingestion.RawDocument{
		"in-1": textFile("notes.txt", "Attention works well. It compares query and key vectors."),
	}
	spec := &core.RunSpec{
		Query: "attention",
		Nodes: []core.NodeSpec{
			{ID: "in-1", Type: core.NodeTypeIngest, Config: core.IngestConfig{}},
			{ID: "par-1", Type: core.NodeTypeParallelSearch, Config: core.ParallelSearchConfig{
				Queries: []core.ParallelQuery{
					{Type: core.ToolKeywordSearch, QueryTemplate: core.DefaultTemplate, TopK: 4},
					{Type: core.ToolReadDocument, Page: 99, DocumentID: "missing-doc"},
				},
			}},
		},
		Edges: []core.EdgeSpec{{Source: "in-1", Target: "par-1"}},
	}
	events := drain(e.Run(context.Background(), spec, files, ""))

	kinds := eventKinds(events)
	assert.Equal(t, core.EventRunCompleted, kinds[len(kinds)-1])

	output := findCompleted(t, events, "par-1").Output
	assert.NotEmpty(t, output.Evidence)
	require.Len(t, output.Errors, 1)
	assert.Equal(t, 1, output.Errors[0].Index)
	assert.Equal(t, core.ToolReadDocument, output.Errors[0].Tool)
}

func TestStreamChunks(t *testing.T) {
	assert.Empty(t, streamChunks(""))
	assert.Equal(t, []string{"one ", "two"}, streamChunks("one two"))
	assert.Equal(t, "a  b\tc", strings.Join(streamChunks("a  b\tc"), ""))
}
