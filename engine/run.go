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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/ingestion"
	"github.com/paperflow/paperflow/session"
)

const eventBufferSize = 16

// Run validates the spec and executes it on a background goroutine, streaming
// lifecycle events until the returned channel closes. The channel always ends
// with exactly one terminal event. Files maps node id to the raw document
// attached to that node. An empty runID gets a generated one.
func (e *Engine) Run(ctx context.Context, spec *core.RunSpec, files map[string]ingestion.RawDocument, runID string) <-chan core.RunEvent {
	if runID == "" {
		runID = uuid.NewString()
	}
	events := make(chan core.RunEvent, eventBufferSize)
	go e.execute(ctx, spec, files, runID, events)
	return events
}

func (e *Engine) execute(
	ctx context.Context,
	spec *core.RunSpec,
	files map[string]ingestion.RawDocument,
	runID string,
	events chan<- core.RunEvent,
) {
	defer close(events)

	// A caller that abandons the stream stops draining the channel, so every
	// send must also watch the context or the goroutine parks forever and the
	// run's registry entry is never released.
	emit := func(event core.RunEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			e.logger.Warn("run abandoned", "run_id", runID, "event", event.Kind())
			return false
		}
	}

	// An invalid spec never starts: the stream is a lone run_failed.
	if strings.TrimSpace(spec.Query) == "" {
		emit(core.NewRunFailedEvent(runID, core.ErrEmptyQuery.Error()))
		return
	}
	ordered, err := core.TopologicalOrder(spec.Nodes, spec.Edges)
	if err != nil {
		emit(core.NewRunFailedEvent(runID, err.Error()))
		return
	}

	h := e.registry.register(runID)
	defer e.registry.release(runID)

	e.logger.Info("run started", "run_id", runID, "nodes", len(ordered))
	if !emit(core.NewRunStartedEvent(runID)) {
		return
	}

	incoming := core.IncomingSources(spec.Edges)
	outputs := make(map[string]core.NodeOutput, len(ordered))

	for _, node := range ordered {
		if err := ctx.Err(); err != nil {
			emit(core.NewRunFailedEvent(runID, "run cancelled"))
			return
		}

		if h.pauseRequested() {
			if !emit(core.NewRunPausedEvent(runID)) {
				return
			}
			if err := h.awaitResume(ctx); err != nil {
				emit(core.NewRunFailedEvent(runID, "run cancelled while paused"))
				return
			}
			if !emit(core.NewRunResumedEvent(runID)) {
				return
			}
		}

		if !emit(core.NewNodeStartedEvent(runID, node.ID, node.Type)) {
			return
		}

		output, err := e.executeNode(ctx, runID, spec, node, incoming[node.ID], outputs, files)
		if err != nil {
			e.logger.Warn("node failed", "run_id", runID, "node_id", node.ID, "err", err)
			if !emit(core.NewNodeFailedEvent(runID, node.ID, node.Type, err.Error())) {
				return
			}
			emit(core.NewRunFailedEvent(runID, fmt.Sprintf("node %q failed: %s", node.ID, err)))
			return
		}

		if node.Type == core.NodeTypeAgent {
			for _, token := range streamChunks(output.Answer) {
				if !emit(core.NewNodeTokenEvent(runID, node.ID, token)) {
					return
				}
			}
		}

		if !emit(core.NewNodeCompletedEvent(runID, node.ID, node.Type, output)) {
			return
		}
		outputs[node.ID] = output
	}

	finals := finalOutputs(ordered, outputs)
	e.recordSessionTurns(ctx, spec, runID, ordered, finals)

	e.logger.Info("run completed", "run_id", runID, "outputs", len(finals))
	emit(core.NewRunCompletedEvent(runID, finals))
}

func (e *Engine) executeNode(
	ctx context.Context,
	runID string,
	spec *core.RunSpec,
	node core.NodeSpec,
	sources []string,
	outputs map[string]core.NodeOutput,
	files map[string]ingestion.RawDocument,
) (core.NodeOutput, error) {
	upstream := make([]core.NodeOutput, 0, len(sources))
	for _, source := range sources {
		if output, ok := outputs[source]; ok {
			upstream = append(upstream, output)
		}
	}

	switch config := node.Config.(type) {
	case core.IngestConfig:
		raw, ok := files[node.ID]
		if !ok {
			return core.NodeOutput{}, fmt.Errorf("missing uploaded file for ingest node %q", node.ID)
		}
		return e.ingestFile(ctx, raw)

	case core.InputConfig:
		output := core.NodeOutput{PromptText: config.PromptText}
		if raw, ok := files[node.ID]; ok {
			ingested, err := e.ingestFile(ctx, raw)
			if err != nil {
				return core.NodeOutput{}, err
			}
			output.Documents = ingested.Documents
			output.IndexedChunkCount = ingested.IndexedChunkCount
		}
		return output, nil

	case core.KeywordSearchConfig:
		query := core.RenderTemplate(config.QueryTemplate, spec.Query)
		scope := config.DocumentIDs
		if len(scope) == 0 {
			scope = collectDocumentIDs(upstream)
		}
		evidence := e.KeywordSearch(query, config.TopK, scope)
		return core.NodeOutput{
			Query:         query,
			Evidence:      evidence,
			EvidenceCount: len(evidence),
		}, nil

	case core.ReadDocumentConfig:
		documentID := config.DocumentID
		if documentID == "" {
			documentID = firstUpstreamDocumentID(upstream)
		}
		page := config.Page
		output := core.NodeOutput{DocumentID: documentID, Page: &page}
		evidence, err := e.ReadDocument(config.Page, config.StartLine, config.EndLine, documentID)
		if err != nil {
			// A missing document or page is reported as data, not as a
			// node failure.
			output.Errors = []core.SubOperationError{{
				Index: 0,
				Tool:  core.ToolReadDocument,
				Error: err.Error(),
			}}
			return output, nil
		}
		if output.DocumentID == "" && len(evidence) > 0 {
			output.DocumentID = evidence[0].DocumentID
		}
		output.Evidence = evidence
		output.EvidenceCount = len(evidence)
		return output, nil

	case core.ParallelSearchConfig:
		evidence, failures := e.ParallelSearch(ctx, spec.Query, config.Queries)
		return core.NodeOutput{
			Evidence:      evidence,
			EvidenceCount: len(evidence),
			Errors:        failures,
		}, nil

	case core.AgentConfig:
		turns, err := e.sessionTurns(ctx, spec.SessionID)
		if err != nil {
			e.logger.Warn("session history unavailable", "run_id", runID, "session_id", spec.SessionID, "err", err)
		}
		envelope := e.runAgent(ctx, agentRequest{
			Prompt:             core.RenderTemplate(config.PromptTemplate, spec.Query),
			ReasoningEffort:    config.ReasoningEffort,
			ReviewEnabled:      config.ReviewEnabled,
			Tools:              config.Tools,
			DocumentIDs:        collectDocumentIDs(upstream),
			Evidence:           collectEvidence(upstream),
			UpstreamOutputs:    collectAgentEnvelopes(upstream),
			SystemInstructions: config.SystemInstructions,
			SessionTurns:       turns,
		})
		return core.NodeOutput{
			AgentOutput:   &envelope,
			Answer:        envelope.Answer,
			Citations:     envelope.Citations,
			ToolsUsed:     envelope.ToolsUsed,
			Evidence:      envelope.Evidence,
			EvidenceCount: len(envelope.Evidence),
		}, nil

	case core.OutputConfig:
		// Pass through the most recent upstream agent envelope.
		for i := len(upstream) - 1; i >= 0; i-- {
			if envelope := upstream[i].AgentOutput; envelope != nil {
				return core.NodeOutput{
					Output:    envelope,
					Answer:    envelope.Answer,
					Citations: envelope.Citations,
					ToolsUsed: envelope.ToolsUsed,
				}, nil
			}
		}
		return core.NodeOutput{}, nil

	default:
		return core.NodeOutput{}, fmt.Errorf("%w: %q", core.ErrUnknownNodeType, node.Type)
	}
}

func (e *Engine) ingestFile(ctx context.Context, raw ingestion.RawDocument) (core.NodeOutput, error) {
	ref, err := e.ingestor.Ingest(ctx, raw)
	if err != nil {
		return core.NodeOutput{}, fmt.Errorf("ingest %s: %w", raw.Filename, err)
	}
	return core.NodeOutput{
		Documents:         []core.DocumentRef{ref},
		IndexedChunkCount: e.index.IndexedChunkCount(ref.DocumentID),
	}, nil
}

func (e *Engine) sessionTurns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	if e.sessions == nil || sessionID == "" {
		return nil, nil
	}
	return e.sessions.ListTurns(ctx, sessionID)
}

// recordSessionTurns appends the user query and the final answer to the
// run's session after a successful run. Persistence errors are logged, never
// surfaced into the event stream.
func (e *Engine) recordSessionTurns(
	ctx context.Context,
	spec *core.RunSpec,
	runID string,
	ordered []core.NodeSpec,
	finals map[string]core.NodeOutput,
) {
	if e.sessions == nil || spec.SessionID == "" {
		return
	}

	answer := ""
	var citations []core.Citation
	var toolsUsed []string
	for _, node := range ordered {
		output, ok := finals[node.ID]
		if !ok || output.Answer == "" {
			continue
		}
		answer = output.Answer
		citations = output.Citations
		toolsUsed = output.ToolsUsed
	}
	if answer == "" {
		return
	}

	now := time.Now().UTC()
	userTurn := session.Turn{
		SessionID: spec.SessionID,
		RunID:     runID,
		Role:      "user",
		Content:   spec.Query,
		CreatedAt: now,
	}
	assistantTurn := session.Turn{
		SessionID: spec.SessionID,
		RunID:     runID,
		Role:      "assistant",
		Content:   answer,
		Citations: citations,
		ToolsUsed: toolsUsed,
		CreatedAt: now,
	}
	for _, turn := range []session.Turn{userTurn, assistantTurn} {
		if err := e.sessions.AppendTurn(ctx, turn); err != nil {
			e.logger.Warn("failed to record session turn", "run_id", runID, "session_id", spec.SessionID, "err", err)
			return
		}
	}
}

// finalOutputs selects the run's result set: every output node's recorded
// output, or, when the pipeline has none, the most recently executed agent
// node's output.
func finalOutputs(ordered []core.NodeSpec, outputs map[string]core.NodeOutput) map[string]core.NodeOutput {
	finals := make(map[string]core.NodeOutput)
	for _, node := range ordered {
		if node.Type == core.NodeTypeOutput {
			if output, ok := outputs[node.ID]; ok {
				finals[node.ID] = output
			}
		}
	}
	if len(finals) > 0 {
		return finals
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		node := ordered[i]
		if node.Type == core.NodeTypeAgent {
			if output, ok := outputs[node.ID]; ok {
				finals[node.ID] = output
			}
			break
		}
	}
	return finals
}

func collectEvidence(upstream []core.NodeOutput) []core.EvidenceChunk {
	var evidence []core.EvidenceChunk
	for _, output := range upstream {
		evidence = append(evidence, output.Evidence...)
	}
	return evidence
}

func collectAgentEnvelopes(upstream []core.NodeOutput) []core.AgentOutputEnvelope {
	var envelopes []core.AgentOutputEnvelope
	for _, output := range upstream {
		if output.AgentOutput != nil {
			envelopes = append(envelopes, *output.AgentOutput)
		}
	}
	return envelopes
}

func collectDocumentIDs(upstream []core.NodeOutput) []string {
	var ids []string
	for _, output := range upstream {
		for _, ref := range output.Documents {
			ids = append(ids, ref.DocumentID)
		}
		if output.DocumentID != "" {
			ids = append(ids, output.DocumentID)
		}
		for _, chunk := range output.Evidence {
			if chunk.DocumentID != "" {
				ids = append(ids, chunk.DocumentID)
			}
		}
	}
	return core.OrderedUnique(ids)
}

func firstUpstreamDocumentID(upstream []core.NodeOutput) string {
	for _, output := range upstream {
		if ids := collectDocumentIDs([]core.NodeOutput{output}); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
