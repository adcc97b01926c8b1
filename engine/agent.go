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

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/core"
	"github.com/paperflow/paperflow/retrieval"
	"github.com/paperflow/paperflow/session"
)

const (
	// genFailedMarker lands in tools_used whenever the model call was
	// unusable and a deterministic answer was synthesized instead.
	genFailedMarker = "agent_generation_failed"

	defaultInstructions = "You are a synthesis assistant. " +
		"Use only the supplied evidence and upstream results. " +
		"Do not invent facts. If evidence is insufficient, say so clearly."

	modelEvidenceLimit = 16
	evidenceTextLimit  = 700
)

// AgentRunRequest invokes agent synthesis outside a pipeline run, with the
// caller supplying the evidence and upstream envelopes a graph would have
// collected.
type AgentRunRequest struct {
	Prompt             string                     `json:"prompt"`
	ReasoningEffort    core.ReasoningEffort       `json:"reasoning_effort,omitempty"`
	ReviewEnabled      bool                       `json:"review_enabled,omitempty"`
	Tools              []core.ToolName            `json:"tools,omitempty"`
	DocumentIDs        []string                   `json:"document_ids,omitempty"`
	Evidence           []core.EvidenceChunk       `json:"evidence,omitempty"`
	UpstreamOutputs    []core.AgentOutputEnvelope `json:"upstream_outputs,omitempty"`
	SystemInstructions string                     `json:"system_instructions,omitempty"`
}

// RunAgent executes one standalone agent step.
func (e *Engine) RunAgent(ctx context.Context, req AgentRunRequest) core.AgentOutputEnvelope {
	return e.runAgent(ctx, agentRequest{
		Prompt:             req.Prompt,
		ReasoningEffort:    req.ReasoningEffort,
		ReviewEnabled:      req.ReviewEnabled,
		Tools:              req.Tools,
		DocumentIDs:        req.DocumentIDs,
		Evidence:           req.Evidence,
		UpstreamOutputs:    req.UpstreamOutputs,
		SystemInstructions: req.SystemInstructions,
	})
}

// agentRequest gathers everything one agent node synthesis needs.
type agentRequest struct {
	Prompt             string
	ReasoningEffort    core.ReasoningEffort
	ReviewEnabled      bool
	Tools              []core.ToolName
	DocumentIDs        []string
	Evidence           []core.EvidenceChunk
	UpstreamOutputs    []core.AgentOutputEnvelope
	SystemInstructions string
	SessionTurns       []session.Turn
}

// RunAgent merges upstream evidence and answers, optionally executes the
// caller-selected retrieval tools, asks the model for an answer and applies
// the fallback policy when the call is unusable. The returned envelope never
// has an empty answer.
func (e *Engine) runAgent(ctx context.Context, req agentRequest) core.AgentOutputEnvelope {
	prompt := strings.TrimSpace(req.Prompt)

	toolEvidence, executedTools := e.runSelectedTools(prompt, req.Tools, req.DocumentIDs, req.Evidence)
	evidence := retrieval.DedupeEvidence(append(append([]core.EvidenceChunk(nil), req.Evidence...), toolEvidence...))

	var upstreamAnswers []string
	for _, output := range req.UpstreamOutputs {
		if answer := strings.TrimSpace(output.Answer); answer != "" {
			upstreamAnswers = append(upstreamAnswers, answer)
		}
	}

	toolsUsed := append([]string(nil), executedTools...)
	for _, chunk := range evidence {
		name := string(chunk.SourceTool)
		if name != "" && !containsString(toolsUsed, name) {
			toolsUsed = append(toolsUsed, name)
		}
	}

	answer, genErr := e.generateAnswer(ctx, req, prompt, upstreamAnswers, evidence)
	if genErr != nil {
		code := ai.ClassifyFailure(genErr)
		e.logger.Warn("model generation unusable, synthesizing fallback answer",
			"code", code, "err", genErr)
		if !containsString(toolsUsed, genFailedMarker) {
			toolsUsed = append(toolsUsed, genFailedMarker)
		}
		detailed := fmt.Sprintf("%s:%s", genFailedMarker, code)
		if !containsString(toolsUsed, detailed) {
			toolsUsed = append(toolsUsed, detailed)
		}
		answer = retrieval.BuildModelFailureAnswer(prompt, upstreamAnswers, evidence, ai.FailureMessage(code))
	}

	return core.AgentOutputEnvelope{
		Answer:          answer,
		Citations:       retrieval.BuildCitations(evidence),
		ToolsUsed:       toolsUsed,
		Evidence:        evidence,
		UpstreamAnswers: upstreamAnswers,
	}
}

func (e *Engine) generateAnswer(
	ctx context.Context,
	req agentRequest,
	prompt string,
	upstreamAnswers []string,
	evidence []core.EvidenceChunk,
) (string, error) {
	if e.generator == nil {
		return "", ai.ErrMissingAPIKey
	}

	instructions := req.SystemInstructions
	if instructions == "" {
		instructions = defaultInstructions
	}
	genReq := ai.GenerateRequest{
		Instructions:    instructions,
		Input:           buildModelInput(prompt, upstreamAnswers, evidence, req.SessionTurns),
		ReasoningEffort: req.ReasoningEffort,
	}

	answer, err := e.generator.Generate(ctx, genReq)
	if err != nil {
		return "", err
	}

	if req.ReviewEnabled {
		if reviewed, reviewErr := e.reviewAnswer(ctx, req, prompt, answer); reviewErr == nil {
			answer = reviewed
		} else {
			e.logger.Debug("review pass failed, keeping draft answer", "err", reviewErr)
		}
	}
	return answer, nil
}

// reviewAnswer runs a second model pass that tightens the draft. Its failure
// never discards the draft.
func (e *Engine) reviewAnswer(ctx context.Context, req agentRequest, prompt, draft string) (string, error) {
	reviewInput := fmt.Sprintf("Task:\n%s\n\nDraft answer:\n%s\n\n"+
		"Revise the draft for accuracy and concision. Return only the final answer.", prompt, draft)
	return e.generator.Generate(ctx, ai.GenerateRequest{
		Instructions:    defaultInstructions,
		Input:           reviewInput,
		ReasoningEffort: req.ReasoningEffort,
	})
}

// runSelectedTools executes the caller-selected subset of retrieval
// behaviors, scoped to the run's documents (or the documents already backing
// the evidence) and reports which tools actually ran.
func (e *Engine) runSelectedTools(
	prompt string,
	tools []core.ToolName,
	candidateDocumentIDs []string,
	existingEvidence []core.EvidenceChunk,
) ([]core.EvidenceChunk, []string) {
	var selected []string
	for _, tool := range tools {
		if name := strings.TrimSpace(string(tool)); name != "" {
			selected = append(selected, name)
		}
	}
	selected = core.OrderedUnique(selected)
	if len(selected) == 0 {
		return nil, nil
	}

	scopedIDs := core.OrderedUnique(candidateDocumentIDs)
	if len(scopedIDs) == 0 {
		var fromEvidence []string
		for _, chunk := range existingEvidence {
			if chunk.DocumentID != "" {
				fromEvidence = append(fromEvidence, chunk.DocumentID)
			}
		}
		scopedIDs = core.OrderedUnique(fromEvidence)
	}
	defaultDocumentID := ""
	if len(scopedIDs) > 0 {
		defaultDocumentID = scopedIDs[0]
	}

	var collected []core.EvidenceChunk
	var executed []string
	for _, tool := range selected {
		switch core.ToolName(tool) {
		case core.ToolKeywordSearch:
			hits := e.KeywordSearch(prompt, core.DefaultTopK, scopedIDs)
			collected = append(collected, hits...)
			if defaultDocumentID == "" {
				defaultDocumentID = firstDocumentID(hits)
			}
			executed = append(executed, tool)

		case core.ToolReadDocument:
			if defaultDocumentID == "" {
				continue
			}
			evidence, err := e.ReadDocument(0, nil, nil, defaultDocumentID)
			if err != nil {
				e.logger.Debug("agent read tool lookup failed", "document_id", defaultDocumentID, "err", err)
				continue
			}
			collected = append(collected, evidence...)
			executed = append(executed, tool)

		case core.ToolParallelSearch:
			// Run both retrieval styles, mirroring the standalone
			// parallel-search node.
			combined := e.KeywordSearch(prompt, core.DefaultTopK, scopedIDs)
			if defaultDocumentID != "" {
				if readEvidence, err := e.ReadDocument(0, nil, nil, defaultDocumentID); err == nil {
					combined = append(combined, readEvidence...)
				}
			}
			collected = append(collected, retrieval.DedupeEvidence(combined)...)
			if defaultDocumentID == "" {
				defaultDocumentID = firstDocumentID(combined)
			}
			executed = append(executed, tool)
		}
	}
	return retrieval.DedupeEvidence(collected), executed
}

// buildModelInput renders the synthesis prompt: task, conversation history,
// upstream answers, numbered evidence and the response contract.
func buildModelInput(prompt string, upstreamAnswers []string, evidence []core.EvidenceChunk, turns []session.Turn) string {
	sections := []string{"Task:\n" + prompt}

	if len(turns) > 0 {
		var lines []string
		for _, turn := range turns {
			lines = append(lines, fmt.Sprintf("- %s: %s", turn.Role, core.Truncate(turn.Content, 200)))
		}
		sections = append(sections, "Conversation so far:\n"+strings.Join(lines, "\n"))
	}

	if len(upstreamAnswers) > 0 {
		var lines []string
		for _, answer := range upstreamAnswers {
			lines = append(lines, "- "+answer)
		}
		sections = append(sections, "Upstream results:\n"+strings.Join(lines, "\n"))
	}

	if len(evidence) > 0 {
		limit := len(evidence)
		if limit > modelEvidenceLimit {
			limit = modelEvidenceLimit
		}
		var lines []string
		for i, chunk := range evidence[:limit] {
			page := "unknown"
			if chunk.PageNumber != nil {
				page = fmt.Sprintf("%d", *chunk.PageNumber)
			}
			lines = append(lines, fmt.Sprintf("[%d] doc=%s page=%s tool=%s: %s",
				i+1, chunk.DocumentID, page, chunk.SourceTool, core.Truncate(chunk.Text, evidenceTextLimit)))
		}
		sections = append(sections, "Evidence:\n"+strings.Join(lines, "\n"))
	} else {
		sections = append(sections, "Evidence:\n(no evidence provided)")
	}

	sections = append(sections, "Response requirements:\n"+
		"- Keep the answer concise and directly address the task.\n"+
		"- Use only provided evidence.\n"+
		"- Explicitly state uncertainty if evidence is insufficient.")
	return strings.Join(sections, "\n\n")
}

func firstDocumentID(evidence []core.EvidenceChunk) string {
	for _, chunk := range evidence {
		if chunk.DocumentID != "" {
			return chunk.DocumentID
		}
	}
	return ""
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
