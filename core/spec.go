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
	"encoding/json"
	"fmt"
)

// NodeType tags the closed set of pipeline node behaviors.
type NodeType string

const (
	NodeTypeIngest         NodeType = "ingest"
	NodeTypeInput          NodeType = "input"
	NodeTypeKeywordSearch  NodeType = "keyword_search"
	NodeTypeReadDocument   NodeType = "read_document"
	NodeTypeParallelSearch NodeType = "parallel_search"
	NodeTypeAgent          NodeType = "agent"
	NodeTypeOutput         NodeType = "output"
)

// ToolName identifies a retrieval behavior, both as an agent tool selection
// and as the provenance tag on evidence.
type ToolName string

const (
	ToolKeywordSearch  ToolName = "keyword_search"
	ToolReadDocument   ToolName = "read_document"
	ToolParallelSearch ToolName = "parallel_search"
)

// ReasoningEffort selects how much deliberation the synthesis model applies.
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

const (
	// DefaultTopK is the result budget used when a search config omits top_k.
	DefaultTopK = 8

	// DefaultTemplate substitutes the run's top-level query unchanged.
	DefaultTemplate = "{query}"
)

// NodeConfig is the closed family of per-type node configurations.
// Dispatch is by the NodeSpec type tag, never by runtime type inspection of
// raw payloads.
type NodeConfig interface {
	nodeConfig()
}

// IngestConfig carries no options; the ingest node consumes the raw input
// attached to its node id.
type IngestConfig struct{}

// InputConfig carries a literal prompt string; an input node is valid with
// no attached file.
type InputConfig struct {
	PromptText string `json:"prompt_text,omitempty"`
}

// KeywordSearchConfig configures a BM25 keyword search node.
type KeywordSearchConfig struct {
	QueryTemplate string   `json:"query_template,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
}

// ReadDocumentConfig configures a single-page read, optionally narrowed to a
// 1-based line sub-range. An empty DocumentID is inferred from upstream
// outputs or the document store.
type ReadDocumentConfig struct {
	Page       int    `json:"page"`
	StartLine  *int   `json:"start_line,omitempty"`
	EndLine    *int   `json:"end_line,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// ParallelQuery is one sub-operation of a parallel-search node, tagged with
// the retrieval behavior to run. Search fields apply when Type is
// keyword_search, read fields when Type is read_document.
type ParallelQuery struct {
	Type          ToolName `json:"type"`
	QueryTemplate string   `json:"query_template,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
	Page          int      `json:"page,omitempty"`
	StartLine     *int     `json:"start_line,omitempty"`
	EndLine       *int     `json:"end_line,omitempty"`
	DocumentID    string   `json:"document_id,omitempty"`
}

// ParallelSearchConfig configures the fan-out of independently typed
// sub-operations.
type ParallelSearchConfig struct {
	Queries []ParallelQuery `json:"queries,omitempty"`
}

// AgentConfig configures a synthesis node.
type AgentConfig struct {
	PromptTemplate     string          `json:"prompt_template,omitempty"`
	ReasoningEffort    ReasoningEffort `json:"reasoning_effort,omitempty"`
	ReviewEnabled      bool            `json:"review_enabled,omitempty"`
	Tools              []ToolName      `json:"tools,omitempty"`
	SystemInstructions string          `json:"system_instructions,omitempty"`
}

// OutputConfig carries no options; the output node passes through the most
// recent upstream agent envelope.
type OutputConfig struct{}

func (IngestConfig) nodeConfig()         {}
func (InputConfig) nodeConfig()          {}
func (KeywordSearchConfig) nodeConfig()  {}
func (ReadDocumentConfig) nodeConfig()   {}
func (ParallelSearchConfig) nodeConfig() {}
func (AgentConfig) nodeConfig()          {}
func (OutputConfig) nodeConfig()         {}

// NodeSpec declares one node of a pipeline: a unique id, a behavior tag, and
// the type-specific configuration.
type NodeSpec struct {
	ID     string
	Type   NodeType
	Label  string
	Config NodeConfig
}

type nodeSpecEnvelope struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Label  string          `json:"label,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// UnmarshalJSON decodes the type-tagged envelope and dispatches the config
// payload to the concrete configuration for the declared type.
func (n *NodeSpec) UnmarshalJSON(data []byte) error {
	var env nodeSpecEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	config, err := decodeNodeConfig(env.Type, env.Config)
	if err != nil {
		return err
	}

	n.ID = env.ID
	n.Type = env.Type
	n.Label = env.Label
	n.Config = config
	return nil
}

// MarshalJSON re-encodes the envelope with the concrete config inlined.
func (n NodeSpec) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(n.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeSpecEnvelope{
		ID:     n.ID,
		Type:   n.Type,
		Label:  n.Label,
		Config: raw,
	})
}

func decodeNodeConfig(nodeType NodeType, raw json.RawMessage) (NodeConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch nodeType {
	case NodeTypeIngest:
		var config IngestConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return config, nil
	case NodeTypeInput:
		var config InputConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return config, nil
	case NodeTypeKeywordSearch:
		var config KeywordSearchConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		if config.QueryTemplate == "" {
			config.QueryTemplate = DefaultTemplate
		}
		if config.TopK <= 0 {
			config.TopK = DefaultTopK
		}
		return config, nil
	case NodeTypeReadDocument:
		var config ReadDocumentConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return config, nil
	case NodeTypeParallelSearch:
		var config ParallelSearchConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		for i := range config.Queries {
			query := &config.Queries[i]
			if query.Type == ToolKeywordSearch {
				if query.QueryTemplate == "" {
					query.QueryTemplate = DefaultTemplate
				}
				if query.TopK <= 0 {
					query.TopK = DefaultTopK
				}
			}
		}
		return config, nil
	case NodeTypeAgent:
		var config AgentConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		if config.PromptTemplate == "" {
			config.PromptTemplate = DefaultTemplate
		}
		if config.ReasoningEffort == "" {
			config.ReasoningEffort = ReasoningMedium
		}
		return config, nil
	case NodeTypeOutput:
		var config OutputConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return config, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}
}

// EdgeSpec declares a directed dependency: Source executes before Target,
// and Target sees Source's output.
type EdgeSpec struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// RunSpec is the immutable description of one pipeline run.
type RunSpec struct {
	Nodes     []NodeSpec `json:"nodes"`
	Edges     []EdgeSpec `json:"edges"`
	Query     string     `json:"query"`
	SessionID string     `json:"session_id,omitempty"`
}
