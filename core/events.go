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

import "time"

// EventKind discriminates the closed family of run lifecycle events.
type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventNodeStarted   EventKind = "node_started"
	EventNodeToken     EventKind = "node_token"
	EventNodeCompleted EventKind = "node_completed"
	EventNodeFailed    EventKind = "node_failed"
	EventRunPaused     EventKind = "run_paused"
	EventRunResumed    EventKind = "run_resumed"
	EventRunCompleted  EventKind = "run_completed"
	EventRunFailed     EventKind = "run_failed"
)

// RunEvent is the closed family of events a pipeline run emits. Every event
// carries the run id and an RFC3339Nano UTC timestamp; node-scoped events
// also carry the node id and type.
type RunEvent interface {
	Kind() EventKind
}

// EventTimestamp formats the wall clock the way every run event carries it.
func EventTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// RunStartedEvent opens every event stream, exactly once.
type RunStartedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	Timestamp string    `json:"timestamp"`
}

func NewRunStartedEvent(runID string) RunStartedEvent {
	return RunStartedEvent{Event: EventRunStarted, RunID: runID, Timestamp: EventTimestamp()}
}

func (e RunStartedEvent) Kind() EventKind { return EventRunStarted }

// NodeStartedEvent marks the beginning of one node's execution.
type NodeStartedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	NodeType  NodeType  `json:"node_type"`
	Timestamp string    `json:"timestamp"`
}

func NewNodeStartedEvent(runID, nodeID string, nodeType NodeType) NodeStartedEvent {
	return NodeStartedEvent{
		Event:     EventNodeStarted,
		RunID:     runID,
		NodeID:    nodeID,
		NodeType:  nodeType,
		Timestamp: EventTimestamp(),
	}
}

func (e NodeStartedEvent) Kind() EventKind { return EventNodeStarted }

// NodeTokenEvent carries one incremental answer fragment. Only agent nodes
// emit tokens.
type NodeTokenEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	NodeType  NodeType  `json:"node_type"`
	Token     string    `json:"token"`
	Timestamp string    `json:"timestamp"`
}

func NewNodeTokenEvent(runID, nodeID, token string) NodeTokenEvent {
	return NodeTokenEvent{
		Event:     EventNodeToken,
		RunID:     runID,
		NodeID:    nodeID,
		NodeType:  NodeTypeAgent,
		Token:     token,
		Timestamp: EventTimestamp(),
	}
}

func (e NodeTokenEvent) Kind() EventKind { return EventNodeToken }

// NodeCompletedEvent closes a node's execution with its recorded output.
type NodeCompletedEvent struct {
	Event     EventKind  `json:"event"`
	RunID     string     `json:"run_id"`
	NodeID    string     `json:"node_id"`
	NodeType  NodeType   `json:"node_type"`
	Output    NodeOutput `json:"output"`
	Timestamp string     `json:"timestamp"`
}

func NewNodeCompletedEvent(runID, nodeID string, nodeType NodeType, output NodeOutput) NodeCompletedEvent {
	return NodeCompletedEvent{
		Event:     EventNodeCompleted,
		RunID:     runID,
		NodeID:    nodeID,
		NodeType:  nodeType,
		Output:    output,
		Timestamp: EventTimestamp(),
	}
}

func (e NodeCompletedEvent) Kind() EventKind { return EventNodeCompleted }

// NodeFailedEvent closes a node's execution with a human-readable error.
// A node failure always aborts the run.
type NodeFailedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	NodeType  NodeType  `json:"node_type"`
	Error     string    `json:"error"`
	Timestamp string    `json:"timestamp"`
}

func NewNodeFailedEvent(runID, nodeID string, nodeType NodeType, message string) NodeFailedEvent {
	return NodeFailedEvent{
		Event:     EventNodeFailed,
		RunID:     runID,
		NodeID:    nodeID,
		NodeType:  nodeType,
		Error:     message,
		Timestamp: EventTimestamp(),
	}
}

func (e NodeFailedEvent) Kind() EventKind { return EventNodeFailed }

// RunPausedEvent reports that the scheduler suspended at a node boundary.
type RunPausedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	Timestamp string    `json:"timestamp"`
}

func NewRunPausedEvent(runID string) RunPausedEvent {
	return RunPausedEvent{Event: EventRunPaused, RunID: runID, Timestamp: EventTimestamp()}
}

func (e RunPausedEvent) Kind() EventKind { return EventRunPaused }

// RunResumedEvent reports that a paused run continued.
type RunResumedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	Timestamp string    `json:"timestamp"`
}

func NewRunResumedEvent(runID string) RunResumedEvent {
	return RunResumedEvent{Event: EventRunResumed, RunID: runID, Timestamp: EventTimestamp()}
}

func (e RunResumedEvent) Kind() EventKind { return EventRunResumed }

// RunCompletedEvent closes a successful run with the outputs of all
// output-type nodes, or the last executed agent node when none exist.
type RunCompletedEvent struct {
	Event     EventKind             `json:"event"`
	RunID     string                `json:"run_id"`
	Outputs   map[string]NodeOutput `json:"outputs"`
	Timestamp string                `json:"timestamp"`
}

func NewRunCompletedEvent(runID string, outputs map[string]NodeOutput) RunCompletedEvent {
	return RunCompletedEvent{
		Event:     EventRunCompleted,
		RunID:     runID,
		Outputs:   outputs,
		Timestamp: EventTimestamp(),
	}
}

func (e RunCompletedEvent) Kind() EventKind { return EventRunCompleted }

// RunFailedEvent closes a failed run with a short, stable error string.
type RunFailedEvent struct {
	Event     EventKind `json:"event"`
	RunID     string    `json:"run_id"`
	Error     string    `json:"error"`
	Timestamp string    `json:"timestamp"`
}

func NewRunFailedEvent(runID, message string) RunFailedEvent {
	return RunFailedEvent{Event: EventRunFailed, RunID: runID, Error: message, Timestamp: EventTimestamp()}
}

func (e RunFailedEvent) Kind() EventKind { return EventRunFailed }
