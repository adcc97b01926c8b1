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

import "errors"

var (
	// ErrUnknownNodeType indicates a node spec carries a type tag outside the
	// closed NodeType set.
	ErrUnknownNodeType = errors.New("unknown pipeline node type")

	// ErrDuplicateNodeID indicates a run spec declares the same node id twice.
	ErrDuplicateNodeID = errors.New("pipeline nodes contain duplicate ids")

	// ErrUnknownEdgeEndpoint indicates an edge references an undeclared node.
	ErrUnknownEdgeEndpoint = errors.New("pipeline edge references unknown node")

	// ErrGraphCycle indicates the edge set is not acyclic.
	ErrGraphCycle = errors.New("pipeline graph contains a cycle")

	// ErrEmptyQuery indicates a run spec without a top-level query.
	ErrEmptyQuery = errors.New("pipeline query cannot be empty")
)

// GraphError reports a structural defect in a run spec. It is fatal before
// any node executes and surfaces only as a run_failed event.
type GraphError struct {
	Detail string
	Err    error
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *GraphError) Unwrap() error { return e.Err }

func newGraphError(err error, detail string) *GraphError {
	return &GraphError{Detail: detail, Err: err}
}
