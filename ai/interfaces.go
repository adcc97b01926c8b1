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


package ai

import (
	"context"

	"github.com/paperflow/paperflow/core"
)

// GenerateRequest carries one synthesis call to the language model.
type GenerateRequest struct {
	// Instructions is the system prompt framing the model's role.
	Instructions string

	// Input is the fully rendered task, evidence and upstream material.
	Input string

	// ReasoningEffort selects how much deliberation the model applies.
	ReasoningEffort core.ReasoningEffort
}

// TokenFunc receives incremental output text during streaming generation.
// Returning an error aborts the stream.
type TokenFunc func(token string) error

// Generator produces completions for agent synthesis nodes.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the model's complete answer for the request.
	// An answer that is empty after trimming is reported as
	// ErrEmptyModelOutput, never returned.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// GenerateStream behaves like Generate but additionally forwards
	// incremental tokens to onToken as they arrive. The full answer is
	// still returned once the stream completes.
	GenerateStream(ctx context.Context, req GenerateRequest, onToken TokenFunc) (string, error)
}
