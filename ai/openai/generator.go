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


package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/paperflow/paperflow/ai"
	"github.com/paperflow/paperflow/core"
)

// Generator implements ai.Generator against OpenAI-compatible chat APIs.
type Generator struct {
	client llms.Model
	config *ai.Config
	logger *slog.Logger
}

// NewGenerator creates a generator from the provided configuration. A
// missing API key fails immediately with ai.ErrMissingAPIKey so callers can
// classify the condition without making a network call.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.Normalize()
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ai.ErrMissingAPIKey
	}

	clientOpts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.Host != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(config.Host))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// Generate returns the model's complete answer for the request.
func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	return g.generate(ctx, req, nil)
}

// GenerateStream forwards incremental tokens to onToken while generating.
func (g *Generator) GenerateStream(ctx context.Context, req ai.GenerateRequest, onToken ai.TokenFunc) (string, error) {
	return g.generate(ctx, req, onToken)
}

func (g *Generator) generate(ctx context.Context, req ai.GenerateRequest, onToken ai.TokenFunc) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.Instructions)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(req.Input)},
		},
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(completionBudget(req.ReasoningEffort)),
	}
	if onToken != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return onToken(string(chunk))
		}))
	}

	response, err := g.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		g.logger.Error("model call failed", "model", g.config.Model, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyModelOutput
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	if answer == "" {
		return "", ai.ErrEmptyModelOutput
	}
	return answer, nil
}

// completionBudget widens the output allowance as reasoning effort rises.
func completionBudget(effort core.ReasoningEffort) int {
	switch effort {
	case core.ReasoningNone:
		return 512
	case core.ReasoningLow:
		return 1024
	case core.ReasoningHigh:
		return 4096
	default:
		return 2048
	}
}
