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


package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/paperflow/paperflow/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate and GenerateStream if set.
	// If nil, a deterministic canned answer derived from the input is
	// returned.
	GenerateFunc func(ctx context.Context, req ai.GenerateRequest) (string, error)

	mu        sync.Mutex
	callCount int
	requests  []ai.GenerateRequest
}

// NewMockGenerator creates a mock generator with default behavior.
// Returns the concrete type so tests can inspect calls.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate produces a deterministic answer or delegates to GenerateFunc.
func (m *MockGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	m.record(req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return m.cannedAnswer(req), nil
}

// GenerateStream streams the answer word by word before returning it.
func (m *MockGenerator) GenerateStream(ctx context.Context, req ai.GenerateRequest, onToken ai.TokenFunc) (string, error) {
	m.record(req)
	answer := ""
	if m.GenerateFunc != nil {
		var err error
		answer, err = m.GenerateFunc(ctx, req)
		if err != nil {
			return "", err
		}
	} else {
		answer = m.cannedAnswer(req)
	}
	if onToken != nil {
		for _, word := range strings.Fields(answer) {
			if err := onToken(word + " "); err != nil {
				return "", err
			}
		}
	}
	return answer, nil
}

func (m *MockGenerator) record(req ai.GenerateRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.requests = append(m.requests, req)
}

func (m *MockGenerator) cannedAnswer(req ai.GenerateRequest) string {
	firstLine := req.Input
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return "Mock answer for: " + strings.TrimSpace(firstLine)
}

// CallCount returns the number of generation calls received.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received, in order.
func (m *MockGenerator) Requests() []ai.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.GenerateRequest(nil), m.requests...)
}
