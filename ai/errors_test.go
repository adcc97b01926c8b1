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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCode
	}{
		{"missing key sentinel", ErrMissingAPIKey, FailureMissingAPIKey},
		{"wrapped missing key", fmt.Errorf("init: %w", ErrMissingAPIKey), FailureMissingAPIKey},
		{"empty output sentinel", ErrEmptyModelOutput, FailureEmptyOutput},
		{"insufficient quota", errors.New("openai: insufficient_quota for key"), FailureQuotaExhausted},
		{"429 with quota", errors.New("Error code: 429 - you exceeded your quota"), FailureQuotaExhausted},
		{"429 without quota", errors.New("error code: 429 - rate limited"), FailureCallFailed},
		{"generic", errors.New("connection refused"), FailureCallFailed},
		{"nil", nil, FailureCallFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestFailureMessageIsStable(t *testing.T) {
	codes := []FailureCode{FailureMissingAPIKey, FailureQuotaExhausted, FailureEmptyOutput, FailureCallFailed}
	for _, code := range codes {
		assert.NotEmpty(t, FailureMessage(code))
	}
	assert.Equal(t, "No API key is configured for the completion service.", FailureMessage(FailureMissingAPIKey))
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig(WithModel("gpt-4o-mini"), WithAPIKey("k"))
	assert.NoError(t, cfg.Validate())

	cfg = NewConfig(WithModel(" "))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithTemperature(3))
	assert.Error(t, cfg.Validate())
}

func TestConfigNormalizeAddsV1Suffix(t *testing.T) {
	cfg := NewConfig(WithHost("http://localhost:11434"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)

	cfg = NewConfig(WithHost("http://localhost:11434/v1"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)

	cfg = NewConfig()
	cfg.Normalize()
	assert.Empty(t, cfg.Host)
}
