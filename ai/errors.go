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
	"strings"
)

var (
	// ErrMissingAPIKey indicates no credentials are configured for the
	// completion service.
	ErrMissingAPIKey = errors.New("no API key is configured")

	// ErrEmptyModelOutput indicates the model call succeeded but produced
	// no usable text.
	ErrEmptyModelOutput = errors.New("model returned an empty output")
)

// FailureCode is the stable classification of a generation failure. Codes
// appear in tools_used markers and drive the fallback answer's reason line.
type FailureCode string

const (
	FailureMissingAPIKey  FailureCode = "missing_api_key"
	FailureQuotaExhausted FailureCode = "quota_exhausted"
	FailureEmptyOutput    FailureCode = "empty_model_output"
	FailureCallFailed     FailureCode = "model_call_failed"
)

// ClassifyFailure maps a generation error onto a FailureCode by sentinel
// matching first, then message inspection for provider quota signals.
func ClassifyFailure(err error) FailureCode {
	if err == nil {
		return FailureCallFailed
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return FailureMissingAPIKey
	}
	if errors.Is(err, ErrEmptyModelOutput) {
		return FailureEmptyOutput
	}
	lowered := strings.ToLower(err.Error())
	if strings.Contains(lowered, "insufficient_quota") {
		return FailureQuotaExhausted
	}
	if (strings.Contains(lowered, "error code: 429") || strings.Contains(lowered, "status code: 429")) &&
		strings.Contains(lowered, "quota") {
		return FailureQuotaExhausted
	}
	return FailureCallFailed
}

// FailureMessage returns the human-readable reason for a failure code.
func FailureMessage(code FailureCode) string {
	switch code {
	case FailureMissingAPIKey:
		return "No API key is configured for the completion service."
	case FailureQuotaExhausted:
		return "The completion API quota is exhausted for the configured key."
	case FailureEmptyOutput:
		return "The model returned an empty output."
	default:
		return "The model call failed before a response was produced."
	}
}
