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


package retrieval

import (
	"fmt"
	"strings"

	"github.com/paperflow/paperflow/core"
)

const (
	summaryPointLimit = 4
	summaryPointChars = 200
)

// ModelFailureMarker opens every answer synthesized without the model.
const ModelFailureMarker = "Model generation unavailable."

// ExtractSummaryPoints pulls up to four distinct sentences out of evidence
// text, normalized and truncated, in evidence order. Case-insensitive
// duplicates collapse to the first occurrence.
func ExtractSummaryPoints(evidence []core.EvidenceChunk) []string {
	var points []string
	seen := make(map[string]bool)
	for _, chunk := range evidence {
		for _, sentence := range core.SplitSentences(chunk.Text) {
			normalized := core.NormalizeWhitespace(sentence)
			if normalized == "" {
				continue
			}
			key := strings.ToLower(normalized)
			if seen[key] {
				continue
			}
			seen[key] = true
			points = append(points, core.Truncate(normalized, summaryPointChars))
			if len(points) >= summaryPointLimit {
				return points
			}
		}
	}
	return points
}

// BuildFallbackAnswer assembles a deterministic answer from upstream
// material when no model call is attempted at all.
func BuildFallbackAnswer(prompt string, upstreamAnswers []string, evidenceSummary string) string {
	var sections []string
	if len(upstreamAnswers) > 0 {
		sections = append(sections, "Upstream results:\n"+bulletList(upstreamAnswers))
	}
	if evidenceSummary != "" {
		sections = append(sections, "Supporting evidence:\n"+evidenceSummary)
	}
	if len(sections) == 0 {
		sections = append(sections, "No upstream outputs or evidence were available for this step.")
	}
	sections = append(sections, fmt.Sprintf("Task: %s", prompt))
	return strings.Join(sections, "\n\n")
}

// BuildModelFailureAnswer assembles the answer returned when the model call
// itself was unusable. The reason is the human-readable classification of
// the failure. Evidence sentences take priority over upstream answers; the
// result is never empty.
func BuildModelFailureAnswer(prompt string, upstreamAnswers []string, evidence []core.EvidenceChunk, reason string) string {
	sections := []string{
		ModelFailureMarker,
		fmt.Sprintf("Reason: %s", reason),
	}
	if points := ExtractSummaryPoints(evidence); len(points) > 0 {
		sections = append(sections, "Evidence-based summary:\n"+bulletList(points))
	} else if len(upstreamAnswers) > 0 {
		sections = append(sections, "Upstream results:\n"+bulletList(upstreamAnswers))
	} else {
		sections = append(sections, "No evidence was available to build a fallback summary.")
	}
	sections = append(sections, fmt.Sprintf("Task: %s", prompt))
	return strings.Join(sections, "\n\n")
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
