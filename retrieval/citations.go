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
	"strings"

	"github.com/paperflow/paperflow/core"
)

const (
	citationQuoteLimit       = 240
	citationFingerprintChars = 160
)

// quoteFingerprint collapses a quote to a normalized lowercase prefix so
// near-identical excerpts from one document collapse into one citation.
func quoteFingerprint(text string) string {
	normalized := strings.ToLower(core.NormalizeWhitespace(text))
	runes := []rune(normalized)
	if len(runes) > citationFingerprintChars {
		runes = runes[:citationFingerprintChars]
	}
	return string(runes)
}

// BuildCitations converts evidence into user-facing citations. Within each
// document, evidence whose quotes share a fingerprint collapses to the first
// occurrence; input order is preserved otherwise.
func BuildCitations(evidence []core.EvidenceChunk) []core.Citation {
	seen := make(map[string]bool, len(evidence))
	citations := make([]core.Citation, 0, len(evidence))
	for _, chunk := range evidence {
		quote := core.TruncateQuote(core.NormalizeWhitespace(chunk.Text), citationQuoteLimit)
		if quote == "" {
			continue
		}
		key := chunk.DocumentID + "\x00" + quoteFingerprint(chunk.Text)
		if seen[key] {
			continue
		}
		seen[key] = true

		score := chunk.Score
		citations = append(citations, core.Citation{
			DocumentID:      chunk.DocumentID,
			ChunkID:         chunk.ChunkID,
			PageNumber:      chunk.PageNumber,
			SupportingQuote: quote,
			SourceTool:      chunk.SourceTool,
			Score:           &score,
		})
	}
	return citations
}
