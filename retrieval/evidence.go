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

import "github.com/paperflow/paperflow/core"

// DedupeEvidence drops repeated (document id, chunk id) pairs, keeping the
// first occurrence and preserving order.
func DedupeEvidence(evidence []core.EvidenceChunk) []core.EvidenceChunk {
	seen := make(map[string]bool, len(evidence))
	out := make([]core.EvidenceChunk, 0, len(evidence))
	for _, chunk := range evidence {
		key := chunk.DocumentID + "\x00" + chunk.ChunkID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, chunk)
	}
	return out
}
