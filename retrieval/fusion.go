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
	"sort"

	"github.com/paperflow/paperflow/core"
)

// rrfRankConstant dampens the contribution of lower-ranked results.
const rrfRankConstant = 60

// FuseRankings merges several ranked evidence lists with reciprocal rank
// fusion. Each occurrence of a chunk contributes weight/(k+rank) to its fused
// score, where rank is 1-based within its list and weight comes from the
// source tool (default 1.0). The surviving entry for each chunk is the first
// one encountered in list order; results sort by descending fused score with
// chunk id breaking ties.
func FuseRankings(lists [][]core.EvidenceChunk, weights map[core.ToolName]float64) []core.EvidenceChunk {
	type fused struct {
		exemplar core.EvidenceChunk
		score    float64
	}

	byChunk := make(map[string]*fused)
	var order []string
	for _, list := range lists {
		for rank, chunk := range list {
			weight := 1.0
			if w, ok := weights[chunk.SourceTool]; ok {
				weight = w
			}
			contribution := weight / float64(rrfRankConstant+rank+1)
			key := chunk.DocumentID + "\x00" + chunk.ChunkID
			entry, ok := byChunk[key]
			if !ok {
				entry = &fused{exemplar: chunk}
				byChunk[key] = entry
				order = append(order, key)
			}
			entry.score += contribution
		}
	}

	results := make([]core.EvidenceChunk, 0, len(order))
	for _, key := range order {
		entry := byChunk[key]
		chunk := entry.exemplar
		chunk.Score = entry.score
		results = append(results, chunk)
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ChunkID < results[b].ChunkID
	})
	return results
}
