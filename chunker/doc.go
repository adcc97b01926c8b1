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


// Package chunker segments page-organized document text into token-bounded,
// overlapping retrieval passages.
//
// Two input shapes are supported: geometry-tagged blocks from paginated
// sources (PDF-style extraction, ordered by position on the page) and plain
// line lists for everything else. Both produce core.ChunkRecord values with
// deterministic content-derived chunk ids, a citation span covering the
// source block or line range, a length-limited preview, and a union (or
// sentinel) bounding box.
//
// Chunking is deterministic: identical ordered input and parameters always
// yield identical chunk id sequences, which the retrieval index relies on
// for idempotent re-persistence.
package chunker
