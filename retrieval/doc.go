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


// Package retrieval ranks document chunks for pipeline search nodes.
//
// It keeps one in-memory BM25 index per ingested document behind a
// thread-safe store, fuses multiple ranked evidence lists with reciprocal
// rank fusion, deduplicates evidence and citations, and builds the
// deterministic answers used when model generation is unavailable. Nothing
// here persists across process restarts; the index is rebuilt on ingestion.
package retrieval
