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


package engine

import "regexp"

var streamChunkRe = regexp.MustCompile(`\S+\s*`)

// streamChunks splits a completed answer into word-sized fragments for token
// events, each keeping its trailing whitespace so the client can concatenate
// them back verbatim.
func streamChunks(text string) []string {
	parts := streamChunkRe.FindAllString(text, -1)
	if parts != nil {
		return parts
	}
	if text == "" {
		return nil
	}
	return []string{text}
}
