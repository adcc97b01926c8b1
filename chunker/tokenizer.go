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


package chunker

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer measures and splits text in model tokens. It uses the cl100k_base
// BPE encoding when its vocabulary can be loaded and falls back to
// whitespace-delimited words otherwise; either way counts are deterministic
// within a process lifetime.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenizer creates a tokenizer, preferring the BPE encoding.
func NewTokenizer() *Tokenizer {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Debug("BPE encoding unavailable, using whitespace tokenizer", "err", err)
		return &Tokenizer{}
	}
	return &Tokenizer{encoding: encoding}
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if t.encoding == nil {
		return len(strings.Fields(text))
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// HardSplit cuts text into pieces of at most target tokens, breaking at raw
// token boundaries. Used only when a single sentence or line exceeds the
// chunk budget.
func (t *Tokenizer) HardSplit(text string, target int) []Piece {
	if target <= 0 {
		return []Piece{{Text: text, TokenCount: t.Count(text)}}
	}

	if t.encoding == nil {
		words := strings.Fields(text)
		var pieces []Piece
		for offset := 0; offset < len(words); offset += target {
			end := min(offset+target, len(words))
			joined := strings.Join(words[offset:end], " ")
			if joined == "" {
				continue
			}
			pieces = append(pieces, Piece{Text: joined, TokenCount: end - offset})
		}
		return pieces
	}

	tokens := t.encoding.Encode(text, nil, nil)
	var pieces []Piece
	for offset := 0; offset < len(tokens); offset += target {
		end := min(offset+target, len(tokens))
		decoded := strings.TrimSpace(t.encoding.Decode(tokens[offset:end]))
		if decoded == "" {
			continue
		}
		pieces = append(pieces, Piece{Text: decoded, TokenCount: end - offset})
	}
	return pieces
}

// Piece is one fragment of a hard token split.
type Piece struct {
	Text       string
	TokenCount int
}
