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


package core

import (
	"strings"
	"unicode"
)

// NormalizeWhitespace collapses all whitespace runs to single spaces and
// trims the result.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate normalizes whitespace and cuts the text to limit runes,
// appending an ASCII ellipsis when shortened.
func Truncate(text string, limit int) string {
	normalized := NormalizeWhitespace(text)
	runes := []rune(normalized)
	if len(runes) <= limit {
		return normalized
	}
	return strings.TrimRight(string(runes[:limit]), " ") + "..."
}

// TruncateQuote normalizes whitespace and cuts a supporting quote to limit
// runes, appending a typographic ellipsis when shortened.
func TruncateQuote(text string, limit int) string {
	cleaned := NormalizeWhitespace(text)
	runes := []rune(cleaned)
	if len(runes) <= limit {
		return cleaned
	}
	return strings.TrimRight(string(runes[:limit]), " ") + "…"
}

// SplitSentences splits text after sentence-terminating punctuation followed
// by whitespace. Fragments keep their terminators.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume a run of terminators, then break before whitespace.
		j := i
		for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
			j++
		}
		if j+1 < len(runes) && unicode.IsSpace(runes[j+1]) {
			sentences = append(sentences, string(runes[start:j+1]))
			i = j + 1
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			start = i
			i--
		} else {
			i = j
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// OrderedUnique removes duplicates while preserving first-seen order. Empty
// strings are dropped.
func OrderedUnique(items []string) []string {
	ordered := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		ordered = append(ordered, item)
	}
	return ordered
}

// RenderTemplate substitutes the run's top-level query for the {query}
// placeholder. A template without the placeholder is returned as-is; an
// empty template falls back to the query itself.
func RenderTemplate(template, query string) string {
	if !strings.Contains(template, "{query}") {
		if trimmed := strings.TrimSpace(template); trimmed != "" {
			return trimmed
		}
		return query
	}
	return strings.TrimSpace(strings.ReplaceAll(template, "{query}", query))
}
