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
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\t b\n\nc  "))
	assert.Equal(t, "", NormalizeWhitespace("   \n\t "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := strings.Repeat("word ", 100)
	truncated := Truncate(long, 40)
	assert.LessOrEqual(t, len(truncated), 43)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}

func TestTruncateMultibyte(t *testing.T) {
	// The limit counts runes, never bytes, so a multi-byte rune at the cut
	// survives intact.
	text := strings.Repeat("ä", 50)

	truncated := Truncate(text, 40)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, strings.Repeat("ä", 40)+"...", truncated)

	quote := TruncateQuote(text, 40)
	assert.True(t, utf8.ValidString(quote))
	assert.Equal(t, strings.Repeat("ä", 40)+"…", quote)

	assert.Equal(t, "日本語テキスト", Truncate("日本語テキスト", 7))
	assert.Equal(t, "日本語…", TruncateQuote("日本語テキスト", 3))
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First one. Second one! Third one? Trailing fragment")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Trailing fragment"}, sentences)

	assert.Equal(t, []string{"No terminator here"}, SplitSentences("No terminator here"))
	assert.Nil(t, SplitSentences(""))

	// Abbreviation-like runs stay attached to their sentence.
	sentences = SplitSentences("Wait... really? Yes.")
	assert.Equal(t, []string{"Wait...", "really?", "Yes."}, sentences)
}

func TestOrderedUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, OrderedUnique([]string{"a", "b", "a", "", "c", "b"}))
}

func TestRenderTemplate(t *testing.T) {
	assert.Equal(t, "find attention", RenderTemplate("find {query}", "attention"))
	assert.Equal(t, "fixed text", RenderTemplate("fixed text", "attention"))
	assert.Equal(t, "attention", RenderTemplate("", "attention"))
	assert.Equal(t, "attention", RenderTemplate("   ", "attention"))
}
