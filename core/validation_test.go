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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, nodeType NodeType) NodeSpec {
	return NodeSpec{ID: id, Type: nodeType, Config: IngestConfig{}}
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("linear chain", func(t *testing.T) {
		ordered, err := TopologicalOrder(
			[]NodeSpec{node("c", NodeTypeOutput), node("a", NodeTypeIngest), node("b", NodeTypeAgent)},
			[]EdgeSpec{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
		)
		require.NoError(t, err)

		ids := make([]string, 0, len(ordered))
		for _, n := range ordered {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("ties broken by ascending id", func(t *testing.T) {
		ordered, err := TopologicalOrder(
			[]NodeSpec{node("z", NodeTypeInput), node("m", NodeTypeInput), node("a", NodeTypeInput)},
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, "a", ordered[0].ID)
		assert.Equal(t, "m", ordered[1].ID)
		assert.Equal(t, "z", ordered[2].ID)
	})

	t.Run("diamond respects edges", func(t *testing.T) {
		ordered, err := TopologicalOrder(
			[]NodeSpec{
				node("src", NodeTypeIngest),
				node("left", NodeTypeKeywordSearch),
				node("right", NodeTypeReadDocument),
				node("sink", NodeTypeAgent),
			},
			[]EdgeSpec{
				{Source: "src", Target: "left"},
				{Source: "src", Target: "right"},
				{Source: "left", Target: "sink"},
				{Source: "right", Target: "sink"},
			},
		)
		require.NoError(t, err)

		position := make(map[string]int, len(ordered))
		for i, n := range ordered {
			position[n.ID] = i
		}
		assert.Less(t, position["src"], position["left"])
		assert.Less(t, position["src"], position["right"])
		assert.Less(t, position["left"], position["sink"])
		assert.Less(t, position["right"], position["sink"])
	})

	t.Run("duplicate node id", func(t *testing.T) {
		_, err := TopologicalOrder(
			[]NodeSpec{node("a", NodeTypeIngest), node("a", NodeTypeAgent)},
			nil,
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateNodeID)

		var graphErr *GraphError
		assert.ErrorAs(t, err, &graphErr)
	})

	t.Run("unknown edge endpoint", func(t *testing.T) {
		_, err := TopologicalOrder(
			[]NodeSpec{node("a", NodeTypeIngest)},
			[]EdgeSpec{{Source: "a", Target: "ghost"}},
		)
		assert.ErrorIs(t, err, ErrUnknownEdgeEndpoint)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := TopologicalOrder(
			[]NodeSpec{node("a", NodeTypeIngest), node("b", NodeTypeAgent)},
			[]EdgeSpec{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
		)
		assert.ErrorIs(t, err, ErrGraphCycle)
	})

	t.Run("self loop is a cycle", func(t *testing.T) {
		_, err := TopologicalOrder(
			[]NodeSpec{node("a", NodeTypeIngest)},
			[]EdgeSpec{{Source: "a", Target: "a"}},
		)
		assert.ErrorIs(t, err, ErrGraphCycle)
	})
}

func TestIncomingSources(t *testing.T) {
	incoming := IncomingSources([]EdgeSpec{
		{Source: "a", Target: "c"},
		{Source: "b", Target: "c"},
		{Source: "a", Target: "c"}, // duplicate edge
		{Source: "a", Target: "b"},
	})

	assert.Equal(t, []string{"a", "b"}, incoming["c"])
	assert.Equal(t, []string{"a"}, incoming["b"])
	_, ok := incoming["a"]
	assert.False(t, ok)
}

func TestValidateGraph(t *testing.T) {
	spec := &RunSpec{
		Nodes: []NodeSpec{node("a", NodeTypeIngest), node("b", NodeTypeOutput)},
		Edges: []EdgeSpec{{Source: "a", Target: "b"}},
		Query: "what is attention?",
	}
	require.NoError(t, ValidateGraph(spec))

	spec.Edges = append(spec.Edges, EdgeSpec{Source: "b", Target: "a"})
	err := ValidateGraph(spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGraphCycle))
}
