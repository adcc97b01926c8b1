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

import "sort"

// TopologicalOrder validates the graph shape of a run spec and returns its
// nodes in execution order. Ties between ready nodes are broken by ascending
// node id, so identical specs always produce the same order.
//
// Returns a *GraphError when node ids repeat, an edge endpoint is
// undeclared, or the edge set contains a cycle.
func TopologicalOrder(nodes []NodeSpec, edges []EdgeSpec) ([]NodeSpec, error) {
	byID := make(map[string]NodeSpec, len(nodes))
	for _, node := range nodes {
		if _, exists := byID[node.ID]; exists {
			return nil, newGraphError(ErrDuplicateNodeID, node.ID)
		}
		byID[node.ID] = node
	}

	indegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		indegree[node.ID] = 0
	}
	for _, edge := range edges {
		if _, ok := byID[edge.Source]; !ok {
			return nil, newGraphError(ErrUnknownEdgeEndpoint, edge.Source)
		}
		if _, ok := byID[edge.Target]; !ok {
			return nil, newGraphError(ErrUnknownEdgeEndpoint, edge.Target)
		}
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		indegree[edge.Target]++
	}

	// Kahn's algorithm; the ready set stays sorted so the smallest id runs first.
	ready := make([]string, 0, len(nodes))
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]NodeSpec, 0, len(nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[current])

		released := false
		for _, next := range adjacency[current] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(ordered) != len(nodes) {
		return nil, newGraphError(ErrGraphCycle, "")
	}
	return ordered, nil
}

// ValidateGraph checks a run spec's graph shape without computing an order.
func ValidateGraph(spec *RunSpec) error {
	_, err := TopologicalOrder(spec.Nodes, spec.Edges)
	return err
}

// IncomingSources maps each node id to the ids of its direct predecessors,
// deduplicated and in edge-declaration order.
func IncomingSources(edges []EdgeSpec) map[string][]string {
	incoming := make(map[string][]string)
	seen := make(map[EdgeSpec]bool)
	for _, edge := range edges {
		if seen[edge] {
			continue
		}
		seen[edge] = true
		incoming[edge.Target] = append(incoming[edge.Target], edge.Source)
	}
	return incoming
}
