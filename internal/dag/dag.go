// Package dag provides the dependency graph between flow nodes.
// Nodes live in an arena addressed by index, in insertion order, so every
// traversal is deterministic. Cycle detection and walks are iterative.
package dag

import (
	"fmt"
	"strings"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (flow node id)
	ID string
	// Index is the arena position (insertion order)
	Index int
	// Data holds arbitrary node data
	Data any
}

// CycleError reports a dependency cycle. Path starts and ends with the same id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Graph is a directed graph where an edge parent -> child means child depends on parent.
type Graph struct {
	nodes   []*Node
	index   map[string]int
	edges   [][]int // parent -> children (dependents)
	parents [][]int // child -> parents (dependencies), in edge insertion order
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a node to the graph and returns its arena index.
// Adding an existing id updates its data.
func (g *Graph) AddNode(id string, data any) int {
	if i, exists := g.index[id]; exists {
		g.nodes[i].Data = data
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, &Node{ID: id, Index: i, Data: data})
	g.index[id] = i
	g.edges = append(g.edges, nil)
	g.parents = append(g.parents, nil)
	return i
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// Duplicate edges are ignored. A self-loop is reported as a CycleError.
func (g *Graph) AddEdge(parentID, childID string) error {
	p, exists := g.index[parentID]
	if !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	c, exists := g.index[childID]
	if !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	if p == c {
		return &CycleError{Path: []string{parentID, parentID}}
	}

	if !contains(g.edges[p], c) {
		g.edges[p] = append(g.edges[p], c)
	}
	if !contains(g.parents[c], p) {
		g.parents[c] = append(g.parents[c], p)
	}
	return nil
}

// Index returns the arena index of a node.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// GetChildren returns the children (dependents) of a node in edge insertion order.
func (g *Graph) GetChildren(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.ids(g.edges[i])
}

// Colors for the three-color walk.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // done
)

// frame is one entry of the explicit DFS stack.
type frame struct {
	node int
	next int // next parent to visit
}

// PostOrder walks the dependencies of roots depth-first without recursion and
// calls visit for every reachable node after all of its parents were visited.
// Each node is visited at most once. A back edge aborts the walk with a CycleError.
func (g *Graph) PostOrder(roots []string, visit func(n *Node) error) error {
	color := make([]int, len(g.nodes))

	for _, rootID := range roots {
		root, ok := g.index[rootID]
		if !ok {
			return fmt.Errorf("root node %q does not exist", rootID)
		}
		if color[root] == black {
			continue
		}

		stack := []frame{{node: root}}
		color[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.parents[top.node]

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{node: dep})
				case gray:
					return &CycleError{Path: g.cyclePath(stack, dep)}
				}
				continue
			}

			color[top.node] = black
			n := g.nodes[top.node]
			stack = stack[:len(stack)-1]
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath reconstructs the cycle closed by the back edge to dep, in dependency direction.
func (g *Graph) cyclePath(stack []frame, dep int) []string {
	var path []string
	start := 0
	for i := range stack {
		if stack[i].node == dep {
			start = i
			break
		}
	}
	for i := start; i < len(stack); i++ {
		path = append(path, g.nodes[stack[i].node].ID)
	}
	return append(path, g.nodes[dep].ID)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	err := g.PostOrder(ids, func(*Node) error { return nil })
	if ce, ok := err.(*CycleError); ok {
		return true, ce.Path
	}
	return false, nil
}

// GetUpstreamNodes returns every node the given nodes depend on, transitively,
// including the given nodes, in insertion order.
func (g *Graph) GetUpstreamNodes(ids ...string) []string {
	seen := make([]bool, len(g.nodes))
	var stack []int
	for _, id := range ids {
		if i, ok := g.index[id]; ok && !seen[i] {
			seen[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.parents[cur] {
			if !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}

	var result []string
	for i, ok := range seen {
		if ok {
			result = append(result, g.nodes[i].ID)
		}
	}
	return result
}

func (g *Graph) ids(idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.nodes[n].ID
	}
	return out
}

// contains checks if a slice contains an index.
func contains(slice []int, v int) bool {
	for _, s := range slice {
		if s == v {
			return true
		}
	}
	return false
}
