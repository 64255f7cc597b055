package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/swirl/internal/ir"
)

// Cycle is a set of packages that depend on each other, directly or
// through other packages.
type Cycle struct {
	IDs     []string `json:"ids"`     // Cycle path: ["a", "b", "a"]
	Names   []string `json:"names"`   // Package names along IDs
	Message string   `json:"message"` // Human-readable description
}

// Err returns the cycle as a DependencyCycleError.
func (c Cycle) Err() error {
	return &DependencyCycleError{Path: c.Names}
}

// AnalyzeCycles performs static cycle analysis on package dependencies.
//
// The algorithm:
//  1. Build the package id → dependency id graph, substituting top-level
//     records for dependency entries with a matching id
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Nodes are visited in sorted id order so the report is deterministic.
// An acyclic dependency graph returns an empty list.
func AnalyzeCycles(pkgs []ir.Package) []Cycle {
	if len(pkgs) == 0 {
		return []Cycle{}
	}

	graph, names := buildDependencyGraph(pkgs)
	sccs := tarjanSCC(graph)

	cycles := []Cycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph, names))
		}
	}
	slices.SortFunc(cycles, func(a, b Cycle) int {
		return strings.Compare(a.IDs[0], b.IDs[0])
	})
	return cycles
}

// dependencyGraph maps package id → ids of its dependencies.
type dependencyGraph map[string][]string

// buildDependencyGraph walks every package and its inline dependencies.
// Packages without an id cannot be referenced and are left out.
func buildDependencyGraph(pkgs []ir.Package) (dependencyGraph, map[string]string) {
	graph := make(dependencyGraph)
	names := make(map[string]string)

	records := make(map[string]ir.Package, len(pkgs))
	for _, p := range pkgs {
		if p.ID != "" {
			records[p.ID] = p
		}
	}

	var visit func(p ir.Package)
	visit = func(p ir.Package) {
		if rec, ok := records[p.ID]; ok {
			p = rec
		}
		if p.ID == "" {
			for _, dep := range p.Dependencies {
				visit(dep)
			}
			return
		}
		if _, done := graph[p.ID]; done {
			return
		}
		names[p.ID] = p.Name

		// Initialize with empty slice (ensures node exists in graph)
		graph[p.ID] = []string{}
		for _, dep := range p.Dependencies {
			if dep.ID != "" {
				graph[p.ID] = append(graph[p.ID], dep.ID)
			}
			visit(dep)
		}
	}
	for _, p := range pkgs {
		visit(p)
	}
	return graph, names
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of package ids.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToCycle converts an SCC to a Cycle starting at its smallest id.
func sccToCycle(scc []string, graph dependencyGraph, names map[string]string) Cycle {
	var ids []string
	if len(scc) == 1 {
		ids = []string{scc[0], scc[0]}
	} else {
		ids = reconstructCyclePath(scc, graph)
	}

	pathNames := make([]string, len(ids))
	for i, id := range ids {
		pathNames[i] = names[id]
	}
	msg := fmt.Sprintf("Dependency cycle detected: %s", strings.Join(pathNames, " → "))
	if len(scc) == 1 {
		msg = fmt.Sprintf("Package depends on itself: %s", pathNames[0])
	}
	return Cycle{IDs: ids, Names: pathNames, Message: msg}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the smallest id in the SCC, follow edges to other SCC
// members, continue until we return to the start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
