package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// GraphValidator checks structural integrity of product and BOM graphs
type GraphValidator struct{}

// NewGraphValidator creates a new graph validator
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{}
}

// ValidationResult contains the results of graph validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]string
	DuplicateLines []*entities.BOMLine
	Errors         []string
}

// ShortestCycle returns the cycle with the fewest edges, or nil
func (r *ValidationResult) ShortestCycle() []string {
	var best []string
	for _, c := range r.CyclePaths {
		if best == nil || len(c) < len(best) {
			best = c
		}
	}
	return best
}

// ValidateProductGraph checks a parent → children product graph for cycles.
// Parents and children are visited in sorted order so results are stable.
func (v *GraphValidator) ValidateProductGraph(edges map[string][]string) *ValidationResult {
	result := &ValidationResult{
		CyclePaths: make([][]string, 0),
		Errors:     make([]string, 0),
	}

	adjacency := v.buildAdjacencyMap(edges)
	result.CyclePaths = v.detectCycles(adjacency)
	result.HasCycles = len(result.CyclePaths) > 0

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, (&entities.ProductCycleError{Path: cycle}).Error())
	}
	return result
}

// CheckProductGraph returns *entities.ProductCycleError for the shortest cycle found
func (v *GraphValidator) CheckProductGraph(edges map[string][]string) error {
	result := v.ValidateProductGraph(edges)
	if !result.HasCycles {
		return nil
	}
	return &entities.ProductCycleError{Path: result.ShortestCycle()}
}

// ValidateLines flags lines repeating the same component at the same sequence
// within one BOM
func (v *GraphValidator) ValidateLines(lines []*entities.BOMLine) *ValidationResult {
	result := &ValidationResult{
		DuplicateLines: v.detectDuplicateLines(lines),
		Errors:         make([]string, 0),
	}
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("bom line %s: %v", line.ID, err))
		}
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}
	return result
}

// buildAdjacencyMap dedupes and sorts children of every parent
func (v *GraphValidator) buildAdjacencyMap(edges map[string][]string) map[string][]string {
	adjacency := make(map[string][]string, len(edges))
	for parent, children := range edges {
		seen := make(map[string]bool, len(children))
		unique := make([]string, 0, len(children))
		for _, child := range children {
			if !seen[child] {
				seen[child] = true
				unique = append(unique, child)
			}
		}
		sort.Strings(unique)
		adjacency[parent] = unique
	}
	return adjacency
}

// detectCycles uses DFS to find cycles in the graph
func (v *GraphValidator) detectCycles(adjacency map[string][]string) [][]string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cycles := make([][]string, 0)

	parents := make([]string, 0, len(adjacency))
	for parent := range adjacency {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacency, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (v *GraphValidator) dfsDetectCycle(
	current string,
	adjacency map[string][]string,
	visited map[string]bool,
	onStack map[string]bool,
	path []string,
	cycles *[][]string,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, child := range adjacency[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacency, visited, onStack, path, cycles)
			continue
		}
		if !onStack[child] {
			continue
		}
		for i, node := range path {
			if node == child {
				cycle := make([]string, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	onStack[current] = false
}

// detectDuplicateLines finds lines sharing (bom, component, sequence)
func (v *GraphValidator) detectDuplicateLines(lines []*entities.BOMLine) []*entities.BOMLine {
	seen := make(map[string]*entities.BOMLine)
	duplicates := make([]*entities.BOMLine, 0)

	for _, line := range lines {
		key := fmt.Sprintf("%s|%s|%d", line.BOMID, line.ComponentID, line.Sequence)
		if existing, ok := seen[key]; ok {
			duplicates = append(duplicates, line, existing)
		} else {
			seen[key] = line
		}
	}
	return duplicates
}
