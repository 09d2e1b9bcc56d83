package variational

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// UpdateOrder sorts propagated bodies so that every body comes after the
// propagated body it is defined relative to. centrals[i] is the reference of
// bodies[i]; references outside bodies are fixed origins. Ties keep input
// order.
func UpdateOrder(bodies, centrals []string) ([]string, error) {
	if len(bodies) != len(centrals) {
		return nil, fmt.Errorf("%w: %d bodies, %d central bodies", ErrDimensionMismatch, len(bodies), len(centrals))
	}

	ids := make(map[string]int64, len(bodies))
	g := simple.NewDirectedGraph()
	for i, b := range bodies {
		ids[b] = int64(i)
		g.AddNode(simple.Node(i))
	}

	for i, c := range centrals {
		from, ok := ids[c]
		if !ok {
			continue
		}
		if from == int64(i) {
			return nil, &StructuralError{Op: "update order", Body: bodies[i], Err: ErrCentralBodyCycle}
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(i)))
	}

	if _, err := topo.SortStabilized(g, byID); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 && len(cycles[0]) > 0 {
			return nil, &StructuralError{Op: "update order", Body: bodies[cycles[0][0].ID()], Err: ErrCentralBodyCycle}
		}
		return nil, fmt.Errorf("%w: %v", ErrCentralBodyCycle, err)
	}

	// Acyclic, so every chain ends at a fixed origin.
	depth := make([]int, len(bodies))
	for i := range bodies {
		for c, ok := ids[centrals[i]]; ok; c, ok = ids[centrals[c]] {
			depth[i]++
		}
	}

	idx := make([]int, len(bodies))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(depth[a], depth[b]) })

	order := make([]string, len(idx))
	for i, j := range idx {
		order[i] = bodies[j]
	}
	return order, nil
}

func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
}
