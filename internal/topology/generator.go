// Package topology builds scale-free channel networks by preferential attachment.
package topology

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

// ErrInvalidParameter is returned for generation arguments outside n >= m >= 1
var ErrInvalidParameter = errors.New("invalid topology parameter")

// Source is the random stream consumed by Generate
type Source interface {
	Intn(n int) int
}

// Graph is the output of Generate. Degrees is indexed by node and is consistent
// with Edges; Degraded lists nodes that attached with fewer than M edges because
// the candidate pool was too small.
type Graph struct {
	N        int
	M        int
	Edges    []models.Edge
	Degrees  []int
	Degraded []int
}

// MaxEdges returns the edge count of a graph in which every node attached fully:
// the seed clique plus m edges per later node.
func MaxEdges(n, m int) int {
	return m*(m-1)/2 + m*(n-m)
}

// Generate grows a Barabasi-Albert graph over nodes [0, n). The first m nodes
// form a clique; every later node i draws min(m, pool) slots without
// replacement from a pool where each existing node j < i holds degree[j] slots,
// and links to the owner of each slot. A node drawn twice gets two parallel
// edges. Edges are returned in creation order as (new node, existing node).
func Generate(n, m int, rng Source) (*Graph, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: m must be at least 1, got %d", ErrInvalidParameter, m)
	}
	if n < m {
		return nil, fmt.Errorf("%w: n (%d) must not be less than m (%d)", ErrInvalidParameter, n, m)
	}

	g := &Graph{
		N:       n,
		M:       m,
		Edges:   make([]models.Edge, 0, MaxEdges(n, m)),
		Degrees: make([]int, n),
	}

	pool := newFenwick(n)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			g.Edges = append(g.Edges, models.Edge{U: i, V: j})
		}
		g.Degrees[i] = m - 1
		pool.add(i, m-1)
	}

	chosen := make([]int, 0, m)
	for i := m; i < n; i++ {
		chosen = chosen[:0]

		if m == 1 && i == 1 {
			// node 0 has no edges yet; it is the only candidate
			chosen = append(chosen, 0)
		} else {
			draws := min(m, pool.total)
			for d := 0; d < draws; d++ {
				j := pool.find(rng.Intn(pool.total))
				pool.add(j, -1)
				chosen = append(chosen, j)
			}
			for _, j := range chosen {
				pool.add(j, 1)
			}
		}

		if len(chosen) < m {
			g.Degraded = append(g.Degraded, i)
		}

		for _, j := range chosen {
			g.Edges = append(g.Edges, models.Edge{U: i, V: j})
			g.Degrees[i]++
			g.Degrees[j]++
			pool.add(j, 1)
		}
		pool.add(i, g.Degrees[i])
	}

	return g, nil
}

// DegreeDistribution returns the per-node degrees and their frequency table
func (g *Graph) DegreeDistribution() models.DegreeDistribution {
	return models.NewDegreeDistribution(g.Degrees)
}

// Validate re-checks the structural invariants of a generated graph
func (g *Graph) Validate() error {
	if len(g.Degrees) != g.N {
		return fmt.Errorf("degree table has %d entries for %d nodes", len(g.Degrees), g.N)
	}
	if len(g.Edges) > MaxEdges(g.N, g.M) {
		return fmt.Errorf("%d edges exceeds bound %d", len(g.Edges), MaxEdges(g.N, g.M))
	}

	counted := make([]int, g.N)
	for k, e := range g.Edges {
		if e.U < 0 || e.U >= g.N || e.V < 0 || e.V >= g.N {
			return fmt.Errorf("edge %d (%d, %d) has an endpoint outside [0, %d)", k, e.U, e.V, g.N)
		}
		if e.U == e.V {
			return fmt.Errorf("edge %d is a self loop on node %d", k, e.U)
		}
		counted[e.U]++
		counted[e.V]++
	}
	for node, d := range counted {
		if d != g.Degrees[node] {
			return fmt.Errorf("node %d has %d incident edges but degree %d", node, d, g.Degrees[node])
		}
	}
	return nil
}
