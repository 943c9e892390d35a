package algo

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BuildTour computes an approximate minimum weight closed walk visiting every node.
//
// The construction is Christofides style on the metric closure of the graph:
// Prim MST, greedy perfect matching of odd degree vertices, Hierholzer circuit,
// shortcut of repeated visits. The Hamiltonian cycle is then improved with
// first-improvement 2-opt while the time budget lasts, and every leg is expanded
// back into the shortest road path so that consecutive walk nodes are adjacent.
//
// Ties are always broken by the lowest node index, so for a fixed graph the
// result only depends on whether refinement finished within its budget.
func (g *Graph) BuildTour(ctx context.Context, opts TourOptions) (*Tour, error) {
	n := len(g.nodes)
	if n == 0 {
		return nil, ErrEmptyGraph
	}
	if !g.Connected() {
		return nil, ErrDisconnectedGraph
	}
	if limit := maxNodes(opts.MaxNodes); limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: %d nodes, limit %d", ErrGraphTooLarge, n, limit)
	}
	if n == 1 {
		return &Tour{Walk: []int{0, 0}, Cycle: []int{0, 0}, Refined: true}, nil
	}

	c, err := g.metricClosure(ctx)
	if err != nil {
		return nil, err
	}

	mstAdj, err := minimumSpanningTree(ctx, c)
	if err != nil {
		return nil, err
	}
	odd := make([]int, 0, n/2+1)
	for v := 0; v < n; v++ {
		if len(mstAdj[v])&1 == 1 {
			odd = append(odd, v)
		}
	}
	greedyMatch(odd, c, mstAdj)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("matching interrupted: %w (%v)", ErrTimeoutExceeded, err)
	}
	euler := eulerianCircuit(mstAdj, 0)
	cycle := shortcut(euler, n, 0)
	canonicalizeOrientation(cycle)
	if err := validateCycle(cycle, n); err != nil {
		log.Panicf("christofides produced an invalid cycle: %v", err)
	}

	tour := &Tour{Cycle: cycle}
	if opts.DisableRefinement {
		log.Debugf("2-opt disabled, keeping christofides cycle over %d nodes", n)
	} else {
		ctxDeadline, hasCtxDeadline := ctx.Deadline()
		deadline, useDeadline := refinementDeadline(opts.TimeLimit, ctxDeadline, hasCtxDeadline)
		refined, moves, err := twoOpt(ctx, c, cycle, opts.MaxPasses, deadline, useDeadline)
		if err != nil {
			// fall back to the unrefined cycle
			log.Warnf("2-opt abandoned after %d moves on %d nodes: %v", moves, n, err)
			tour.TimedOut = true
		} else {
			log.Debugf("2-opt finished with %d moves on %d nodes", moves, n)
			tour.Cycle = refined
			tour.Refined = true
		}
	}

	tour.Walk = expand(c, tour.Cycle)
	for i := 0; i+1 < len(tour.Cycle); i++ {
		tour.Cost += c.at(tour.Cycle[i], tour.Cycle[i+1])
	}
	return tour, nil
}

// minimumSpanningTree is Prim on the dense closure, O(n^2). The lowest index wins ties.
func minimumSpanningTree(ctx context.Context, c *closure) ([][]int, error) {
	n := len(c.dist)
	inMST := make([]bool, n)
	bestCost := make([]float64, n)
	parents := make([]int, n)
	adj := make([][]int, n)
	for v := range bestCost {
		bestCost[v] = math.Inf(0)
		parents[v] = -1
	}
	bestCost[0] = 0
	for it := 0; it < n; it++ {
		if it%DEADLINE_CHECK_STEP == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("spanning tree interrupted at node %d/%d: %w (%v)", it, n, ErrTimeoutExceeded, err)
			}
		}
		u, minW := -1, math.Inf(0)
		for v := 0; v < n; v++ {
			if !inMST[v] && bestCost[v] < minW {
				minW, u = bestCost[v], v
			}
		}
		if u < 0 {
			// unreachable on a connected graph
			log.Panicf("closure is not complete, %d/%d nodes spanned", it, n)
		}
		inMST[u] = true
		if p := parents[u]; p >= 0 {
			adj[u] = append(adj[u], p)
			adj[p] = append(adj[p], u)
		}
		for v := 0; v < n; v++ {
			if !inMST[v] && c.at(u, v) < bestCost[v] {
				bestCost[v] = c.at(u, v)
				parents[v] = u
			}
		}
	}
	return adj, nil
}

// greedyMatch pairs every odd vertex with its nearest unmatched odd vertex and
// adds the pair as a parallel edge of the multigraph.
func greedyMatch(odd []int, c *closure, adj [][]int) {
	remaining := append([]int(nil), odd...)
	for len(remaining) > 1 {
		u := remaining[0]
		remaining = remaining[1:]
		bestIdx, bestD := 0, math.Inf(0)
		for i, v := range remaining {
			if d := c.at(u, v); d < bestD {
				bestD, bestIdx = d, i
			}
		}
		v := remaining[bestIdx]
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
}

// eulerianCircuit is Hierholzer on the multigraph adj, starting and ending at start.
func eulerianCircuit(adj [][]int, start int) []int {
	local := make([][]int, len(adj))
	for u := range adj {
		local[u] = append([]int(nil), adj[u]...)
	}
	circuit := make([]int, 0, len(adj)*2)
	stack := []int{start}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		if len(local[u]) == 0 {
			circuit = append(circuit, u)
			stack = stack[:len(stack)-1]
			continue
		}
		v := local[u][len(local[u])-1]
		local[u] = local[u][:len(local[u])-1]
		for i, x := range local[v] {
			if x == u {
				local[v] = append(local[v][:i], local[v][i+1:]...)
				break
			}
		}
		stack = append(stack, v)
	}
	return circuit
}

// shortcut drops repeated visits of the Eulerian circuit and closes the cycle at start.
func shortcut(euler []int, n, start int) []int {
	seen := make([]bool, n)
	cycle := make([]int, 0, n+1)
	for _, v := range euler {
		if !seen[v] {
			seen[v] = true
			cycle = append(cycle, v)
		}
	}
	if cycle[0] != start {
		log.Panicf("eulerian circuit starts at %d instead of %d", cycle[0], start)
	}
	return append(cycle, start)
}

// canonicalizeOrientation reverses the interior of the cycle so that the
// second vertex has a lower index than the penultimate one.
func canonicalizeOrientation(cycle []int) {
	n := len(cycle) - 1
	if n < 3 || cycle[1] < cycle[n-1] {
		return
	}
	for i, j := 1, n-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
}

func validateCycle(cycle []int, n int) error {
	if len(cycle) != n+1 {
		return fmt.Errorf("cycle has %d entries, want %d", len(cycle), n+1)
	}
	if cycle[0] != cycle[n] {
		return fmt.Errorf("cycle is not closed: %d != %d", cycle[0], cycle[n])
	}
	seen := make([]bool, n)
	for _, v := range cycle[:n] {
		if v < 0 || v >= n || seen[v] {
			return fmt.Errorf("vertex %d repeated or out of range", v)
		}
		seen[v] = true
	}
	return nil
}

// twoOpt runs deterministic first-improvement 2-opt on a closed cycle and returns
// the improved copy. maxMoves bounds the accepted moves (0 = local optimum).
func twoOpt(ctx context.Context, c *closure, cycle []int, maxMoves int, deadline time.Time, useDeadline bool) ([]int, int, error) {
	n := len(cycle) - 1
	cur := append([]int(nil), cycle...)
	if n < 4 {
		return cur, 0, nil
	}
	step := 0
	expired := func() error {
		step++
		if step%DEADLINE_CHECK_STEP != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrTimeoutExceeded, err)
		}
		if useDeadline && time.Now().After(deadline) {
			return ErrTimeoutExceeded
		}
		return nil
	}
	moves := 0
	for {
		improved := false
	scan:
		for i := 1; i <= n-2; i++ {
			for k := i + 1; k <= n-1; k++ {
				if err := expired(); err != nil {
					return nil, moves, err
				}
				a, b, cc, d := cur[i-1], cur[i], cur[k], cur[k+1]
				delta := c.at(a, cc) + c.at(b, d) - c.at(a, b) - c.at(cc, d)
				if delta < -EPS {
					for l, r := i, k; l < r; l, r = l+1, r-1 {
						cur[l], cur[r] = cur[r], cur[l]
					}
					moves++
					improved = true
					break scan
				}
			}
		}
		if !improved || (maxMoves > 0 && moves >= maxMoves) {
			return cur, moves, nil
		}
	}
}

// expand replaces every closure leg of the cycle with its shortest road path.
func expand(c *closure, cycle []int) []int {
	walk := make([]int, 0, len(cycle)*2)
	walk = append(walk, cycle[0])
	for i := 0; i+1 < len(cycle); i++ {
		walk = append(walk, c.path(cycle[i], cycle[i+1])...)
	}
	return walk
}
