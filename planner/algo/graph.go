package algo

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

type node struct {
	id int64
	p  geometry.Point // X=lon, Y=lat
}

// Graph is an undirected weighted road graph addressed by dense node indices.
// It is built once per request and only read afterwards.
type Graph struct {
	nodes []node
	// adjacency list, neighbors kept in insertion order
	edges [][]arc
	// number of distinct undirected edges
	edgeCount int
}

func NewGraph(capacity int) *Graph {
	return &Graph{
		nodes: make([]node, 0, capacity),
		edges: make([][]arc, 0, capacity),
	}
}

// InitNode appends a node and returns its index. Indices are the tie-breaking
// order of every algorithm in this package, so callers add nodes sorted by ID.
func (g *Graph) InitNode(id int64, p geometry.Point) int {
	g.nodes = append(g.nodes, node{id: id, p: p})
	g.edges = append(g.edges, make([]arc, 0, 4))
	return len(g.nodes) - 1
}

// InitEdge adds an undirected edge. A parallel edge only lowers the existing weight.
func (g *Graph) InitEdge(u, v int, w float64) {
	if u >= len(g.nodes) || v >= len(g.nodes) || u < 0 || v < 0 {
		log.Panicf("edge (%d,%d) references a missing node, graph has %d nodes", u, v, len(g.nodes))
	}
	if u == v {
		log.Panicf("self loop on node %d", u)
	}
	for i, a := range g.edges[u] {
		if a.to == v {
			if w < a.w {
				g.edges[u][i].w = w
				for j, b := range g.edges[v] {
					if b.to == u {
						g.edges[v][j].w = w
					}
				}
			}
			return
		}
	}
	g.edges[u] = append(g.edges[u], arc{to: v, w: w})
	g.edges[v] = append(g.edges[v], arc{to: u, w: w})
	g.edgeCount++
}

func (g *Graph) Len() int       { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return g.edgeCount }

func (g *Graph) ID(i int) int64             { return g.nodes[i].id }
func (g *Graph) Point(i int) geometry.Point { return g.nodes[i].p }

func (g *Graph) Points(indices []int) []geometry.Point {
	return lo.Map(indices, func(i int, _ int) geometry.Point {
		return g.nodes[i].p
	})
}

func (g *Graph) IDs(indices []int) []int64 {
	return lo.Map(indices, func(i int, _ int) int64 {
		return g.nodes[i].id
	})
}

// EdgeWeight returns the weight of the direct edge u-v.
func (g *Graph) EdgeWeight(u, v int) (float64, bool) {
	for _, a := range g.edges[u] {
		if a.to == v {
			return a.w, true
		}
	}
	return math.Inf(0), false
}

// Connected reports whether every node is reachable from node 0.
func (g *Graph) Connected() bool {
	n := len(g.nodes)
	if n == 0 {
		return true
	}
	seen := make([]bool, n)
	seen[0] = true
	queue := []int{0}
	count := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range g.edges[cur] {
			if !seen[a.to] {
				seen[a.to] = true
				count++
				queue = append(queue, a.to)
			}
		}
	}
	return count == n
}

// shortestPathTree runs Dijkstra from start and returns distances and predecessors.
func (g *Graph) shortestPathTree(start int) ([]float64, []int32) {
	n := len(g.nodes)
	dist := make([]float64, n)
	prev := make([]int32, n)
	for i := range dist {
		dist[i] = math.Inf(0)
		prev[i] = -1
	}
	dist[start] = 0
	openSet := make(PriorityQueue, 0, n)
	openSetMap := make(map[int]*Item, n)
	item := &Item{Value: start, Priority: 0}
	heap.Push(&openSet, item)
	openSetMap[start] = item
	done := make([]bool, n)
	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		done[cur] = true
		for _, a := range g.edges[cur] {
			if done[a.to] {
				continue
			}
			tentative := dist[cur] + a.w
			// equal cost paths keep the lower predecessor index
			if tentative < dist[a.to] || (tentative == dist[a.to] && int32(cur) < prev[a.to]) {
				dist[a.to] = tentative
				prev[a.to] = int32(cur)
				if it, ok := openSetMap[a.to]; ok {
					it.Priority = tentative
					heap.Fix(&openSet, it.Index)
				} else {
					it := &Item{Value: a.to, Priority: tentative}
					heap.Push(&openSet, it)
					openSetMap[a.to] = it
				}
			}
		}
	}
	return dist, prev
}

// ShortestPath returns the node indices from start to end (both included) and the path length.
func (g *Graph) ShortestPath(start, end int) ([]int, float64) {
	if start == end {
		return []int{start}, 0
	}
	dist, prev := g.shortestPathTree(start)
	if math.IsInf(dist[end], 0) {
		return nil, math.Inf(0)
	}
	return reconstructPath(prev, start, end), dist[end]
}

func reconstructPath(prev []int32, start, end int) []int {
	pathBeforeReversed := []int{end}
	for cur := end; cur != start; {
		cur = int(prev[cur])
		pathBeforeReversed = append(pathBeforeReversed, cur)
	}
	return lo.Reverse(pathBeforeReversed)
}

// closure is the all pairs shortest path structure of a connected graph.
type closure struct {
	dist [][]float64
	prev [][]int32
}

func (c *closure) at(u, v int) float64 { return c.dist[u][v] }

// path expands the closure leg u->v into graph nodes, u excluded, v included.
func (c *closure) path(u, v int) []int {
	if u == v {
		return nil
	}
	return reconstructPath(c.prev[u], u, v)[1:]
}

func (g *Graph) metricClosure(ctx context.Context) (*closure, error) {
	n := len(g.nodes)
	c := &closure{
		dist: make([][]float64, n),
		prev: make([][]int32, n),
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("metric closure interrupted at node %d/%d: %w (%v)", i, n, ErrTimeoutExceeded, err)
		}
		c.dist[i], c.prev[i] = g.shortestPathTree(i)
	}
	return c, nil
}
