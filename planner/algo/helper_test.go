package algo_test

import (
	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/patrol/planner/algo"
)

// newSquare builds the 4-cycle (0,0)-(0,1)-(1,1)-(1,0) given as (lat, lon) with unit weights.
func newSquare() *algo.Graph {
	g := algo.NewGraph(4)
	n1 := g.InitNode(1, geometry.Point{X: 0, Y: 0})
	n2 := g.InitNode(2, geometry.Point{X: 1, Y: 0})
	n3 := g.InitNode(3, geometry.Point{X: 1, Y: 1})
	n4 := g.InitNode(4, geometry.Point{X: 0, Y: 1})
	g.InitEdge(n1, n2, 1)
	g.InitEdge(n2, n3, 1)
	g.InitEdge(n3, n4, 1)
	g.InitEdge(n4, n1, 1)
	return g
}

// newGrid builds a rows x cols lattice with unit spacing and unit weights.
func newGrid(rows, cols int) *algo.Graph {
	g := algo.NewGraph(rows * cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.InitNode(int64(r*cols+c+1), geometry.Point{X: float64(c), Y: float64(r)})
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if c+1 < cols {
				g.InitEdge(i, i+1, 1)
			}
			if r+1 < rows {
				g.InitEdge(i, i+cols, 1)
			}
		}
	}
	return g
}
