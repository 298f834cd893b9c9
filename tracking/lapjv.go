package tracking

import (
	"math"

	"github.com/pkg/errors"
)

// solveAssignment solves the n x n linear assignment problem exactly with
// the Jonker-Volgenant algorithm: column reduction, two rounds of
// augmenting row reduction, then shortest augmenting paths for the rows
// still free. Returns rowToCol, where rowToCol[i] is the column assigned
// to row i. The solution minimizes total cost and is deterministic for
// identical inputs.
func solveAssignment(cost [][]float64) ([]int, error) {
	n := len(cost)
	rowToCol := make([]int, n)
	if n == 0 {
		return rowToCol, nil
	}
	colToRow := make([]int, n)
	prices := make([]float64, n)
	freeRows := make([]int, n)

	nFree := reduceColumns(n, cost, freeRows, rowToCol, colToRow, prices)
	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = augmentRows(n, cost, nFree, freeRows, rowToCol, colToRow, prices)
	}
	if nFree > 0 {
		if err := augment(n, cost, nFree, freeRows, rowToCol, colToRow, prices); err != nil {
			return nil, err
		}
	}
	return rowToCol, nil
}

// reduceColumns performs column reduction and reduction transfer, seeding
// the dual prices and an initial partial assignment.
func reduceColumns(n int, cost [][]float64, freeRows, rowToCol, colToRow []int, prices []float64) int {
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		rowToCol[i] = -1
		prices[i] = math.Inf(1)
		colToRow[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < prices[j] {
				prices[j] = c
				colToRow[j] = i
			}
		}
	}

	for i := 0; i < n; i++ {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := colToRow[j]
		if rowToCol[i] < 0 {
			rowToCol[i] = j
		} else {
			unique[i] = false
			colToRow[j] = -1
		}
	}

	nFree := 0
	for i := 0; i < n; i++ {
		if rowToCol[i] < 0 {
			freeRows[nFree] = i
			nFree++
		} else if unique[i] {
			j := rowToCol[i]
			minSlack := math.Inf(1)
			for j2 := 0; j2 < n; j2++ {
				if j2 == j {
					continue
				}
				if c := cost[i][j2] - prices[j2]; c < minSlack {
					minSlack = c
				}
			}
			prices[j] -= minSlack
		}
	}
	return nFree
}

// augmentRows performs one round of augmenting row reduction over the rows
// left free by the column reduction.
func augmentRows(n int, cost [][]float64, nFree int, freeRows, rowToCol, colToRow []int, prices []float64) int {
	current := 0
	newFree := 0
	rounds := 0

	for current < nFree {
		rounds++
		freeRow := freeRows[current]
		current++

		// Two smallest reduced costs in the free row
		j1 := 0
		v1 := cost[freeRow][0] - prices[0]
		j2 := -1
		v2 := math.Inf(1)
		for j := 1; j < n; j++ {
			c := cost[freeRow][j] - prices[j]
			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		bumpedRow := colToRow[j1]
		lowered := prices[j1]-(v2-v1) < prices[j1]

		if rounds < current*n {
			if lowered {
				prices[j1] -= v2 - v1
			} else if bumpedRow >= 0 && j2 >= 0 {
				j1 = j2
				bumpedRow = colToRow[j2]
			}
			if bumpedRow >= 0 {
				if lowered {
					current--
					freeRows[current] = bumpedRow
				} else {
					freeRows[newFree] = bumpedRow
					newFree++
				}
			}
		} else if bumpedRow >= 0 {
			freeRows[newFree] = bumpedRow
			newFree++
		}

		rowToCol[freeRow] = j1
		colToRow[j1] = freeRow
	}
	return newFree
}

// minColumns moves every TODO column whose distance equals the minimum to
// the SCAN region and returns the new SCAN upper bound.
func minColumns(n, lo int, dist []float64, cols, colToRow []int) int {
	hi := lo + 1
	minDist := dist[cols[lo]]
	for k := hi; k < n; k++ {
		j := cols[k]
		if dist[j] <= minDist {
			if dist[j] < minDist {
				hi = lo
				minDist = dist[j]
			}
			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}
	return hi
}

// scanColumns relaxes the TODO columns through the columns on the SCAN
// list, returning an unassigned column as soon as it becomes reachable at
// the current minimum.
func scanColumns(n int, cost [][]float64, lo, hi *int, dist []float64, cols, pred, colToRow []int, prices []float64) int {
	for *lo != *hi {
		j := cols[*lo]
		*lo++
		i := colToRow[j]
		minDist := dist[j]
		h := cost[i][j] - prices[j] - minDist

		for k := *hi; k < n; k++ {
			j = cols[k]
			if reduced := cost[i][j] - prices[j] - h; reduced < dist[j] {
				dist[j] = reduced
				pred[j] = i
				if reduced == minDist {
					if colToRow[j] < 0 {
						return j
					}
					cols[k] = cols[*hi]
					cols[*hi] = j
					(*hi)++
				}
			}
		}
	}
	return -1
}

// shortestPath runs one modified Dijkstra iteration from a free row and
// returns the unassigned column ending the augmenting path.
func shortestPath(n int, cost [][]float64, startRow int, colToRow []int, prices []float64, pred []int) int {
	lo, hi := 0, 0
	finalCol := -1
	nReady := 0
	cols := make([]int, n)
	dist := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startRow
		dist[j] = cost[startRow][j] - prices[j]
	}

	for finalCol == -1 {
		if lo == hi {
			nReady = lo
			hi = minColumns(n, lo, dist, cols, colToRow)
			for k := lo; k < hi; k++ {
				if j := cols[k]; colToRow[j] < 0 {
					finalCol = j
				}
			}
		}
		if finalCol == -1 {
			finalCol = scanColumns(n, cost, &lo, &hi, dist, cols, pred, colToRow, prices)
		}
	}

	minDist := dist[cols[lo]]
	for k := 0; k < nReady; k++ {
		j := cols[k]
		prices[j] += dist[j] - minDist
	}
	return finalCol
}

// augment finds a shortest augmenting path for every remaining free row
// and flips the assignments along it.
func augment(n int, cost [][]float64, nFree int, freeRows, rowToCol, colToRow []int, prices []float64) error {
	pred := make([]int, n)

	for _, freeRow := range freeRows[:nFree] {
		j := shortestPath(n, cost, freeRow, colToRow, prices, pred)
		if j < 0 || j >= n {
			return errors.Errorf("augmenting path ended at invalid column %d", j)
		}

		i := -1
		for steps := 0; i != freeRow; steps++ {
			if steps >= n {
				return errors.New("augmenting path longer than matrix size")
			}
			i = pred[j]
			colToRow[j] = i
			j, rowToCol[i] = rowToCol[i], j
		}
	}
	return nil
}
