package domain

// Spiral returns the quarter-spiral fill order of an n×n grid.
//
// Each concentric layer L contributes its top row left to right, its right column
// top to bottom, and its bottom row right to left. The left column is never walked,
// so for n >= 3 the order is shorter than n*n; cells skipped here are reached by the
// bottom-row pass of a smaller grid before the grid grows past them.
func Spiral(n int) []Coord {
	if n < 1 {
		return nil
	}
	order := make([]Coord, 0, n*n)
	for layer := 0; layer < n; layer++ {
		end := n - layer - 1

		for col := layer; col <= end; col++ {
			order = append(order, Coord{Row: layer, Col: col})
		}
		for row := layer + 1; row <= end; row++ {
			order = append(order, Coord{Row: row, Col: end})
		}
		for col := end - 1; col >= layer; col-- {
			order = append(order, Coord{Row: end, Col: col})
		}
	}
	return order
}
