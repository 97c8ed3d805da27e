package domain

// PlanNext finds where the next cell goes. It scans the spiral of the current
// dimension for the first free coordinate and, when that grid is full, grows the
// dimension by one and scans the larger spiral from the start. ok is false only if
// even the grown grid has no free coordinate, which a well-formed state never hits.
// state is not modified.
func PlanNext(state GridState) (next Coord, dimension int, ok bool) {
	filled := state.Filled()
	dimension = state.Dimension
	if dimension < 1 {
		dimension = 1
	}

	if c, found := firstFree(Spiral(dimension), filled); found {
		return c, dimension, true
	}
	if c, found := firstFree(Spiral(dimension+1), filled); found {
		return c, dimension + 1, true
	}
	return Coord{}, state.Dimension, false
}

func firstFree(order []Coord, filled map[Coord]struct{}) (Coord, bool) {
	for _, c := range order {
		if _, taken := filled[c]; !taken {
			return c, true
		}
	}
	return Coord{}, false
}
