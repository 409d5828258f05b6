package scoring

// Dominates returns true if a weakly dominates b on every attribute once the
// attribute signs are applied: for positive attributes higher is better, for
// negative attributes lower is better. Equal vectors dominate each other.
//
// When Dominates(a, b) holds, a·w >= b·w for every w inside the sign box, so
// the relation can settle comparisons without consulting a solver.
func Dominates(a, b Vector, negative NegativeSet) bool {
	mustSameLen(a, b)
	for i := range a {
		if negative.Sign(i)*(a[i]-b[i]) < 0 {
			return false
		}
	}
	return true
}

// StrictlyDominates returns true if a dominates b and is strictly better on at
// least one attribute.
func StrictlyDominates(a, b Vector, negative NegativeSet) bool {
	if !Dominates(a, b, negative) {
		return false
	}
	for i := range a {
		if negative.Sign(i)*(a[i]-b[i]) > 0 {
			return true
		}
	}
	return false
}

// ComputeFrontier returns the indices of rows not strictly dominated by any
// other row, in their original order.
// O(n^2) dominance check, intended for reporting on modest datasets.
func ComputeFrontier(rows []Vector, negative NegativeSet) []int {
	if len(rows) <= 1 {
		if len(rows) == 1 {
			return []int{0}
		}
		return nil
	}

	var frontier []int
	for i := range rows {
		dominated := false
		for j := range rows {
			if i == j {
				continue
			}
			if StrictlyDominates(rows[j], rows[i], negative) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, i)
		}
	}
	return frontier
}
