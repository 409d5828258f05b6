package scoring

// FastPathSkip returns true if candidate can be discarded against best without
// solving an LP: best dominates candidate under the attribute signs, so
// candidate·w <= best·w everywhere in the sign box, and that bound is also
// below (1+eps)·best·w + delta. The second part needs eps == 0 or best·w >= 0
// across the box (every signed coordinate of best non-negative).
func FastPathSkip(candidate, best Vector, negative NegativeSet, eps float64) bool {
	if !Dominates(best, candidate, negative) {
		return false
	}
	if eps == 0 {
		return true
	}
	return NonNegativeOnBox(best, negative)
}

// FastPathDominates returns true if candidate dominates best under the
// attribute signs, meaning no weight in the sign box ranks best above
// candidate by a positive margin.
func FastPathDominates(candidate, best Vector, negative NegativeSet) bool {
	return Dominates(candidate, best, negative)
}

// NonNegativeOnBox reports whether v·w >= 0 for every w in the sign box.
func NonNegativeOnBox(v Vector, negative NegativeSet) bool {
	for i := range v {
		if negative.Sign(i)*v[i] < 0 {
			return false
		}
	}
	return true
}
