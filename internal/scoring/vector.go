package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// Vector is an ordered list of attribute values or utility weights.
type Vector []float64

// Dot returns the inner product of v and o. Both must have the same length.
func (v Vector) Dot(o Vector) float64 {
	mustSameLen(v, o)
	var total float64
	for i := range v {
		total += v[i] * o[i]
	}
	return total
}

// Sub returns v - o as a new vector.
func (v Vector) Sub(o Vector) Vector {
	mustSameLen(v, o)
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] - o[i]
	}
	return out
}

// Scale returns s*v as a new vector.
func (v Vector) Scale(s float64) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

// Clone returns a copy of v that shares no memory with it.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and o have the same length and identical values.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func mustSameLen(a, b Vector) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("scoring: vector length mismatch %d != %d", len(a), len(b)))
	}
}
