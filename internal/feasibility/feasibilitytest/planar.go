// Package feasibilitytest provides an exact two-variable feasibility checker
// for tests. It clips the sign box by every half-plane and reports whether
// anything remains, with no LP solver involved.
package feasibilitytest

import (
	"fmt"
	"sync/atomic"

	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

const eps = 1e-12

// Point is a vertex of the clipped polygon.
type Point struct{ X, Y float64 }

// Planar implements feasibility.Oracle for dimension 2 only.
type Planar struct {
	// Calls counts Feasible invocations.
	Calls atomic.Int64
}

// Feasible reports whether the clipped polygon is non-empty.
func (p *Planar) Feasible(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (bool, error) {
	p.Calls.Add(1)
	poly, err := Polygon(dimension, constraints, negative, 0)
	if err != nil {
		return false, err
	}
	return len(poly) > 0, nil
}

// Polygon clips the sign box by every constraint side. slack is added to the
// right-hand side of every constraint side, so a positive slack loosens the
// system and a negative slack tightens it.
func Polygon(dimension int, constraints []region.Constraint, negative scoring.NegativeSet, slack float64) ([]Point, error) {
	if dimension != 2 {
		return nil, fmt.Errorf("planar checker supports dimension 2, got %d", dimension)
	}

	lo0, hi0 := region.Box(0, negative)
	lo1, hi1 := region.Box(1, negative)
	poly := []Point{{lo0, lo1}, {hi0, lo1}, {hi0, hi1}, {lo0, hi1}}

	for _, c := range constraints {
		if c.Dimension() != 2 {
			return nil, fmt.Errorf("constraint has dimension %d", c.Dimension())
		}
		a, b := c.Coefficients[0], c.Coefficients[1]
		if c.Upper != nil {
			poly = clip(poly, a, b, *c.Upper+slack)
		}
		if c.Lower != nil {
			poly = clip(poly, -a, -b, -*c.Lower+slack)
		}
		if len(poly) == 0 {
			return nil, nil
		}
	}
	return poly, nil
}

// Area returns the polygon's area by the shoelace formula.
func Area(poly []Point) float64 {
	var s float64
	for i := range poly {
		j := (i + 1) % len(poly)
		s += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	if s < 0 {
		s = -s
	}
	return s / 2
}

// clip keeps the part of poly where a*x + b*y <= rhs (Sutherland-Hodgman).
func clip(poly []Point, a, b, rhs float64) []Point {
	inside := func(p Point) bool { return a*p.X+b*p.Y <= rhs+eps }
	var out []Point
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		curIn, nextIn := inside(cur), inside(next)
		if curIn {
			out = append(out, cur)
		}
		if curIn != nextIn {
			fc := a*cur.X + b*cur.Y - rhs
			fn := a*next.X + b*next.Y - rhs
			t := fc / (fc - fn)
			out = append(out, Point{cur.X + t*(next.X-cur.X), cur.Y + t*(next.Y-cur.Y)})
		}
	}
	return out
}
