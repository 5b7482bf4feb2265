package geometry

import "math"

// Point and Rect use page space in points, origin top-left, y grows downward.
type Point struct{ X, Y float64 }

type Rect struct{ X0, Y0, X1, Y1 float64 }

var Empty = Rect{}

func (r Rect) IsEmpty() bool   { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }
func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) Center() Point   { return Point{(r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2} }

// Canon orders the corners so X0<=X1 and Y0<=Y1.
func (r Rect) Canon() Rect {
	return Rect{math.Min(r.X0, r.X1), math.Min(r.Y0, r.Y1), math.Max(r.X0, r.X1), math.Max(r.Y0, r.Y1)}
}

func (r Rect) Inset(d float64) Rect {
	return Rect{r.X0 + d, r.Y0 + d, r.X1 - d, r.Y1 - d}
}

func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{math.Min(r.X0, other.X0), math.Min(r.Y0, other.Y0), math.Max(r.X1, other.X1), math.Max(r.Y1, other.Y1)}
}

func (r Rect) Intersect(other Rect) Rect {
	result := Rect{math.Max(r.X0, other.X0), math.Max(r.Y0, other.Y0), math.Min(r.X1, other.X1), math.Min(r.Y1, other.Y1)}
	if result.IsEmpty() {
		return Empty
	}
	return result
}

func (r Rect) IntersectArea(other Rect) float64 { return r.Intersect(other).Area() }

func Near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
