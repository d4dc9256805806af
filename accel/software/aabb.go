package software

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// emptyAABB returns a box that any Grow call replaces.
func emptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Grow extends the box to contain p
func (a AABB) Grow(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math32.Min(a.Min[i], p[i])
		a.Max[i] = math32.Max(a.Max[i], p[i])
	}
	return a
}

// Union returns the smallest box containing both boxes
func (a AABB) Union(other AABB) AABB {
	return a.Grow(other.Min).Grow(other.Max)
}

// Pad enlarges the box by eps on every side
func (a AABB) Pad(eps float32) AABB {
	e := mgl32.Vec3{eps, eps, eps}
	return AABB{Min: a.Min.Sub(e), Max: a.Max.Add(e)}
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// LongestAxis returns 0, 1 or 2 for the axis with the largest extent
func (a AABB) LongestAxis() int {
	extent := a.Max.Sub(a.Min)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}
	return axis
}

// HitRay reports whether the ray origin + t*dir, tMin <= t <= tMax, crosses the
// box. invDir holds the component-wise inverse of dir.
func (a AABB) HitRay(origin, invDir mgl32.Vec3, tMin, tMax float32) bool {
	for i := 0; i < 3; i++ {
		t1 := (a.Min[i] - origin[i]) * invDir[i]
		t2 := (a.Max[i] - origin[i]) * invDir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}
