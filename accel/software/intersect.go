package software

import "github.com/go-gl/mathgl/mgl32"

// intersectTriangle is a two-sided Möller–Trumbore test. It returns the ray
// parameter of the hit, rejecting hits before tMin; edges and vertices count as
// part of the triangle so that rays cannot slip between two triangles sharing an
// edge.
func intersectTriangle(origin, dir, v0, v1, v2 mgl32.Vec3, tMin float32) (float32, bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	h := dir.Cross(edge2)
	a := edge1.Dot(h)
	if a == 0 {
		return 0, false // parallel to the triangle plane
	}

	f := 1 / a
	s := origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := f * edge2.Dot(q)
	if t < tMin {
		return 0, false
	}

	return t, true
}

// triangleNormal returns the right-hand (unnormalized) normal of v0 v1 v2.
func triangleNormal(v0, v1, v2 mgl32.Vec3) mgl32.Vec3 {
	return v1.Sub(v0).Cross(v2.Sub(v0))
}
