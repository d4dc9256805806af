package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kuhn subdivision of the unit cube: every tetrahedron runs from the corner
// (0,0,0) to (1,1,1) through one axis step and one face diagonal.
var cubeDirs = [6][2][3]int{
	{{1, 0, 0}, {1, 1, 0}},
	{{1, 0, 0}, {1, 0, 1}},
	{{0, 1, 0}, {1, 1, 0}},
	{{0, 0, 1}, {1, 0, 1}},
	{{0, 1, 0}, {0, 1, 1}},
	{{0, 0, 1}, {0, 1, 1}},
}

// SignedVolume returns the scalar triple product (d-a) . ((b-a) x (c-a)), which is
// six times the signed volume of the tetrahedron abcd. It is positive when the
// normal of triangle abc (right-hand rule) points towards d.
func SignedVolume(a, b, c, d mgl64.Vec3) float64 {
	return d.Sub(a).Dot(b.Sub(a).Cross(c.Sub(a)))
}

// Centroid returns the average of the four corners of tet.
func Centroid(vertices []mgl64.Vec3, tet Tet) mgl64.Vec3 {
	var c mgl64.Vec3
	for _, v := range tet {
		c = c.Add(vertices[v])
	}
	return c.Mul(0.25)
}

// maxEdge returns the longest of the six edges of abcd.
func maxEdge(a, b, c, d mgl64.Vec3) float64 {
	m := b.Sub(a).Len()
	m = math.Max(m, c.Sub(a).Len())
	m = math.Max(m, d.Sub(a).Len())
	m = math.Max(m, c.Sub(b).Len())
	m = math.Max(m, d.Sub(b).Len())
	m = math.Max(m, d.Sub(c).Len())
	return m
}

// Contains reports whether p lies inside or on the tetrahedron, by checking that
// p is never on the opposite side of a face from the remaining corner.
// It is the brute-force reference used to validate accelerated queries.
func Contains(vertices []mgl64.Vec3, tet Tet, p mgl64.Vec3) bool {
	a, b, c, d := vertices[tet[0]], vertices[tet[1]], vertices[tet[2]], vertices[tet[3]]
	vol := SignedVolume(a, b, c, d)
	if vol == 0 {
		return false
	}

	// Each sub-volume replaces one corner by p and must keep the sign of vol.
	subs := [4]float64{
		SignedVolume(p, b, c, d),
		SignedVolume(a, p, c, d),
		SignedVolume(a, b, p, d),
		SignedVolume(a, b, c, p),
	}
	for _, s := range subs {
		if s != 0 && math.Signbit(s) != math.Signbit(vol) {
			return false
		}
	}

	return true
}

// GridMesh builds a structured box mesh of nx*ny*nz cubes of the given edge
// length, each split into 6 tetrahedra. Tetrahedra are listed cube by cube,
// x fastest, and are not consistently oriented.
func GridMesh(nx, ny, nz int, spacing float64, origin mgl64.Vec3) ([]mgl64.Vec3, []Tet) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, nil
	}

	index := func(i, j, k int) int {
		return i + (nx+1)*(j+(ny+1)*k)
	}

	vertices := make([]mgl64.Vec3, 0, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				vertices = append(vertices, origin.Add(mgl64.Vec3{
					float64(i) * spacing,
					float64(j) * spacing,
					float64(k) * spacing,
				}))
			}
		}
	}

	tets := make([]Tet, 0, nx*ny*nz*len(cubeDirs))
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for _, dir := range cubeDirs {
					u, v := dir[0], dir[1]
					tets = append(tets, Tet{
						index(i, j, k),
						index(i+u[0], j+u[1], k+u[2]),
						index(i+v[0], j+v[1], k+v[2]),
						index(i+1, j+1, k+1),
					})
				}
			}
		}
	}

	return vertices, tets
}
