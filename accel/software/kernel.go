package software

import (
	"github.com/akmonengine/tetquery/accel"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// rayDirs are the query directions. None is aligned with an axis or a cube
// diagonal, so rays from structured meshes rarely graze an edge. Only the first
// one is cast unless its exit is ambiguous.
var rayDirs = [...]mgl32.Vec3{
	mgl32.Vec3{0.4217, 0.5731, 0.7027}.Normalize(),
	mgl32.Vec3{-0.6133, 0.3457, 0.7103}.Normalize(),
	mgl32.Vec3{0.2789, -0.8311, 0.4810}.Normalize(),
}

// contactTolerance is the distance, relative to the ray length, under which a
// point counts as lying on a face.
const contactTolerance = 1e-5

// queryKernel resolves the particles of one launch.
type queryKernel struct {
	width     int
	count     int
	isFloat   bool
	floats    []mgl32.Vec3
	doubles   []mgl64.Vec3
	out       []int32
	faces     *bvh
	rayLength float32
}

func (k *queryKernel) particle(i int) mgl32.Vec3 {
	if k.isFloat {
		return k.floats[i]
	}
	p := k.doubles[i]
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}

// run handles launch index (x, y).
func (k *queryKernel) run(x, y int) {
	i := y*k.width + x
	if i >= k.count {
		return
	}
	k.out[i] = k.trace(k.particle(i))
}

// trace returns the tetrahedron containing origin. The nearest face along the
// ray is the exit face of that tetrahedron, and the side of the face the ray
// starts from tells which of its two owners it is. When the exit is an edge or
// a vertex the faces meeting there may disagree, and the next direction is
// tried.
func (k *queryKernel) trace(origin mgl32.Vec3) int32 {
	tol := k.tolerance(origin)
	owner, ambiguous := k.cast(origin, rayDirs[0], tol)
	for _, dir := range rayDirs[1:] {
		if !ambiguous {
			break
		}
		if o, amb := k.cast(origin, dir, tol); !amb {
			return o
		}
	}
	return owner
}

// tolerance is the contact distance at origin. It grows with the magnitude of
// the coordinates to cover float32 rounding.
func (k *queryKernel) tolerance(origin mgl32.Vec3) float32 {
	return contactTolerance*k.rayLength +
		1e-6*max(math32.Abs(origin[0]), math32.Abs(origin[1]), math32.Abs(origin[2]))
}

// cast resolves origin along dir. Hits closer than tol to each other are tied;
// the result is ambiguous when tied faces name different owners.
func (k *queryKernel) cast(origin, dir mgl32.Vec3, tol float32) (int32, bool) {
	var (
		found     bool
		bestT     float32
		bestID    int32
		owner     = accel.NoHit
		ambiguous bool
		// Owned face just behind the origin, for points rounded out of the mesh
		behind   = accel.NoHit
		behindID int32
	)

	k.faces.traverse(origin, dir, -tol, k.rayLength, func(id int32, t float32) float32 {
		side := k.faces.originSide(id, dir)
		switch {
		case t < 0:
			if side != accel.NoHit && (behind == accel.NoHit || id < behindID) {
				behind, behindID = side, id
			}
		case t <= tol && side == accel.NoHit:
			// origin is on a boundary face and the ray enters the mesh
		case !found || t < bestT-tol:
			found, bestT, bestID, owner, ambiguous = true, t, id, side, false
		case t <= bestT+tol:
			if side != owner {
				ambiguous = true
			}
			if (side != accel.NoHit && owner == accel.NoHit) ||
				((side != accel.NoHit) == (owner != accel.NoHit) && id < bestID) {
				bestID, owner = id, side
			}
			bestT = min(bestT, t)
		}

		if !found {
			return k.rayLength
		}
		return min(bestT+tol, k.rayLength)
	})

	if owner == accel.NoHit {
		return behind, false
	}
	// Faces through the origin itself all have owners containing it
	return owner, ambiguous && bestT > tol
}

func (k *queryKernel) runTile(t tile) {
	for x := t.x0; x < t.x1; x++ {
		k.run(x, t.y)
	}
}
