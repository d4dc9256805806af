package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/tetquery/facekey"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitTet returns the corner tetrahedron of the unit cube.
func unitTet() ([]mgl64.Vec3, []Tet) {
	return []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}, []Tet{{0, 1, 2, 3}}
}

func faceIndex(t *testing.T, g *FaceGraph, face [3]int32) int {
	t.Helper()
	for i, f := range g.Faces {
		if f == face {
			return i
		}
	}
	t.Fatalf("face %v not found", face)
	return -1
}

// =============================================================================
// Single tetrahedron
// =============================================================================

func TestBuild_SingleTet(t *testing.T) {
	vertices, tets := unitTet()
	require.Greater(t, SignedVolume(vertices[0], vertices[1], vertices[2], vertices[3]), 0.0)

	g, err := Build(vertices, tets)
	require.NoError(t, err)
	require.Len(t, g.Faces, 4)
	assert.True(t, g.Report.Empty())
	assert.Equal(t, []bool{true}, g.Active)
	assert.InDelta(t, math.Sqrt2, g.MaxEdgeLength, 1e-12)

	for i, adj := range g.Adjacency {
		assert.True(t, adj.Boundary(), "face %v", g.Faces[i])
		assert.True(t, adj.Front == 0 || adj.Back == 0, "face %v", g.Faces[i])
	}

	// The side depends on the winding of each face relative to its sorted order.
	tests := []struct {
		face  [3]int32
		front bool
	}{
		{[3]int32{0, 1, 2}, true},
		{[3]int32{1, 2, 3}, false},
		{[3]int32{0, 1, 3}, false},
		{[3]int32{0, 2, 3}, true},
	}
	for _, tt := range tests {
		adj := g.Adjacency[faceIndex(t, g, tt.face)]
		if tt.front {
			assert.Equal(t, FaceAdjacency{Front: 0, Back: NoTet}, adj, "face %v", tt.face)
		} else {
			assert.Equal(t, FaceAdjacency{Front: NoTet, Back: 0}, adj, "face %v", tt.face)
		}
	}
}

func TestBuild_FacesAreCanonical(t *testing.T) {
	vertices, tets := GridMesh(2, 1, 1, 1, mgl64.Vec3{})
	g, err := Build(vertices, tets)
	require.NoError(t, err)

	for _, f := range g.Faces {
		assert.Less(t, f[0], f[1])
		assert.Less(t, f[1], f[2])
	}
}

func TestBuild_NegativeOrientation(t *testing.T) {
	vertices, _ := unitTet()
	ref, err := Build(vertices, []Tet{{0, 1, 2, 3}})
	require.NoError(t, err)

	// Swapping two corners flips the orientation; Build restores it.
	flipped := []Tet{{1, 0, 2, 3}}
	require.Less(t, SignedVolume(vertices[1], vertices[0], vertices[2], vertices[3]), 0.0)

	g, err := Build(vertices, flipped)
	require.NoError(t, err)
	assert.ElementsMatch(t, ref.Faces, g.Faces)
	for i, f := range ref.Faces {
		assert.Equal(t, ref.Adjacency[i], g.Adjacency[faceIndex(t, g, f)])
	}
}

func TestBuild_SharedFace(t *testing.T) {
	vertices := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0, 0, -1},
	}
	tets := []Tet{{0, 1, 2, 3}, {0, 2, 1, 4}}

	g, err := Build(vertices, tets)
	require.NoError(t, err)
	require.Len(t, g.Faces, 7)

	shared := g.Adjacency[faceIndex(t, g, [3]int32{0, 1, 2})]
	assert.True(t, shared.Internal())
	assert.ElementsMatch(t, []int32{0, 1}, []int32{shared.Front, shared.Back})

	stats := g.Stats()
	assert.Equal(t, 1, stats.InternalFaces)
	assert.Equal(t, 6, stats.BoundaryFaces)
	assert.Len(t, g.FacesOf(0), 4)
	assert.Len(t, g.FacesOf(1), 4)
}

// =============================================================================
// Degenerate input
// =============================================================================

func TestBuild_DegenerateTets(t *testing.T) {
	vertices := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{2, 2, 0}, // coplanar with 0, 1, 2
	}
	tets := []Tet{
		{0, 1, 2, 2}, // duplicate index
		{0, 1, 2, 4}, // zero volume
		{0, 1, 2, 3},
	}

	g, err := Build(vertices, tets)
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumTets)
	assert.Equal(t, []bool{false, false, true}, g.Active)
	assert.Len(t, g.Faces, 4)
	for _, adj := range g.Adjacency {
		assert.True(t, adj.Front == 2 || adj.Back == 2)
	}
	assert.Empty(t, g.FacesOf(0))
	assert.Empty(t, g.FacesOf(1))

	assert.Equal(t, 2, g.Report.Count(DegenerateGeometryIgnored))
	assert.Equal(t, 0, g.Report.Count(NonManifoldFace))
	require.Error(t, g.Report.Err())
	assert.True(t, errors.Is(g.Report.Err(), ErrDegenerateGeometry))

	// The flat tetrahedron has a longer edge than the valid one, but is ignored.
	assert.InDelta(t, math.Sqrt2, g.MaxEdgeLength, 1e-12)
}

func TestBuild_VolumeTolerance(t *testing.T) {
	vertices := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1e-9},
	}
	tets := []Tet{{0, 1, 2, 3}}

	g, err := Build(vertices, tets)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, g.Active)

	g, err = Build(vertices, tets, WithVolumeTolerance(1e-6))
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, g.Active)
	assert.Equal(t, 1, g.Report.Count(DegenerateGeometryIgnored))
}

func TestBuild_VertexOutOfBounds(t *testing.T) {
	vertices, _ := unitTet()

	for _, tet := range []Tet{{0, 1, 2, 4}, {-1, 1, 2, 3}} {
		g, err := Build(vertices, []Tet{tet})
		assert.Nil(t, g)
		assert.True(t, errors.Is(err, ErrVertexOutOfBounds), "tet %v", tet)
	}
}

func TestBuild_IndexRangeExceeded(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates more than a million vertices")
	}

	vertices := make([]mgl64.Vec3, facekey.MaxIndex+2)
	big := facekey.MaxIndex + 1
	vertices[1] = mgl64.Vec3{1, 0, 0}
	vertices[2] = mgl64.Vec3{0, 1, 0}
	vertices[3] = mgl64.Vec3{0, 0, 1}
	vertices[big] = mgl64.Vec3{0, 0, -1}

	g, err := Build(vertices, []Tet{{0, 1, 2, 3}, {0, 2, 1, big}})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, g.Active)
	assert.Equal(t, 1, g.Report.Count(IndexRangeExceeded))
	assert.True(t, errors.Is(g.Report.Err(), ErrIndexRangeExceeded))
	assert.True(t, errors.Is(g.Report.Err(), facekey.ErrIndexRangeExceeded))
	assert.Len(t, g.Faces, 4)
}

// =============================================================================
// Non-manifold faces
// =============================================================================

// overlappingTets returns two tetrahedra on the same side of face 012.
func overlappingTets() ([]mgl64.Vec3, []Tet) {
	return []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.1, 0.1, 2},
	}, []Tet{{0, 1, 2, 3}, {0, 1, 2, 4}}
}

func TestBuild_NonManifoldPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy NonManifoldPolicy
		owner  int32
	}{
		{"last write wins", LastWriteWins, 1},
		{"first write wins", FirstWriteWins, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vertices, tets := overlappingTets()
			g, err := Build(vertices, tets, WithNonManifoldPolicy(tt.policy))
			require.NoError(t, err)

			adj := g.Adjacency[faceIndex(t, g, [3]int32{0, 1, 2})]
			assert.Equal(t, tt.owner, adj.Front)
			assert.Equal(t, NoTet, adj.Back)

			require.Equal(t, 1, g.Report.Count(NonManifoldFace))
			d := g.Report.Diagnostics[0]
			assert.Equal(t, NonManifoldFace, d.Kind)
			assert.Equal(t, 1, d.TetID)
			assert.Equal(t, 0, d.Previous)
			assert.True(t, errors.Is(d, ErrNonManifoldFace))
		})
	}
}

func TestBuild_RejectNonManifold(t *testing.T) {
	vertices, tets := overlappingTets()

	g, err := Build(vertices, tets, WithNonManifoldPolicy(RejectNonManifold))
	assert.Nil(t, g)
	assert.True(t, errors.Is(err, ErrNonManifoldFace))
}

func TestParseNonManifoldPolicy(t *testing.T) {
	for _, p := range []NonManifoldPolicy{LastWriteWins, FirstWriteWins, RejectNonManifold} {
		got, err := ParseNonManifoldPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParseNonManifoldPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, got)

	_, err = ParseNonManifoldPolicy("most-recent")
	assert.Error(t, err)
}

// =============================================================================
// Structured meshes
// =============================================================================

func TestBuild_GridWatertight(t *testing.T) {
	nx, ny, nz := 2, 2, 2
	vertices, tets := GridMesh(nx, ny, nz, 0.5, mgl64.Vec3{-1, -1, -1})
	require.Len(t, tets, 6*nx*ny*nz)

	g, err := Build(vertices, tets)
	require.NoError(t, err)
	assert.True(t, g.Report.Empty())

	stats := g.Stats()
	boundary := 2 * 2 * (nx*ny + ny*nz + nx*nz)
	assert.Equal(t, boundary, stats.BoundaryFaces)
	assert.Equal(t, (4*len(tets)-boundary)/2, stats.InternalFaces)
	assert.Equal(t, stats.Faces, stats.BoundaryFaces+stats.InternalFaces)
	assert.Equal(t, len(tets), stats.ActiveTets)

	for id := range tets {
		assert.Len(t, g.FacesOf(id), 4, "tet %d", id)
	}

	// Longest edge of a Kuhn tetrahedron is the cube diagonal.
	assert.InDelta(t, 0.5*math.Sqrt(3), g.MaxEdgeLength, 1e-12)
}

func TestBuild_MaxEdgeLengthGrows(t *testing.T) {
	vertices, tets := unitTet()
	g, err := Build(vertices, tets)
	require.NoError(t, err)
	before := g.MaxEdgeLength

	vertices = append(vertices, mgl64.Vec3{0, 0, -3})
	tets = append(tets, Tet{0, 2, 1, 4})
	g, err = Build(vertices, tets)
	require.NoError(t, err)

	assert.Greater(t, g.MaxEdgeLength, before)
	assert.InDelta(t, math.Sqrt(10), g.MaxEdgeLength, 1e-12)
}

func TestBuild_Deterministic(t *testing.T) {
	vertices, tets := GridMesh(3, 2, 2, 1, mgl64.Vec3{})

	g1, err := Build(vertices, tets)
	require.NoError(t, err)
	g2, err := Build(vertices, tets)
	require.NoError(t, err)

	assert.Equal(t, g1.Faces, g2.Faces)
	assert.Equal(t, g1.Adjacency, g2.Adjacency)
	assert.Equal(t, g1.MaxEdgeLength, g2.MaxEdgeLength)
}

func BenchmarkBuild(b *testing.B) {
	vertices, tets := GridMesh(20, 20, 20, 1, mgl64.Vec3{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(vertices, tets); err != nil {
			b.Fatal(err)
		}
	}
}
