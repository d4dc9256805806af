package mesh

import "github.com/go-gl/mathgl/mgl32"

// NoTet marks an empty side of a face.
const NoTet int32 = -1

// Tet is a tetrahedron given by four zero-based vertex indices.
// Its identity is its position in the input slice.
type Tet [4]int

// FaceAdjacency holds the tetrahedra on each side of a shared face.
// Front owns the side the canonical winding's normal points into.
type FaceAdjacency struct {
	Front int32
	Back  int32
}

// Boundary reports whether exactly one side of the face is owned.
func (a FaceAdjacency) Boundary() bool {
	return (a.Front == NoTet) != (a.Back == NoTet)
}

// Internal reports whether both sides of the face are owned.
func (a FaceAdjacency) Internal() bool {
	return a.Front != NoTet && a.Back != NoTet
}

// FaceGraph is the deduplicated, oriented shared-face structure of a tet mesh.
// It is read-only once Build returns.
type FaceGraph struct {
	// Vertex positions in accelerator precision
	Vertices []mgl32.Vec3
	// Canonical (ascending) vertex indices, in first-sighting order
	Faces [][3]int32
	// Adjacency[i] belongs to Faces[i]
	Adjacency []FaceAdjacency
	// Longest edge over all non-degenerate tetrahedra
	MaxEdgeLength float64
	// Number of input tetrahedra, skipped ones included
	NumTets int
	// Active[id] is false for tetrahedra that contributed no faces
	Active []bool

	Report Report
}

// Stats summarizes a FaceGraph.
type Stats struct {
	Faces         int
	BoundaryFaces int
	InternalFaces int
	ActiveTets    int
	InactiveTets  int
}

func (g *FaceGraph) Stats() Stats {
	s := Stats{Faces: len(g.Faces)}
	for _, adj := range g.Adjacency {
		switch {
		case adj.Internal():
			s.InternalFaces++
		case adj.Boundary():
			s.BoundaryFaces++
		}
	}
	for _, active := range g.Active {
		if active {
			s.ActiveTets++
		} else {
			s.InactiveTets++
		}
	}

	return s
}

// FacesOf returns the indices of the faces owned by tetID, on either side.
func (g *FaceGraph) FacesOf(tetID int) []int {
	var faces []int
	id := int32(tetID)
	for i, adj := range g.Adjacency {
		if adj.Front == id || adj.Back == id {
			faces = append(faces, i)
		}
	}

	return faces
}
