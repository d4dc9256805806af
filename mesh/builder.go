package mesh

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/akmonengine/tetquery/facekey"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// NonManifoldPolicy decides who keeps a face side that two tetrahedra claim.
type NonManifoldPolicy int

const (
	// LastWriteWins gives the side to the tetrahedron seen last.
	LastWriteWins NonManifoldPolicy = iota
	// FirstWriteWins keeps the tetrahedron seen first.
	FirstWriteWins
	// RejectNonManifold makes Build fail once the whole mesh has been scanned.
	RejectNonManifold
)

func (p NonManifoldPolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last-write-wins"
	case FirstWriteWins:
		return "first-write-wins"
	case RejectNonManifold:
		return "reject"
	}
	return fmt.Sprintf("NonManifoldPolicy(%d)", int(p))
}

// ParseNonManifoldPolicy accepts the names returned by NonManifoldPolicy.String.
// An empty string selects LastWriteWins.
func ParseNonManifoldPolicy(s string) (NonManifoldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-write-wins":
		return LastWriteWins, nil
	case "first-write-wins":
		return FirstWriteWins, nil
	case "reject":
		return RejectNonManifold, nil
	}
	return 0, fmt.Errorf("mesh: unknown non-manifold policy %q", s)
}

type Option func(*buildOptions)

type buildOptions struct {
	policy          NonManifoldPolicy
	volumeTolerance float64
	logger          *slog.Logger
}

func WithNonManifoldPolicy(p NonManifoldPolicy) Option {
	return func(o *buildOptions) {
		o.policy = p
	}
}

// WithVolumeTolerance treats tetrahedra whose |SignedVolume| is at most tol as
// degenerate. The default is 0: only exactly flat tetrahedra are skipped.
func WithVolumeTolerance(tol float64) Option {
	return func(o *buildOptions) {
		o.volumeTolerance = math.Abs(tol)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// faceBuilder holds the temporary state of one Build: the face list under
// construction and the key lookup used for deduplication.
type faceBuilder struct {
	graph      *FaceGraph
	knownFaces map[facekey.Key]int32
	opts       buildOptions
}

// Build derives the shared-face graph of a tetrahedral mesh.
//
// Degenerate tetrahedra (repeated vertex index, zero volume) and tetrahedra with
// indices too large for a face key are skipped and reported in FaceGraph.Report;
// their ids stay reserved. Build fails on a vertex index outside the vertex
// slice, and on non-manifold faces when RejectNonManifold is selected.
func Build(vertices []mgl64.Vec3, tets []Tet, opts ...Option) (*FaceGraph, error) {
	o := buildOptions{policy: LastWriteWins}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	o.logger.Debug("creating shared faces", "vertices", len(vertices), "tets", len(tets))

	b := &faceBuilder{
		graph: &FaceGraph{
			Vertices:  make([]mgl32.Vec3, len(vertices)),
			Faces:     make([][3]int32, 0, 2*len(tets)),
			Adjacency: make([]FaceAdjacency, 0, 2*len(tets)),
			NumTets:   len(tets),
			Active:    make([]bool, len(tets)),
		},
		knownFaces: make(map[facekey.Key]int32, 2*len(tets)),
		opts:       o,
	}

	for i, v := range vertices {
		b.graph.Vertices[i] = mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
	}

	for tetID, tet := range tets {
		for _, v := range tet {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("%w: tet %d references vertex %d of %d", ErrVertexOutOfBounds, tetID, v, len(vertices))
			}
		}
		b.addTet(vertices, tetID, tet)
	}

	g := b.graph
	report := &g.Report
	o.logger.Info("shared faces built",
		"faces", len(g.Faces),
		"maxEdgeLength", g.MaxEdgeLength,
	)
	if !report.Empty() {
		o.logger.Warn("mesh diagnostics",
			"degenerate", report.Count(DegenerateGeometryIgnored),
			"indexRange", report.Count(IndexRangeExceeded),
			"nonManifold", report.Count(NonManifoldFace),
		)
	}

	if o.policy == RejectNonManifold && report.Count(NonManifoldFace) > 0 {
		return nil, fmt.Errorf("mesh: %d non-manifold face claims: %w", report.Count(NonManifoldFace), ErrNonManifoldFace)
	}

	return g, nil
}

func (b *faceBuilder) addTet(vertices []mgl64.Vec3, tetID int, tet Tet) {
	report := &b.graph.Report

	if tet[0] == tet[1] || tet[0] == tet[2] || tet[0] == tet[3] ||
		tet[1] == tet[2] || tet[1] == tet[3] || tet[2] == tet[3] {
		report.add(Diagnostic{Kind: DegenerateGeometryIgnored, TetID: tetID, Reason: "duplicate vertex index"})
		return
	}

	for _, v := range tet {
		if v > facekey.MaxIndex {
			report.add(Diagnostic{
				Kind:   IndexRangeExceeded,
				TetID:  tetID,
				Reason: fmt.Sprintf("vertex %d exceeds %d", v, facekey.MaxIndex),
			})
			return
		}
	}

	a, bv, c, d := vertices[tet[0]], vertices[tet[1]], vertices[tet[2]], vertices[tet[3]]
	volume := SignedVolume(a, bv, c, d)
	if math.Abs(volume) <= b.opts.volumeTolerance {
		report.add(Diagnostic{Kind: DegenerateGeometryIgnored, TetID: tetID, Reason: "zero volume"})
		return
	}
	if volume < 0 {
		tet[0], tet[1] = tet[1], tet[0]
	}

	b.graph.MaxEdgeLength = math.Max(b.graph.MaxEdgeLength, maxEdge(a, bv, c, d))
	b.graph.Active[tetID] = true

	// Faces opposite corners 3, 0, 2 and 1. With positive orientation the
	// right-hand normal of each face points into the tetrahedron.
	b.addFace(tetID, tet[0], tet[1], tet[2])
	b.addFace(tetID, tet[1], tet[3], tet[2])
	b.addFace(tetID, tet[0], tet[3], tet[1])
	b.addFace(tetID, tet[2], tet[3], tet[0])
}

func (b *faceBuilder) addFace(tetID int, v0, v1, v2 int) {
	// Indices were range checked in addTet.
	key, flipped, _ := facekey.Encode(v0, v1, v2)

	faceID, ok := b.knownFaces[key]
	if !ok {
		x, y, z := key.Indices()
		faceID = int32(len(b.graph.Faces))
		b.graph.Faces = append(b.graph.Faces, [3]int32{int32(x), int32(y), int32(z)})
		b.graph.Adjacency = append(b.graph.Adjacency, FaceAdjacency{Front: NoTet, Back: NoTet})
		b.knownFaces[key] = faceID
	}

	adj := &b.graph.Adjacency[faceID]
	side := &adj.Back
	if facekey.Front(flipped) {
		side = &adj.Front
	}

	id := int32(tetID)
	if *side != NoTet && *side != id {
		b.graph.Report.add(Diagnostic{
			Kind:     NonManifoldFace,
			TetID:    tetID,
			FaceID:   int(faceID),
			Previous: int(*side),
		})
		if b.opts.policy == FirstWriteWins {
			return
		}
	}
	*side = id
}
