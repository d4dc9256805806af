// Package tetquery locates points in a tetrahedral mesh.
//
// New turns a mesh into a shared-face graph and hands its triangles to an
// accelerator backend. A point is then resolved by casting a short ray from it:
// the first face hit is the exit face of the enclosing tetrahedron, and the side
// of that face the ray comes from selects the tetrahedron.
//
// Backends register themselves by name; importing accel/software enables the
// CPU implementation:
//
//	import _ "github.com/akmonengine/tetquery/accel/software"
package tetquery

import (
	"fmt"

	"github.com/akmonengine/tetquery/accel"
	"github.com/akmonengine/tetquery/mesh"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl64"
)

// RowWidth is the width of launch grids. Batches are folded into rows of this
// size to stay within the launch dimension limits of accelerators.
const RowWidth = 65536

// NotFound is written for points outside every tetrahedron.
const NotFound = accel.NoHit

// TetQuery is a mesh ready for point queries. It owns its accelerator context,
// which must be released with Close.
//
// The structure is immutable: queries on disjoint buffers may run concurrently.
type TetQuery struct {
	graph *mesh.FaceGraph
	ctx   *accel.Context
	group accel.GroupID
	// Ray length, never below the longest edge
	rayLength float32
}

// New builds the face graph of the mesh and uploads it to the accelerator.
// Construction anomalies that do not prevent the build are available through
// Report. Every acquired accelerator resource is released on failure.
func New(vertices []mgl64.Vec3, tets []mesh.Tet, opts ...Option) (*TetQuery, error) {
	o := newOptions(opts)
	log := Logger()

	graph, err := mesh.Build(vertices, tets, append(o.meshOptions, mesh.WithLogger(log))...)
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}

	backend, err := o.selectBackend()
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}
	propagateLogger(backend, log)
	if o.workers > 0 {
		propagateWorkers(backend, o.workers)
	}

	ctx, err := accel.NewContextWithBackend(backend)
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}

	q := &TetQuery{
		graph:     graph,
		ctx:       ctx,
		rayLength: math32.Nextafter(float32(graph.MaxEdgeLength), math32.Inf(1)),
	}
	if err := q.upload(); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("tetquery: %w", err)
	}

	log.Info("query structure ready", "backend", backend.Name(), "faces", len(graph.Faces), "maxEdgeLength", graph.MaxEdgeLength)

	return q, nil
}

// upload builds the acceleration structure over the faces and the query pipeline.
func (q *TetQuery) upload() error {
	faces := make([]accel.FaceInfo, len(q.graph.Adjacency))
	for i, adj := range q.graph.Adjacency {
		faces[i] = accel.FaceInfo{Front: adj.Front, Back: adj.Back}
	}

	group, err := q.ctx.BuildAccel(accel.Triangles{
		Vertices: q.graph.Vertices,
		Indices:  q.graph.Faces,
		Faces:    faces,
	})
	if err != nil {
		return err
	}
	q.group = group

	return q.ctx.BuildPipeline(accel.QueryEntryPoint)
}

// Close releases the accelerator context, buffers included. It is safe to call
// more than once.
func (q *TetQuery) Close() {
	q.ctx.Close()
}

// Context returns the accelerator context owning this structure. Query buffers
// must be allocated from it.
func (q *TetQuery) Context() *accel.Context {
	return q.ctx
}

// Graph returns the face graph. It must not be modified.
func (q *TetQuery) Graph() *mesh.FaceGraph {
	return q.graph
}

// Report returns the anomalies found while building the face graph.
func (q *TetQuery) Report() *mesh.Report {
	return &q.graph.Report
}

// LaunchDims returns the launch grid of a batch of count points.
func LaunchDims(count int) (width, height int) {
	return RowWidth, (count + RowWidth - 1) / RowWidth
}

// QueryFloat writes to out[i] the tetrahedron containing particles[i], or
// NotFound, for i < count. It blocks until every result is written.
func (q *TetQuery) QueryFloat(particles accel.FloatParticles, out accel.TetIDs, count int) error {
	return q.query(particles, out, count, true)
}

// QueryDouble is QueryFloat for float64 particles. Positions are traced in
// float32 by the accelerator.
func (q *TetQuery) QueryDouble(particles accel.DoubleParticles, out accel.TetIDs, count int) error {
	return q.query(particles, out, count, false)
}

func (q *TetQuery) query(particles accel.Buffer, out accel.TetIDs, count int, isFloat bool) error {
	if err := q.ctx.Owns(particles); err != nil {
		return fmt.Errorf("tetquery: particles: %w", err)
	}
	if err := q.ctx.Owns(out); err != nil {
		return fmt.Errorf("tetquery: output: %w", err)
	}
	if count < 0 || count > particles.Len() || count > out.Len() {
		return fmt.Errorf("tetquery: %w: count %d does not fit %d particles and %d outputs",
			accel.ErrInvalidBuffer, count, particles.Len(), out.Len())
	}
	if count == 0 {
		return nil
	}

	width, height := LaunchDims(count)
	Logger().Debug("launching query", "count", count, "width", width, "height", height, "float", isFloat)

	err := q.ctx.Launch2D(width, height, accel.LaunchParams{
		Particles:     particles.ID(),
		NumParticles:  count,
		IsFloat:       isFloat,
		OutTetIDs:     out.ID(),
		Faces:         q.group,
		MaxEdgeLength: q.rayLength,
	})
	if err != nil {
		return fmt.Errorf("tetquery: %w", err)
	}
	return nil
}

// Locate resolves points in one call: it uploads them, queries in double
// precision and reads the results back.
func (q *TetQuery) Locate(points []mgl64.Vec3) ([]int32, error) {
	if len(points) == 0 {
		return []int32{}, nil
	}

	particles, err := q.ctx.UploadDoubleParticles(points)
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}
	defer q.ctx.Free(particles)

	out, err := q.ctx.NewTetIDs(len(points))
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}
	defer q.ctx.Free(out)

	if err := q.QueryDouble(particles, out, len(points)); err != nil {
		return nil, err
	}

	ids, err := q.ctx.ReadTetIDs(out)
	if err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}
	return ids, nil
}
