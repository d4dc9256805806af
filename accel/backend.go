package accel

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// QueryEntryPoint is the name of the traversal program every backend must provide.
const QueryEntryPoint = "queryKernel"

// NoHit is written to the output buffer for particles outside every tetrahedron.
const NoHit int32 = -1

var (
	// ErrAcceleratorFailure wraps every failure raised by a backend. Such failures
	// abort the whole batch and are not retryable.
	ErrAcceleratorFailure = errors.New("accel: accelerator failure")
	// ErrInvalidBuffer is returned for unknown, released or foreign buffer handles.
	ErrInvalidBuffer = errors.New("accel: invalid buffer")
	// ErrBackendNotAvailable is returned when no backend matches the requested name.
	ErrBackendNotAvailable = errors.New("accel: backend not available")
	// ErrContextClosed is returned for operations on a released Context.
	ErrContextClosed = errors.New("accel: context closed")
)

// BufferID is an opaque handle to accelerator-resident memory. 0 is invalid.
type BufferID uint64

// GroupID is an opaque handle to a built acceleration structure. 0 is invalid.
type GroupID uint64

// InvalidID is the zero value shared by all handle types.
const InvalidID = 0

// FaceInfo is the per-triangle payload: the tetrahedra on the front and back
// side of the triangle's winding, or NoHit.
type FaceInfo struct {
	Front int32
	Back  int32
}

// Triangles is the triangle soup an acceleration structure is built over.
type Triangles struct {
	Vertices []mgl32.Vec3
	Indices  [][3]int32
	// Faces[i] is the payload of Indices[i]
	Faces []FaceInfo
}

// LaunchParams is the single parameter block of a query launch.
type LaunchParams struct {
	Particles    BufferID
	NumParticles int
	// IsFloat selects between float32 and float64 particle layouts
	IsFloat   bool
	OutTetIDs BufferID
	Faces     GroupID
	// Ray length, at least the longest tetrahedron edge
	MaxEdgeLength float32
}

// Backend is an accelerator able to run closest-hit point queries.
//
// The traversal program behind QueryEntryPoint is a black box: for each launch
// index (x, y) it handles particle y*width+x, if below NumParticles, by casting a
// ray of length MaxEdgeLength from the particle and writing the owning tetrahedron
// of the nearest triangle hit, chosen by the side the ray came from, or NoHit.
//
// Backends are provided by subpackages and registered by name; see Register.
type Backend interface {
	// Name returns the backend identifier (e.g. "software").
	Name() string

	// Init acquires backend resources. Called once, by NewContext.
	Init() error

	// Close releases every resource, buffers and acceleration structures included.
	Close()

	AllocFloat3(data []mgl32.Vec3) (BufferID, error)
	AllocDouble3(data []mgl64.Vec3) (BufferID, error)
	AllocInt32(n int) (BufferID, error)
	ReadInt32(id BufferID, dst []int32) error
	Free(id BufferID)

	// BuildAccel uploads the triangle soup and builds an acceleration structure over it.
	BuildAccel(tris Triangles) (GroupID, error)

	// BuildPipeline prepares the named traversal program for launches.
	BuildPipeline(entry string) error

	// Launch2D runs the traversal program over a width x height grid and returns
	// once every result is visible in OutTetIDs.
	Launch2D(width, height int, params LaunchParams) error
}
