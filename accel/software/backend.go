package software

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/akmonengine/tetquery/accel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Name is the registry name of this backend.
const Name = accel.FallbackBackend

func init() {
	accel.Register(Name, func() accel.Backend {
		return New(runtime.GOMAXPROCS(0))
	})
}

// Backend runs the accelerator contract on the CPU: buffers live in host
// memory, acceleration structures are BVHs and launches are spread over a
// fixed number of goroutines.
type Backend struct {
	mu       sync.RWMutex
	inited   bool
	closed   bool
	nextID   uint64
	buffers  map[accel.BufferID]any
	groups   map[accel.GroupID]*bvh
	pipeline string

	workers atomic.Int32
	logger  atomic.Pointer[slog.Logger]
}

// New returns an uninitialized backend using the given number of workers.
func New(workers int) *Backend {
	b := &Backend{}
	b.SetWorkers(workers)
	b.SetLogger(nil)
	return b
}

func (b *Backend) Name() string { return Name }

// SetWorkers sets the number of goroutines used by launches. Values below 1 mean 1.
func (b *Backend) SetWorkers(n int) {
	b.workers.Store(int32(max(1, n)))
}

func (b *Backend) Workers() int {
	return int(b.workers.Load())
}

// SetLogger sets the logger used by this backend. Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger.Store(l)
}

func (b *Backend) log() *slog.Logger {
	return b.logger.Load()
}

func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("%w: software backend already closed", accel.ErrAcceleratorFailure)
	}
	if b.inited {
		return nil
	}
	b.inited = true
	b.buffers = make(map[accel.BufferID]any)
	b.groups = make(map[accel.GroupID]*bvh)
	b.log().Debug("software accelerator initialized", "workers", b.Workers())

	return nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.log().Debug("software accelerator released", "buffers", len(b.buffers), "groups", len(b.groups))
	b.buffers = nil
	b.groups = nil
}

// ready must be called with b.mu held.
func (b *Backend) ready() error {
	if !b.inited || b.closed {
		return fmt.Errorf("%w: software backend not initialized", accel.ErrAcceleratorFailure)
	}
	return nil
}

// newID must be called with b.mu held for writing.
func (b *Backend) newID() uint64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) alloc(data any) (accel.BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(); err != nil {
		return accel.InvalidID, err
	}
	id := accel.BufferID(b.newID())
	b.buffers[id] = data
	return id, nil
}

func (b *Backend) AllocFloat3(data []mgl32.Vec3) (accel.BufferID, error) {
	return b.alloc(append([]mgl32.Vec3(nil), data...))
}

func (b *Backend) AllocDouble3(data []mgl64.Vec3) (accel.BufferID, error) {
	return b.alloc(append([]mgl64.Vec3(nil), data...))
}

func (b *Backend) AllocInt32(n int) (accel.BufferID, error) {
	if n < 0 {
		return accel.InvalidID, fmt.Errorf("%w: negative buffer length %d", accel.ErrAcceleratorFailure, n)
	}
	return b.alloc(make([]int32, n))
}

func (b *Backend) ReadInt32(id accel.BufferID, dst []int32) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return err
	}
	src, err := lookup[[]int32](b, id)
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

func (b *Backend) Free(id accel.BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffers != nil {
		delete(b.buffers, id)
	}
}

// lookup must be called with b.mu held.
func lookup[T any](b *Backend, id accel.BufferID) (T, error) {
	var zero T
	data, ok := b.buffers[id]
	if !ok {
		return zero, fmt.Errorf("%w: %w: unknown buffer %d", accel.ErrAcceleratorFailure, accel.ErrInvalidBuffer, id)
	}
	typed, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %w: buffer %d holds %T, want %T", accel.ErrAcceleratorFailure, accel.ErrInvalidBuffer, id, data, zero)
	}
	return typed, nil
}

func (b *Backend) BuildAccel(tris accel.Triangles) (accel.GroupID, error) {
	if len(tris.Faces) != len(tris.Indices) {
		return accel.InvalidID, fmt.Errorf("%w: %d face infos for %d triangles", accel.ErrAcceleratorFailure, len(tris.Faces), len(tris.Indices))
	}
	for i, tri := range tris.Indices {
		for _, v := range tri {
			if v < 0 || int(v) >= len(tris.Vertices) {
				return accel.InvalidID, fmt.Errorf("%w: triangle %d references vertex %d of %d", accel.ErrAcceleratorFailure, i, v, len(tris.Vertices))
			}
		}
	}

	vertices := append([]mgl32.Vec3(nil), tris.Vertices...)
	indices := append([][3]int32(nil), tris.Indices...)
	faces := make([]faceInfo, len(tris.Faces))
	for i, f := range tris.Faces {
		faces[i] = faceInfo{front: f.Front, back: f.Back}
	}

	b.log().Debug("building BVH", "triangles", len(indices))
	tree := newBVH(vertices, indices, faces)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(); err != nil {
		return accel.InvalidID, err
	}
	id := accel.GroupID(b.newID())
	b.groups[id] = tree
	b.log().Debug("BVH built", "group", id, "nodes", len(tree.nodes))

	return id, nil
}

func (b *Backend) BuildPipeline(entry string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(); err != nil {
		return err
	}
	if entry != accel.QueryEntryPoint {
		return fmt.Errorf("%w: unknown entry point %q", accel.ErrAcceleratorFailure, entry)
	}
	b.pipeline = entry
	return nil
}

func (b *Backend) Launch2D(width, height int, params accel.LaunchParams) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return err
	}
	if b.pipeline == "" {
		return fmt.Errorf("%w: launch before pipeline build", accel.ErrAcceleratorFailure)
	}
	if width <= 0 || height < 0 {
		return fmt.Errorf("%w: invalid launch size %dx%d", accel.ErrAcceleratorFailure, width, height)
	}

	tree, ok := b.groups[params.Faces]
	if !ok {
		return fmt.Errorf("%w: unknown acceleration structure %d", accel.ErrAcceleratorFailure, params.Faces)
	}

	k := &queryKernel{
		width:     width,
		count:     params.NumParticles,
		isFloat:   params.IsFloat,
		faces:     tree,
		rayLength: params.MaxEdgeLength,
	}

	var n int
	var err error
	if params.IsFloat {
		k.floats, err = lookup[[]mgl32.Vec3](b, params.Particles)
		n = len(k.floats)
	} else {
		k.doubles, err = lookup[[]mgl64.Vec3](b, params.Particles)
		n = len(k.doubles)
	}
	if err != nil {
		return err
	}
	if k.out, err = lookup[[]int32](b, params.OutTetIDs); err != nil {
		return err
	}
	if k.count < 0 || k.count > n || k.count > len(k.out) || k.count > width*height {
		return fmt.Errorf("%w: %d particles do not fit launch %dx%d, input %d, output %d",
			accel.ErrAcceleratorFailure, k.count, width, height, n, len(k.out))
	}

	return task(b.Workers(), tiles(width, height, k.count), k.runTile)
}
