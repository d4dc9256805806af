package accel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// FloatParticles is a buffer of float32 particle positions owned by a Context.
type FloatParticles struct {
	id  BufferID
	n   int
	ctx *Context
}

func (b FloatParticles) ID() BufferID { return b.id }
func (b FloatParticles) Len() int     { return b.n }

// DoubleParticles is a buffer of float64 particle positions owned by a Context.
type DoubleParticles struct {
	id  BufferID
	n   int
	ctx *Context
}

func (b DoubleParticles) ID() BufferID { return b.id }
func (b DoubleParticles) Len() int     { return b.n }

// TetIDs is an int32 output buffer owned by a Context.
type TetIDs struct {
	id  BufferID
	n   int
	ctx *Context
}

func (b TetIDs) ID() BufferID { return b.id }
func (b TetIDs) Len() int     { return b.n }

// Buffer is implemented by every handle type.
type Buffer interface {
	ID() BufferID
	Len() int
	owner() *Context
}

func (b FloatParticles) owner() *Context  { return b.ctx }
func (b DoubleParticles) owner() *Context { return b.ctx }
func (b TetIDs) owner() *Context          { return b.ctx }

// Context owns one initialized backend instance. It is created per query
// structure and must be released with Close.
type Context struct {
	backend Backend

	mu     sync.RWMutex
	closed bool
}

// NewContext initializes the named backend, or Default() when name is empty.
func NewContext(name string) (*Context, error) {
	var b Backend
	if name == "" {
		b = Default()
	} else {
		b = Get(name)
	}
	if b == nil {
		if name == "" {
			return nil, ErrBackendNotAvailable
		}
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}

	return NewContextWithBackend(b)
}

// NewContextWithBackend initializes b and wraps it in a Context.
func NewContextWithBackend(b Backend) (*Context, error) {
	if b == nil {
		return nil, errors.New("accel: backend must not be nil")
	}
	if err := b.Init(); err != nil {
		return nil, failure("init "+b.Name(), err)
	}

	return &Context{backend: b}, nil
}

// Backend returns the wrapped backend.
func (c *Context) Backend() Backend {
	return c.backend
}

// Close releases the backend. It is safe to call more than once.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.backend.Close()
}

// acquire holds the context open for the duration of a backend call.
func (c *Context) acquire() (release func(), err error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrContextClosed
	}
	return c.mu.RUnlock, nil
}

func (c *Context) UploadFloatParticles(points []mgl32.Vec3) (FloatParticles, error) {
	release, err := c.acquire()
	if err != nil {
		return FloatParticles{}, err
	}
	defer release()

	id, err := c.backend.AllocFloat3(points)
	if err != nil {
		return FloatParticles{}, failure("upload float particles", err)
	}
	return FloatParticles{id: id, n: len(points), ctx: c}, nil
}

func (c *Context) UploadDoubleParticles(points []mgl64.Vec3) (DoubleParticles, error) {
	release, err := c.acquire()
	if err != nil {
		return DoubleParticles{}, err
	}
	defer release()

	id, err := c.backend.AllocDouble3(points)
	if err != nil {
		return DoubleParticles{}, failure("upload double particles", err)
	}
	return DoubleParticles{id: id, n: len(points), ctx: c}, nil
}

// NewTetIDs allocates an output buffer for n results.
func (c *Context) NewTetIDs(n int) (TetIDs, error) {
	if n < 0 {
		return TetIDs{}, fmt.Errorf("accel: negative buffer length %d", n)
	}

	release, err := c.acquire()
	if err != nil {
		return TetIDs{}, err
	}
	defer release()

	id, err := c.backend.AllocInt32(n)
	if err != nil {
		return TetIDs{}, failure("alloc tet ids", err)
	}
	return TetIDs{id: id, n: n, ctx: c}, nil
}

// ReadTetIDs copies the content of b back to host memory.
func (c *Context) ReadTetIDs(b TetIDs) ([]int32, error) {
	if err := c.Owns(b); err != nil {
		return nil, err
	}

	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]int32, b.n)
	if err := c.backend.ReadInt32(b.id, out); err != nil {
		return nil, failure("read tet ids", err)
	}
	return out, nil
}

// Free releases b. Foreign or already released handles are ignored.
func (c *Context) Free(b Buffer) {
	if c.Owns(b) != nil {
		return
	}

	release, err := c.acquire()
	if err != nil {
		return
	}
	defer release()

	c.backend.Free(b.ID())
}

// Owns reports an ErrInvalidBuffer error unless b was allocated by c.
func (c *Context) Owns(b Buffer) error {
	if b == nil || b.ID() == InvalidID {
		return fmt.Errorf("%w: %w: zero handle", ErrAcceleratorFailure, ErrInvalidBuffer)
	}
	if b.owner() != c {
		return fmt.Errorf("%w: %w: buffer %d belongs to another context", ErrAcceleratorFailure, ErrInvalidBuffer, b.ID())
	}
	return nil
}

func (c *Context) BuildAccel(tris Triangles) (GroupID, error) {
	release, err := c.acquire()
	if err != nil {
		return InvalidID, err
	}
	defer release()

	id, err := c.backend.BuildAccel(tris)
	if err != nil {
		return InvalidID, failure("build accel", err)
	}
	return id, nil
}

func (c *Context) BuildPipeline(entry string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.BuildPipeline(entry); err != nil {
		return failure("build pipeline", err)
	}
	return nil
}

// Launch2D runs a synchronous launch on the backend.
func (c *Context) Launch2D(width, height int, params LaunchParams) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.Launch2D(width, height, params); err != nil {
		return failure("launch", err)
	}
	return nil
}

// failure tags err as an accelerator failure, once.
func failure(op string, err error) error {
	if errors.Is(err, ErrAcceleratorFailure) {
		return fmt.Errorf("accel: %s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrAcceleratorFailure, op, err)
}
