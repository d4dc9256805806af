package tetquery

import (
	"fmt"

	"github.com/akmonengine/tetquery/accel"
	"github.com/akmonengine/tetquery/mesh"
)

// Option configures New.
type Option func(*options)

type options struct {
	backend     string
	accelerator accel.Backend
	workers     int
	meshOptions []mesh.Option
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBackend selects a registered backend by name. By default the first
// registered hardware backend is used, then the software one.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithAccelerator uses b, uninitialized, instead of a registered backend. Once
// New has initialized it, b is owned and closed by the query structure.
func WithAccelerator(b accel.Backend) Option {
	return func(o *options) {
		o.accelerator = b
	}
}

// WithWorkers sets the parallelism of backends running on the CPU. 0 keeps the
// backend default.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithNonManifoldPolicy sets how faces claimed by more than two tetrahedra are resolved.
func WithNonManifoldPolicy(p mesh.NonManifoldPolicy) Option {
	return func(o *options) {
		o.meshOptions = append(o.meshOptions, mesh.WithNonManifoldPolicy(p))
	}
}

// WithVolumeTolerance treats tetrahedra with |volume| <= tol as degenerate.
func WithVolumeTolerance(tol float64) Option {
	return func(o *options) {
		o.meshOptions = append(o.meshOptions, mesh.WithVolumeTolerance(tol))
	}
}

func (o *options) selectBackend() (accel.Backend, error) {
	if o.accelerator != nil {
		return o.accelerator, nil
	}

	if o.backend == "" {
		if b := accel.Default(); b != nil {
			return b, nil
		}
		return nil, accel.ErrBackendNotAvailable
	}

	if b := accel.Get(o.backend); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q (registered: %v)", accel.ErrBackendNotAvailable, o.backend, accel.Available())
}
