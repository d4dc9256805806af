package mesh

import (
	"errors"
	"fmt"

	"github.com/akmonengine/tetquery/facekey"
)

var (
	// ErrDegenerateGeometry matches diagnostics for duplicate-vertex or zero-volume tetrahedra.
	ErrDegenerateGeometry = errors.New("mesh: degenerate tetrahedron ignored")
	// ErrIndexRangeExceeded matches diagnostics for vertex indices that do not fit a face key.
	ErrIndexRangeExceeded = facekey.ErrIndexRangeExceeded
	// ErrNonManifoldFace matches diagnostics for faces claimed twice on the same side.
	ErrNonManifoldFace = errors.New("mesh: non-manifold face")
	// ErrVertexOutOfBounds is returned when a tetrahedron references a missing vertex.
	ErrVertexOutOfBounds = errors.New("mesh: vertex index out of bounds")
)

type DiagnosticKind uint8

const (
	DegenerateGeometryIgnored DiagnosticKind = iota
	IndexRangeExceeded
	NonManifoldFace

	diagnosticKinds
)

func (k DiagnosticKind) String() string {
	switch k {
	case DegenerateGeometryIgnored:
		return "DegenerateGeometryIgnored"
	case IndexRangeExceeded:
		return "IndexRangeExceeded"
	case NonManifoldFace:
		return "NonManifoldFace"
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

func (k DiagnosticKind) sentinel() error {
	switch k {
	case DegenerateGeometryIgnored:
		return ErrDegenerateGeometry
	case IndexRangeExceeded:
		return ErrIndexRangeExceeded
	case NonManifoldFace:
		return ErrNonManifoldFace
	}
	return nil
}

// Diagnostic is a construction-time anomaly. Construction continues past it.
type Diagnostic struct {
	Kind  DiagnosticKind
	TetID int
	// FaceID and Previous are only set for NonManifoldFace: the face slot and
	// the tetrahedron that held the contested side before TetID.
	FaceID   int
	Previous int
	Reason   string
}

func (d Diagnostic) Error() string {
	switch d.Kind {
	case NonManifoldFace:
		return fmt.Sprintf("%s: tet %d: face %d side already owned by tet %d", d.Kind, d.TetID, d.FaceID, d.Previous)
	default:
		return fmt.Sprintf("%s: tet %d: %s", d.Kind, d.TetID, d.Reason)
	}
}

// Unwrap lets errors.Is match a diagnostic against its kind's sentinel error.
func (d Diagnostic) Unwrap() error {
	return d.Kind.sentinel()
}

// Report collects the diagnostics of one Build.
type Report struct {
	Diagnostics []Diagnostic
	counts      [diagnosticKinds]int
}

func (r *Report) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	r.counts[d.Kind]++
}

// Count returns the number of diagnostics of the given kind.
func (r *Report) Count(kind DiagnosticKind) int {
	if kind >= diagnosticKinds {
		return 0
	}
	return r.counts[kind]
}

func (r *Report) Empty() bool {
	return len(r.Diagnostics) == 0
}

// Err joins all diagnostics into one error, or returns nil when there are none.
func (r *Report) Err() error {
	if r.Empty() {
		return nil
	}

	errs := make([]error, len(r.Diagnostics))
	for i := range r.Diagnostics {
		errs[i] = r.Diagnostics[i]
	}
	return errors.Join(errs...)
}
