package accel

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// mockBackend records calls and fails on demand.
type mockBackend struct {
	name    string
	initErr error
	failOp  string

	inited bool
	closed bool
	nextID uint64
	freed  []BufferID
	calls  []string
}

var errMock = errors.New("mock: injected failure")

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Init() error {
	m.calls = append(m.calls, "init")
	if m.initErr != nil {
		return m.initErr
	}
	m.inited = true
	return nil
}

func (m *mockBackend) Close() {
	m.calls = append(m.calls, "close")
	m.closed = true
}

func (m *mockBackend) op(name string) error {
	m.calls = append(m.calls, name)
	if m.failOp == name {
		return errMock
	}
	return nil
}

func (m *mockBackend) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *mockBackend) AllocFloat3([]mgl32.Vec3) (BufferID, error) {
	if err := m.op("alloc3f"); err != nil {
		return InvalidID, err
	}
	return BufferID(m.id()), nil
}

func (m *mockBackend) AllocDouble3([]mgl64.Vec3) (BufferID, error) {
	if err := m.op("alloc3d"); err != nil {
		return InvalidID, err
	}
	return BufferID(m.id()), nil
}

func (m *mockBackend) AllocInt32(int) (BufferID, error) {
	if err := m.op("alloci"); err != nil {
		return InvalidID, err
	}
	return BufferID(m.id()), nil
}

func (m *mockBackend) ReadInt32(_ BufferID, dst []int32) error {
	if err := m.op("read"); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int32(i)
	}
	return nil
}

func (m *mockBackend) Free(id BufferID) {
	m.calls = append(m.calls, "free")
	m.freed = append(m.freed, id)
}

func (m *mockBackend) BuildAccel(Triangles) (GroupID, error) {
	if err := m.op("accel"); err != nil {
		return InvalidID, err
	}
	return GroupID(m.id()), nil
}

func (m *mockBackend) BuildPipeline(string) error {
	return m.op("pipeline")
}

func (m *mockBackend) Launch2D(int, int, LaunchParams) error {
	return m.op("launch")
}
