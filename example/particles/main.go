package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"

	"github.com/akmonengine/tetquery"
	_ "github.com/akmonengine/tetquery/accel/software"
	"github.com/akmonengine/tetquery/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Particle is a point moving through the mesh
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	TetID    int32
}

// SetupScene creates a box mesh and a cloud of particles above its center
func SetupScene(count int) ([]mgl64.Vec3, []mesh.Tet, []Particle) {
	vertices, tets := mesh.GridMesh(10, 10, 10, 0.5, mgl64.Vec3{-2.5, 0, -2.5})

	rng := rand.New(rand.NewSource(1))
	particles := make([]Particle, count)
	for i := range particles {
		particles[i] = Particle{
			Position: mgl32.Vec3{rng.Float32() - 0.5, 4 + rng.Float32(), rng.Float32() - 0.5},
			Velocity: mgl32.Vec3{4 * (rng.Float32() - 0.5), 0, 4 * (rng.Float32() - 0.5)},
			TetID:    tetquery.NotFound,
		}
	}

	return vertices, tets, particles
}

// Integrate applies gravity with a semi-implicit Euler step
func Integrate(particles []Particle, dt float32) {
	gravity := mgl32.Vec3{0, -9.81, 0}
	for i := range particles {
		p := &particles[i]
		p.Velocity = p.Velocity.Add(gravity.Mul(dt))
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
	}
}

// Locate updates the tetrahedron of every particle with one batched query
func Locate(q *tetquery.TetQuery, particles []Particle) error {
	ctx := q.Context()

	positions := make([]mgl32.Vec3, len(particles))
	for i, p := range particles {
		positions[i] = p.Position
	}

	in, err := ctx.UploadFloatParticles(positions)
	if err != nil {
		return err
	}
	defer ctx.Free(in)

	out, err := ctx.NewTetIDs(len(particles))
	if err != nil {
		return err
	}
	defer ctx.Free(out)

	if err := q.QueryFloat(in, out, len(particles)); err != nil {
		return err
	}

	ids, err := ctx.ReadTetIDs(out)
	if err != nil {
		return err
	}
	for i := range particles {
		particles[i].TetID = ids[i]
	}
	return nil
}

func main() {
	if len(os.Getenv("TETQUERY_DEBUG")) > 0 {
		tetquery.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var opts []tetquery.Option
	if len(os.Args) > 1 {
		cfg, err := tetquery.ReadConfig(os.Args[1])
		if err != nil {
			log.Fatal(err.Error())
		}
		opts = cfg.Options()
	}

	vertices, tets, particles := SetupScene(100000)

	q, err := tetquery.New(vertices, tets, opts...)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer q.Close()

	stats := q.Graph().Stats()
	fmt.Println("🧪 Particles falling through a tetrahedral box")
	fmt.Println("==============================================")
	fmt.Printf("  Tetrahedra: %d (%d ignored)\n", stats.ActiveTets, stats.InactiveTets)
	fmt.Printf("  Faces: %d boundary, %d internal\n", stats.BoundaryFaces, stats.InternalFaces)
	fmt.Printf("  Longest edge: %.4f\n", q.Graph().MaxEdgeLength)
	fmt.Printf("  Particles: %d\n", len(particles))
	fmt.Println()

	const dt float32 = 1.0 / 60.0
	const maxSteps int = 90

	for step := 0; step < maxSteps; step++ {
		Integrate(particles, dt)
		if err := Locate(q, particles); err != nil {
			log.Fatal(err.Error())
		}

		if step%10 != 0 {
			continue
		}

		inside := 0
		occupied := make(map[int32]int)
		for _, p := range particles {
			if p.TetID != tetquery.NotFound {
				inside++
				occupied[p.TetID]++
			}
		}
		fmt.Printf("--- STEP %d ---\n", step+1)
		fmt.Printf("  Inside the mesh: %d / %d\n", inside, len(particles))
		fmt.Printf("  Occupied tetrahedra: %d\n", len(occupied))
		fmt.Printf("  First particle: position=%v tet=%d\n", particles[0].Position, particles[0].TetID)
	}

	fmt.Println("Done!")
}
