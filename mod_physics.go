package arbor

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/arbor/scene"
)

// PhysicsModule runs a minimal rigid-body integrator on a background
// goroutine. Results flow into the graph exclusively through the
// atomic transform path, so the integrator never takes the graph
// thread.
type PhysicsModule struct {
	Gravity         mgl32.Vec3
	UpdateFrequency float32 // Hz, default 60
}

func (m PhysicsModule) Install(app *App, cmd *Commands) {
	gravity := m.Gravity
	if gravity == (mgl32.Vec3{}) {
		gravity = mgl32.Vec3{0, 0, -9.81}
	}
	hz := m.UpdateFrequency
	if hz <= 0 {
		hz = 60
	}

	driver := NewPhysicsDriver(gravity)
	cmd.AddResources(driver)
	driver.Start(hz)

	app.UseSystem(
		System(physicsBindSystem).
			InStage(Prelude),
	)
}

// physicsBindSystem installs the driver as the scene's physics world.
// Runs every frame; binding is a cheap no-op once done.
func physicsBindSystem(graph *scene.Scene, driver *PhysicsDriver) {
	if !driver.bound {
		graph.SetPhysicsWorld(driver)
		driver.bound = true
	}
}

// PhysicsDriver implements scene.PhysicsWorld. Body registration comes
// from the graph thread while the integrator loop reads the set from
// its own goroutine, so the set is mutex-guarded.
type PhysicsDriver struct {
	mu      sync.Mutex
	bodies  map[*scene.PhysicsBody]struct{}
	gravity mgl32.Vec3

	stop chan struct{}
	wg   sync.WaitGroup

	bound bool
}

func NewPhysicsDriver(gravity mgl32.Vec3) *PhysicsDriver {
	return &PhysicsDriver{
		bodies:  make(map[*scene.PhysicsBody]struct{}),
		gravity: gravity,
	}
}

func (d *PhysicsDriver) AddBody(body *scene.PhysicsBody) {
	d.mu.Lock()
	d.bodies[body] = struct{}{}
	d.mu.Unlock()
}

func (d *PhysicsDriver) RemoveBody(body *scene.PhysicsBody) {
	d.mu.Lock()
	delete(d.bodies, body)
	d.mu.Unlock()
}

// Start launches the integrator loop at the given frequency.
func (d *PhysicsDriver) Start(hz float32) {
	d.stop = make(chan struct{})
	interval := time.Duration(float64(time.Second) / float64(hz))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-d.stop:
				return
			case now := <-ticker.C:
				dt := float32(now.Sub(last).Seconds())
				last = now
				d.step(dt)
			}
		}
	}()
}

// Stop shuts the integrator down and waits for the loop to exit.
func (d *PhysicsDriver) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	d.wg.Wait()
	d.stop = nil
}

// step advances every dynamic body by dt: gravity into velocity,
// velocity into position, position into the node's atomic mirror.
func (d *PhysicsDriver) step(dt float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for body := range d.bodies {
		if body.Kind != scene.BodyDynamic {
			continue
		}
		node := body.Node()
		if node == nil {
			continue
		}

		body.Velocity = body.Velocity.Add(d.gravity.Mul(dt))

		pos := node.WorldPositionAtomic().Add(body.Velocity.Mul(dt))
		node.SetWorldTransformAtomic(pos, node.WorldRotationAtomic())
	}
}
