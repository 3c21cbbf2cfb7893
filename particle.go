package willowfx

import "github.com/go-gl/mathgl/mgl64"

// Particle is one pool slot. A slot is either alive or dead; dead slots are
// never advanced and are recycled first-fit by the owning system.
type Particle struct {
	Alive    bool
	Age      float64
	Lifetime float64

	Position mgl64.Vec3
	Velocity mgl64.Vec3
	// Rotation is the euler spin in radians; Z is the billboard angle.
	Rotation mgl64.Vec3
	// Orientation is a fixed orientation applied before Rotation.
	Orientation mgl64.Quat
	Scale       mgl64.Vec3
	Color       Color

	StartColor   Color
	StartSize    float64
	StartScaleX  float64
	StartScaleY  float64
	AngularSpeed float64
	// SpeedModifier scales velocity during integration (SpeedOverLife).
	SpeedModifier float64
	// Cell is the sprite-sheet cell index.
	Cell      int
	StartCell int

	visible     bool
	orbitOrigin mgl64.Vec3
	orbitSet    bool
}

// reset prepares a recycled slot for a new particle.
func (p *Particle) reset() {
	*p = Particle{
		Alive:         true,
		Orientation:   mgl64.QuatIdent(),
		Scale:         mgl64.Vec3{1, 1, 1},
		Color:         ColorWhite,
		StartColor:    ColorWhite,
		StartSize:     1,
		StartScaleX:   1,
		StartScaleY:   1,
		SpeedModifier: 1,
	}
}

// hide zeroes the geometry of a particle that died while visible.
func (p *Particle) hide() {
	p.Scale = mgl64.Vec3{}
	p.Color.A = 0
	p.visible = false
}

// LifeRatio returns age/lifetime, or 1 for a particle with no lifetime.
func (p *Particle) LifeRatio() float64 {
	if p.Lifetime <= 0 {
		return 1
	}
	return p.Age / p.Lifetime
}

// ParticleFunc is a per-particle behavior invoked once per live particle
// per frame, in registration order.
type ParticleFunc func(p *Particle, dt float64)

// Backend is particle storage plus rendering. The engine supplies the
// per-particle update and drives the sweep; the back-end owns the pool,
// ages particles and detects death.
type Backend interface {
	Type() SystemType
	// Anchor is the node the emitter's transform is applied to.
	Anchor() *Node
	Capacity() int
	// Particles returns the pool. Slot order is stable for the back-end's lifetime.
	Particles() []Particle
	// SpawnMatrix maps spawn-local coordinates to world space.
	SpawnMatrix() mgl64.Mat4
	// SetUpdate registers the per-particle update callback.
	SetUpdate(fn ParticleFunc)
	// Sweep ages every live particle by dt, marks expired ones dead, then
	// calls the update callback for every slot in order.
	Sweep(dt float64)
	Start()
	Stop()
	IsActive() bool
	Dispose()
	IsDisposed() bool
}

// pool is the storage shared by both back-ends.
type pool struct {
	name       string
	anchor     *Node
	particles  []Particle
	update     ParticleFunc
	active     bool
	disposed   bool
	worldSpace bool
}

// newPool preallocates capacity slots. A non-positive capacity gets 128.
func newPool(name string, capacity int, anchor *Node, worldSpace bool) pool {
	if capacity <= 0 {
		capacity = 128
	}
	return pool{
		name:       name,
		anchor:     anchor,
		particles:  make([]Particle, capacity),
		worldSpace: worldSpace,
	}
}

func (p *pool) Anchor() *Node { return p.anchor }

func (p *pool) Capacity() int { return len(p.particles) }

func (p *pool) Particles() []Particle { return p.particles }

func (p *pool) SetUpdate(fn ParticleFunc) { p.update = fn }

// Start marks the pool active for rendering.
func (p *pool) Start() { p.active = true }

// Stop marks the pool inactive. Existing particles still live out.
func (p *pool) Stop() { p.active = false }

func (p *pool) IsActive() bool { return p.active }

func (p *pool) IsDisposed() bool { return p.disposed }

func (p *pool) Sweep(dt float64) {
	if p.disposed {
		return
	}
	for i := range p.particles {
		pt := &p.particles[i]
		if pt.Alive {
			pt.Age += dt
			if pt.Age >= pt.Lifetime {
				pt.Alive = false
			}
		}
		if p.update != nil {
			p.update(pt, dt)
		}
	}
}

// dispose releases the pool and detaches the anchor.
func (p *pool) dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.active = false
	p.particles = nil
	p.update = nil
	if p.anchor != nil {
		p.anchor.Dispose()
	}
}

// aliveCount counts live slots.
func (p *pool) aliveCount() int {
	n := 0
	for i := range p.particles {
		if p.particles[i].Alive {
			n++
		}
	}
	return n
}
