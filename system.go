package willowfx

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// emissionState is the per-system clock and accumulator driving spawns.
type emissionState struct {
	time           float64
	waitEmitting   float64
	travelDistance float64
	burstIndex     int
	burstTimes     []float64
	emitEnded      bool
}

// ParticleSystem is a runtime particle system: the emission state machine,
// gradient tables and behavior functions driving one back-end. It is
// single-threaded and advanced once per frame by Update.
type ParticleSystem struct {
	Name string
	UUID string

	// Live emitter properties. Changes take effect on the next spawn.
	Duration             float64
	Looping              bool
	Prewarm              bool
	PrewarmCycles        int
	WorldSpace           bool
	AutoDestroy          bool
	EmitRate             Value
	EmissionOverDistance *Value
	Bursts               []Burst
	StartLife            Value
	StartSpeed           Value
	StartSize            Value
	StartColor           *ColorValue
	StartRotation        *Rotation
	StartTileIndex       *Value
	Shape                EmitterShape
	// Gravity is applied to velocity each frame (point-sprite forces).
	Gravity mgl64.Vec3
	// LimitVelocityDamping scales velocity once it exceeds the limit.
	LimitVelocityDamping float64

	backend  Backend
	logger   *slog.Logger
	events   EventSink
	validate bool

	state          emissionState
	started        bool
	disposed       bool
	poolWarned     bool
	lastAnchorPos  mgl64.Vec3
	haveAnchorPos  bool
	startAngular   *Value
	prewarmStep    float64
	spawnedTotal   int
	onDisposeHooks []func()
	defaultDamping float64

	colorGradients         *ColorGradient
	sizeGradients          *NumberGradient
	velocityGradients      *NumberGradient
	angularSpeedGradients  *NumberGradient
	limitVelocityGradients *NumberGradient
	frameGradients         *NumberGradient

	behaviors   []Behavior
	particleFns []ParticleFunc
}

// SystemConfig configures NewParticleSystem.
type SystemConfig struct {
	Name    string
	UUID    string
	Config  *EmitterConfig
	Shape   EmitterShape
	Backend Backend
	Options Options
}

// NewParticleSystem wires a back-end to the emission state machine. A nil
// Config yields a default point emitter.
func NewParticleSystem(sc SystemConfig) *ParticleSystem {
	opts := sc.Options.withDefaults()
	cfg := sc.Config
	if cfg == nil {
		cfg = &EmitterConfig{Duration: opts.DefaultDuration}
	}
	ps := &ParticleSystem{
		Name:                   sc.Name,
		UUID:                   sc.UUID,
		Duration:               cfg.Duration,
		Looping:                cfg.Looping,
		Prewarm:                cfg.Prewarm,
		PrewarmCycles:          cfg.PrewarmCycles,
		WorldSpace:             cfg.WorldSpace,
		AutoDestroy:            cfg.AutoDestroy,
		EmitRate:               valueOr(cfg.EmissionOverTime, opts.DefaultEmitRate),
		EmissionOverDistance:   cfg.EmissionOverDistance,
		Bursts:                 cfg.Bursts,
		StartLife:              valueOr(cfg.StartLife, 1),
		StartSpeed:             valueOr(cfg.StartSpeed, 1),
		StartSize:              valueOr(cfg.StartSize, 1),
		StartColor:             cfg.StartColor,
		StartRotation:          cfg.StartRotation,
		StartTileIndex:         cfg.StartTileIndex,
		Shape:                  sc.Shape,
		LimitVelocityDamping:   opts.LimitVelocityDamping,
		defaultDamping:         opts.LimitVelocityDamping,
		backend:                sc.Backend,
		logger:                 opts.Logger.With("system", sc.Name),
		validate:               opts.Validate,
		events:                 opts.Events,
		prewarmStep:            opts.PrewarmStep,
		colorGradients:         NewColorGradient(),
		sizeGradients:          NewNumberGradient(),
		velocityGradients:      NewNumberGradient(),
		angularSpeedGradients:  NewNumberGradient(),
		limitVelocityGradients: NewNumberGradient(),
		frameGradients:         NewNumberGradient(),
	}
	if ps.Duration <= 0 {
		ps.Duration = opts.DefaultDuration
	}
	if ps.Shape.Rotation == (mgl64.Quat{}) {
		ps.Shape = defaultEmitterShape()
		if cfg.Shape != nil {
			ps.Shape.Shape = *cfg.Shape
		}
	}
	if ps.backend != nil {
		ps.backend.SetUpdate(ps.updateParticle)
	}
	ps.SetBehaviors(cfg.Behaviors)
	return ps
}

func valueOr(v *Value, def float64) Value {
	if v == nil {
		return Constant(def)
	}
	return *v
}

// Backend returns the system's back-end.
func (ps *ParticleSystem) Backend() Backend { return ps.backend }

// Type returns the back-end kind.
func (ps *ParticleSystem) Type() SystemType {
	if ps.backend == nil {
		return SystemBase
	}
	return ps.backend.Type()
}

// Anchor returns the node the emitter transform is applied to.
func (ps *ParticleSystem) Anchor() *Node {
	if ps.backend == nil {
		return nil
	}
	return ps.backend.Anchor()
}

// Capacity returns the fixed pool size.
func (ps *ParticleSystem) Capacity() int {
	if ps.backend == nil {
		return 0
	}
	return ps.backend.Capacity()
}

// AliveCount returns the number of live particles.
func (ps *ParticleSystem) AliveCount() int {
	if ps.backend == nil {
		return 0
	}
	n := 0
	for _, p := range ps.backend.Particles() {
		if p.Alive {
			n++
		}
	}
	return n
}

// SpawnedTotal returns how many particles have been spawned since the
// last Reset.
func (ps *ParticleSystem) SpawnedTotal() int { return ps.spawnedTotal }

// EmitEnded reports whether a non-looping system finished its cycle.
func (ps *ParticleSystem) EmitEnded() bool { return ps.state.emitEnded }

// Time returns the position in the current emission cycle.
func (ps *ParticleSystem) Time() float64 { return ps.state.time }

// IsStarted reports whether the system is emitting.
func (ps *ParticleSystem) IsStarted() bool { return ps.started && !ps.disposed }

// IsDisposed reports whether Dispose has been called.
func (ps *ParticleSystem) IsDisposed() bool { return ps.disposed }

// Start begins emission. A prewarmed system that has never run simulates
// PrewarmCycles steps first.
func (ps *ParticleSystem) Start() {
	if ps.disposed || ps.started {
		return
	}
	ps.started = true
	if ps.backend != nil {
		ps.backend.Start()
	}
	ps.emit(SystemEvent{Type: SystemStarted})
	if ps.Prewarm && ps.state.time == 0 && ps.spawnedTotal == 0 {
		for i := 0; i < ps.PrewarmCycles; i++ {
			ps.Update(ps.prewarmStep)
		}
	}
}

// Stop ends emission. Live particles keep aging until they die. An
// auto-destroy system is disposed once its last particle dies.
func (ps *ParticleSystem) Stop() {
	if ps.disposed || !ps.started {
		return
	}
	if ps.validate {
		ps.checkPoolWaste()
	}
	ps.started = false
	if ps.backend != nil {
		ps.backend.Stop()
	}
	ps.emit(SystemEvent{Type: SystemStopped})
}

// Reset kills every particle and rewinds the emission state. The started
// flag is kept.
func (ps *ParticleSystem) Reset() {
	if ps.disposed {
		return
	}
	if ps.backend != nil {
		pool := ps.backend.Particles()
		for i := range pool {
			pool[i].Alive = false
			if pool[i].visible {
				pool[i].hide()
			}
		}
	}
	ps.state = emissionState{}
	ps.haveAnchorPos = false
	ps.poolWarned = false
	ps.spawnedTotal = 0
}

// Dispose releases the pool and any owned resources. Further calls are
// no-ops.
func (ps *ParticleSystem) Dispose() {
	if ps.disposed {
		return
	}
	ps.started = false
	ps.disposed = true
	if ps.backend != nil {
		ps.backend.Dispose()
	}
	for _, fn := range ps.onDisposeHooks {
		fn()
	}
	ps.onDisposeHooks = nil
	ps.particleFns = nil
	ps.emit(SystemEvent{Type: SystemDisposed})
}

func (ps *ParticleSystem) onDispose(fn func()) {
	ps.onDisposeHooks = append(ps.onDisposeHooks, fn)
}

func (ps *ParticleSystem) emit(ev SystemEvent) {
	if ps.events == nil {
		return
	}
	ev.Name = ps.Name
	ev.UUID = ps.UUID
	ev.System = ps.Type()
	ps.events.EmitEvent(ev)
}

// Update advances the system by dt seconds: emission, bursts and loop
// handling when started, then one sweep over the pool.
func (ps *ParticleSystem) Update(dt float64) {
	if ps.disposed || ps.backend == nil {
		return
	}
	if ps.started {
		ps.advanceEmission(dt)
	}
	ps.backend.Sweep(dt)
	if ps.AutoDestroy && !ps.started && ps.spawnedTotal > 0 && ps.AliveCount() == 0 {
		ps.Dispose()
	}
}

func (ps *ParticleSystem) advanceEmission(dt float64) {
	st := &ps.state
	st.time += dt

	if !st.emitEnded {
		t := clamp01(st.time / ps.Duration)
		st.waitEmitting += dt * ps.EmitRate.Evaluate(t)

		if ps.EmissionOverDistance != nil {
			pos := ps.backend.Anchor().WorldPosition()
			if ps.haveAnchorPos {
				d := pos.Sub(ps.lastAnchorPos).Len()
				st.travelDistance += d
				st.waitEmitting += d * ps.EmissionOverDistance.Evaluate(t)
			}
			ps.lastAnchorPos = pos
			ps.haveAnchorPos = true
		}

		if n := math.Floor(st.waitEmitting); n >= 1 {
			st.waitEmitting -= n
			ps.Spawn(int(n))
		}

		if len(st.burstTimes) != len(ps.Bursts) {
			st.burstTimes = ps.drawBurstTimes()
		}
		for st.burstIndex < len(ps.Bursts) {
			b := ps.Bursts[st.burstIndex]
			if st.burstTimes[st.burstIndex] > st.time {
				break
			}
			if b.Probability >= 1 || rand.Float64() < b.Probability {
				ps.Spawn(int(math.Round(b.Count.Evaluate(t))))
			}
			st.burstIndex++
		}
	}

	if st.time > ps.Duration {
		if ps.Looping {
			st.time -= ps.Duration
			st.burstIndex = 0
			st.burstTimes = nil
		} else {
			st.emitEnded = true
		}
	}
}

// drawBurstTimes samples each burst's fire time once for the cycle that is
// starting.
func (ps *ParticleSystem) drawBurstTimes() []float64 {
	times := make([]float64, len(ps.Bursts))
	for i, b := range ps.Bursts {
		times[i] = b.Time.Evaluate(0)
	}
	return times
}

// Spawn activates up to count dead slots, first-fit. It returns how many
// particles were spawned; requests beyond capacity are dropped and logged
// once per exhaustion episode.
func (ps *ParticleSystem) Spawn(count int) int {
	if ps.disposed || ps.backend == nil || count <= 0 {
		return 0
	}
	pool := ps.backend.Particles()
	nt := clamp01(ps.state.time / ps.Duration)
	spawnMatrix := mgl64.Ident4()
	if ps.WorldSpace {
		spawnMatrix = ps.backend.SpawnMatrix()
	}

	spawned := 0
	slot := 0
	for ; spawned < count; spawned++ {
		for slot < len(pool) && pool[slot].Alive {
			slot++
		}
		if slot == len(pool) {
			break
		}
		ps.initParticle(&pool[slot], nt, spawnMatrix)
		slot++
	}
	ps.spawnedTotal += spawned

	if dropped := count - spawned; dropped > 0 {
		if !ps.poolWarned {
			ps.logger.Warn("particle pool exhausted", "capacity", len(pool), "dropped", dropped)
			ps.poolWarned = true
		}
		ps.emit(SystemEvent{Type: PoolExhausted, Dropped: dropped})
	} else {
		ps.poolWarned = false
	}
	return spawned
}

// initParticle resets a slot and draws its start properties. nt is the
// normalized cycle time shared by the whole batch.
func (ps *ParticleSystem) initParticle(p *Particle, nt float64, spawnMatrix mgl64.Mat4) {
	p.reset()

	if ps.StartColor != nil {
		p.StartColor = ps.StartColor.Evaluate(nt)
	}
	p.Color = p.StartColor

	speed := ps.StartSpeed.Evaluate(nt)
	p.Lifetime = ps.StartLife.Evaluate(nt)

	size := ps.StartSize.Evaluate(nt)
	p.StartSize = size
	p.Scale = mgl64.Vec3{size * p.StartScaleX, size * p.StartScaleY, size}

	if ps.StartRotation != nil {
		p.Rotation = ps.StartRotation.eulerAngles(nt)
		p.Orientation = ps.StartRotation.orientation(nt)
	}
	if ps.startAngular != nil {
		p.AngularSpeed = ps.startAngular.Evaluate(nt)
	}
	if ps.StartTileIndex != nil {
		p.StartCell = int(math.Floor(ps.StartTileIndex.Evaluate(nt)))
		p.Cell = p.StartCell
	}

	pos, vel := ps.Shape.place(speed)
	if ps.WorldSpace {
		pos = mgl64.TransformCoordinate(pos, spawnMatrix)
		if dir := mgl64.TransformNormal(vel, spawnMatrix); dir.Len() > 0 {
			vel = dir.Normalize().Mul(vel.Len())
		}
	}
	p.Position = pos
	p.Velocity = vel
}

// updateParticle is the back-end update callback.
func (ps *ParticleSystem) updateParticle(p *Particle, dt float64) {
	if !p.Alive {
		if p.visible {
			p.hide()
		}
		return
	}

	life := p.LifeRatio()

	if c, ok := ps.colorGradients.At(life); ok {
		p.Color = c.Mul(p.StartColor)
	}
	if s, ok := ps.sizeGradients.At(life); ok {
		size := p.StartSize * s
		p.Scale = mgl64.Vec3{size * p.StartScaleX, size * p.StartScaleY, size}
	}
	if v, ok := ps.velocityGradients.At(life); ok {
		p.SpeedModifier = v
	}
	if a, ok := ps.angularSpeedGradients.At(life); ok {
		p.Rotation[2] += a * dt
	} else if p.AngularSpeed != 0 {
		p.Rotation[2] += p.AngularSpeed * dt
	}
	if limit, ok := ps.limitVelocityGradients.At(life); ok {
		if speed := p.Velocity.Len(); speed > limit && speed > 0 {
			p.Velocity = p.Velocity.Mul(limit / speed * ps.LimitVelocityDamping)
		}
	}
	if f, ok := ps.frameGradients.At(life); ok {
		p.Cell = p.StartCell + int(math.Floor(f))
	}
	if ps.Gravity != (mgl64.Vec3{}) {
		p.Velocity = p.Velocity.Add(ps.Gravity.Mul(dt))
	}

	for _, fn := range ps.particleFns {
		fn(p, dt)
	}

	p.Position = p.Position.Add(p.Velocity.Mul(dt * p.SpeedModifier))
	p.visible = true
}

// --- Gradient tables ---

// AddColorGradient adds a color-over-life key.
func (ps *ParticleSystem) AddColorGradient(pos float64, c Color) { ps.colorGradients.Add(pos, c) }

// AddSizeGradient adds a size-over-life multiplier key.
func (ps *ParticleSystem) AddSizeGradient(pos, v float64) { ps.sizeGradients.Add(pos, v) }

// AddVelocityGradient adds a speed-modifier key.
func (ps *ParticleSystem) AddVelocityGradient(pos, v float64) { ps.velocityGradients.Add(pos, v) }

// AddAngularSpeedGradient adds an angular-speed key in radians per second.
func (ps *ParticleSystem) AddAngularSpeedGradient(pos, v float64) {
	ps.angularSpeedGradients.Add(pos, v)
}

// AddLimitVelocityGradient adds a speed-limit key.
func (ps *ParticleSystem) AddLimitVelocityGradient(pos, v float64) {
	ps.limitVelocityGradients.Add(pos, v)
}

// AddFrameGradient adds a sprite-cell offset key.
func (ps *ParticleSystem) AddFrameGradient(pos, v float64) { ps.frameGradients.Add(pos, v) }

// ColorGradients returns the color table.
func (ps *ParticleSystem) ColorGradients() *ColorGradient { return ps.colorGradients }

// SizeGradients returns the size table.
func (ps *ParticleSystem) SizeGradients() *NumberGradient { return ps.sizeGradients }

// VelocityGradients returns the speed-modifier table.
func (ps *ParticleSystem) VelocityGradients() *NumberGradient { return ps.velocityGradients }

// AngularSpeedGradients returns the angular-speed table.
func (ps *ParticleSystem) AngularSpeedGradients() *NumberGradient { return ps.angularSpeedGradients }

// LimitVelocityGradients returns the speed-limit table.
func (ps *ParticleSystem) LimitVelocityGradients() *NumberGradient {
	return ps.limitVelocityGradients
}

// FrameGradients returns the sprite-cell table.
func (ps *ParticleSystem) FrameGradients() *NumberGradient { return ps.frameGradients }

func (ps *ParticleSystem) clearGradients() {
	ps.colorGradients.Clear()
	ps.sizeGradients.Clear()
	ps.velocityGradients.Clear()
	ps.angularSpeedGradients.Clear()
	ps.limitVelocityGradients.Clear()
	ps.frameGradients.Clear()
}
