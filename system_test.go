package willowfx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func constPtr(v float64) *Value {
	c := Constant(v)
	return &c
}

// newTestSystem builds a system on a back-end of the given type and size.
func newTestSystem(t *testing.T, cfg *EmitterConfig, capacity int, typ SystemType, opts Options) *ParticleSystem {
	t.Helper()
	b, err := NewBackend(BackendSpec{Name: "test", Type: typ, Capacity: capacity, Anchor: NewNode("anchor")})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return NewParticleSystem(SystemConfig{Name: "test", UUID: "test-uuid", Config: cfg, Backend: b, Options: opts})
}

func step(ps *ParticleSystem, n int, dt float64) {
	for i := 0; i < n; i++ {
		ps.Update(dt)
	}
}

type eventLog struct {
	events []SystemEvent
}

func (l *eventLog) EmitEvent(ev SystemEvent) { l.events = append(l.events, ev) }

func (l *eventLog) count(typ SystemEventType) int {
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// --- Construction ---

func TestNewParticleSystemDefaults(t *testing.T) {
	ps := newTestSystem(t, nil, 16, SystemBase, Options{})
	assertNear(t, "Duration", ps.Duration, 5)
	assertNear(t, "EmitRate", ps.EmitRate.Mean(), 10)
	assertNear(t, "StartLife", ps.StartLife.Mean(), 1)
	assertNear(t, "LimitVelocityDamping", ps.LimitVelocityDamping, 0.1)
	if ps.Shape.Shape.Kind != ShapePoint || ps.Shape.Scale != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("Shape = %+v", ps.Shape)
	}
	if ps.IsStarted() {
		t.Error("new system should not be started")
	}
	if ps.Capacity() != 16 {
		t.Errorf("Capacity = %d, want 16", ps.Capacity())
	}
}

func TestNewParticleSystemKeepsConfigShape(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, Shape: &Shape{Kind: ShapeCone, Radius: 2}}
	ps := newTestSystem(t, cfg, 4, SystemBase, Options{})
	if ps.Shape.Shape.Kind != ShapeCone || ps.Shape.Shape.Radius != 2 {
		t.Errorf("Shape = %+v", ps.Shape.Shape)
	}
}

// --- Emission ---

func TestEmissionConservation(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:         5,
		EmissionOverTime: constPtr(10),
		StartLife:        constPtr(100),
	}
	ps := newTestSystem(t, cfg, 200, SystemBase, Options{})
	ps.Start()

	step(ps, 310, 1.0/60)
	if !ps.EmitEnded() {
		t.Fatal("non-looping system should end emission after its duration")
	}
	spawned := ps.SpawnedTotal()
	if spawned < 49 || spawned > 51 {
		t.Errorf("spawned = %d, want 50±1", spawned)
	}

	step(ps, 120, 1.0/60)
	if ps.SpawnedTotal() != spawned {
		t.Errorf("spawned after end = %d, want %d", ps.SpawnedTotal(), spawned)
	}
}

func TestEmissionFractionalAccumulation(t *testing.T) {
	cfg := &EmitterConfig{Duration: 10, Looping: true, EmissionOverTime: constPtr(1), StartLife: constPtr(100)}
	ps := newTestSystem(t, cfg, 16, SystemBase, Options{})
	ps.Start()

	step(ps, 4, 0.2)
	if ps.SpawnedTotal() != 0 {
		t.Errorf("spawned = %d before a whole particle accumulated", ps.SpawnedTotal())
	}
	step(ps, 2, 0.2)
	if ps.SpawnedTotal() != 1 {
		t.Errorf("spawned = %d, want 1", ps.SpawnedTotal())
	}
}

func TestNoEmissionWhenStopped(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, Looping: true, EmissionOverTime: constPtr(100)}
	ps := newTestSystem(t, cfg, 64, SystemBase, Options{})
	step(ps, 10, 0.1)
	if ps.SpawnedTotal() != 0 {
		t.Errorf("spawned = %d without Start", ps.SpawnedTotal())
	}
}

func TestBurstFiresOncePerCycle(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:         1,
		Looping:          true,
		EmissionOverTime: constPtr(0),
		StartLife:        constPtr(100),
		Bursts:           []Burst{{Time: Constant(0.5), Count: Constant(7), Probability: 1}},
	}
	ps := newTestSystem(t, cfg, 64, SystemBase, Options{})
	ps.Start()

	ps.Update(0.25)
	if ps.SpawnedTotal() != 0 {
		t.Fatalf("spawned = %d before burst time", ps.SpawnedTotal())
	}
	ps.Update(0.3)
	if ps.SpawnedTotal() != 7 {
		t.Fatalf("spawned = %d, want 7", ps.SpawnedTotal())
	}
	ps.Update(0.2)
	if ps.SpawnedTotal() != 7 {
		t.Fatalf("burst repeated within a cycle: %d", ps.SpawnedTotal())
	}

	// Cross the loop boundary, then reach the burst time again.
	ps.Update(0.3)
	ps.Update(0.5)
	if ps.SpawnedTotal() != 14 {
		t.Errorf("spawned = %d after second cycle, want 14", ps.SpawnedTotal())
	}
}

func TestBurstIntervalTimeDrawnOncePerCycle(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:         1,
		Looping:          true,
		EmissionOverTime: constPtr(0),
		StartLife:        constPtr(100),
		Bursts:           []Burst{{Time: Interval(0.2, 0.8), Count: Constant(3), Probability: 1}},
	}
	ps := newTestSystem(t, cfg, 64, SystemBase, Options{})
	ps.Start()

	ps.Update(0.01)
	drawn := ps.state.burstTimes[0]
	if drawn < 0.2 || drawn > 0.8 {
		t.Fatalf("drawn burst time = %v, want within [0.2, 0.8]", drawn)
	}
	for ps.SpawnedTotal() == 0 && ps.Time() < 1 {
		if ps.state.burstTimes[0] != drawn {
			t.Fatalf("burst time redrawn mid-cycle: %v then %v", drawn, ps.state.burstTimes[0])
		}
		ps.Update(0.01)
	}
	if ps.SpawnedTotal() != 3 {
		t.Fatalf("spawned = %d, want 3", ps.SpawnedTotal())
	}
	if fired := ps.Time(); fired < drawn || fired > drawn+0.01+1e-9 {
		t.Errorf("burst fired at %v, want the first frame at or after %v", fired, drawn)
	}

	// A new cycle draws again and fires once more.
	for prev := ps.Time(); ; prev = ps.Time() {
		ps.Update(0.01)
		if ps.Time() < prev {
			break
		}
	}
	for ps.Time() < 0.85 {
		ps.Update(0.01)
	}
	if ps.SpawnedTotal() != 6 {
		t.Errorf("spawned = %d after second cycle, want 6", ps.SpawnedTotal())
	}
}

func TestPoolWasteWarnsOnStopWhenValidating(t *testing.T) {
	for _, validate := range []bool{false, true} {
		var buf bytes.Buffer
		opts := Options{Logger: slog.New(slog.NewTextHandler(&buf, nil)), Validate: validate}
		ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(100), EmissionOverTime: constPtr(0)}, 256, SystemBase, opts)
		ps.Start()
		ps.Spawn(2)
		ps.Stop()

		warned := strings.Contains(buf.String(), "pool mostly unused")
		if warned != validate {
			t.Errorf("validate=%v: warned = %v, log %q", validate, warned, buf.String())
		}
		if validate && !strings.Contains(buf.String(), "capacity=256") {
			t.Errorf("log %q should carry the capacity", buf.String())
		}
	}
}

func TestLifecycleWithoutBackend(t *testing.T) {
	events := &eventLog{}
	ps := NewParticleSystem(SystemConfig{Name: "bare", Options: Options{Events: events, Validate: true}})
	ps.Start()
	ps.Update(0.1)
	ps.Reset()
	ps.Stop()
	if events.count(SystemStarted) != 1 || events.count(SystemStopped) != 1 {
		t.Errorf("events = %+v", events.events)
	}
	if ps.AliveCount() != 0 || ps.Capacity() != 0 {
		t.Errorf("alive=%d capacity=%d, want 0", ps.AliveCount(), ps.Capacity())
	}
	ps.Dispose()
}

func TestBurstZeroProbabilityNeverFires(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:         1,
		EmissionOverTime: constPtr(0),
		Bursts:           []Burst{{Time: Constant(0), Count: Constant(5), Probability: 0}},
	}
	ps := newTestSystem(t, cfg, 16, SystemBase, Options{})
	ps.Start()
	step(ps, 10, 0.1)
	if ps.SpawnedTotal() != 0 {
		t.Errorf("spawned = %d, want 0", ps.SpawnedTotal())
	}
}

func TestLoopingWrapsTime(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, Looping: true, EmissionOverTime: constPtr(0)}
	ps := newTestSystem(t, cfg, 4, SystemBase, Options{})
	ps.Start()
	step(ps, 3, 0.5)
	if ps.EmitEnded() {
		t.Error("looping system should never end emission")
	}
	if ps.Time() < 0 || ps.Time() > 1 {
		t.Errorf("Time = %v, want within one cycle", ps.Time())
	}
}

func TestEmissionOverDistance(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:             10,
		Looping:              true,
		EmissionOverTime:     constPtr(0),
		EmissionOverDistance: constPtr(2),
		StartLife:            constPtr(100),
	}
	ps := newTestSystem(t, cfg, 64, SystemBase, Options{})
	ps.Start()

	ps.Update(0.1)
	if ps.SpawnedTotal() != 0 {
		t.Fatalf("spawned = %d without movement", ps.SpawnedTotal())
	}
	ps.Anchor().SetPosition(mgl64.Vec3{3, 0, 0})
	ps.Update(0.1)
	if ps.SpawnedTotal() != 6 {
		t.Errorf("spawned = %d after moving 3 units at 2/unit, want 6", ps.SpawnedTotal())
	}
}

// --- Pool ---

func TestPoolExhaustionDropsAndWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	events := &eventLog{}
	opts := Options{Logger: slog.New(slog.NewTextHandler(&buf, nil)), Events: events}
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(100)}, 10, SystemBase, opts)

	if got := ps.Spawn(15); got != 10 {
		t.Errorf("Spawn(15) = %d, want 10", got)
	}
	if ps.AliveCount() != 10 {
		t.Errorf("alive = %d, want 10", ps.AliveCount())
	}
	if got := ps.Spawn(3); got != 0 {
		t.Errorf("Spawn on a full pool = %d, want 0", got)
	}

	if n := strings.Count(buf.String(), "particle pool exhausted"); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
	if n := events.count(PoolExhausted); n != 2 {
		t.Errorf("PoolExhausted events = %d, want 2", n)
	}
	if events.events[0].Dropped != 5 || events.events[0].UUID != "test-uuid" {
		t.Errorf("first event = %+v", events.events[0])
	}
}

func TestPoolReusesDeadSlots(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(0.5)}, 4, SystemBase, Options{})
	ps.Spawn(4)
	ps.Update(0.6)
	if ps.AliveCount() != 0 {
		t.Fatalf("alive = %d after lifetime, want 0", ps.AliveCount())
	}
	if got := ps.Spawn(4); got != 4 {
		t.Errorf("respawn = %d, want 4", got)
	}
}

func TestDeadParticlesAreHidden(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(0.1)}, 1, SystemBase, Options{})
	ps.Spawn(1)
	ps.Update(0.05)
	p := &ps.Backend().Particles()[0]
	if !p.visible {
		t.Fatal("live particle should be visible after an update")
	}
	ps.Update(0.1)
	if p.Alive || p.visible || p.Scale != (mgl64.Vec3{}) {
		t.Errorf("dead particle = %+v", p)
	}
}

// --- Lifecycle ---

func TestStartStopResetSemantics(t *testing.T) {
	events := &eventLog{}
	cfg := &EmitterConfig{Duration: 1, Looping: true, EmissionOverTime: constPtr(100), StartLife: constPtr(10)}
	ps := newTestSystem(t, cfg, 256, SystemBase, Options{Events: events})

	ps.Start()
	ps.Start()
	if events.count(SystemStarted) != 1 {
		t.Errorf("started events = %d, want 1", events.count(SystemStarted))
	}
	ps.Update(0.1)
	if ps.AliveCount() == 0 {
		t.Fatal("expected particles after update")
	}

	ps.Stop()
	alive := ps.AliveCount()
	spawned := ps.SpawnedTotal()
	ps.Update(0.1)
	if ps.SpawnedTotal() != spawned {
		t.Error("stopped system should not spawn")
	}
	if ps.AliveCount() != alive {
		t.Error("stopped system should keep aging live particles")
	}

	ps.Start()
	ps.Reset()
	if ps.AliveCount() != 0 || ps.SpawnedTotal() != 0 || ps.Time() != 0 {
		t.Errorf("after Reset alive=%d spawned=%d time=%v", ps.AliveCount(), ps.SpawnedTotal(), ps.Time())
	}
	if !ps.IsStarted() {
		t.Error("Reset should keep the started flag")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	events := &eventLog{}
	ps := newTestSystem(t, nil, 8, SystemBase, Options{Events: events})
	anchor := ps.Anchor()
	ps.Start()
	ps.Dispose()
	ps.Dispose()

	if !ps.IsDisposed() || ps.IsStarted() {
		t.Error("system should be disposed and stopped")
	}
	if !anchor.IsDisposed() {
		t.Error("anchor should be disposed with the system")
	}
	if events.count(SystemDisposed) != 1 {
		t.Errorf("disposed events = %d, want 1", events.count(SystemDisposed))
	}
	// Calls after dispose are no-ops.
	ps.Update(0.1)
	ps.Start()
	if ps.Spawn(1) != 0 {
		t.Error("disposed system spawned")
	}
}

func TestAutoDestroyAfterLastParticle(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, AutoDestroy: true, EmissionOverTime: constPtr(0), StartLife: constPtr(0.2)}
	ps := newTestSystem(t, cfg, 8, SystemBase, Options{})
	ps.Start()
	ps.Spawn(3)
	ps.Stop()

	ps.Update(0.1)
	if ps.IsDisposed() {
		t.Fatal("disposed while particles are alive")
	}
	ps.Update(0.2)
	if !ps.IsDisposed() {
		t.Error("auto-destroy system should dispose once empty")
	}
}

func TestAutoDestroyWaitsForFirstSpawn(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, AutoDestroy: true}
	ps := newTestSystem(t, cfg, 8, SystemBase, Options{})
	ps.Update(0.1)
	if ps.IsDisposed() {
		t.Error("a system that never spawned should not auto-destroy")
	}
}

func TestPrewarmRunsOnFirstStart(t *testing.T) {
	cfg := &EmitterConfig{
		Duration:         1,
		Looping:          true,
		Prewarm:          true,
		PrewarmCycles:    60,
		EmissionOverTime: constPtr(10),
		StartLife:        constPtr(5),
	}
	ps := newTestSystem(t, cfg, 64, SystemBase, Options{})
	if ps.SpawnedTotal() != 0 {
		t.Fatal("prewarm ran before Start")
	}
	ps.Start()
	if got := ps.SpawnedTotal(); got < 9 || got > 11 {
		t.Errorf("prewarmed spawned = %d, want about 10", got)
	}

	ps.Stop()
	before := ps.SpawnedTotal()
	ps.Start()
	if ps.SpawnedTotal() != before {
		t.Error("prewarm should only run once")
	}
}

// --- Spawn placement ---

func TestSpawnRelativeToAnchor(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartSpeed: constPtr(0)}, 1, SystemBase, Options{})
	ps.Anchor().SetPosition(mgl64.Vec3{5, 0, 0})
	ps.Spawn(1)
	assertVec3(t, "local position", ps.Backend().Particles()[0].Position, mgl64.Vec3{})
}

func TestSpawnWorldSpace(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, WorldSpace: true, StartSpeed: constPtr(2)}
	ps := newTestSystem(t, cfg, 1, SystemBase, Options{})
	ps.Anchor().SetPosition(mgl64.Vec3{5, 0, 0})
	ps.Spawn(1)
	p := ps.Backend().Particles()[0]
	assertVec3(t, "world position", p.Position, mgl64.Vec3{5, 0, 0})
	assertNear(t, "speed", p.Velocity.Len(), 2)
}

func TestSpawnWorldSpaceMeshKeepsSpeedUnderScale(t *testing.T) {
	cfg := &EmitterConfig{Duration: 1, WorldSpace: true, StartSpeed: constPtr(3), SystemType: SystemSolid}
	ps := newTestSystem(t, cfg, 1, SystemSolid, Options{})
	ps.Anchor().SetScale(mgl64.Vec3{4, 4, 4})
	ps.Spawn(1)
	assertNear(t, "speed", ps.Backend().Particles()[0].Velocity.Len(), 3)
}

func TestSpawnStartProperties(t *testing.T) {
	tile := Constant(3)
	color := ConstantColor(Color{1, 0, 0, 0.5})
	rot := Rotation{Kind: RotationAngle, Angle: Constant(0.7)}
	cfg := &EmitterConfig{
		Duration:       1,
		StartLife:      constPtr(2),
		StartSize:      constPtr(0.5),
		StartColor:     &color,
		StartRotation:  &rot,
		StartTileIndex: &tile,
	}
	ps := newTestSystem(t, cfg, 1, SystemBase, Options{})
	ps.Spawn(1)
	p := ps.Backend().Particles()[0]

	assertNear(t, "Lifetime", p.Lifetime, 2)
	assertVec3(t, "Scale", p.Scale, mgl64.Vec3{0.5, 0.5, 0.5})
	if p.Color != (Color{1, 0, 0, 0.5}) || p.StartColor != p.Color {
		t.Errorf("Color = %v StartColor = %v", p.Color, p.StartColor)
	}
	assertNear(t, "Rotation.Z", p.Rotation[2], 0.7)
	if p.Cell != 3 || p.StartCell != 3 {
		t.Errorf("Cell = %d StartCell = %d, want 3", p.Cell, p.StartCell)
	}
}

// --- Gradients ---

func TestSizeGradientScalesStartSize(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(1), StartSize: constPtr(2)}, 1, SystemBase, Options{})
	ps.AddSizeGradient(0, 1)
	ps.AddSizeGradient(1, 0)
	ps.Spawn(1)
	ps.Update(0.5)
	assertNear(t, "scale", ps.Backend().Particles()[0].Scale[0], 1)
}

func TestColorGradientMultipliesStartColor(t *testing.T) {
	start := ConstantColor(Color{0.5, 1, 1, 1})
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(1), StartColor: &start}, 1, SystemBase, Options{})
	ps.AddColorGradient(0, Color{1, 1, 1, 1})
	ps.AddColorGradient(1, Color{1, 1, 1, 0})
	ps.Spawn(1)
	ps.Update(0.5)
	c := ps.Backend().Particles()[0].Color
	assertNear(t, "R", c.R, 0.5)
	assertNear(t, "A", c.A, 0.5)
}

func TestVelocityGradientScalesIntegration(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(10), StartSpeed: constPtr(1)}, 1, SystemBase, Options{})
	ps.AddVelocityGradient(0, 0)
	ps.Spawn(1)
	ps.Update(0.5)
	assertVec3(t, "frozen", ps.Backend().Particles()[0].Position, mgl64.Vec3{})
}

func TestLimitVelocityGradientDamps(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(10), StartSpeed: constPtr(10)}, 1, SystemBase, Options{})
	ps.AddLimitVelocityGradient(0, 2)
	ps.Spawn(1)
	ps.Update(0.1)
	// limit/speed * damping = 2/10 * 0.1 of the original speed.
	assertNear(t, "speed", ps.Backend().Particles()[0].Velocity.Len(), 0.2)
}

func TestFrameGradientOffsetsCell(t *testing.T) {
	tile := Constant(1)
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(1), StartTileIndex: &tile}, 1, SystemBase, Options{})
	ps.AddFrameGradient(0, 0)
	ps.AddFrameGradient(1, 8)
	ps.Spawn(1)
	ps.Update(0.5)
	if got := ps.Backend().Particles()[0].Cell; got != 5 {
		t.Errorf("Cell = %d, want 5", got)
	}
}

func TestGravityIntegrates(t *testing.T) {
	ps := newTestSystem(t, &EmitterConfig{Duration: 1, StartLife: constPtr(10), StartSpeed: constPtr(0)}, 1, SystemBase, Options{})
	ps.Gravity = mgl64.Vec3{0, -10, 0}
	ps.Spawn(1)
	ps.Update(0.5)
	p := ps.Backend().Particles()[0]
	assertVec3(t, "velocity", p.Velocity, mgl64.Vec3{0, -5, 0})
	assertVec3(t, "position", p.Position, mgl64.Vec3{0, -2.5, 0})
}
