package willowfx

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// alphaMergeEpsilon is the distance under which an alpha key is folded
// into the color key at the same position.
const alphaMergeEpsilon = 0.001

// Behaviors returns a copy of the behavior configuration list.
func (ps *ParticleSystem) Behaviors() []Behavior {
	out := make([]Behavior, len(ps.behaviors))
	copy(out, ps.behaviors)
	return out
}

// SetBehaviors replaces the behavior list. The gradient tables and the
// per-particle function list are rebuilt from scratch before returning, so
// keys added with the Add*Gradient setters are discarded.
func (ps *ParticleSystem) SetBehaviors(behaviors []Behavior) {
	ps.behaviors = append(ps.behaviors[:0:0], behaviors...)
	ps.rebuildBehaviors()
}

// AddBehavior appends one behavior and rebuilds.
func (ps *ParticleSystem) AddBehavior(b Behavior) {
	ps.behaviors = append(ps.behaviors, b)
	ps.rebuildBehaviors()
}

// RemoveBehavior removes the behavior at index i and rebuilds. It reports
// false when i is out of range.
func (ps *ParticleSystem) RemoveBehavior(i int) bool {
	if i < 0 || i >= len(ps.behaviors) {
		return false
	}
	ps.behaviors = append(ps.behaviors[:i:i], ps.behaviors[i+1:]...)
	ps.rebuildBehaviors()
	return true
}

// UpdateBehavior replaces the behavior at index i and rebuilds.
func (ps *ParticleSystem) UpdateBehavior(i int, b Behavior) bool {
	if i < 0 || i >= len(ps.behaviors) {
		return false
	}
	ps.behaviors[i] = b
	ps.rebuildBehaviors()
	return true
}

// ParticleFuncCount returns the length of the derived per-particle list.
func (ps *ParticleSystem) ParticleFuncCount() int { return len(ps.particleFns) }

func (ps *ParticleSystem) rebuildBehaviors() {
	ps.applySystemBehaviors()
	ps.particleFns = buildParticleFuncs(ps.Type(), ps.behaviors)
}

// applySystemBehaviors realizes the over-life behaviors as gradient table
// entries and system-wide forces.
func (ps *ParticleSystem) applySystemBehaviors() {
	ps.clearGradients()
	ps.Gravity = mgl64.Vec3{}
	ps.startAngular = nil
	ps.LimitVelocityDamping = ps.defaultDamping

	base := ps.Type() == SystemBase
	for _, b := range ps.behaviors {
		switch b.Kind {
		case BehaviorColorOverLife:
			if b.Color != nil {
				for _, k := range colorOverLifeKeys(*b.Color) {
					ps.colorGradients.Add(k.Pos, k.Value)
				}
			}
		case BehaviorSizeOverLife:
			addCurve(ps.sizeGradients, b.Size)
		case BehaviorRotationOverLife:
			if len(b.AngularVelocity.Keys) > 0 || (b.AngularVelocity.Value != nil && b.AngularVelocity.Value.Kind == ValueBezier) {
				addCurve(ps.angularSpeedGradients, b.AngularVelocity)
			} else if b.AngularVelocity.Value != nil {
				v := *b.AngularVelocity.Value
				ps.startAngular = &v
			}
		case BehaviorSpeedOverLife:
			addCurve(ps.velocityGradients, b.Speed)
		case BehaviorLimitSpeedOverLife:
			if b.Speed.IsSet() {
				addCurve(ps.limitVelocityGradients, b.Speed)
			} else if b.MaxSpeed != nil {
				ps.limitVelocityGradients.Add(0, b.MaxSpeed.Mean())
			}
			if b.Dampen != nil {
				ps.LimitVelocityDamping = b.Dampen.Mean()
			}
		case BehaviorFrameOverLife:
			addCurve(ps.frameGradients, b.Frame)
		case BehaviorGravityForce:
			if base && b.Gravity != nil {
				ps.Gravity = ps.Gravity.Add(mgl64.Vec3{0, -b.Gravity.Mean(), 0})
			}
		case BehaviorForceOverLife:
			if base {
				ps.Gravity = ps.Gravity.Add(forceVector(b))
			}
		}
	}
}

func addCurve(g *NumberGradient, c Curve) {
	for _, k := range c.gradientKeys() {
		g.Add(k.Pos, k.Value)
	}
}

// forceVector collapses a force behavior to a constant acceleration.
func forceVector(b Behavior) mgl64.Vec3 {
	var f mgl64.Vec3
	for i, v := range b.Force {
		if v != nil {
			f[i] = v.Mean()
		}
	}
	return f
}

// colorOverLifeKeys flattens a color source into RGBA keys. Gradient RGB
// and alpha keys are merged: each color key takes the alpha sampled at
// its position, and alpha keys that do not coincide with a color key add
// a key of their own with the sampled RGB.
func colorOverLifeKeys(c ColorValue) []ColorKey {
	switch c.Kind {
	case ColorConstant:
		return []ColorKey{{Pos: 0, Value: c.A}}
	case ColorRange, ColorRandom:
		return []ColorKey{{Pos: 0, Value: c.A}, {Pos: 1, Value: c.B}}
	case ColorGradientKind, ColorRandomBetweenGradient:
		return mergeCurveKeys(c.Gradient.sorted())
	default:
		return nil
	}
}

func mergeCurveKeys(curve ColorCurve) []ColorKey {
	keys := make([]ColorKey, 0, len(curve.Color)+len(curve.Alpha))
	for _, k := range curve.Color {
		keys = append(keys, ColorKey{Pos: k.Pos, Value: curve.At(k.Pos)})
	}
	for _, a := range curve.Alpha {
		merged := false
		for _, k := range curve.Color {
			if math.Abs(k.Pos-a.Pos) < alphaMergeEpsilon {
				merged = true
				break
			}
		}
		if !merged {
			keys = append(keys, ColorKey{Pos: a.Pos, Value: curve.At(a.Pos)})
		}
	}
	return colorGradientOf(keys).Keys()
}

// speedRatio maps a speed into [0, 1] over [min, max]. A degenerate range
// divides by 1.
func speedRatio(speed, min, max float64) float64 {
	span := max - min
	if span == 0 {
		span = 1
	}
	return clamp01((speed - min) / span)
}

func meanOr(v *Value, def float64) float64 {
	if v == nil {
		return def
	}
	return v.Mean()
}

// buildParticleFuncs derives the per-particle function list. Inputs are
// parsed once here; the returned closures only touch the particle they
// are given. Forces become per-particle functions only on the mesh
// back-end; the sprite back-end folds them into the system gravity.
func buildParticleFuncs(target SystemType, behaviors []Behavior) []ParticleFunc {
	var fns []ParticleFunc
	for _, b := range behaviors {
		switch b.Kind {
		case BehaviorColorBySpeed:
			if len(b.ColorKeys) == 0 {
				continue
			}
			keys := colorGradientOf(b.ColorKeys).Keys()
			lo, hi := meanOr(b.MinSpeed, 0), meanOr(b.MaxSpeed, 1)
			fns = append(fns, func(p *Particle, _ float64) {
				c, _ := sampleKeys(keys, speedRatio(p.Velocity.Len(), lo, hi), lerpColor)
				p.Color = Color{c.R * p.StartColor.R, c.G * p.StartColor.G, c.B * p.StartColor.B, p.StartColor.A}
			})

		case BehaviorSizeBySpeed:
			keys := numberGradientOf(b.Size.gradientKeys()).Keys()
			if len(keys) == 0 {
				continue
			}
			lo, hi := meanOr(b.MinSpeed, 0), meanOr(b.MaxSpeed, 1)
			fns = append(fns, func(p *Particle, _ float64) {
				m, _ := sampleKeys(keys, speedRatio(p.Velocity.Len(), lo, hi), lerp)
				size := p.StartSize * m
				p.Scale = mgl64.Vec3{size * p.StartScaleX, size * p.StartScaleY, size}
			})

		case BehaviorRotationBySpeed:
			keys := numberGradientOf(b.AngularVelocity.Keys).Keys()
			constant := 0.0
			if len(keys) == 0 && b.AngularVelocity.Value != nil {
				constant = b.AngularVelocity.Value.Mean()
			}
			lo, hi := meanOr(b.MinSpeed, 0), meanOr(b.MaxSpeed, 1)
			fns = append(fns, func(p *Particle, dt float64) {
				speed := constant
				if len(keys) > 0 {
					speed, _ = sampleKeys(keys, speedRatio(p.Velocity.Len(), lo, hi), lerp)
				}
				p.Rotation[2] += speed * dt
			})

		case BehaviorOrbitOverLife:
			radiusKeys := numberGradientOf(b.Radius.Keys).Keys()
			radius := 1.0
			if len(radiusKeys) == 0 && b.Radius.Value != nil {
				radius = b.Radius.Value.Mean()
			}
			speed := 1.0
			if sk := b.Speed.gradientKeys(); len(sk) > 0 {
				speed = sk[0].Value
			}
			center := b.Center
			fns = append(fns, func(p *Particle, _ float64) {
				if p.Lifetime <= 0 {
					return
				}
				life := p.Age / p.Lifetime
				r := radius
				if len(radiusKeys) > 0 {
					r, _ = sampleKeys(radiusKeys, clamp01(life), lerp)
				}
				if !p.orbitSet {
					p.orbitOrigin = p.Position
					p.orbitSet = true
				}
				theta := life * speed * 2 * math.Pi
				p.Position = p.orbitOrigin.Add(center).Add(mgl64.Vec3{math.Cos(theta) * r, math.Sin(theta) * r, 0})
			})

		case BehaviorForceOverLife:
			if target != SystemSolid {
				continue
			}
			f := forceVector(b)
			if f == (mgl64.Vec3{}) {
				continue
			}
			fns = append(fns, func(p *Particle, dt float64) {
				p.Velocity = p.Velocity.Add(f.Mul(dt))
			})

		case BehaviorGravityForce:
			if target != SystemSolid || b.Gravity == nil {
				continue
			}
			g := mgl64.Vec3{0, -b.Gravity.Mean(), 0}
			fns = append(fns, func(p *Particle, dt float64) {
				p.Velocity = p.Velocity.Add(g.Mul(dt))
			})
		}
	}
	return fns
}
