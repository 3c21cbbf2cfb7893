package willowfx

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind tags an emitter shape.
type ShapeKind uint8

const (
	ShapePoint ShapeKind = iota
	ShapeSphere
	ShapeHemisphere
	ShapeCone
	ShapeBox
	ShapeCylinder
	ShapeUnknown
)

// shapeKindOf maps an authored shape type name to its kind.
func shapeKindOf(name string) ShapeKind {
	switch name {
	case "point", "Point", "":
		return ShapePoint
	case "sphere", "Sphere":
		return ShapeSphere
	case "hemisphere", "Hemisphere":
		return ShapeHemisphere
	case "cone", "Cone":
		return ShapeCone
	case "box", "Box", "rectangle":
		return ShapeBox
	case "cylinder", "Cylinder", "circle":
		return ShapeCylinder
	default:
		return ShapeUnknown
	}
}

// Shape describes the volume particles spawn in. Every scalar is used as
// stored; NewShape fills the authored defaults.
type Shape struct {
	Kind      ShapeKind
	Type      string
	Radius    float64
	Arc       float64
	Thickness float64
	Angle     float64
	Mode      float64
	Spread    float64
	Size      []float64
	Height    float64
	Speed     *Value
}

// NewShape returns a shape of the given kind with radius 1, arc 2π,
// thickness 1, angle π/6, height 1 and a 1x1x1 box.
func NewShape(kind ShapeKind) Shape {
	return Shape{
		Kind:      kind,
		Radius:    1,
		Arc:       2 * math.Pi,
		Thickness: 1,
		Angle:     math.Pi / 6,
		Height:    1,
		Size:      []float64{1, 1, 1},
	}
}

// boxSize pads a short Size with 1.
func (s Shape) boxSize() mgl64.Vec3 {
	size := mgl64.Vec3{1, 1, 1}
	for i := 0; i < len(s.Size) && i < 3; i++ {
		size[i] = s.Size[i]
	}
	return size
}

// EmitterShape is a shape placed in an emitter: Scale multiplies spawn
// positions and Rotation orients spawn positions and directions.
type EmitterShape struct {
	Shape    Shape
	Scale    mgl64.Vec3
	Rotation mgl64.Quat
}

// defaultEmitterShape is a point emitter with no scaling or rotation.
func defaultEmitterShape() EmitterShape {
	return EmitterShape{Shape: NewShape(ShapePoint), Scale: mgl64.Vec3{1, 1, 1}, Rotation: mgl64.QuatIdent()}
}

// place draws an initial position and velocity for a particle launched at
// the given speed.
func (e EmitterShape) place(speed float64) (pos, vel mgl64.Vec3) {
	s := e.Shape
	switch s.Kind {
	case ShapeSphere, ShapeHemisphere:
		u, v := rand.Float64(), rand.Float64()
		r := 1 - s.Thickness + rand.Float64()*s.Thickness
		theta := u * s.Arc
		phi := math.Acos(2*v - 1)
		if s.Kind == ShapeHemisphere {
			phi = math.Acos(v)
		}
		dir := mgl64.Vec3{math.Sin(phi) * math.Cos(theta), math.Sin(phi) * math.Sin(theta), math.Cos(phi)}
		vel = dir.Mul(speed)
		pos = dir.Mul(s.Radius * r)
	case ShapeCone:
		r := math.Sqrt(1 - s.Thickness + rand.Float64()*s.Thickness)
		theta := rand.Float64() * s.Arc
		pos = mgl64.Vec3{r * math.Cos(theta), r * math.Sin(theta), 0}
		coneAngle := s.Angle * r
		vel = mgl64.Vec3{0, 0, math.Cos(coneAngle)}.Add(pos.Mul(math.Sin(coneAngle))).Mul(speed)
		pos = pos.Mul(s.Radius)
	case ShapeBox:
		size := s.boxSize()
		pos = mgl64.Vec3{
			(rand.Float64() - 0.5) * size[0],
			(rand.Float64() - 0.5) * size[1],
			(rand.Float64() - 0.5) * size[2],
		}
		vel = mgl64.Vec3{0, 0, speed}
	case ShapeCylinder:
		r := s.Radius * math.Sqrt(1-s.Thickness+rand.Float64()*s.Thickness)
		theta := rand.Float64() * s.Arc
		dir := mgl64.Vec3{math.Cos(theta), 0, math.Sin(theta)}
		pos = dir.Mul(r)
		pos[1] = (rand.Float64() - 0.5) * s.Height
		vel = dir.Mul(speed)
	case ShapePoint:
		vel = randomDirection().Mul(speed)
	default:
		vel = mgl64.Vec3{0, speed, 0}
	}
	if e.Scale != (mgl64.Vec3{}) {
		pos = mgl64.Vec3{pos[0] * e.Scale[0], pos[1] * e.Scale[1], pos[2] * e.Scale[2]}
	}
	if e.Rotation == (mgl64.Quat{}) {
		return pos, vel
	}
	return e.Rotation.Rotate(pos), e.Rotation.Rotate(vel)
}

// randomDirection draws a uniformly distributed unit vector.
func randomDirection() mgl64.Vec3 {
	theta := rand.Float64() * 2 * math.Pi
	z := 2*rand.Float64() - 1
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(theta), r * math.Sin(theta), z}
}
