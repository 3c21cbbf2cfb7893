package willowfx

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueConstant ValueKind = iota
	ValueInterval
	ValueBezier
	ValueUnknown
)

// BezierFunction is one cubic segment of a piecewise curve, active from
// Start until the next segment's Start.
type BezierFunction struct {
	P0, P1, P2, P3 float64
	Start          float64
}

// Value is a scalar that is either a constant, a uniform random draw in
// [Min, Max], or a piecewise cubic bezier sampled at a normalized time.
// Unknown values keep their raw payload and evaluate to 1.
type Value struct {
	Kind      ValueKind
	Constant  float64
	Min, Max  float64
	Functions []BezierFunction
	Raw       string
}

// Constant returns a constant Value.
func Constant(v float64) Value {
	return Value{Kind: ValueConstant, Constant: v}
}

// Interval returns a Value drawn uniformly from [min, max].
func Interval(min, max float64) Value {
	return Value{Kind: ValueInterval, Min: min, Max: max}
}

// Bezier returns a piecewise bezier Value. Segments must be ordered by Start.
func Bezier(fns ...BezierFunction) Value {
	return Value{Kind: ValueBezier, Functions: fns}
}

// Evaluate returns the value at normalized time t.
func (v Value) Evaluate(t float64) float64 {
	switch v.Kind {
	case ValueConstant:
		return v.Constant
	case ValueInterval:
		return v.Min + rand.Float64()*(v.Max-v.Min)
	case ValueBezier:
		if len(v.Functions) == 0 {
			return 1
		}
		return v.sampleBezier(t)
	default:
		return 1
	}
}

// Mean returns a representative scalar: the constant, the interval
// midpoint, or the curve sampled at t=0.5. Used where a behavior needs a
// single number computed once.
func (v Value) Mean() float64 {
	switch v.Kind {
	case ValueConstant:
		return v.Constant
	case ValueInterval:
		return (v.Min + v.Max) / 2
	default:
		return v.Evaluate(0.5)
	}
}

func (v Value) sampleBezier(t float64) float64 {
	idx := 0
	for i, fn := range v.Functions {
		if fn.Start <= t {
			idx = i
		}
	}
	fn := v.Functions[idx]
	end := 1.0
	if idx+1 < len(v.Functions) {
		end = v.Functions[idx+1].Start
	}
	local := 0.0
	if span := end - fn.Start; span > 0 {
		local = clamp01((t - fn.Start) / span)
	}
	return cubicBezier(fn.P0, fn.P1, fn.P2, fn.P3, local)
}

func cubicBezier(p0, p1, p2, p3, t float64) float64 {
	u := 1 - t
	return u*u*u*p0 + 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t*p3
}

// ColorKind tags the variant held by a ColorValue.
type ColorKind uint8

const (
	ColorConstant ColorKind = iota
	ColorRange
	ColorGradientKind
	ColorRandom
	ColorRandomBetweenGradient
	ColorUnknown
)

// ColorCurve is an authored color gradient with separate RGB and alpha
// keys. Missing RGB keys read as white, missing alpha keys as opaque.
type ColorCurve struct {
	Color []ColorKey
	Alpha []NumberKey
}

// At samples the curve at normalized position t.
func (c ColorCurve) At(t float64) Color {
	t = clamp01(t)
	out := ColorWhite
	if rgb, ok := sampleKeys(c.Color, t, lerpColor); ok {
		out = rgb
	}
	if a, ok := sampleKeys(c.Alpha, t, lerp); ok {
		out.A = a
	}
	return out
}

// sorted returns a copy of c with both key lists ordered by position.
func (c ColorCurve) sorted() ColorCurve {
	return ColorCurve{
		Color: colorGradientOf(c.Color).Keys(),
		Alpha: numberGradientOf(c.Alpha).Keys(),
	}
}

// ColorValue is an RGBA source: a constant, a random lerp between two
// colors, a gradient over normalized time, an independent per-channel
// random color, or a random blend between two gradients.
type ColorValue struct {
	Kind      ColorKind
	A, B      Color
	Gradient  ColorCurve
	Gradient2 ColorCurve
	Raw       string
}

// ConstantColor returns a constant ColorValue.
func ConstantColor(c Color) ColorValue {
	return ColorValue{Kind: ColorConstant, A: c}
}

// Evaluate returns the color at normalized time t. Unknown colors are
// opaque white.
func (c ColorValue) Evaluate(t float64) Color {
	switch c.Kind {
	case ColorConstant:
		return c.A
	case ColorRange:
		return lerpColor(c.A, c.B, rand.Float64())
	case ColorGradientKind:
		return c.Gradient.At(t)
	case ColorRandom:
		return Color{
			R: lerp(c.A.R, c.B.R, rand.Float64()),
			G: lerp(c.A.G, c.B.G, rand.Float64()),
			B: lerp(c.A.B, c.B.B, rand.Float64()),
			A: lerp(c.A.A, c.B.A, rand.Float64()),
		}
	case ColorRandomBetweenGradient:
		return lerpColor(c.Gradient.At(t), c.Gradient2.At(t), rand.Float64())
	default:
		return ColorWhite
	}
}

// RotationKind tags the variant held by a Rotation.
type RotationKind uint8

const (
	RotationAngle RotationKind = iota // plain Value, an angle around Z
	RotationEuler
	RotationAxisAngle
	RotationRandomQuat
	RotationUnknown
)

// Rotation is an initial particle orientation.
type Rotation struct {
	Kind RotationKind
	// Angle is the Z angle for RotationAngle and the angle for RotationAxisAngle.
	Angle                  Value
	AngleX, AngleY, AngleZ *Value
	Order                  string
	Axis                   mgl64.Vec3
	Raw                    string
}

// eulerAngles evaluates the per-axis angles of an Euler or plain-angle
// rotation. Other kinds contribute no euler spin.
func (r Rotation) eulerAngles(t float64) mgl64.Vec3 {
	switch r.Kind {
	case RotationAngle:
		return mgl64.Vec3{0, 0, r.Angle.Evaluate(t)}
	case RotationEuler:
		var out mgl64.Vec3
		for i, v := range [3]*Value{r.AngleX, r.AngleY, r.AngleZ} {
			if v != nil {
				out[i] = v.Evaluate(t)
			}
		}
		return out
	default:
		return mgl64.Vec3{}
	}
}

// orientation returns the fixed orientation a rotation imposes before any
// euler spin is applied.
func (r Rotation) orientation(t float64) mgl64.Quat {
	switch r.Kind {
	case RotationAxisAngle:
		axis := r.Axis
		if axis.Len() == 0 {
			return mgl64.QuatIdent()
		}
		return mgl64.QuatRotate(r.Angle.Evaluate(t), axis.Normalize())
	case RotationRandomQuat:
		return randomQuat()
	default:
		return mgl64.QuatIdent()
	}
}

// randomQuat draws a uniformly distributed unit quaternion.
func randomQuat() mgl64.Quat {
	u1, u2, u3 := rand.Float64(), rand.Float64(), rand.Float64()
	s1, s2 := math.Sqrt(1-u1), math.Sqrt(u1)
	return mgl64.Quat{
		W: s2 * math.Cos(2*math.Pi*u3),
		V: mgl64.Vec3{
			s1 * math.Sin(2*math.Pi*u2),
			s1 * math.Cos(2*math.Pi*u2),
			s2 * math.Sin(2*math.Pi*u3),
		},
	}
}

// eulerOrder maps an authored euler order to the mathgl rotation order.
// The default is XYZ.
func eulerOrder(order string) mgl64.RotationOrder {
	switch order {
	case "xzy", "XZY":
		return mgl64.XZY
	case "yxz", "YXZ":
		return mgl64.YXZ
	case "yzx", "YZX":
		return mgl64.YZX
	case "zxy", "ZXY":
		return mgl64.ZXY
	case "zyx", "ZYX":
		return mgl64.ZYX
	default:
		return mgl64.XYZ
	}
}

// Curve is a scalar that varies over a normalized domain, given either as
// gradient keys or as a Value. Keys take precedence.
type Curve struct {
	Keys  []NumberKey
	Value *Value
}

// IsSet reports whether the curve carries keys or a value.
func (c Curve) IsSet() bool {
	return len(c.Keys) > 0 || c.Value != nil
}

// gradientKeys realizes the curve as gradient keys: authored keys as-is,
// a bezier as its segment endpoints, anything else as a single key at its
// mean.
func (c Curve) gradientKeys() []NumberKey {
	if len(c.Keys) > 0 {
		return c.Keys
	}
	if c.Value == nil {
		return nil
	}
	v := *c.Value
	if v.Kind != ValueBezier || len(v.Functions) == 0 {
		return []NumberKey{{Pos: 0, Value: v.Mean()}}
	}
	keys := make([]NumberKey, 0, len(v.Functions)+1)
	for i, fn := range v.Functions {
		keys = append(keys, NumberKey{Pos: fn.Start, Value: fn.P0})
		end := 1.0
		if i+1 < len(v.Functions) {
			end = v.Functions[i+1].Start
		}
		if i == len(v.Functions)-1 || v.Functions[i+1].P0 != fn.P3 {
			keys = append(keys, NumberKey{Pos: end, Value: fn.P3})
		}
	}
	return keys
}
