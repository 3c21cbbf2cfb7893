package willowfx

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default particle color (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Mul returns the component-wise product of c and o, alpha included.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

// lerpColor interpolates every channel of a toward b, alpha included.
func lerpColor(a, b Color, t float64) Color {
	return Color{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: lerp(a.A, b.A, t),
	}
}

// colorFromHex splits a 0xRRGGBB integer into an opaque Color.
func colorFromHex(hex int64) Color {
	return Color{
		R: float64((hex>>16)&0xff) / 255,
		G: float64((hex>>8)&0xff) / 255,
		B: float64(hex&0xff) / 255,
		A: 1,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SystemType selects which particle back-end a runtime system is built on.
type SystemType uint8

const (
	SystemBase  SystemType = iota // point-sprite back-end
	SystemSolid                   // mesh-instancing back-end
)

// String returns the authored name of the system type.
func (t SystemType) String() string {
	if t == SystemSolid {
		return "solid"
	}
	return "base"
}

// BlendMode selects a compositing operation. Each maps to a specific ebiten.Blend value.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                     // additive / lighter
	BlendNone                    // opaque copy (skip blending)
)

// EbitenBlend returns the ebiten.Blend value corresponding to this BlendMode.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendAdd:
		return ebiten.BlendLighter
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// blendModeFromAuthored maps authored blending codes (0 none, 1 normal,
// 2 additive) to a BlendMode. Unknown codes blend normally.
func blendModeFromAuthored(code int64) BlendMode {
	switch code {
	case 0:
		return BlendNone
	case 2:
		return BlendAdd
	default:
		return BlendNormal
	}
}

// BillboardMode controls how point-sprite particles face the camera.
type BillboardMode uint8

const (
	BillboardAll       BillboardMode = iota // always face the camera
	BillboardStretched                      // stretched along velocity
	BillboardY                              // rotate around the Y axis only
)

// RenderMode is the authored render mode of an emitter.
type RenderMode int

const (
	RenderBillboard           RenderMode = 0
	RenderStretchedBillboard  RenderMode = 1
	RenderMesh                RenderMode = 2
	RenderTrail               RenderMode = 3
	RenderHorizontalBillboard RenderMode = 4
	RenderVerticalBillboard   RenderMode = 5
)

// billboard maps a render mode to the billboard mode it draws with. Trails
// and unknown modes fall back to a plain billboard.
func (m RenderMode) billboard() BillboardMode {
	switch m {
	case RenderStretchedBillboard:
		return BillboardStretched
	case RenderHorizontalBillboard, RenderVerticalBillboard:
		return BillboardY
	default:
		return BillboardAll
	}
}
