package willowfx

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Rect is an axis-aligned rectangle in screen pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// moveAnim holds the active MoveTo tweens, one per axis.
type moveAnim struct {
	tweens [3]*gween.Tween
	done   [3]bool
}

// Camera is a left-handed perspective camera: +X right, +Y up, +Z into
// the screen.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	// FovY is the vertical field of view in radians.
	FovY      float64
	Near, Far float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	followTarget *Node
	followOffset mgl64.Vec3
	followLerp   float64

	move *moveAnim

	view  mgl64.Mat4
	dirty bool
}

// newCamera creates a camera at (0, 0, -10) looking at the origin.
func newCamera(viewport Rect) *Camera {
	return &Camera{
		Position: mgl64.Vec3{0, 0, -10},
		Up:       mgl64.Vec3{0, 1, 0},
		FovY:     math.Pi / 4,
		Near:     0.1,
		Far:      1000,
		Viewport: viewport,
		dirty:    true,
	}
}

// Follow makes the camera track a node's world position with the given
// offset. A lerp of 1 snaps; lower values smooth the motion. The camera
// keeps looking at the node.
func (c *Camera) Follow(node *Node, offset mgl64.Vec3, lerp float64) {
	c.followTarget = node
	c.followOffset = offset
	c.followLerp = lerp
}

// Unfollow stops tracking the current target node.
func (c *Camera) Unfollow() {
	c.followTarget = nil
}

// MoveTo animates the camera position over duration seconds.
func (c *Camera) MoveTo(to mgl64.Vec3, duration float32, easeFn ease.TweenFunc) {
	m := &moveAnim{}
	for i := range m.tweens {
		m.tweens[i] = gween.New(float32(c.Position[i]), float32(to[i]), duration, easeFn)
	}
	c.move = m
}

// update advances follow and move animations. Called from Scene.Update.
func (c *Camera) update(dt float32) {
	prevPos, prevTarget := c.Position, c.Target

	if c.followTarget != nil && !c.followTarget.IsDisposed() {
		target := c.followTarget.WorldPosition()
		want := target.Add(c.followOffset)
		c.Position = c.Position.Add(want.Sub(c.Position).Mul(c.followLerp))
		c.Target = target
	}

	if c.move != nil {
		all := true
		for i, tw := range c.move.tweens {
			if c.move.done[i] {
				continue
			}
			val, done := tw.Update(dt)
			c.Position[i] = float64(val)
			c.move.done[i] = done
			all = all && done
		}
		if all {
			c.move = nil
		}
	}

	if c.Position != prevPos || c.Target != prevTarget {
		c.dirty = true
	}
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// ViewMatrix returns the world-to-view matrix.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	if !c.dirty {
		return c.view
	}
	c.dirty = false

	z := c.Target.Sub(c.Position)
	if z.Len() == 0 {
		z = mgl64.Vec3{0, 0, 1}
	}
	z = z.Normalize()
	up := c.Up
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	x := up.Cross(z)
	if x.Len() == 0 {
		x = mgl64.Vec3{1, 0, 0}
	}
	x = x.Normalize()
	y := z.Cross(x)

	c.view = mgl64.Mat4FromRows(
		mgl64.Vec4{x[0], x[1], x[2], -x.Dot(c.Position)},
		mgl64.Vec4{y[0], y[1], y[2], -y.Dot(c.Position)},
		mgl64.Vec4{z[0], z[1], z[2], -z.Dot(c.Position)},
		mgl64.Vec4{0, 0, 0, 1},
	)
	return c.view
}

// focal returns the projection scale in pixels per unit at depth 1.
func (c *Camera) focal() float64 {
	return c.Viewport.Height / 2 / math.Tan(c.FovY/2)
}

// projectView maps a view-space point to screen pixels. ok is false when
// the point lies outside the near/far range.
func (c *Camera) projectView(v mgl64.Vec3) (sx, sy float64, ok bool) {
	if v[2] < c.Near || v[2] > c.Far {
		return 0, 0, false
	}
	f := c.focal()
	sx = c.Viewport.X + c.Viewport.Width/2 + v[0]*f/v[2]
	sy = c.Viewport.Y + c.Viewport.Height/2 - v[1]*f/v[2]
	return sx, sy, true
}

// WorldToScreen projects a world-space point to screen pixels. ok is false
// behind the near plane or beyond the far plane.
func (c *Camera) WorldToScreen(p mgl64.Vec3) (sx, sy float64, ok bool) {
	return c.projectView(mgl64.TransformCoordinate(p, c.ViewMatrix()))
}

// PixelsPerUnit returns the on-screen size of one world unit at the given
// view depth.
func (c *Camera) PixelsPerUnit(depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return c.focal() / depth
}
