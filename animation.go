package willowfx

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields of a Node simultaneously.
// Create one with TweenNodePosition or TweenNodeScale and call Update(dt)
// each frame. The group writes values and marks the node dirty. If the
// target node is disposed, the group stops immediately.
//
// There is no global animation manager; callers drive Update themselves.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	target *Node
	Done   bool
}

// Update advances all tweens by dt seconds, writes values to the target
// fields and marks the node dirty. If the target node has been disposed,
// Done is set and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}

	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone

	if g.target != nil {
		g.target.MarkDirty()
	}
}

// tweenVec3 animates the three components of v, which must belong to node.
func tweenVec3(node *Node, v *mgl64.Vec3, to mgl64.Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 3, target: node}
	for i := 0; i < 3; i++ {
		g.tweens[i] = gween.New(float32(v[i]), float32(to[i]), duration, fn)
		g.fields[i] = &v[i]
	}
	return g
}

// TweenNodePosition moves a node's local position to `to`. Moving an
// emitter's anchor this way drives distance-based emission.
func TweenNodePosition(node *Node, to mgl64.Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	return tweenVec3(node, &node.Position, to, duration, fn)
}

// TweenNodeScale animates a node's local scale to `to`.
func TweenNodeScale(node *Node, to mgl64.Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	return tweenVec3(node, &node.Scale, to, duration, fn)
}

// TweenSystemRate animates a particle system's constant emission rate.
// The rate becomes a constant Value for the duration of the tween.
func TweenSystemRate(ps *ParticleSystem, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	from := ps.EmitRate.Mean()
	ps.EmitRate = Constant(from)
	g := &TweenGroup{count: 1, target: ps.Anchor()}
	g.tweens[0] = gween.New(float32(from), float32(to), duration, fn)
	g.fields[0] = &ps.EmitRate.Constant
	return g
}
