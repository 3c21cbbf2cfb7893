package willowfx

import "github.com/go-gl/mathgl/mgl64"

// Transform is a decomposed local transform in the engine's left-handed
// convention.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityTransform has no translation or rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	return composeTRS(t.Position, t.Rotation, t.Scale)
}

func composeTRS(pos mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

// decompose splits an affine matrix into translation, rotation and scale.
// A negative determinant is folded into the X scale.
func decompose(m mgl64.Mat4) Transform {
	pos := m.Col(3).Vec3()
	sx, sy, sz := mgl64.Extract3DScale(m)
	if m.Mat3().Det() < 0 {
		sx = -sx
	}
	if sx == 0 || sy == 0 || sz == 0 {
		return Transform{Position: pos, Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{sx, sy, sz}}
	}
	var r mgl64.Mat4
	r.SetCol(0, m.Col(0).Mul(1/sx))
	r.SetCol(1, m.Col(1).Mul(1/sy))
	r.SetCol(2, m.Col(2).Mul(1/sz))
	r.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	return Transform{Position: pos, Rotation: mgl64.Mat4ToQuat(r).Normalize(), Scale: mgl64.Vec3{sx, sy, sz}}
}

// localMatrix composes the node's local transform.
func (n *Node) localMatrix() mgl64.Mat4 {
	return composeTRS(n.Position, n.Rotation, n.Scale)
}

// updateWorldTransform recomputes a node's cached world matrix.
// parentRecomputed indicates whether the parent was recomputed this frame,
// which forces recomputation of this node even if it's not dirty.
func updateWorldTransform(n *Node, parentMatrix mgl64.Mat4, parentRecomputed bool) {
	recompute := n.transformDirty || parentRecomputed
	if recompute {
		n.worldMatrix = parentMatrix.Mul4(n.localMatrix())
		n.transformDirty = false
	}
	for _, child := range n.children {
		updateWorldTransform(child, n.worldMatrix, recompute)
	}
}

// WorldMatrix returns the node's current world matrix, composed up the
// parent chain. It does not depend on a Scene traversal having run.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.localMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.localMatrix().Mul4(m)
	}
	return m
}

// WorldPosition returns the node's origin in world space.
func (n *Node) WorldPosition() mgl64.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

// --- Transform property setters ---

// SetPosition sets the node's local position and marks it dirty.
func (n *Node) SetPosition(p mgl64.Vec3) {
	n.Position = p
	n.transformDirty = true
}

// SetRotation sets the node's local rotation and marks it dirty.
func (n *Node) SetRotation(q mgl64.Quat) {
	n.Rotation = q
	n.transformDirty = true
}

// SetScale sets the node's local scale and marks it dirty.
func (n *Node) SetScale(s mgl64.Vec3) {
	n.Scale = s
	n.transformDirty = true
}

// ApplyTransform copies a decomposed transform onto the node.
func (n *Node) ApplyTransform(t Transform) {
	n.Position = t.Position
	n.Rotation = t.Rotation
	n.Scale = t.Scale
	n.transformDirty = true
}

// MarkDirty marks the node's transform as dirty, forcing recomputation
// on the next frame. Useful after bulk-setting fields directly.
func (n *Node) MarkDirty() {
	n.transformDirty = true
}

// LocalToWorld converts a local-space point to world space.
func (n *Node) LocalToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, n.WorldMatrix())
}

// WorldToLocal converts a world-space point to this node's local space.
func (n *Node) WorldToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, n.WorldMatrix().Inv())
}
