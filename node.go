package willowfx

import "github.com/go-gl/mathgl/mgl64"

// nodeIDCounter is a plain counter (no atomic, willowfx is single-threaded).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is a transform node in the host scene graph. Groups and particle
// system anchors are both plain Nodes; the host owns their lifetime for
// rendering, the engine only reads and writes transform fields.
type Node struct {
	// Identity
	ID   uint32
	Name string

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local, left-handed)
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3

	// Computed during Scene traversal
	worldMatrix    mgl64.Mat4
	transformDirty bool

	Visible bool

	// Metadata
	UserData any

	disposed bool
}

// NewNode creates a named transform node at the origin with identity
// rotation and unit scale.
func NewNode(name string) *Node {
	return &Node{
		ID:             nextNodeID(),
		Name:           name,
		Rotation:       mgl64.QuatIdent(),
		Scale:          mgl64.Vec3{1, 1, 1},
		worldMatrix:    mgl64.Ident4(),
		transformDirty: true,
		Visible:        true,
	}
}

// AddChild appends child to this node's children. If child already has a
// parent it is removed from that parent first. Panics if child is nil or
// if adding it would create a cycle.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("willowfx: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("willowfx: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from this node. Panics if child is not a
// child of n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("willowfx: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Children returns the node's children. The slice is owned by the node.
func (n *Node) Children() []*Node {
	return n.children
}

// Dispose detaches the node and disposes its whole subtree.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.UserData = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
