package willowfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func assertNodeDefaults(t *testing.T, n *Node, name string) {
	t.Helper()
	if n.Name != name {
		t.Errorf("Name = %q, want %q", n.Name, name)
	}
	if n.ID == 0 {
		t.Error("ID should be non-zero")
	}
	if n.Scale != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("Scale = %v, want unit", n.Scale)
	}
	if n.Rotation != mgl64.QuatIdent() {
		t.Errorf("Rotation = %v, want identity", n.Rotation)
	}
	if !n.Visible {
		t.Error("Visible should default to true")
	}
}

func TestNewNodeDefaults(t *testing.T) {
	assertNodeDefaults(t, NewNode("anchor"), "anchor")
}

func TestNodeIDsAreUnique(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	if a.ID == b.ID {
		t.Errorf("IDs collide: %d", a.ID)
	}
}

func TestAddChildReparents(t *testing.T) {
	p1, p2, c := NewNode("p1"), NewNode("p2"), NewNode("c")
	p1.AddChild(c)
	p2.AddChild(c)

	if c.Parent != p2 {
		t.Error("child should belong to p2")
	}
	if len(p1.Children()) != 0 {
		t.Errorf("p1 children = %d, want 0", len(p1.Children()))
	}
	if len(p2.Children()) != 1 {
		t.Errorf("p2 children = %d, want 1", len(p2.Children()))
	}
}

func TestAddChildCyclePanics(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	a.AddChild(b)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on cycle")
		}
	}()
	b.AddChild(a)
}

func TestAddNilChildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil child")
		}
	}()
	NewNode("a").AddChild(nil)
}

func TestRemoveChildWrongParentPanics(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	a.RemoveChild(b)
}

func TestRemoveFromParent(t *testing.T) {
	p, c := NewNode("p"), NewNode("c")
	p.AddChild(c)
	c.RemoveFromParent()
	if c.Parent != nil || len(p.Children()) != 0 {
		t.Error("child should be detached")
	}
	// Detaching a root is a no-op.
	p.RemoveFromParent()
}

func TestDisposeSubtree(t *testing.T) {
	root, mid, leaf := NewNode("root"), NewNode("mid"), NewNode("leaf")
	root.AddChild(mid)
	mid.AddChild(leaf)

	mid.Dispose()

	if !mid.IsDisposed() || !leaf.IsDisposed() {
		t.Error("subtree should be disposed")
	}
	if root.IsDisposed() {
		t.Error("parent should survive")
	}
	if len(root.Children()) != 0 {
		t.Errorf("root children = %d, want 0", len(root.Children()))
	}
	if leaf.ID != 0 {
		t.Errorf("disposed ID = %d, want 0", leaf.ID)
	}

	// Second dispose is a no-op.
	mid.Dispose()
}

func TestDebugModeRejectsDisposedParent(t *testing.T) {
	globalDebug = true
	defer func() { globalDebug = false }()

	p := NewNode("p")
	p.Dispose()
	defer func() {
		if recover() == nil {
			t.Error("expected panic in debug mode")
		}
	}()
	p.AddChild(NewNode("c"))
}
