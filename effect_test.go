package willowfx

import (
	"errors"
	"testing"
)

func newTestEffect(t *testing.T) (*Effect, *fakeHost) {
	t.Helper()
	host := newFakeHost()
	return NewEffect(mustConvert(t, testEffectJSON), host, nil, Options{}), host
}

func TestEffectTree(t *testing.T) {
	e, _ := newTestEffect(t)

	root := e.Root()
	if root == nil || root.Kind != EffectGroup || root.Name != "Explosion" {
		t.Fatalf("root = %+v", root)
	}
	// Sparks, Debris, Group, Mystery.
	if len(root.Children) != 4 {
		t.Errorf("root children = %d, want 4", len(root.Children))
	}
	if len(e.Systems()) != 3 {
		t.Errorf("systems = %d, want 3", len(e.Systems()))
	}
	if n := len(e.Nodes()); n != 6 {
		t.Errorf("nodes = %d, want 6", n)
	}
	for _, n := range e.Nodes() {
		if n != root && n.Parent == nil {
			t.Errorf("%s has no parent", n.Name)
		}
	}
}

func TestEffectFind(t *testing.T) {
	e, _ := newTestEffect(t)

	if ps, ok := e.FindSystemByName("Sparks"); !ok || ps.UUID != "e-sparks" {
		t.Errorf("FindSystemByName = %v, %v", ps, ok)
	}
	if ps, ok := e.FindSystemByUUID("e-chunks"); !ok || ps.Name != "Chunks" {
		t.Errorf("FindSystemByUUID = %v, %v", ps, ok)
	}
	if g, ok := e.FindGroupByName("Debris"); !ok || g.UUID != "g-debris" {
		t.Errorf("FindGroupByName = %v, %v", g, ok)
	}
	if g, ok := e.FindGroupByUUID("g-root"); !ok || g != e.Root() {
		t.Errorf("FindGroupByUUID = %v, %v", g, ok)
	}
	if n, ok := e.FindNodeByUUID("e-chunks"); !ok || n.Kind != EffectSystem {
		t.Errorf("FindNodeByUUID = %v, %v", n, ok)
	}
	if _, ok := e.FindGroupByName("Sparks"); ok {
		t.Error("a system must not be found as a group")
	}
	if _, ok := e.FindNodeByName("nope"); ok {
		t.Error("unknown name found")
	}
}

func TestEffectSystemsInGroup(t *testing.T) {
	e, _ := newTestEffect(t)
	if got := e.GetSystemsInGroup("Debris"); len(got) != 1 || got[0].Name != "Chunks" {
		t.Errorf("Debris systems = %v", systemNames(got))
	}
	if got := e.GetSystemsInGroup("Explosion"); len(got) != 3 {
		t.Errorf("Explosion systems = %d, want 3", len(got))
	}
	if got := e.GetSystemsInGroup("nope"); got != nil {
		t.Errorf("unknown group = %v", got)
	}
}

func TestEffectGroupControl(t *testing.T) {
	e, _ := newTestEffect(t)

	if err := e.StartGroup("Debris"); err != nil {
		t.Fatal(err)
	}
	chunks, _ := e.FindSystemByName("Chunks")
	sparks, _ := e.FindSystemByName("Sparks")
	if !chunks.IsStarted() || sparks.IsStarted() {
		t.Errorf("chunks started=%v sparks started=%v", chunks.IsStarted(), sparks.IsStarted())
	}
	debris, _ := e.FindGroupByName("Debris")
	if !e.IsNodeStarted(debris) || !e.IsStarted() {
		t.Error("group should report started")
	}

	if err := e.StopGroup("Debris"); err != nil {
		t.Fatal(err)
	}
	if e.IsStarted() {
		t.Error("effect should be stopped")
	}

	for _, err := range []error{e.StartGroup("nope"), e.StopGroup("nope"), e.ResetGroup("nope")} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	}
}

func TestEffectSystemControl(t *testing.T) {
	e, _ := newTestEffect(t)

	if err := e.StartSystem("Sparks"); err != nil {
		t.Fatal(err)
	}
	e.Update(0.1)
	sparks, _ := e.FindSystemByName("Sparks")
	if sparks.AliveCount() == 0 {
		t.Fatal("Sparks should have spawned its burst")
	}
	if e.AliveCount() != sparks.AliveCount() {
		t.Errorf("effect alive = %d, want %d", e.AliveCount(), sparks.AliveCount())
	}

	if err := e.ResetSystem("Sparks"); err != nil {
		t.Fatal(err)
	}
	if sparks.AliveCount() != 0 {
		t.Error("ResetSystem should clear particles")
	}
	if err := e.StopSystem("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEffectNodeControl(t *testing.T) {
	e, _ := newTestEffect(t)
	n, _ := e.FindNodeByName("Chunks")

	e.StartNode(n)
	if !e.IsNodeStarted(n) {
		t.Error("node should be started")
	}
	e.Update(1)
	e.ResetNode(n)
	if n.System.AliveCount() != 0 {
		t.Error("ResetNode should clear particles")
	}
	e.StopNode(n)
	if e.IsNodeStarted(n) {
		t.Error("node should be stopped")
	}
}

func TestEffectStartStopReset(t *testing.T) {
	e, _ := newTestEffect(t)
	e.Start()
	for _, ps := range e.Systems() {
		if !ps.IsStarted() {
			t.Errorf("%s not started", ps.Name)
		}
	}
	e.Update(0.5)
	if e.AliveCount() == 0 {
		t.Fatal("expected particles")
	}
	e.Reset()
	if e.AliveCount() != 0 {
		t.Errorf("alive after Reset = %d", e.AliveCount())
	}
	e.Stop()
	if e.IsStarted() {
		t.Error("effect should be stopped")
	}
}

func TestEffectUniqueNames(t *testing.T) {
	e, _ := newTestEffect(t)

	g, err := e.CreateGroup("Debris", nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Debris 1" {
		t.Errorf("name = %q, want Debris 1", g.Name)
	}
	g2, _ := e.CreateGroup("Debris", nil)
	if g2.Name != "Debris 2" {
		t.Errorf("name = %q, want Debris 2", g2.Name)
	}
	if g.UUID == g2.UUID {
		t.Error("created groups share a uuid")
	}
	if g.Parent != e.Root() || g.Node.Parent != e.Root().Node {
		t.Error("group should hang under the effect root")
	}
}

func TestEffectCreateParticleSystem(t *testing.T) {
	e, host := newTestEffect(t)
	debris, _ := e.FindGroupByName("Debris")

	ps, err := e.CreateParticleSystem("Sparks", SystemSolid, debris)
	if err != nil {
		t.Fatal(err)
	}
	if ps.Name != "Sparks 1" || ps.Type() != SystemSolid {
		t.Errorf("created %q of type %v", ps.Name, ps.Type())
	}
	if ps.UUID != "emitter_created_1" {
		t.Errorf("uuid = %q", ps.UUID)
	}
	if ps.Anchor().Parent != debris.Node {
		t.Error("anchor should be parented to the group node")
	}
	if got := e.GetSystemsInGroup("Debris"); len(got) != 2 {
		t.Errorf("Debris systems = %d, want 2", len(got))
	}
	if len(e.Systems()) != 4 {
		t.Errorf("systems = %d, want 4", len(e.Systems()))
	}
	if spec, ok := host.spec("Sparks 1"); !ok || spec.Type != SystemSolid {
		t.Errorf("backend spec = %+v", spec)
	}

	sparksNode, _ := e.FindNodeByName("Sparks")
	if _, err := e.CreateParticleSystem("x", SystemBase, sparksNode); err == nil {
		t.Error("adding under a system node should fail")
	}
	if _, err := e.CreateGroup("x", sparksNode); err == nil {
		t.Error("adding a group under a system node should fail")
	}
}

func TestEffectCreateIntoEmptyEffect(t *testing.T) {
	host := newFakeHost()
	e := NewEffect(&Graph{}, host, nil, Options{})
	if e.Root() != nil {
		t.Fatal("empty effect should have no root")
	}

	a, err := e.CreateParticleSystem("a", SystemBase, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Root() == nil || e.Root().System != a {
		t.Fatal("first system should become the root")
	}

	b, err := e.CreateParticleSystem("b", SystemBase, nil)
	if err != nil {
		t.Fatal(err)
	}
	root := e.Root()
	if root.Kind != EffectGroup || len(root.Children) != 2 {
		t.Fatalf("root = %+v, want a group wrapping both systems", root)
	}
	if a.Anchor().Parent != root.Node || b.Anchor().Parent != root.Node {
		t.Error("both anchors should move under the wrapping group")
	}
	if len(e.Systems()) != 2 {
		t.Errorf("systems = %d, want 2", len(e.Systems()))
	}
}

func TestEffectAutoDestroyPrunes(t *testing.T) {
	doc := `{"object": {"type": "Group", "name": "fx", "children": [
		{"type": "ParticleEmitter", "name": "once", "ps": {
			"autoDestroy": true, "duration": 0.1,
			"emissionOverTime": {"type": "ConstantValue", "value": 0},
			"emissionBursts": [{"time": {"type": "ConstantValue", "value": 0}, "count": {"type": "ConstantValue", "value": 3}}],
			"startLife": {"type": "ConstantValue", "value": 0.2}
		}},
		{"type": "ParticleEmitter", "name": "keep", "ps": {"looping": true}}
	]}}`
	e := NewEffect(mustConvert(t, doc), newFakeHost(), nil, Options{})
	e.Start()
	e.Update(0.05)
	if err := e.StopSystem("once"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		e.Update(0.05)
	}

	if _, ok := e.FindSystemByName("once"); ok {
		t.Error("auto-destroyed system still in the tree")
	}
	if len(e.Systems()) != 1 || e.Systems()[0].Name != "keep" {
		t.Errorf("systems = %v", systemNames(e.Systems()))
	}
}

func TestEffectAutoDestroyRootSystem(t *testing.T) {
	doc := `{"object": {"type": "ParticleEmitter", "name": "once", "ps": {
		"autoDestroy": true, "duration": 0.1,
		"emissionOverTime": {"type": "ConstantValue", "value": 0},
		"emissionBursts": [{"time": {"type": "ConstantValue", "value": 0}, "count": {"type": "ConstantValue", "value": 2}}],
		"startLife": {"type": "ConstantValue", "value": 0.1}
	}}}`
	e := NewEffect(mustConvert(t, doc), newFakeHost(), nil, Options{})
	if e.Root() == nil || e.Root().Kind != EffectSystem {
		t.Fatalf("root = %+v, want the emitter", e.Root())
	}
	e.Start()
	e.Update(0.05)
	e.Stop()
	for i := 0; i < 10; i++ {
		e.Update(0.05)
	}

	if e.Root() != nil {
		t.Errorf("root = %+v, want nil after auto-destroy", e.Root())
	}
	if len(e.Nodes()) != 0 || len(e.Systems()) != 0 {
		t.Errorf("nodes = %d systems = %d, want none", len(e.Nodes()), len(e.Systems()))
	}
	if _, ok := e.FindSystemByName("once"); ok {
		t.Error("auto-destroyed root still found")
	}
	ps, err := e.CreateParticleSystem("again", SystemBase, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Root() == nil || e.Root().System != ps {
		t.Error("a new system should become the root")
	}
}

func TestEffectDispose(t *testing.T) {
	e, host := newTestEffect(t)
	systems := append([]*ParticleSystem(nil), e.Systems()...)
	top := host.root.Children()[0]

	e.Dispose()
	e.Dispose()

	if !e.IsDisposed() {
		t.Error("effect should be disposed")
	}
	for _, ps := range systems {
		if !ps.IsDisposed() {
			t.Errorf("%s not disposed", ps.Name)
		}
	}
	if !top.IsDisposed() || len(host.root.Children()) != 0 {
		t.Error("group nodes should be disposed and detached")
	}
	if _, err := e.CreateGroup("g", nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("CreateGroup err = %v, want ErrDisposed", err)
	}
	if _, err := e.CreateParticleSystem("p", SystemBase, nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("CreateParticleSystem err = %v, want ErrDisposed", err)
	}
	e.Update(0.1)
}
