package willowfx

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
)

// EffectNodeKind distinguishes groups from particle systems in an Effect.
type EffectNodeKind uint8

const (
	EffectGroup EffectNodeKind = iota
	EffectSystem
)

// EffectNode is one entry of an Effect's hierarchy. Group nodes own a
// transform node; system nodes wrap a ParticleSystem whose anchor is Node.
type EffectNode struct {
	Kind     EffectNodeKind
	Name     string
	UUID     string
	Node     *Node
	System   *ParticleSystem
	Parent   *EffectNode
	Children []*EffectNode
}

// Effect is a loaded particle effect: the group hierarchy and every
// particle system built from it.
type Effect struct {
	host    Host
	opts    Options
	logger  *slog.Logger
	root    *EffectNode
	systems []*ParticleSystem

	// anchor is the host node the effect was built under.
	anchor   *Node
	disposed bool
	created  int
}

// NewEffect builds g into host under parent (the host root when nil).
func NewEffect(g *Graph, host Host, parent *Node, opts Options) *Effect {
	opts = opts.withDefaults()
	f := NewFactory(host, opts)
	root, systems := f.build(g, parent)
	return &Effect{
		host:    host,
		opts:    opts,
		logger:  opts.Logger,
		root:    root,
		systems: systems,
		anchor:  parent,
	}
}

// Root returns the top of the hierarchy, or nil for an empty effect.
func (e *Effect) Root() *EffectNode { return e.root }

// Systems returns every particle system in depth-first order. The slice is
// owned by the effect.
func (e *Effect) Systems() []*ParticleSystem { return e.systems }

// Nodes returns every node in depth-first pre-order.
func (e *Effect) Nodes() []*EffectNode {
	var out []*EffectNode
	walkEffect(e.root, func(n *EffectNode) bool {
		out = append(out, n)
		return true
	})
	return out
}

// walkEffect visits n and its descendants until fn returns false.
func walkEffect(n *EffectNode, fn func(*EffectNode) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walkEffect(c, fn) {
			return false
		}
	}
	return true
}

func (e *Effect) find(match func(*EffectNode) bool) *EffectNode {
	var found *EffectNode
	walkEffect(e.root, func(n *EffectNode) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindNodeByName returns the first node named name.
func (e *Effect) FindNodeByName(name string) (*EffectNode, bool) {
	n := e.find(func(n *EffectNode) bool { return n.Name == name })
	return n, n != nil
}

// FindNodeByUUID returns the node with the given uuid.
func (e *Effect) FindNodeByUUID(uuid string) (*EffectNode, bool) {
	n := e.find(func(n *EffectNode) bool { return n.UUID == uuid })
	return n, n != nil
}

// FindSystemByName returns the first particle system named name.
func (e *Effect) FindSystemByName(name string) (*ParticleSystem, bool) {
	n := e.find(func(n *EffectNode) bool { return n.Kind == EffectSystem && n.Name == name })
	if n == nil {
		return nil, false
	}
	return n.System, true
}

// FindSystemByUUID returns the particle system with the given uuid.
func (e *Effect) FindSystemByUUID(uuid string) (*ParticleSystem, bool) {
	n := e.find(func(n *EffectNode) bool { return n.Kind == EffectSystem && n.UUID == uuid })
	if n == nil {
		return nil, false
	}
	return n.System, true
}

// FindGroupByName returns the first group named name.
func (e *Effect) FindGroupByName(name string) (*EffectNode, bool) {
	n := e.find(func(n *EffectNode) bool { return n.Kind == EffectGroup && n.Name == name })
	return n, n != nil
}

// FindGroupByUUID returns the group with the given uuid.
func (e *Effect) FindGroupByUUID(uuid string) (*EffectNode, bool) {
	n := e.find(func(n *EffectNode) bool { return n.Kind == EffectGroup && n.UUID == uuid })
	return n, n != nil
}

// GetSystemsInGroup returns every system below the named group,
// recursively. An unknown group yields nil.
func (e *Effect) GetSystemsInGroup(name string) []*ParticleSystem {
	g, ok := e.FindGroupByName(name)
	if !ok {
		return nil
	}
	return systemsUnder(g)
}

func systemsUnder(n *EffectNode) []*ParticleSystem {
	var out []*ParticleSystem
	walkEffect(n, func(c *EffectNode) bool {
		if c.Kind == EffectSystem && c.System != nil {
			out = append(out, c.System)
		}
		return true
	})
	return out
}

// Start starts every system.
func (e *Effect) Start() {
	for _, ps := range e.systems {
		ps.Start()
	}
}

// Stop stops every system. Live particles finish their lives.
func (e *Effect) Stop() {
	for _, ps := range e.systems {
		ps.Stop()
	}
}

// Reset clears every system's particles and emission state.
func (e *Effect) Reset() {
	for _, ps := range e.systems {
		ps.Reset()
	}
}

// StartGroup starts every system below the named group.
func (e *Effect) StartGroup(name string) error {
	return e.eachInGroup(name, (*ParticleSystem).Start)
}

// StopGroup stops every system below the named group.
func (e *Effect) StopGroup(name string) error {
	return e.eachInGroup(name, (*ParticleSystem).Stop)
}

// ResetGroup resets every system below the named group.
func (e *Effect) ResetGroup(name string) error {
	return e.eachInGroup(name, (*ParticleSystem).Reset)
}

func (e *Effect) eachInGroup(name string, fn func(*ParticleSystem)) error {
	g, ok := e.FindGroupByName(name)
	if !ok {
		return fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	for _, ps := range systemsUnder(g) {
		fn(ps)
	}
	return nil
}

// StartSystem starts the named system.
func (e *Effect) StartSystem(name string) error {
	return e.withSystem(name, (*ParticleSystem).Start)
}

// StopSystem stops the named system.
func (e *Effect) StopSystem(name string) error {
	return e.withSystem(name, (*ParticleSystem).Stop)
}

// ResetSystem resets the named system.
func (e *Effect) ResetSystem(name string) error {
	return e.withSystem(name, (*ParticleSystem).Reset)
}

func (e *Effect) withSystem(name string, fn func(*ParticleSystem)) error {
	ps, ok := e.FindSystemByName(name)
	if !ok {
		return fmt.Errorf("system %q: %w", name, ErrNotFound)
	}
	fn(ps)
	return nil
}

// StartNode starts a system node, or every system below a group node.
func (e *Effect) StartNode(n *EffectNode) {
	for _, ps := range systemsUnder(n) {
		ps.Start()
	}
}

// StopNode stops a system node, or every system below a group node.
func (e *Effect) StopNode(n *EffectNode) {
	for _, ps := range systemsUnder(n) {
		ps.Stop()
	}
}

// ResetNode resets a system node, or every system below a group node.
func (e *Effect) ResetNode(n *EffectNode) {
	for _, ps := range systemsUnder(n) {
		ps.Reset()
	}
}

// IsStarted reports whether any system is started.
func (e *Effect) IsStarted() bool {
	for _, ps := range e.systems {
		if ps.IsStarted() {
			return true
		}
	}
	return false
}

// IsNodeStarted reports whether a system node is started, or for a group
// whether any system below it is.
func (e *Effect) IsNodeStarted(n *EffectNode) bool {
	for _, ps := range systemsUnder(n) {
		if ps.IsStarted() {
			return true
		}
	}
	return false
}

// Update advances every live system by dt seconds. Systems disposed by
// auto-destroy are dropped from the effect.
func (e *Effect) Update(dt float64) {
	if e.disposed {
		return
	}
	pruned := false
	for _, ps := range e.systems {
		ps.Update(dt)
		if ps.IsDisposed() {
			pruned = true
		}
	}
	if pruned {
		e.prune()
	}
}

// prune removes disposed systems from the system list and the hierarchy.
func (e *Effect) prune() {
	live := e.systems[:0]
	for _, ps := range e.systems {
		if !ps.IsDisposed() {
			live = append(live, ps)
		}
	}
	clear(e.systems[len(live):])
	e.systems = live

	if e.root != nil && e.root.Kind == EffectSystem && e.root.System != nil && e.root.System.IsDisposed() {
		e.root = nil
		return
	}
	walkEffect(e.root, func(n *EffectNode) bool {
		kept := n.Children[:0]
		for _, c := range n.Children {
			if c.Kind == EffectSystem && c.System != nil && c.System.IsDisposed() {
				continue
			}
			kept = append(kept, c)
		}
		clear(n.Children[len(kept):])
		n.Children = kept
		return true
	})
}

// AliveCount returns the number of live particles across every system.
func (e *Effect) AliveCount() int {
	n := 0
	for _, ps := range e.systems {
		n += ps.AliveCount()
	}
	return n
}

// Dispose disposes every system and group node. Further calls are no-ops.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	for _, ps := range e.systems {
		ps.Dispose()
	}
	walkEffect(e.root, func(n *EffectNode) bool {
		if n.Kind == EffectGroup && n.Node != nil {
			n.Node.Dispose()
		}
		return true
	})
	e.systems = nil
	e.root = nil
}

// IsDisposed reports whether Dispose has been called.
func (e *Effect) IsDisposed() bool { return e.disposed }

// uniqueName returns base, or "base N" with the smallest N that is not
// already used by a node of the effect.
func (e *Effect) uniqueName(base string) string {
	taken := make(map[string]bool)
	walkEffect(e.root, func(n *EffectNode) bool {
		taken[n.Name] = true
		return true
	})
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if !taken[name] {
			return name
		}
	}
}

// CreateGroup adds an empty group under parent (the effect root when nil).
// The name is made unique within the effect.
func (e *Effect) CreateGroup(name string, parent *EffectNode) (*EffectNode, error) {
	if e.disposed {
		return nil, ErrDisposed
	}
	if parent != nil && parent.Kind != EffectGroup {
		return nil, fmt.Errorf("willowfx: cannot add group under system %q", parent.Name)
	}
	name = e.uniqueName(name)
	e.created++
	n := &EffectNode{
		Kind: EffectGroup,
		Name: name,
		UUID: fmt.Sprintf("group_created_%d", e.created),
	}
	e.attach(n, parent, func(host *Node) *Node { return e.host.NewTransformNode(name, host) })
	return n, nil
}

// CreateParticleSystem adds a default point emitter of the given type under
// parent (the effect root when nil). The name is made unique within the
// effect.
func (e *Effect) CreateParticleSystem(name string, typ SystemType, parent *EffectNode) (*ParticleSystem, error) {
	if e.disposed {
		return nil, ErrDisposed
	}
	if parent != nil && parent.Kind != EffectGroup {
		return nil, fmt.Errorf("willowfx: cannot add system under system %q", parent.Name)
	}
	name = e.uniqueName(name)
	e.created++
	uuid := fmt.Sprintf("emitter_created_%d", e.created)

	cfg := &EmitterConfig{
		SystemType: typ,
		Duration:   e.opts.DefaultDuration,
		Looping:    true,
	}
	if typ == SystemSolid {
		cfg.RenderMode = RenderMesh
	}

	var hostParent *Node
	if parent != nil {
		hostParent = parent.Node
	} else if e.root != nil && e.root.Kind == EffectGroup {
		hostParent = e.root.Node
	} else {
		hostParent = e.anchor
	}

	f := NewFactory(e.host, e.opts)
	f.graph = &Graph{}
	obj := &Object{
		Kind:       ObjectEmitter,
		Type:       "ParticleEmitter",
		UUID:       uuid,
		Name:       name,
		Transform:  IdentityTransform(),
		Config:     cfg,
		SystemType: typ,
	}
	ps, err := f.createSystem(obj, hostParent, mgl64.Vec3{1, 1, 1}, 0)
	if err != nil {
		return nil, err
	}
	n := &EffectNode{Kind: EffectSystem, Name: name, UUID: uuid, Node: ps.Anchor(), System: ps}
	e.attach(n, parent, nil)
	e.systems = append(e.systems, ps)
	return ps, nil
}

// attach links n into the hierarchy. newNode, when set, creates n's host
// node under the parent's host node.
func (e *Effect) attach(n *EffectNode, parent *EffectNode, newNode func(host *Node) *Node) {
	if parent == nil && e.root != nil && e.root.Kind == EffectGroup {
		parent = e.root
	}
	if newNode != nil {
		hostParent := e.anchor
		if parent != nil {
			hostParent = parent.Node
		}
		n.Node = newNode(hostParent)
	}
	if parent == nil {
		if e.root == nil {
			e.root = n
			return
		}
		// A lone system root gets wrapped so the effect keeps a single top.
		top := &EffectNode{Kind: EffectGroup, Name: e.uniqueName("Root"), Node: e.host.NewTransformNode("Root", e.anchor)}
		old := e.root
		old.Parent = top
		if old.Node != nil {
			top.Node.AddChild(old.Node)
		}
		top.Children = append(top.Children, old)
		e.root = top
		parent = top
		if n.Node != nil {
			top.Node.AddChild(n.Node)
		}
	}
	n.Parent = parent
	parent.Children = append(parent.Children, n)
}
