package willowfx

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
)

// Factory turns a converted Graph into runtime particle systems parented
// under host transform nodes. One emitter failing to build never stops its
// siblings.
type Factory struct {
	host   Host
	opts   Options
	logger *slog.Logger
	tree   treeLog

	graph     *Graph
	textures  map[string]*ebiten.Image
	materials map[string]*RenderMaterial
}

// NewFactory creates a factory building into host.
func NewFactory(host Host, opts Options) *Factory {
	opts = opts.withDefaults()
	return &Factory{
		host:   host,
		opts:   opts,
		logger: opts.Logger,
		tree:   treeLog{logger: opts.Logger, verbose: opts.Verbose},
	}
}

// CreateSystems builds every emitter of g under parent and returns the
// systems that were created successfully, in depth-first order.
func (f *Factory) CreateSystems(g *Graph, parent *Node) []*ParticleSystem {
	_, systems := f.build(g, parent)
	return systems
}

// build walks the graph and returns the effect tree alongside the systems.
func (f *Factory) build(g *Graph, parent *Node) (*EffectNode, []*ParticleSystem) {
	f.graph = g
	f.textures = make(map[string]*ebiten.Image)
	f.materials = make(map[string]*RenderMaterial)
	if g == nil || g.Root == nil {
		return nil, nil
	}
	var systems []*ParticleSystem
	root := f.walk(g.Root, nil, parent, mgl64.Vec3{1, 1, 1}, 0, &systems)
	return root, systems
}

func (f *Factory) walk(obj *Object, parentEN *EffectNode, parent *Node, cumulativeScale mgl64.Vec3, depth int, systems *[]*ParticleSystem) *EffectNode {
	switch obj.Kind {
	case ObjectGroup:
		node := f.host.NewTransformNode(obj.Name, parent)
		node.ApplyTransform(obj.Transform)
		f.tree.debug(depth, "group", "name", obj.Name, "uuid", obj.UUID, "children", len(obj.Children))

		en := &EffectNode{Kind: EffectGroup, Name: obj.Name, UUID: obj.UUID, Node: node, Parent: parentEN}
		s := obj.Transform.Scale
		childScale := mgl64.Vec3{cumulativeScale[0] * s[0], cumulativeScale[1] * s[1], cumulativeScale[2] * s[2]}
		for _, child := range obj.Children {
			if c := f.walk(child, en, node, childScale, depth+1, systems); c != nil {
				en.Children = append(en.Children, c)
			}
		}
		return en

	case ObjectEmitter:
		ps, err := f.createSystem(obj, parent, cumulativeScale, depth)
		if err != nil {
			f.logger.Error("particle system not created", "emitter", obj.Name, "uuid", obj.UUID, "err", err)
			return nil
		}
		*systems = append(*systems, ps)
		return &EffectNode{Kind: EffectSystem, Name: obj.Name, UUID: obj.UUID, Node: ps.Anchor(), System: ps, Parent: parentEN}

	default:
		f.tree.debug(depth, "skipping unknown object", "type", obj.Type, "uuid", obj.UUID)
		return nil
	}
}

// createSystem builds one emitter. Panics raised by the host are recovered
// and returned as errors.
func (f *Factory) createSystem(obj *Object, parent *Node, cumulativeScale mgl64.Vec3, depth int) (ps *ParticleSystem, err error) {
	var anchor *Node
	defer func() {
		if r := recover(); r != nil {
			if anchor != nil {
				anchor.Dispose()
			}
			ps = nil
			err = fmt.Errorf("willowfx: building emitter %q: %v", obj.Name, r)
		}
	}()

	cfg := obj.Config
	if cfg == nil {
		f.logger.Warn("emitter has no config, using a point emitter", "emitter", obj.Name)
		cfg = &EmitterConfig{Duration: f.opts.DefaultDuration, Looping: true, SystemType: obj.SystemType}
	}
	systemType := cfg.SystemType
	f.tree.debug(depth, "emitter", "name", obj.Name, "system", systemType, "scale", cumulativeScale)

	anchor = f.host.NewTransformNode(obj.Name, parent)
	anchor.ApplyTransform(obj.Transform)

	spec := BackendSpec{
		Name:        obj.Name,
		Type:        systemType,
		Capacity:    f.capacity(cfg),
		Anchor:      anchor,
		WorldSpace:  cfg.WorldSpace,
		Material:    f.material(obj, cfg, depth),
		Billboard:   cfg.Billboard,
		UTiles:      cfg.UTileCount,
		VTiles:      cfg.VTileCount,
		RenderOrder: cfg.RenderOrder,
	}
	if systemType == SystemSolid && cfg.InstancingGeometry != "" {
		if g, ok := f.graph.GeometryByUUID(cfg.InstancingGeometry); ok {
			spec.Geometry = g
		} else {
			f.logger.Warn("instancing geometry not found", "emitter", obj.Name, "geometry", cfg.InstancingGeometry)
		}
	}

	backend, err := f.host.NewBackend(spec)
	if err != nil {
		anchor.Dispose()
		return nil, err
	}

	shape := defaultEmitterShape()
	if cfg.Shape != nil {
		shape.Shape = *cfg.Shape
	}
	if systemType == SystemBase {
		shape.Scale = cumulativeScale
		shape.Rotation = obj.Transform.Rotation
		if shape.Rotation == (mgl64.Quat{}) {
			shape.Rotation = mgl64.QuatIdent()
		}
	}

	ps = NewParticleSystem(SystemConfig{
		Name:    obj.Name,
		UUID:    obj.UUID,
		Config:  cfg,
		Shape:   shape,
		Backend: backend,
		Options: f.opts,
	})
	f.tree.debug(depth+1, "system ready", "capacity", backend.Capacity(), "behaviors", len(cfg.Behaviors))

	if cfg.Prewarm {
		ps.Start()
	}
	return ps, nil
}

// capacity sizes the pool for an emitter.
func (f *Factory) capacity(cfg *EmitterConfig) int {
	rate := f.opts.DefaultEmitRate
	if cfg.EmissionOverTime != nil {
		rate = cfg.EmissionOverTime.Mean()
	}
	duration := cfg.Duration
	if duration <= 0 {
		duration = f.opts.DefaultDuration
	}
	extra := 0
	for _, b := range cfg.Bursts {
		extra += int(b.Count.Mean() + 0.5)
	}
	if cfg.SystemType == SystemSolid {
		life := 1.0
		if cfg.StartLife != nil {
			life = cfg.StartLife.Mean()
		}
		return CalculateCapacity(rate, life, cfg.Looping) + extra
	}
	return CapacityForBase(rate, duration) + extra
}

// material resolves material -> texture -> image for an emitter. A broken
// chain is logged and yields an untextured material.
func (f *Factory) material(obj *Object, cfg *EmitterConfig, depth int) *RenderMaterial {
	id := cfg.Material
	if id == "" {
		id = obj.MaterialID
	}
	if id == "" {
		return nil
	}
	if rm, ok := f.materials[id]; ok {
		return rm
	}
	m, ok := f.graph.MaterialByUUID(id)
	if !ok {
		f.logger.Warn("material not found", "emitter", obj.Name, "material", id)
		return nil
	}
	rm := f.host.NewMaterial(m, f.texture(m, obj.Name, depth))
	f.materials[id] = rm
	return rm
}

func (f *Factory) texture(m *Material, emitter string, depth int) *ebiten.Image {
	if m.Map == "" {
		return nil
	}
	if img, ok := f.textures[m.Map]; ok {
		return img
	}
	tex, ok := f.graph.TextureByUUID(m.Map)
	if !ok {
		f.logger.Warn("texture not found", "emitter", emitter, "texture", m.Map)
		return nil
	}
	src, ok := f.graph.ImageByUUID(tex.Image)
	if !ok {
		f.logger.Warn("image not found", "emitter", emitter, "image", tex.Image)
		return nil
	}
	img, err := f.host.NewTexture(TextureSource{Texture: tex, Image: src, FS: f.opts.AssetFS})
	if err != nil {
		f.logger.Warn("texture not loaded", "emitter", emitter, "texture", m.Map, "err", err)
		return nil
	}
	f.tree.debug(depth+1, "texture", "uuid", m.Map, "image", src.UUID)
	f.textures[m.Map] = img
	return img
}
