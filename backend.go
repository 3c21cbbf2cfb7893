package willowfx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
)

// RenderMaterial is a host material: a texture plus tint and blending.
type RenderMaterial struct {
	Name        string
	Color       Color
	Blend       BlendMode
	Transparent bool
	DepthWrite  bool
	// Texture is nil for untextured materials, which draw with a white pixel.
	Texture *ebiten.Image
}

// BackendSpec carries everything a back-end needs at construction.
type BackendSpec struct {
	Name       string
	Type       SystemType
	Capacity   int
	Anchor     *Node
	WorldSpace bool
	Material   *RenderMaterial
	// Geometry is the instanced mesh for the mesh back-end. Nil uses a unit quad.
	Geometry    *Geometry
	Billboard   BillboardMode
	UTiles      int
	VTiles      int
	RenderOrder int
}

// NewBackend constructs the back-end selected by spec.Type.
func NewBackend(spec BackendSpec) (Backend, error) {
	if spec.Anchor == nil {
		return nil, fmt.Errorf("willowfx: backend %q has no anchor node", spec.Name)
	}
	if spec.Capacity < 0 {
		return nil, fmt.Errorf("willowfx: backend %q has negative capacity %d", spec.Name, spec.Capacity)
	}
	if spec.Material == nil {
		spec.Material = &RenderMaterial{Color: ColorWhite}
	}
	switch spec.Type {
	case SystemSolid:
		return newMeshBackend(spec)
	default:
		return newSpriteBackend(spec), nil
	}
}

// SpriteBackend is the point-sprite back-end: camera-facing quads drawn
// from a texture or sprite-sheet cell. Particles are positioned relative
// to the anchor's world origin; rotation and scale of the emitter are
// baked into spawn positions instead.
type SpriteBackend struct {
	pool
	Material    *RenderMaterial
	Billboard   BillboardMode
	UTiles      int
	VTiles      int
	RenderOrder int
}

func newSpriteBackend(spec BackendSpec) *SpriteBackend {
	return &SpriteBackend{
		pool:        newPool(spec.Name, spec.Capacity, spec.Anchor, spec.WorldSpace),
		Material:    spec.Material,
		Billboard:   spec.Billboard,
		UTiles:      max(spec.UTiles, 1),
		VTiles:      max(spec.VTiles, 1),
		RenderOrder: spec.RenderOrder,
	}
}

// Type returns SystemBase.
func (b *SpriteBackend) Type() SystemType { return SystemBase }

// SpawnMatrix translates to the anchor's world origin.
func (b *SpriteBackend) SpawnMatrix() mgl64.Mat4 {
	p := b.anchor.WorldPosition()
	return mgl64.Translate3D(p[0], p[1], p[2])
}

// Dispose releases the pool and the anchor.
func (b *SpriteBackend) Dispose() {
	b.pool.dispose()
	b.Material = nil
}

// cells returns the number of sprite-sheet cells.
func (b *SpriteBackend) cells() int {
	return b.UTiles * b.VTiles
}

// meshData is an indexed triangle mesh in local space.
type meshData struct {
	positions []mgl64.Vec3
	uvs       [][2]float64
	colors    []Color
	indices   []uint32
}

// unitQuad is a 1x1 quad in the XY plane centered on the origin.
func unitQuad(w, h float64) meshData {
	hw, hh := w/2, h/2
	return meshData{
		positions: []mgl64.Vec3{{-hw, -hh, 0}, {hw, -hh, 0}, {hw, hh, 0}, {-hw, hh, 0}},
		uvs:       [][2]float64{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// meshFromGeometry builds render data from a converted geometry.
func meshFromGeometry(g *Geometry) (meshData, error) {
	if g == nil {
		return unitQuad(1, 1), nil
	}
	switch g.Type {
	case "PlaneGeometry":
		return unitQuad(nonZero(g.Width, 1), nonZero(g.Height, 1)), nil
	case "BufferGeometry":
	default:
		return unitQuad(1, 1), nil
	}
	pos := g.Position.Array
	if len(pos) < 9 || len(pos)%3 != 0 {
		return meshData{}, fmt.Errorf("willowfx: geometry %q has %d position values", g.UUID, len(pos))
	}
	n := len(pos) / 3
	m := meshData{positions: make([]mgl64.Vec3, n), uvs: make([][2]float64, n)}
	for i := 0; i < n; i++ {
		m.positions[i] = mgl64.Vec3{pos[i*3], pos[i*3+1], pos[i*3+2]}
		if len(g.UV.Array) >= (i+1)*2 {
			m.uvs[i] = [2]float64{g.UV.Array[i*2], 1 - g.UV.Array[i*2+1]}
		}
	}
	if size := g.Color.ItemSize; size >= 3 && len(g.Color.Array) >= n*size {
		m.colors = make([]Color, n)
		for i := 0; i < n; i++ {
			c := g.Color.Array[i*size:]
			m.colors[i] = Color{c[0], c[1], c[2], 1}
			if size > 3 {
				m.colors[i].A = c[3]
			}
		}
	}
	if len(g.Index) == 0 {
		m.indices = make([]uint32, n-n%3)
		for i := range m.indices {
			m.indices[i] = uint32(i)
		}
		return m, nil
	}
	for _, idx := range g.Index {
		if int(idx) >= n {
			return meshData{}, fmt.Errorf("willowfx: geometry %q index %d out of range (%d vertices)", g.UUID, idx, n)
		}
	}
	m.indices = append([]uint32(nil), g.Index[:len(g.Index)-len(g.Index)%3]...)
	return m, nil
}

// MeshBackend is the mesh-instancing back-end: every particle draws one
// instance of the emitter's mesh. Particles live in the anchor's local
// space unless the system is world-space.
type MeshBackend struct {
	pool
	Material    *RenderMaterial
	RenderOrder int
	mesh        meshData
	verts       []ebiten.Vertex
}

func newMeshBackend(spec BackendSpec) (*MeshBackend, error) {
	mesh, err := meshFromGeometry(spec.Geometry)
	if err != nil {
		return nil, err
	}
	return &MeshBackend{
		pool:        newPool(spec.Name, spec.Capacity, spec.Anchor, spec.WorldSpace),
		Material:    spec.Material,
		RenderOrder: spec.RenderOrder,
		mesh:        mesh,
		verts:       make([]ebiten.Vertex, len(mesh.positions)),
	}, nil
}

// Type returns SystemSolid.
func (b *MeshBackend) Type() SystemType { return SystemSolid }

// SpawnMatrix is the anchor's world matrix.
func (b *MeshBackend) SpawnMatrix() mgl64.Mat4 {
	return b.anchor.WorldMatrix()
}

// Dispose releases the pool, the mesh and the anchor.
func (b *MeshBackend) Dispose() {
	b.pool.dispose()
	b.mesh = meshData{}
	b.verts = nil
	b.Material = nil
}

// instanceMatrix composes a particle's model matrix.
func (b *MeshBackend) instanceMatrix(p *Particle) mgl64.Mat4 {
	spin := mgl64.AnglesToQuat(p.Rotation[0], p.Rotation[1], p.Rotation[2], mgl64.XYZ)
	m := composeTRS(p.Position, p.Orientation.Mul(spin), p.Scale)
	if b.worldSpace {
		return m
	}
	return b.anchor.WorldMatrix().Mul4(m)
}
