package willowfx

import (
	"image/color"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
)

// CommandType identifies the kind of render command.
type CommandType uint8

const (
	CommandSprites CommandType = iota // billboard quads of a SpriteBackend
	CommandMeshes                     // mesh instances of a MeshBackend
)

// RenderCommand draws one back-end. Commands are sorted by RenderOrder,
// then back to front by anchor depth.
type RenderCommand struct {
	Type        CommandType
	RenderOrder int
	Depth       float64
	treeOrder   int

	sprites *SpriteBackend
	meshes  *MeshBackend
}

// commandLessOrEqual returns true if a should draw before or with b.
// Using <= for treeOrder keeps the sort stable.
func commandLessOrEqual(a, b RenderCommand) bool {
	if a.RenderOrder != b.RenderOrder {
		return a.RenderOrder < b.RenderOrder
	}
	if a.Depth != b.Depth {
		return a.Depth > b.Depth
	}
	return a.treeOrder <= b.treeOrder
}

// depthIndex pairs a pool slot with its view depth for back-to-front
// ordering inside one back-end.
type depthIndex struct {
	slot  int
	depth float64
}

// drawWithCamera renders every registered back-end from the camera.
func (s *Scene) drawWithCamera(target *ebiten.Image, cam *Camera) {
	view := cam.ViewMatrix()
	s.buildCommands(view)

	for i := range s.commands {
		cmd := &s.commands[i]
		switch cmd.Type {
		case CommandSprites:
			s.submitSprites(target, cam, view, cmd.sprites)
		case CommandMeshes:
			s.submitMeshes(target, cam, view, cmd.meshes)
		}
	}
}

// buildCommands collects one command per live back-end and sorts them.
func (s *Scene) buildCommands(view mgl64.Mat4) {
	s.commands = s.commands[:0]
	for i, b := range s.backends {
		if b.IsDisposed() {
			continue
		}
		depth := mgl64.TransformCoordinate(b.Anchor().WorldPosition(), view)[2]
		cmd := RenderCommand{Depth: depth, treeOrder: i}
		switch be := b.(type) {
		case *SpriteBackend:
			cmd.Type = CommandSprites
			cmd.RenderOrder = be.RenderOrder
			cmd.sprites = be
		case *MeshBackend:
			cmd.Type = CommandMeshes
			cmd.RenderOrder = be.RenderOrder
			cmd.meshes = be
		default:
			continue
		}
		s.commands = append(s.commands, cmd)
	}

	s.mergeSort()
}

// sortedSlots collects live, visible slots ordered back to front.
func (s *Scene) sortedSlots(particles []Particle, toView func(p *Particle) mgl64.Vec3) []depthIndex {
	s.depthBuf = s.depthBuf[:0]
	for i := range particles {
		p := &particles[i]
		if !p.Alive || !p.visible {
			continue
		}
		s.depthBuf = append(s.depthBuf, depthIndex{slot: i, depth: toView(p)[2]})
	}
	slices.SortStableFunc(s.depthBuf, func(a, b depthIndex) int {
		switch {
		case a.depth > b.depth:
			return -1
		case a.depth < b.depth:
			return 1
		}
		return 0
	})
	return s.depthBuf
}

// submitSprites draws all live particles of a sprite back-end with a single
// DrawTriangles32 call.
func (s *Scene) submitSprites(target *ebiten.Image, cam *Camera, view mgl64.Mat4, b *SpriteBackend) {
	mat := b.Material
	if mat == nil {
		mat = &RenderMaterial{Color: ColorWhite}
	}
	img := mat.Texture
	if img == nil {
		img = ensureWhitePixel()
	}
	bounds := img.Bounds()
	cellW := float64(bounds.Dx()) / float64(b.UTiles)
	cellH := float64(bounds.Dy()) / float64(b.VTiles)
	cells := b.cells()

	origin := mgl64.Vec3{}
	if !b.worldSpace {
		origin = b.anchor.WorldPosition()
	}
	toView := func(p *Particle) mgl64.Vec3 {
		return mgl64.TransformCoordinate(origin.Add(p.Position), view)
	}

	s.batchVerts = s.batchVerts[:0]
	s.batchInds = s.batchInds[:0]

	for _, di := range s.sortedSlots(b.particles, toView) {
		p := &b.particles[di.slot]
		v := toView(p)
		cx, cy, ok := cam.projectView(v)
		if !ok {
			continue
		}
		ppu := cam.PixelsPerUnit(v[2])
		hw, hh := p.Scale[0]*ppu/2, p.Scale[1]*ppu/2
		if hw == 0 && hh == 0 {
			continue
		}

		angle := -p.Rotation[2]
		if b.Billboard == BillboardStretched {
			vv := mgl64.TransformNormal(p.Velocity, view)
			if speed := math.Hypot(vv[0], vv[1]); speed > 0 {
				angle = math.Atan2(-vv[1], vv[0])
				hw *= 1 + speed*0.1
			}
		}
		cos, sin := math.Cos(angle), math.Sin(angle)

		cell := 0
		if cells > 1 {
			cell = ((p.Cell % cells) + cells) % cells
		}
		u0 := float32(bounds.Min.X) + float32(float64(cell%b.UTiles)*cellW)
		v0 := float32(bounds.Min.Y) + float32(float64(cell/b.UTiles)*cellH)
		u1, v1 := u0+float32(cellW), v0+float32(cellH)
		su := [4]float32{u0, u1, u0, u1}
		sv := [4]float32{v0, v0, v1, v1}
		lx := [4]float64{-hw, hw, -hw, hw}
		ly := [4]float64{-hh, -hh, hh, hh}

		c := p.Color.Mul(mat.Color)
		a := float32(clamp01(c.A))
		cr, cg, cb := float32(c.R)*a, float32(c.G)*a, float32(c.B)*a

		base := uint32(len(s.batchVerts))
		for j := 0; j < 4; j++ {
			s.batchVerts = append(s.batchVerts, ebiten.Vertex{
				DstX:   float32(cx + lx[j]*cos - ly[j]*sin),
				DstY:   float32(cy + lx[j]*sin + ly[j]*cos),
				SrcX:   su[j],
				SrcY:   sv[j],
				ColorR: cr,
				ColorG: cg,
				ColorB: cb,
				ColorA: a,
			})
		}
		s.batchInds = append(s.batchInds,
			base+0, base+1, base+2,
			base+1, base+3, base+2,
		)
	}
	s.flush(target, img, mat.Blend)
}

// submitMeshes draws every live instance of a mesh back-end. Instances
// with a vertex behind the near plane are skipped whole.
func (s *Scene) submitMeshes(target *ebiten.Image, cam *Camera, view mgl64.Mat4, b *MeshBackend) {
	mat := b.Material
	if mat == nil {
		mat = &RenderMaterial{Color: ColorWhite}
	}
	img := mat.Texture
	if img == nil {
		img = ensureWhitePixel()
	}
	bounds := img.Bounds()
	tw, th := float64(bounds.Dx()), float64(bounds.Dy())

	anchor := b.anchor.WorldMatrix()
	toView := func(p *Particle) mgl64.Vec3 {
		if b.worldSpace {
			return mgl64.TransformCoordinate(p.Position, view)
		}
		return mgl64.TransformCoordinate(mgl64.TransformCoordinate(p.Position, anchor), view)
	}

	s.batchVerts = s.batchVerts[:0]
	s.batchInds = s.batchInds[:0]

	mesh := &b.mesh
	for _, di := range s.sortedSlots(b.particles, toView) {
		p := &b.particles[di.slot]
		mv := view.Mul4(b.instanceMatrix(p))

		c := p.Color.Mul(mat.Color)
		visible := true
		for i, pos := range mesh.positions {
			sx, sy, ok := cam.projectView(mgl64.TransformCoordinate(pos, mv))
			if !ok {
				visible = false
				break
			}
			vc := c
			if mesh.colors != nil {
				vc = vc.Mul(mesh.colors[i])
			}
			a := float32(clamp01(vc.A))
			b.verts[i] = ebiten.Vertex{
				DstX:   float32(sx),
				DstY:   float32(sy),
				SrcX:   float32(float64(bounds.Min.X) + mesh.uvs[i][0]*tw),
				SrcY:   float32(float64(bounds.Min.Y) + mesh.uvs[i][1]*th),
				ColorR: float32(vc.R) * a,
				ColorG: float32(vc.G) * a,
				ColorB: float32(vc.B) * a,
				ColorA: a,
			}
		}
		if !visible {
			continue
		}
		base := uint32(len(s.batchVerts))
		s.batchVerts = append(s.batchVerts, b.verts...)
		for _, idx := range mesh.indices {
			s.batchInds = append(s.batchInds, base+idx)
		}
	}
	s.flush(target, img, mat.Blend)
}

// flush submits the accumulated batch.
func (s *Scene) flush(target, img *ebiten.Image, blend BlendMode) {
	if len(s.batchInds) == 0 {
		return
	}
	var triOp ebiten.DrawTrianglesOptions
	triOp.Blend = blend.EbitenBlend()
	triOp.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	target.DrawTriangles32(s.batchVerts, s.batchInds, img, &triOp)
	s.batchVerts = s.batchVerts[:0]
	s.batchInds = s.batchInds[:0]
}

// --- Merge sort ---

// mergeSort sorts s.commands in-place using s.sortBuf as scratch space.
// Bottom-up merge sort: zero allocations after the sort buffer reaches
// its high-water mark.
func (s *Scene) mergeSort() {
	n := len(s.commands)
	if n <= 1 {
		return
	}
	if cap(s.sortBuf) < n {
		s.sortBuf = make([]RenderCommand, n)
	}
	s.sortBuf = s.sortBuf[:n]

	a := s.commands
	b := s.sortBuf
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(s.commands, s.sortBuf)
	}
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []RenderCommand, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if commandLessOrEqual(src[i], src[j]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}

// --- White pixel singleton (no sync.Once, willowfx is single-threaded) ---

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a lazily-initialized 1x1 white pixel image used
// by untextured materials.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}
