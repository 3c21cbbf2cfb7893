package willowfx

import (
	"io/fs"

	"github.com/hajimehoshi/ebiten/v2"
)

// TextureSource identifies a texture to load: the converted texture entry
// and the image it references. FS resolves non-data URLs and may be nil.
type TextureSource struct {
	Texture *Texture
	Image   *Image
	FS      fs.FS
}

// Host is the scene surface the engine builds into. Scene is the ebiten
// reference implementation; tests substitute a recording fake.
type Host interface {
	// NewTransformNode creates a node attached to parent, or to the host
	// root when parent is nil.
	NewTransformNode(name string, parent *Node) *Node
	// NewTexture decodes an image into a GPU texture.
	NewTexture(src TextureSource) (*ebiten.Image, error)
	// NewMaterial builds a render material. tex may be nil.
	NewMaterial(m *Material, tex *ebiten.Image) *RenderMaterial
	// NewBackend constructs particle storage and registers it for drawing.
	NewBackend(spec BackendSpec) (Backend, error)
}
