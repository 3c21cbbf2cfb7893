package willowfx

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const defaultCommandCap = 64

// Scene is the ebiten reference Host. It owns the root transform node,
// the cameras, every registered particle back-end and the loaded effects.
type Scene struct {
	root   *Node
	debug  bool
	logger *slog.Logger

	// assetFS resolves image URLs for textures whose source carries no FS.
	assetFS fs.FS

	cameras  []*Camera
	backends []Backend
	effects  []*Effect

	// Render state
	commands   []RenderCommand
	sortBuf    []RenderCommand
	depthBuf   []depthIndex
	batchVerts []ebiten.Vertex
	batchInds  []uint32
}

// NewScene creates a new scene with a pre-created root node.
func NewScene() *Scene {
	return &Scene{
		root:     NewNode("root"),
		logger:   newNopLogger(),
		commands: make([]RenderCommand, 0, defaultCommandCap),
		sortBuf:  make([]RenderCommand, 0, defaultCommandCap),
	}
}

// Root returns the scene's root node.
func (s *Scene) Root() *Node {
	return s.root
}

// SetLogger sets the logger used for texture and back-end diagnostics.
func (s *Scene) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	s.logger = l
}

// SetAssetFS sets the file system image URLs are resolved against.
func (s *Scene) SetAssetFS(fsys fs.FS) {
	s.assetFS = fsys
}

// NewTransformNode creates a node under parent, or under the root.
func (s *Scene) NewTransformNode(name string, parent *Node) *Node {
	n := NewNode(name)
	if parent == nil {
		parent = s.root
	}
	parent.AddChild(n)
	return n
}

// NewMaterial builds a render material from a converted material.
func (s *Scene) NewMaterial(m *Material, tex *ebiten.Image) *RenderMaterial {
	rm := &RenderMaterial{Color: ColorWhite, Blend: BlendNormal, Texture: tex}
	if m != nil {
		rm.Name = m.UUID
		rm.Color = m.Color
		rm.Blend = m.Blending
		rm.Transparent = m.Transparent
		rm.DepthWrite = m.DepthWrite
	}
	return rm
}

// NewBackend constructs a back-end and registers it for drawing.
func (s *Scene) NewBackend(spec BackendSpec) (Backend, error) {
	b, err := NewBackend(spec)
	if err != nil {
		return nil, err
	}
	s.backends = append(s.backends, b)
	return b, nil
}

// NewTexture decodes the referenced image. Data URLs are decoded inline;
// other URLs are read from src.FS, falling back to the scene's asset FS.
func (s *Scene) NewTexture(src TextureSource) (*ebiten.Image, error) {
	if src.Image == nil || src.Image.URL == "" {
		return nil, errors.New("willowfx: texture has no image url")
	}
	data, err := s.readImage(src)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("willowfx: decode image %s: %w", src.Image.UUID, err)
	}
	s.logger.Debug("texture decoded", "image", src.Image.UUID, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return ebiten.NewImageFromImage(img), nil
}

func (s *Scene) readImage(src TextureSource) ([]byte, error) {
	u := src.Image.URL
	if strings.HasPrefix(u, "data:") {
		return decodeDataURL(u)
	}
	fsys := src.FS
	if fsys == nil {
		fsys = s.assetFS
	}
	if fsys == nil {
		return nil, fmt.Errorf("willowfx: no asset fs to resolve %q", u)
	}
	if parsed, err := url.Parse(u); err == nil && parsed.Scheme == "" {
		u = parsed.Path
	}
	return fs.ReadFile(fsys, path.Clean(strings.TrimPrefix(u, "/")))
}

// decodeDataURL returns the payload of a data URL.
func decodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, errors.New("willowfx: malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	plain, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("willowfx: data url: %w", err)
	}
	return []byte(plain), nil
}

// LoadEffect loads an authored effect under the scene root and registers
// it for Update.
func (s *Scene) LoadEffect(data []byte, opts Options) (*Effect, error) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	if opts.AssetFS == nil {
		opts.AssetFS = s.assetFS
	}
	e, err := Load(data, s, nil, opts)
	if err != nil {
		return nil, err
	}
	s.AddEffect(e)
	return e, nil
}

// AddEffect registers an effect for Update.
func (s *Scene) AddEffect(e *Effect) {
	s.effects = append(s.effects, e)
}

// RemoveEffect unregisters an effect without disposing it.
func (s *Scene) RemoveEffect(e *Effect) {
	for i, x := range s.effects {
		if x == e {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

// Effects returns the registered effects. The slice MUST NOT be mutated.
func (s *Scene) Effects() []*Effect {
	return s.effects
}

// Update advances cameras and every registered effect by one tick.
func (s *Scene) Update() {
	s.UpdateDelta(1.0 / float64(ebiten.TPS()))
}

// UpdateDelta advances the scene by dt seconds.
func (s *Scene) UpdateDelta(dt float64) {
	// Refresh world transforms first so camera follow targets and
	// distance-based emission see this frame's positions.
	updateWorldTransform(s.root, mgl64.Ident4(), false)

	for _, cam := range s.cameras {
		cam.update(float32(dt))
	}

	live := s.effects[:0]
	for _, e := range s.effects {
		e.Update(dt)
		if !e.IsDisposed() {
			live = append(live, e)
		}
	}
	clear(s.effects[len(live):])
	s.effects = live

	s.pruneBackends()
}

// pruneBackends drops disposed back-ends from the draw list.
func (s *Scene) pruneBackends() {
	live := s.backends[:0]
	for _, b := range s.backends {
		if !b.IsDisposed() {
			live = append(live, b)
		}
	}
	clear(s.backends[len(live):])
	s.backends = live
}

// Draw renders every back-end once per camera. Without an explicit camera
// a default one covering the whole target is used.
func (s *Scene) Draw(screen *ebiten.Image) {
	if len(s.cameras) == 0 {
		b := screen.Bounds()
		cam := newCamera(Rect{Width: float64(b.Dx()), Height: float64(b.Dy())})
		s.drawWithCamera(screen, cam)
		return
	}
	for _, cam := range s.cameras {
		vp := cam.Viewport
		viewportImg := screen.SubImage(image.Rect(
			int(vp.X), int(vp.Y),
			int(vp.X+vp.Width), int(vp.Y+vp.Height),
		)).(*ebiten.Image)
		s.drawWithCamera(viewportImg, cam)
	}
}

// NewCamera creates a camera with the given viewport and adds it to the scene.
func (s *Scene) NewCamera(viewport Rect) *Camera {
	cam := newCamera(viewport)
	s.cameras = append(s.cameras, cam)
	return cam
}

// RemoveCamera removes a camera from the scene.
func (s *Scene) RemoveCamera(cam *Camera) {
	for i, c := range s.cameras {
		if c == cam {
			s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
			return
		}
	}
}

// Cameras returns the scene's camera list. The returned slice MUST NOT be mutated.
func (s *Scene) Cameras() []*Camera {
	return s.cameras
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// access panics and tree depth and pool occupancy warnings are printed.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}
