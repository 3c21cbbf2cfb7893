package willowfx

import "github.com/go-gl/mathgl/mgl64"

// ObjectKind distinguishes hierarchy nodes of a converted graph.
type ObjectKind uint8

const (
	ObjectGroup ObjectKind = iota
	ObjectEmitter
	ObjectUnknown
)

// Object is one node of the converted hierarchy. A single struct serves
// groups, emitters and unrecognized objects; emitter-only fields are zero
// on groups. Unknown objects keep their raw JSON and are never interpreted.
type Object struct {
	Kind       ObjectKind
	Type       string
	UUID       string
	Name       string
	ParentUUID string
	Transform  Transform
	Children   []*Object

	// Emitter fields
	Config     *EmitterConfig
	MaterialID string
	SystemType SystemType

	Raw string
}

// Burst is a one-shot spawn scheduled within an emission cycle.
type Burst struct {
	Time        Value
	Count       Value
	Probability float64
}

// EmitterConfig is the converted configuration of one emitter.
type EmitterConfig struct {
	Version    string
	SystemType SystemType
	RenderMode RenderMode
	Billboard  BillboardMode

	Duration      float64
	Looping       bool
	Prewarm       bool
	PrewarmCycles int
	WorldSpace    bool
	AutoDestroy   bool

	StartLife     *Value
	StartSpeed    *Value
	StartSize     *Value
	StartRotation *Rotation
	StartColor    *ColorValue

	EmissionOverTime     *Value
	EmissionOverDistance *Value
	Bursts               []Burst

	Shape     *Shape
	Behaviors []Behavior

	UTileCount     int
	VTileCount     int
	StartTileIndex *Value
	BlendTiles     bool

	RenderOrder        int
	Layers             int64
	Material           string
	InstancingGeometry string
	SoftParticles      bool
}

// Attribute is a flat vertex attribute buffer.
type Attribute struct {
	Array    []float64
	ItemSize int
}

// Geometry is a converted mesh. Buffer geometries are already in the
// left-handed convention with triangle winding restored.
type Geometry struct {
	UUID     string
	Type     string
	Width    float64
	Height   float64
	Position Attribute
	Normal   Attribute
	UV       Attribute
	Color    Attribute
	Index    []uint32
	Raw      string
}

// Wrap is a texture addressing mode.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClamp
	WrapMirror
)

// Sampling is a texture filtering mode.
type Sampling uint8

const (
	SamplingTrilinear Sampling = iota
	SamplingBilinear
	SamplingNearest
)

// Material is a converted material entry.
type Material struct {
	UUID        string
	Type        string
	Color       Color
	Blending    BlendMode
	Transparent bool
	DepthWrite  bool
	Side        int
	Map         string
}

// Texture is a converted texture entry referencing an Image by uuid.
type Texture struct {
	UUID            string
	Image           string
	WrapU, WrapV    Wrap
	UScale, VScale  float64
	UOffset         float64
	VOffset         float64
	Angle           float64
	Channel         int
	Sampling        Sampling
	FlipY           bool
	GenerateMipmaps bool
}

// Image is a converted image entry.
type Image struct {
	UUID string
	URL  string
}

// Graph is the normalized output of the Converter.
type Graph struct {
	Root       *Object
	Groups     map[string]*Object
	Emitters   map[string]*Object
	Materials  []Material
	Textures   []Texture
	Images     []Image
	Geometries []Geometry
}

// MaterialByUUID looks up a material.
func (g *Graph) MaterialByUUID(uuid string) (*Material, bool) {
	for i := range g.Materials {
		if g.Materials[i].UUID == uuid {
			return &g.Materials[i], true
		}
	}
	return nil, false
}

// TextureByUUID looks up a texture.
func (g *Graph) TextureByUUID(uuid string) (*Texture, bool) {
	for i := range g.Textures {
		if g.Textures[i].UUID == uuid {
			return &g.Textures[i], true
		}
	}
	return nil, false
}

// ImageByUUID looks up an image.
func (g *Graph) ImageByUUID(uuid string) (*Image, bool) {
	for i := range g.Images {
		if g.Images[i].UUID == uuid {
			return &g.Images[i], true
		}
	}
	return nil, false
}

// GeometryByUUID looks up a geometry.
func (g *Graph) GeometryByUUID(uuid string) (*Geometry, bool) {
	for i := range g.Geometries {
		if g.Geometries[i].UUID == uuid {
			return &g.Geometries[i], true
		}
	}
	return nil, false
}

// BehaviorKind tags a Behavior.
type BehaviorKind uint8

const (
	BehaviorUnknown BehaviorKind = iota
	BehaviorColorOverLife
	BehaviorSizeOverLife
	BehaviorRotationOverLife
	BehaviorForceOverLife
	BehaviorGravityForce
	BehaviorSpeedOverLife
	BehaviorFrameOverLife
	BehaviorLimitSpeedOverLife
	BehaviorColorBySpeed
	BehaviorSizeBySpeed
	BehaviorRotationBySpeed
	BehaviorOrbitOverLife
)

// behaviorKindOf maps an authored behavior type to its kind. Aliases
// (Rotation3DOverLife, ApplyForce) share a kind and keep their name in
// Behavior.Type.
func behaviorKindOf(name string) BehaviorKind {
	switch name {
	case "ColorOverLife":
		return BehaviorColorOverLife
	case "SizeOverLife":
		return BehaviorSizeOverLife
	case "RotationOverLife", "Rotation3DOverLife":
		return BehaviorRotationOverLife
	case "ForceOverLife", "ApplyForce":
		return BehaviorForceOverLife
	case "GravityForce":
		return BehaviorGravityForce
	case "SpeedOverLife":
		return BehaviorSpeedOverLife
	case "FrameOverLife":
		return BehaviorFrameOverLife
	case "LimitSpeedOverLife":
		return BehaviorLimitSpeedOverLife
	case "ColorBySpeed":
		return BehaviorColorBySpeed
	case "SizeBySpeed":
		return BehaviorSizeBySpeed
	case "RotationBySpeed":
		return BehaviorRotationBySpeed
	case "OrbitOverLife":
		return BehaviorOrbitOverLife
	default:
		return BehaviorUnknown
	}
}

// Behavior is one entry of an emitter's behavior list. A single struct
// carries every kind; each kind reads only its own fields:
//
//	ColorOverLife       Color
//	SizeOverLife        Size
//	RotationOverLife    AngularVelocity
//	ForceOverLife       Force
//	GravityForce        Gravity
//	SpeedOverLife       Speed
//	FrameOverLife       Frame
//	LimitSpeedOverLife  Speed, MaxSpeed, Dampen
//	ColorBySpeed        ColorKeys, MinSpeed, MaxSpeed
//	SizeBySpeed         Size, MinSpeed, MaxSpeed
//	RotationBySpeed     AngularVelocity, MinSpeed, MaxSpeed
//	OrbitOverLife       Center, Radius, Speed
//
// Unknown behaviors keep their raw JSON in Raw.
type Behavior struct {
	Kind BehaviorKind
	Type string

	Color           *ColorValue
	ColorKeys       []ColorKey
	Size            Curve
	AngularVelocity Curve
	Force           [3]*Value
	Gravity         *Value
	Speed           Curve
	Frame           Curve
	MaxSpeed        *Value
	MinSpeed        *Value
	Dampen          *Value
	Center          mgl64.Vec3
	Radius          Curve

	Raw string
}
