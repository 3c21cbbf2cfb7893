package willowfx

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidwall/gjson"
)

// Converter turns an authored right-handed effect document into a
// left-handed Graph. It is the only place where axes are flipped.
type Converter struct {
	opts   Options
	logger *slog.Logger
	tree   treeLog

	groups   map[string]*Object
	emitters map[string]*Object
}

// NewConverter creates a Converter.
func NewConverter(opts Options) *Converter {
	opts = opts.withDefaults()
	return &Converter{
		opts:   opts,
		logger: opts.Logger,
		tree:   treeLog{logger: opts.Logger, verbose: opts.Verbose},
	}
}

// Convert parses and converts data. It fails only when data is not JSON or
// has no root object; bad nodes inside the tree are logged and skipped.
func Convert(data []byte, opts Options) (*Graph, error) {
	return NewConverter(opts).Convert(data)
}

// Convert parses and converts data. The input is not modified.
func (c *Converter) Convert(data []byte) (*Graph, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	obj := doc.Get("object")
	if !obj.IsObject() {
		return nil, ErrNoRoot
	}

	c.groups = make(map[string]*Object)
	c.emitters = make(map[string]*Object)
	c.tree.debug(0, "converting effect")

	g := &Graph{
		Root:       c.convertObject(obj, "", 0),
		Materials:  c.convertMaterials(doc.Get("materials")),
		Textures:   c.convertTextures(doc.Get("textures")),
		Images:     c.convertImages(doc.Get("images")),
		Geometries: c.convertGeometries(doc.Get("geometries")),
		Groups:     c.groups,
		Emitters:   c.emitters,
	}
	c.tree.debug(0, "conversion complete",
		"groups", len(g.Groups), "emitters", len(g.Emitters),
		"materials", len(g.Materials), "textures", len(g.Textures),
		"images", len(g.Images), "geometries", len(g.Geometries))
	return g, nil
}

func (c *Converter) convertObject(obj gjson.Result, parentUUID string, depth int) *Object {
	typ := obj.Get("type").String()
	name := obj.Get("name").String()
	c.tree.debug(depth, "object", "type", typ, "name", name)

	transform := c.convertTransform(obj, name)

	switch typ {
	case "Group":
		children := obj.Get("children")
		if !children.IsArray() {
			c.logger.Warn("skipping group without children", "name", name, "uuid", obj.Get("uuid").String())
			return nil
		}
		g := &Object{
			Kind:       ObjectGroup,
			Type:       typ,
			UUID:       obj.Get("uuid").String(),
			Name:       name,
			ParentUUID: parentUUID,
			Transform:  transform,
		}
		if g.UUID == "" {
			g.UUID = "group_" + strconv.Itoa(len(c.groups))
		}
		if g.Name == "" {
			g.Name = "Group"
		}
		// Register before recursing so default uuids follow pre-order.
		c.groups[g.UUID] = g
		for _, child := range children.Array() {
			if !child.IsObject() {
				c.logger.Warn("skipping non-object child", "group", g.Name)
				continue
			}
			if o := c.convertObject(child, g.UUID, depth+1); o != nil {
				g.Children = append(g.Children, o)
			}
		}
		c.tree.debug(depth, "group", "name", g.Name, "uuid", g.UUID, "children", len(g.Children))
		return g

	case "ParticleEmitter":
		ps := obj.Get("ps")
		if !ps.IsObject() {
			c.logger.Warn("skipping emitter without config", "name", name, "uuid", obj.Get("uuid").String())
			return nil
		}
		cfg := c.convertEmitterConfig(ps, name)
		e := &Object{
			Kind:       ObjectEmitter,
			Type:       typ,
			UUID:       obj.Get("uuid").String(),
			Name:       name,
			ParentUUID: parentUUID,
			Transform:  transform,
			Config:     cfg,
			MaterialID: cfg.Material,
			SystemType: cfg.SystemType,
		}
		if e.UUID == "" {
			e.UUID = "emitter_" + strconv.Itoa(len(c.emitters))
		}
		if e.Name == "" {
			e.Name = "ParticleEmitter"
		}
		c.emitters[e.UUID] = e
		c.tree.debug(depth, "emitter", "name", e.Name, "uuid", e.UUID, "system", e.SystemType.String())
		return e

	default:
		c.logger.Warn("passing through unknown object", "type", typ, "name", name)
		return &Object{
			Kind:       ObjectUnknown,
			Type:       typ,
			UUID:       obj.Get("uuid").String(),
			Name:       name,
			ParentUUID: parentUUID,
			Transform:  transform,
			Raw:        obj.Raw,
		}
	}
}

// convertTransform reads either a column-major 4x4 matrix or separate
// position/rotation/scale and maps it to the left-handed convention by
// negating position Z and rotation quaternion X. Scale is unchanged.
func (c *Converter) convertTransform(obj gjson.Result, name string) Transform {
	t := IdentityTransform()

	if m := obj.Get("matrix"); m.IsArray() {
		if arr := m.Array(); len(arr) >= 16 {
			var mat mgl64.Mat4
			for i := 0; i < 16; i++ {
				mat[i] = arr[i].Float()
			}
			if c.opts.Validate && !finiteMat(mat) {
				c.logger.Warn("matrix has non-finite entries", "name", name)
			}
			t = decompose(mat)
			return flipHandedness(t)
		}
		c.logger.Warn("ignoring short matrix", "name", name, "len", len(m.Array()))
	}

	if p := obj.Get("position"); p.IsArray() {
		arr := floats(p)
		t.Position = mgl64.Vec3{at(arr, 0, 0), at(arr, 1, 0), at(arr, 2, 0)}
	}
	if r := obj.Get("rotation"); r.IsArray() {
		arr := r.Array()
		var angles [3]float64
		for i := 0; i < 3 && i < len(arr); i++ {
			angles[i] = arr[i].Float()
		}
		order := "xyz"
		if len(arr) > 3 && arr[3].Type == gjson.String {
			order = strings.ToLower(arr[3].String())
		}
		t.Rotation = mgl64.AnglesToQuat(angles[0], angles[1], angles[2], eulerOrder(order))
	}
	if s := obj.Get("scale"); s.IsArray() {
		arr := floats(s)
		t.Scale = mgl64.Vec3{at(arr, 0, 1), at(arr, 1, 1), at(arr, 2, 1)}
	}
	return flipHandedness(t)
}

// flipHandedness maps a right-handed Y-up transform to the left-handed
// convention. Applying it twice restores the input.
func flipHandedness(t Transform) Transform {
	t.Position[2] = -t.Position[2]
	t.Rotation.V[0] = -t.Rotation.V[0]
	return t
}

func finiteMat(m mgl64.Mat4) bool {
	for _, v := range m {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func floats(r gjson.Result) []float64 {
	arr := r.Array()
	out := make([]float64, len(arr))
	for i, v := range arr {
		out[i] = v.Float()
	}
	return out
}

func at(arr []float64, i int, def float64) float64 {
	if i < len(arr) {
		return arr[i]
	}
	return def
}

func (c *Converter) convertEmitterConfig(ps gjson.Result, name string) *EmitterConfig {
	renderMode := RenderBillboard
	if rm := ps.Get("renderMode"); rm.Exists() {
		renderMode = RenderMode(rm.Int())
	}
	cfg := &EmitterConfig{
		Version:            ps.Get("version").String(),
		RenderMode:         renderMode,
		Billboard:          renderMode.billboard(),
		Duration:           c.opts.DefaultDuration,
		Looping:            ps.Get("looping").Bool(),
		Prewarm:            ps.Get("prewarm").Bool(),
		WorldSpace:         ps.Get("worldSpace").Bool(),
		AutoDestroy:        ps.Get("autoDestroy").Bool(),
		UTileCount:         int(ps.Get("uTileCount").Int()),
		VTileCount:         int(ps.Get("vTileCount").Int()),
		BlendTiles:         ps.Get("blendTiles").Bool(),
		RenderOrder:        int(ps.Get("renderOrder").Int()),
		Layers:             ps.Get("layers").Int(),
		Material:           ps.Get("material").String(),
		InstancingGeometry: ps.Get("instancingGeometry").String(),
		SoftParticles:      ps.Get("softParticles").Bool(),
	}
	if renderMode == RenderMesh {
		cfg.SystemType = SystemSolid
	}
	if d := ps.Get("duration"); d.Exists() {
		cfg.Duration = d.Float()
		if c.opts.Validate && cfg.Duration <= 0 {
			c.logger.Warn("non-positive duration", "name", name, "duration", cfg.Duration)
		}
	}
	if cfg.Prewarm {
		cfg.PrewarmCycles = int(cfg.Duration*60 + 0.999999)
	}

	cfg.StartLife = c.optValue(ps.Get("startLife"), name)
	cfg.StartSpeed = c.optValue(ps.Get("startSpeed"), name)
	cfg.StartSize = c.optValue(ps.Get("startSize"), name)
	cfg.EmissionOverTime = c.optValue(ps.Get("emissionOverTime"), name)
	cfg.EmissionOverDistance = c.optValue(ps.Get("emissionOverDistance"), name)
	cfg.StartTileIndex = c.optValue(ps.Get("startTileIndex"), name)
	if r := ps.Get("startRotation"); r.Exists() {
		rot := c.convertRotation(r, name)
		cfg.StartRotation = &rot
	}
	if col := ps.Get("startColor"); col.Exists() {
		cv := convertColor(col)
		cfg.StartColor = &cv
	}
	if s := ps.Get("shape"); s.IsObject() {
		shape := c.convertShape(s, name)
		cfg.Shape = &shape
	}
	for _, b := range ps.Get("emissionBursts").Array() {
		burst := Burst{
			Time:        c.convertValue(b.Get("time"), name),
			Count:       c.convertValue(b.Get("count"), name),
			Probability: 1,
		}
		if p := b.Get("probability"); p.Exists() {
			burst.Probability = p.Float()
		}
		cfg.Bursts = append(cfg.Bursts, burst)
	}
	for _, b := range ps.Get("behaviors").Array() {
		cfg.Behaviors = append(cfg.Behaviors, c.convertBehavior(b, name))
	}
	return cfg
}

func (c *Converter) optValue(r gjson.Result, name string) *Value {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := c.convertValue(r, name)
	return &v
}

// convertValue re-tags an authored scalar. Numbers pass through unchanged.
func (c *Converter) convertValue(r gjson.Result, name string) Value {
	if r.Type == gjson.Number {
		return Constant(r.Float())
	}
	if !r.IsObject() {
		return Value{Kind: ValueUnknown, Raw: r.Raw}
	}
	switch r.Get("type").String() {
	case "ConstantValue":
		return Constant(r.Get("value").Float())
	case "IntervalValue":
		return Interval(r.Get("a").Float(), r.Get("b").Float())
	case "PiecewiseBezier":
		return Bezier(c.bezierFunctions(r.Get("functions"), name)...)
	default:
		return Value{Kind: ValueUnknown, Raw: r.Raw}
	}
}

func (c *Converter) bezierFunctions(r gjson.Result, name string) []BezierFunction {
	var fns []BezierFunction
	for _, f := range r.Array() {
		fn := BezierFunction{Start: f.Get("start").Float()}
		body := f.Get("function")
		if body.IsArray() {
			p := floats(body)
			fn.P0, fn.P1, fn.P2, fn.P3 = at(p, 0, 0), at(p, 1, 0), at(p, 2, 0), at(p, 3, 0)
		} else {
			fn.P0 = body.Get("p0").Float()
			fn.P1 = body.Get("p1").Float()
			fn.P2 = body.Get("p2").Float()
			fn.P3 = body.Get("p3").Float()
		}
		if c.opts.Validate && len(fns) > 0 && fn.Start < fns[len(fns)-1].Start {
			c.logger.Warn("bezier segments out of order", "name", name)
		}
		fns = append(fns, fn)
	}
	return fns
}

// rgbaOf reads a color given as [r,g,b(,a)], {r,g,b(,a)} or "#rrggbb".
func rgbaOf(r gjson.Result) (Color, bool) {
	switch {
	case r.IsArray():
		p := floats(r)
		if len(p) < 3 {
			return ColorWhite, false
		}
		return Color{p[0], p[1], p[2], at(p, 3, 1)}, true
	case r.IsObject():
		col := Color{r.Get("r").Float(), r.Get("g").Float(), r.Get("b").Float(), 1}
		if a := r.Get("a"); a.Exists() {
			col.A = a.Float()
		}
		return col, true
	case r.Type == gjson.String:
		hex, err := strconv.ParseInt(strings.TrimPrefix(r.String(), "#"), 16, 64)
		if err != nil {
			return ColorWhite, false
		}
		return colorFromHex(hex), true
	case r.Type == gjson.Number:
		return colorFromHex(r.Int()), true
	}
	return ColorWhite, false
}

// convertColor re-tags an authored color. Channels pass through unchanged.
func convertColor(r gjson.Result) ColorValue {
	if !r.IsObject() || !r.Get("type").Exists() {
		if col, ok := rgbaOf(r); ok {
			return ConstantColor(col)
		}
		return ColorValue{Kind: ColorUnknown, Raw: r.Raw}
	}
	switch r.Get("type").String() {
	case "ConstantColor":
		if col, ok := rgbaOf(r.Get("value")); ok {
			return ConstantColor(col)
		}
		if col, ok := rgbaOf(r.Get("color")); ok {
			return ConstantColor(col)
		}
		return ConstantColor(ColorWhite)
	case "ColorRange":
		a, _ := rgbaOf(r.Get("a"))
		b, _ := rgbaOf(r.Get("b"))
		return ColorValue{Kind: ColorRange, A: a, B: b}
	case "RandomColor":
		a, _ := rgbaOf(r.Get("a"))
		b, _ := rgbaOf(r.Get("b"))
		return ColorValue{Kind: ColorRandom, A: a, B: b}
	case "Gradient":
		return ColorValue{Kind: ColorGradientKind, Gradient: convertColorCurve(r)}
	case "RandomColorBetweenGradient":
		return ColorValue{
			Kind:      ColorRandomBetweenGradient,
			Gradient:  convertColorCurve(r.Get("gradient1")),
			Gradient2: convertColorCurve(r.Get("gradient2")),
		}
	default:
		return ColorValue{Kind: ColorUnknown, Raw: r.Raw}
	}
}

// keyParts splits a gradient key written as {value, pos} (or {value, time})
// or as a [value, pos] tuple.
func keyParts(k gjson.Result) (gjson.Result, float64) {
	if k.IsArray() {
		arr := k.Array()
		if len(arr) == 0 {
			return gjson.Result{}, 0
		}
		if len(arr) == 1 {
			return arr[0], 0
		}
		return arr[0], arr[1].Float()
	}
	if p := k.Get("pos"); p.Exists() {
		return k.Get("value"), p.Float()
	}
	return k.Get("value"), k.Get("time").Float()
}

func convertColorKeys(keys gjson.Result) []ColorKey {
	var out []ColorKey
	for _, k := range keys.Array() {
		v, pos := keyParts(k)
		col, ok := rgbaOf(v)
		if !ok {
			continue
		}
		out = append(out, ColorKey{Pos: pos, Value: col})
	}
	return out
}

func convertNumberKeys(keys gjson.Result) []NumberKey {
	var out []NumberKey
	for _, k := range keys.Array() {
		v, pos := keyParts(k)
		if !v.Exists() {
			continue
		}
		val := v.Float()
		if v.IsArray() {
			// Alpha keys are sometimes written as a full color.
			val = at(floats(v), 3, at(floats(v), 0, 1))
		}
		out = append(out, NumberKey{Pos: pos, Value: val})
	}
	return out
}

// convertColorCurve reads {color:{keys}, alpha:{keys}} or a bare {keys}.
func convertColorCurve(r gjson.Result) ColorCurve {
	curve := ColorCurve{
		Color: convertColorKeys(r.Get("color.keys")),
		Alpha: convertNumberKeys(r.Get("alpha.keys")),
	}
	if len(curve.Color) == 0 {
		curve.Color = convertColorKeys(r.Get("keys"))
	}
	return curve
}

func (c *Converter) convertRotation(r gjson.Result, name string) Rotation {
	if r.Type == gjson.Number {
		return Rotation{Kind: RotationAngle, Angle: Constant(r.Float())}
	}
	switch r.Get("type").String() {
	case "ConstantValue", "IntervalValue", "PiecewiseBezier":
		return Rotation{Kind: RotationAngle, Angle: c.convertValue(r, name)}
	case "Euler":
		rot := Rotation{
			Kind:   RotationEuler,
			AngleX: c.optValue(r.Get("angleX"), name),
			AngleY: c.optValue(r.Get("angleY"), name),
			AngleZ: c.optValue(r.Get("angleZ"), name),
			Order:  r.Get("order").String(),
		}
		if rot.Order == "" {
			rot.Order = "xyz"
		}
		return rot
	case "AxisAngle":
		axis := r.Get("axis")
		rot := Rotation{Kind: RotationAxisAngle, Angle: c.convertValue(r.Get("angle"), name)}
		if axis.IsArray() {
			p := floats(axis)
			rot.Axis = mgl64.Vec3{at(p, 0, 0), at(p, 1, 0), at(p, 2, 0)}
		} else {
			rot.Axis = mgl64.Vec3{axis.Get("x").Float(), axis.Get("y").Float(), axis.Get("z").Float()}
		}
		return rot
	case "RandomQuat":
		return Rotation{Kind: RotationRandomQuat}
	default:
		return Rotation{Kind: RotationUnknown, Raw: r.Raw}
	}
}

func (c *Converter) convertShape(r gjson.Result, name string) Shape {
	typ := r.Get("type").String()
	s := NewShape(shapeKindOf(typ))
	s.Type = typ
	// Missing fields keep their defaults; an authored 0 is kept.
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"radius", &s.Radius},
		{"arc", &s.Arc},
		{"thickness", &s.Thickness},
		{"angle", &s.Angle},
		{"mode", &s.Mode},
		{"spread", &s.Spread},
		{"height", &s.Height},
	} {
		if v := r.Get(f.key); v.Exists() && v.Type != gjson.Null {
			*f.dst = v.Float()
		}
	}
	s.Speed = c.optValue(r.Get("speed"), name)
	if size := r.Get("size"); size.IsArray() {
		s.Size = floats(size)
	}
	if s.Kind == ShapeUnknown {
		c.logger.Warn("unknown emitter shape, particles launch along +Y", "name", name, "shape", typ)
	}
	return s
}

// convertCurve reads either {keys:[...]} or a Value.
func (c *Converter) convertCurve(r gjson.Result, name string) Curve {
	if !r.Exists() || r.Type == gjson.Null {
		return Curve{}
	}
	if keys := r.Get("keys"); keys.IsArray() {
		return Curve{Keys: convertNumberKeys(keys)}
	}
	if r.IsObject() && !r.Get("type").Exists() && r.Get("functions").IsArray() {
		v := Bezier(c.bezierFunctions(r.Get("functions"), name)...)
		return Curve{Value: &v}
	}
	v := c.convertValue(r, name)
	return Curve{Value: &v}
}

func (c *Converter) convertBehavior(r gjson.Result, name string) Behavior {
	typ := r.Get("type").String()
	b := Behavior{Kind: behaviorKindOf(typ), Type: typ}
	switch b.Kind {
	case BehaviorColorOverLife:
		if col := r.Get("color"); col.Exists() {
			cv := convertColor(col)
			if cv.Kind == ColorUnknown && (col.Get("keys").IsArray() || col.Get("color").IsObject()) {
				cv = ColorValue{Kind: ColorGradientKind, Gradient: convertColorCurve(col)}
			}
			b.Color = &cv
		}
	case BehaviorSizeOverLife:
		b.Size = c.convertCurve(r.Get("size"), name)
	case BehaviorRotationOverLife:
		b.AngularVelocity = c.convertCurve(r.Get("angularVelocity"), name)
	case BehaviorForceOverLife:
		for i, axis := range []string{"x", "y", "z"} {
			if v := r.Get(axis); v.Exists() {
				b.Force[i] = c.optValue(v, name)
			} else {
				b.Force[i] = c.optValue(r.Get("force."+axis), name)
			}
		}
		if dir := r.Get("direction"); dir.IsArray() && b.Force == [3]*Value{} {
			p := floats(dir)
			mag := 1.0
			if m := r.Get("magnitude"); m.Exists() {
				mag = c.convertValue(m, name).Mean()
			}
			for i := 0; i < 3; i++ {
				v := Constant(at(p, i, 0) * mag)
				b.Force[i] = &v
			}
		}
	case BehaviorGravityForce:
		b.Gravity = c.optValue(r.Get("gravity"), name)
	case BehaviorSpeedOverLife:
		b.Speed = c.convertCurve(r.Get("speed"), name)
	case BehaviorFrameOverLife:
		b.Frame = c.convertCurve(r.Get("frame"), name)
	case BehaviorLimitSpeedOverLife:
		b.Speed = c.convertCurve(r.Get("speed"), name)
		b.MaxSpeed = c.optValue(r.Get("maxSpeed"), name)
		b.Dampen = c.optValue(r.Get("dampen"), name)
	case BehaviorColorBySpeed:
		b.ColorKeys = convertColorKeys(r.Get("color.keys"))
		if len(b.ColorKeys) == 0 {
			b.ColorKeys = convertColorKeys(r.Get("color.color.keys"))
		}
		b.MinSpeed = c.optValue(r.Get("minSpeed"), name)
		b.MaxSpeed = c.optValue(r.Get("maxSpeed"), name)
	case BehaviorSizeBySpeed:
		b.Size = c.convertCurve(r.Get("size"), name)
		b.MinSpeed = c.optValue(r.Get("minSpeed"), name)
		b.MaxSpeed = c.optValue(r.Get("maxSpeed"), name)
	case BehaviorRotationBySpeed:
		b.AngularVelocity = c.convertCurve(r.Get("angularVelocity"), name)
		b.MinSpeed = c.optValue(r.Get("minSpeed"), name)
		b.MaxSpeed = c.optValue(r.Get("maxSpeed"), name)
	case BehaviorOrbitOverLife:
		center := r.Get("center")
		if center.IsArray() {
			p := floats(center)
			b.Center = mgl64.Vec3{at(p, 0, 0), at(p, 1, 0), at(p, 2, 0)}
		} else {
			b.Center = mgl64.Vec3{center.Get("x").Float(), center.Get("y").Float(), center.Get("z").Float()}
		}
		b.Radius = c.convertCurve(r.Get("radius"), name)
		b.Speed = c.convertCurve(r.Get("speed"), name)
	default:
		b.Raw = r.Raw
		c.tree.debug(0, "keeping unknown behavior", "emitter", name, "type", typ)
	}
	return b
}

func (c *Converter) convertMaterials(r gjson.Result) []Material {
	var out []Material
	for _, m := range r.Array() {
		mat := Material{
			UUID:        m.Get("uuid").String(),
			Type:        m.Get("type").String(),
			Color:       ColorWhite,
			Blending:    BlendNormal,
			Transparent: m.Get("transparent").Bool(),
			DepthWrite:  m.Get("depthWrite").Bool(),
			Side:        int(m.Get("side").Int()),
			Map:         m.Get("map").String(),
		}
		if col := m.Get("color"); col.Exists() {
			if parsed, ok := rgbaOf(col); ok {
				mat.Color = parsed
			}
		}
		if bl := m.Get("blending"); bl.Exists() {
			mat.Blending = blendModeFromAuthored(bl.Int())
		}
		out = append(out, mat)
	}
	return out
}

func wrapOf(code int64) Wrap {
	switch code {
	case 1001:
		return WrapClamp
	case 1002:
		return WrapMirror
	default:
		return WrapRepeat
	}
}

func (c *Converter) convertTextures(r gjson.Result) []Texture {
	var out []Texture
	for _, t := range r.Array() {
		tex := Texture{
			UUID:            t.Get("uuid").String(),
			Image:           t.Get("image").String(),
			UScale:          1,
			VScale:          1,
			Angle:           t.Get("rotation").Float(),
			Channel:         int(t.Get("channel").Int()),
			FlipY:           t.Get("flipY").Bool(),
			GenerateMipmaps: t.Get("generateMipmaps").Bool(),
		}
		if w := t.Get("wrap"); w.IsArray() {
			arr := w.Array()
			if len(arr) > 0 {
				tex.WrapU = wrapOf(arr[0].Int())
			}
			if len(arr) > 1 {
				tex.WrapV = wrapOf(arr[1].Int())
			}
		}
		if rep := t.Get("repeat"); rep.IsArray() {
			p := floats(rep)
			tex.UScale, tex.VScale = nonZero(at(p, 0, 1), 1), nonZero(at(p, 1, 1), 1)
		}
		if off := t.Get("offset"); off.IsArray() {
			p := floats(off)
			tex.UOffset, tex.VOffset = at(p, 0, 0), at(p, 1, 0)
		}
		switch minF, magF := t.Get("minFilter"), t.Get("magFilter"); {
		case minF.Exists():
			switch minF.Int() {
			case 1008, 1009:
				tex.Sampling = SamplingTrilinear
			case 1006, 1007:
				tex.Sampling = SamplingBilinear
			default:
				tex.Sampling = SamplingNearest
			}
		case magF.Exists():
			if magF.Int() == 1006 {
				tex.Sampling = SamplingBilinear
			} else {
				tex.Sampling = SamplingNearest
			}
		default:
			tex.Sampling = SamplingTrilinear
		}
		out = append(out, tex)
	}
	return out
}

func nonZero(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (c *Converter) convertImages(r gjson.Result) []Image {
	var out []Image
	for _, img := range r.Array() {
		out = append(out, Image{UUID: img.Get("uuid").String(), URL: img.Get("url").String()})
	}
	return out
}

func attributeOf(r gjson.Result) Attribute {
	return Attribute{Array: floats(r.Get("array")), ItemSize: int(r.Get("itemSize").Int())}
}

func (c *Converter) convertGeometries(r gjson.Result) []Geometry {
	var out []Geometry
	for _, g := range r.Array() {
		geo := Geometry{UUID: g.Get("uuid").String(), Type: g.Get("type").String()}
		switch geo.Type {
		case "PlaneGeometry":
			geo.Width = nonZero(g.Get("width").Float(), 1)
			geo.Height = nonZero(g.Get("height").Float(), 1)
		case "BufferGeometry":
			attrs := g.Get("data.attributes")
			geo.Position = attributeOf(attrs.Get("position"))
			geo.Normal = attributeOf(attrs.Get("normal"))
			geo.UV = attributeOf(attrs.Get("uv"))
			geo.Color = attributeOf(attrs.Get("color"))
			for _, v := range g.Get("data.index.array").Array() {
				geo.Index = append(geo.Index, uint32(v.Uint()))
			}
			flipBuffers(&geo)
		default:
			geo.Raw = g.Raw
			c.logger.Warn("passing through unknown geometry", "uuid", geo.UUID, "type", geo.Type)
		}
		out = append(out, geo)
	}
	return out
}

// flipBuffers negates Z of every position and normal triple and swaps the
// second and third index of every triangle so winding survives the flip.
func flipBuffers(g *Geometry) {
	for _, attr := range []*Attribute{&g.Position, &g.Normal} {
		for i := 2; i < len(attr.Array); i += 3 {
			attr.Array[i] = -attr.Array[i]
		}
	}
	for i := 0; i+2 < len(g.Index); i += 3 {
		g.Index[i+1], g.Index[i+2] = g.Index[i+2], g.Index[i+1]
	}
}

// String describes the object for logs.
func (o *Object) String() string {
	return fmt.Sprintf("%s %q (%s)", o.Type, o.Name, o.UUID)
}
