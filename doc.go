// Package willowfx loads authored particle effects and simulates them on
// [Ebitengine].
//
// Effects are authored in a right-handed, Y-up editor and exported as JSON.
// willowfx converts that document once into a left-handed [Graph], builds a
// tree of anchors and [ParticleSystem] values through a [Host], and steps
// the systems every frame.
//
// # Quick start
//
// [Scene] is the ebiten reference [Host]. Load an effect into it and drive
// it from your game loop:
//
//	scene := willowfx.NewScene()
//	effect, err := scene.LoadEffect(data, willowfx.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	scene.NewCamera(willowfx.Rect{Width: 640, Height: 480})
//
//	func (g *Game) Update() error        { g.scene.Update(); return nil }
//	func (g *Game) Draw(s *ebiten.Image) { g.scene.Draw(s) }
//
// # Pipeline
//
// The pipeline has four stages:
//
//	JSON -> Converter -> Graph -> Factory (Host) -> Effect
//
// [Convert] is the only place coordinates change handedness: position Z and
// quaternion X are negated, mesh buffers get Z negated and their triangle
// winding swapped. Everything downstream works in left-handed space.
//
// [Factory] walks the graph depth first. Groups become transform nodes,
// emitters become a transform node plus a particle system. A failure in one
// emitter is logged and skipped; its siblings are still built.
//
// # Particle systems
//
// Base systems draw camera-facing sprites and fold constant forces into a
// single gravity vector. Solid systems draw instanced meshes and apply every
// behavior per particle. Both share the same emission rules: rate over time,
// rate over distance travelled by the anchor, and bursts. Pool capacity is
// computed from the authored rate and life and never grows; requests beyond
// it are dropped and reported once through [EventSink].
//
// Behaviors may be added, removed or replaced at runtime. The system
// rebuilds its gradients from the full behavior list each time, so editing
// is idempotent.
//
// # Controlling an effect
//
// [Effect] exposes the built tree for lookup by name or uuid and for
// start, stop and reset of the whole effect, a group or a single system:
//
//	if err := effect.StartGroup("sparks"); err != nil {
//		// err wraps ErrNotFound
//	}
//
// Tweens for anchor position, scale and emission rate are provided through
// [gween]. Lifecycle events can be bridged into a [Donburi] world with the
// willowfx/ecs adapter.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package willowfx
