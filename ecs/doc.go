// Package ecs bridges willowfx particle system lifecycle events into a
// [Donburi] world.
//
// [NewDonburiSink] returns a willowfx.EventSink that publishes every
// [willowfx.SystemEvent] (started, stopped, disposed, pool exhausted) as a
// typed Donburi event. Subscribe to [SystemEventType] in your ECS systems
// to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	effect, err := scene.LoadEffect(data, willowfx.Options{Events: sink})
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
