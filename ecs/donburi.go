package ecs

import (
	"github.com/phanxgames/willowfx"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SystemEventType is the Donburi event type for particle system lifecycle
// events.
var SystemEventType = events.NewEventType[willowfx.SystemEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Events are
// queued on SystemEventType and delivered by ProcessEvents.
func NewDonburiSink(world donburi.World) willowfx.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) EmitEvent(event willowfx.SystemEvent) {
	SystemEventType.Publish(s.world, event)
}
