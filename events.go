package willowfx

// SystemEventType identifies a particle system lifecycle event.
type SystemEventType uint8

const (
	SystemStarted  SystemEventType = iota // Start was called on a stopped system
	SystemStopped                         // Stop was called on a started system
	SystemDisposed                        // the system released its pool
	PoolExhausted                         // a spawn batch was truncated
)

// String returns a short name for the event type.
func (t SystemEventType) String() string {
	switch t {
	case SystemStarted:
		return "started"
	case SystemStopped:
		return "stopped"
	case SystemDisposed:
		return "disposed"
	case PoolExhausted:
		return "pool_exhausted"
	default:
		return "unknown"
	}
}

// SystemEvent describes one lifecycle transition of a particle system.
type SystemEvent struct {
	Type   SystemEventType
	Name   string
	UUID   string
	System SystemType
	// Dropped is the number of spawn requests discarded (PoolExhausted only).
	Dropped int
}

// EventSink receives lifecycle events. The ecs submodule provides a sink
// that publishes them into a donburi world.
type EventSink interface {
	EmitEvent(event SystemEvent)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(SystemEvent)

// EmitEvent calls f(event).
func (f EventSinkFunc) EmitEvent(event SystemEvent) { f(event) }
