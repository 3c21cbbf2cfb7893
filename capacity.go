package willowfx

import "math"

// CapacityForBase returns the pool size of a point-sprite system. The x2
// factor covers particles from the end of one cycle that are still alive
// when the next cycle starts spawning.
func CapacityForBase(emitRate, duration float64) int {
	return int(math.Ceil(emitRate * duration * 2))
}

// CalculateCapacity returns the pool size of a mesh-instancing system.
// Looping pools hold steady-state occupancy; one-shot pools get the x2
// factor.
func CalculateCapacity(emitRate, lifetime float64, looping bool) int {
	if looping {
		return max(int(math.Ceil(emitRate*lifetime)), 1)
	}
	return int(math.Ceil(emitRate * lifetime * 2))
}
