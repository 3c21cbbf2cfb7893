package willowfx

import (
	"fmt"
	"os"
)

// globalDebug enables tree-operation checks. Set through Scene.SetDebugMode.
var globalDebug bool

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("willowfx debug: %s on disposed node %q", op, n.Name))
	}
}

// debugCheckTreeDepth warns on stderr if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(os.Stderr, "[willowfx] warning: tree depth %d exceeds %d (node %q)\n",
			depth, debugMaxTreeDepth, n.Name)
	}
}

// poolWasteRatio is how many idle slots per live particle a stopping
// system tolerates before warning about its pool size.
const poolWasteRatio = 8

// checkPoolWaste warns when the pool is far larger than the occupancy seen
// at stop time, which usually means a mistyped emit rate.
func (ps *ParticleSystem) checkPoolWaste() {
	if ps.backend == nil {
		return
	}
	capacity := ps.backend.Capacity()
	alive := ps.AliveCount()
	if capacity > 64 && alive > 0 && capacity/alive > poolWasteRatio {
		ps.logger.Warn("pool mostly unused", "alive", alive, "capacity", capacity)
	}
}
