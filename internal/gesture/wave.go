package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/history"
)

// DetectWave reports whether the wrist trajectory in ring swings back and
// forth. Steps smaller than MinDelta are treated as jitter and neither
// count nor reset the current direction.
func DetectWave(ring *history.Ring, cfg WaveConfig) bool {
	return countReversals(ring, cfg.MinDelta, cfg.MinSamples) >= cfg.MinReversals
}

func countReversals(ring *history.Ring, minDelta float64, minSamples int) int {
	n := ring.Len()
	if n < minSamples || n < 2 {
		return 0
	}

	reversals := 0
	lastDir := 0
	prev := ring.At(0).X
	for i := 1; i < n; i++ {
		x := ring.At(i).X
		diff := x - prev
		prev = x

		if math.Abs(diff) <= minDelta {
			continue
		}
		dir := 1
		if diff < 0 {
			dir = -1
		}
		if lastDir != 0 && dir != lastDir {
			reversals++
		}
		lastDir = dir
	}
	return reversals
}
