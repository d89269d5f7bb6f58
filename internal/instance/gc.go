package instance

import lua "github.com/Shopify/go-lua"

// defaultPause and defaultStepMultiplier match Lua's own incremental-GC
// defaults; tuneGC scales down from these as the memory cap shrinks
// (Open Question #5 in SPEC_FULL.md: go-lua has no generational mode, so
// "generational GC tuning" is realized as incremental-GC aggressiveness).
const (
	defaultPause          = 200
	defaultStepMultiplier = 200
	minPause              = 100
	maxStepMultiplier     = 1000
)

// tuneGC derives pause/step-multiplier from capBytes and applies them to l.
// capBytes <= 0 means no cap is configured; defaults are used.
func tuneGC(l *lua.State, capBytes int64) {
	pause := defaultPause
	stepMul := defaultStepMultiplier

	if capBytes > 0 {
		switch {
		case capBytes < 1<<20: // < 1 MiB: very aggressive
			pause, stepMul = minPause, maxStepMultiplier
		case capBytes < 16<<20: // < 16 MiB
			pause, stepMul = 120, 600
		case capBytes < 128<<20: // < 128 MiB
			pause, stepMul = 150, 400
		}
	}

	l.GC(lua.GCSetPause, pause)
	l.GC(lua.GCSetStepMultiplier, stepMul)
}
