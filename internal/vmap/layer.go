package vmap

// Dynamic layer stack: one layer per active Vmap invocation, innermost
// last. Dispatch is synchronous within the calling goroutine and the stack
// is unsynchronized; concurrent Vmap calls from multiple goroutines are
// outside the supported model.

type dynamicLayer struct {
	level     int
	batchSize int
}

var (
	layerStack []dynamicLayer
	nextLevel  = 1
)

// pushLayer enters a new vmap level and returns its id.
func pushLayer(batchSize int) int {
	level := nextLevel
	nextLevel++
	layerStack = append(layerStack, dynamicLayer{level: level, batchSize: batchSize})
	return level
}

// popLayer leaves the innermost vmap level.
func popLayer() {
	if len(layerStack) == 0 {
		panic("vmap: popLayer on empty layer stack")
	}
	layerStack = layerStack[:len(layerStack)-1]
	if len(layerStack) == 0 {
		nextLevel = 1
	}
}

// currentLayer returns the innermost active vmap level, if any.
func currentLayer() (int, bool) {
	if len(layerStack) == 0 {
		return 0, false
	}
	return layerStack[len(layerStack)-1].level, true
}

// currentBatchSize returns the batch size of the innermost layer.
func currentBatchSize() (int, bool) {
	if len(layerStack) == 0 {
		return 0, false
	}
	return layerStack[len(layerStack)-1].batchSize, true
}

// batchingSuppressed is the scoped toggle that disables batching
// interception while mutating plumbing operates on plain storage.
var batchingSuppressionDepth int

// suppressBatching disables batching interception and returns the restore
// function. Callers must defer the restore so every exit path, including
// error paths, re-enables interception.
func suppressBatching() func() {
	batchingSuppressionDepth++
	restored := false
	return func() {
		if restored {
			panic("vmap: batching suppression guard released twice")
		}
		restored = true
		batchingSuppressionDepth--
	}
}

// batchingSuppressed reports whether interception is currently disabled.
func batchingSuppressed() bool {
	return batchingSuppressionDepth > 0
}
