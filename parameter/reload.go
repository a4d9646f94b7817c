package parameter

import "time"

// Hot-Reload Coordinator
const (
	// ReloadQueueSize bounds buffered filesystem events between polls
	ReloadQueueSize = 512

	// ReloadDebounce coalesces rapid successive writes to one file
	ReloadDebounce = 50 * time.Millisecond

	// WatcherStopTimeout is the shutdown grace for the watch goroutine
	WatcherStopTimeout = time.Second
)
