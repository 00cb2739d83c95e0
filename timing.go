// FILE: lixenwraith/confclass/timing.go
package config

import "time"

// Core timing constants for production use.
const (
	// Ordered by duration
	SpinWaitInterval     = 5 * time.Millisecond   // CPU-friendly busy-wait quantum
	MinPollInterval      = 100 * time.Millisecond // Hard floor for reload polling
	ShutdownTimeout      = 100 * time.Millisecond // Graceful poller termination window
	DefaultPollInterval  = time.Second            // Standard reload frequency
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration of source preparation
)
