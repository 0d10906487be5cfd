package core

import "sync/atomic"

var (
	shutdownFlag   atomic.Bool
	shutdownReason string
	shutdownHook   func(reason string)
)

// SetShutdownHook registers the callback invoked the first time TryShutdown
// fires. The machine package uses this to drive its hard-alarm sequence
// (latch the SHUTDOWN state, return digital outputs to their defaults)
// without core importing machine.
func SetShutdownHook(fn func(reason string)) {
	shutdownHook = fn
}

// TryShutdown latches the shutdown condition and invokes the registered
// hook exactly once. Safe to call from ISR-priority code; it never
// allocates and never returns an error.
func TryShutdown(reason string) {
	if shutdownFlag.Swap(true) {
		return // already shut down
	}
	shutdownReason = reason
	if shutdownHook != nil {
		shutdownHook(reason)
	}
}

// IsShutdown reports whether TryShutdown has fired.
func IsShutdown() bool {
	return shutdownFlag.Load()
}

// ShutdownReason returns the reason passed to the first TryShutdown call,
// or "" if no shutdown has occurred.
func ShutdownReason() string {
	return shutdownReason
}

// ClearShutdown resets shutdown state. Only valid once the condition that
// caused it has been addressed (matches the controller's reset/clear
// command semantics, never called automatically).
func ClearShutdown() {
	shutdownFlag.Store(false)
	shutdownReason = ""
}
