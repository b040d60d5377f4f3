// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package assert implements the status/assertion surface: compile-time
// assertions, debug assertions that invoke a user-installable handler and
// otherwise park the goroutine, and always-on verify assertions that cannot
// be compiled out.
package assert

import (
	"fmt"
	"sync"
)

// Handler is invoked by Debug when a debug assertion trips. It returns true
// if it has handled the failure (e.g. logged and wants execution to
// continue) and false if the caller should park.
type Handler func(msg string) (handled bool)

var (
	mu      sync.RWMutex
	handler Handler
)

// SetHandler installs the handler invoked by Debug assertions. Passing nil
// restores the default behavior (park on trip).
func SetHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

// Compile is the nearest idiomatic-Go approximation of a compile-time
// assertion: Go has no native static_assert, so Compile is meant to be
// called from a package-level var initializer or init() over a condition
// that is knowable without runtime input, and panics immediately rather
// than deferring the failure to a later Debug/Verify call site.
func Compile(cond bool, msg string) {
	if !cond {
		panic("compile-time assertion failed: " + msg)
	}
}

// Debug assert cond, invoking the installed Handler on failure. If no
// handler is installed, or the handler reports it has not handled the
// failure, Debug parks the calling goroutine indefinitely — the closest Go
// equivalent of halting in an infinite loop, since stopping the Go runtime
// itself would take down the whole process rather than just this caller's
// thread of control.
//
// Debug assertions are expected to be compiled out of release builds by
// callers that care about the overhead; this package does not do so itself
// since Go has no conditional-compilation macro system.
func Debug(cond bool, msg string) {
	if cond {
		return
	}
	mu.RLock()
	h := handler
	mu.RUnlock()
	if h != nil && h(msg) {
		return
	}
	select {}
}

// Verify assert cond, unconditionally, in every build. Use for invariants
// whose violation must never be silently tolerated, even in production.
func Verify(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
