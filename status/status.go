// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package status defines the flat numeric status-code taxonomy shared by
// every subsystem in this module. Every public operation in memorypool,
// threadpool, and eventbus returns a Code instead of a Go error, mirroring
// the C-heritage status-code contract the specification describes.
package status

// Code is a flat numeric status drawn from a fixed taxonomy. The zero value
// is OK, so a freshly declared Code is always a success by default.
type Code int32

const (
	OK Code = iota

	// Parameter errors are returned before any side effect.
	InvalidParam
	NullPointer
	InvalidRange
	InvalidState

	// Resource errors.
	NoMemory
	NoResource
	Busy
	InUse

	// Operation errors.
	Timeout
	NotSupported
	NotImplemented
	NotInitialized
	AlreadyInitialized
	NotFound

	// Hardware errors. No hardware collaborator lives in this module; the
	// code is retained because it is part of the shared taxonomy consumed
	// by the out-of-scope HAL drivers.
	HardwareError

	// Communication errors, analogous to HardwareError: reserved for
	// collaborators outside this module's scope.
	CommunicationError

	// Scheduler errors.
	QueueFull
	QueueEmpty
	MutexError
)

var names = [...]string{
	OK:                  "OK",
	InvalidParam:        "InvalidParam",
	NullPointer:         "NullPointer",
	InvalidRange:        "InvalidRange",
	InvalidState:        "InvalidState",
	NoMemory:            "NoMemory",
	NoResource:          "NoResource",
	Busy:                "Busy",
	InUse:               "InUse",
	Timeout:             "Timeout",
	NotSupported:        "NotSupported",
	NotImplemented:      "NotImplemented",
	NotInitialized:      "NotInitialized",
	AlreadyInitialized:  "AlreadyInitialized",
	NotFound:            "NotFound",
	HardwareError:       "HardwareError",
	CommunicationError:  "CommunicationError",
	QueueFull:           "QueueFull",
	QueueEmpty:          "QueueEmpty",
	MutexError:          "MutexError",
}

// String returns the diagnostic name of the code, or "Unknown" for an
// out-of-range value.
func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return "Unknown"
	}
	return names[c]
}

// Error implements the error interface so a Code composes with ordinary Go
// error handling at integration points. OK returns an empty string so that
// c.Error() == "" for a successful code can be used as a success check,
// though callers should prefer comparing against OK directly.
func (c Code) Error() string {
	if c == OK {
		return ""
	}
	return c.String()
}

// IsOK reports whether c represents success.
func (c Code) IsOK() bool {
	return c == OK
}

// Err returns c as an error, or nil when c is OK. This is the bridge used at
// the edges of the module (tests, examples) where idiomatic Go error
// handling is preferable to comparing codes directly.
func (c Code) Err() error {
	if c == OK {
		return nil
	}
	return c
}
