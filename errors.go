package geoscene

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGPUContext aborts a frame: nothing can be drawn without a current
	// GPU context. The next Repaint may succeed.
	ErrNoGPUContext = errors.New("geoscene: no current GPU context")

	ErrNilCapabilities = errors.New("geoscene: capabilities must not be nil")
	ErrNilDrawStrategy = errors.New("geoscene: draw strategy must not be nil")
	ErrUnknownDrawMode = errors.New("geoscene: unknown draw mode")
	ErrInvalidConfig   = errors.New("geoscene: invalid config")
	ErrRecoveredPanic  = errors.New("geoscene: recovered panic")
	ErrUnknownColor    = errors.New("geoscene: unknown colour")
)

// guard runs fn, turning a panic into an error wrapping ErrRecoveredPanic.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRecoveredPanic, r)
		}
	}()
	return fn()
}
