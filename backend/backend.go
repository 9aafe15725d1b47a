package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/framebuffer"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrInvalidConfig is returned for a configuration a backend cannot use.
	ErrInvalidConfig = errors.New("backend: invalid config")
)

// Backend name constants.
const (
	// BackendHeadless is the name of the in-memory backend.
	BackendHeadless = "headless"
	// BackendTerm is the name of the terminal backend.
	BackendTerm = "term"
)

// Config describes the display a backend should provide.
type Config struct {
	// Width and Height are the mode size in pixels.
	Width, Height int

	// Scale is the output scale factor; zero means 1.
	Scale float64

	// Transform is the output transform.
	Transform framebuffer.Transform

	// Loop receives frame callbacks. Backends that need one fail with
	// ErrInvalidConfig when it is nil.
	Loop *eventloop.Loop

	// Refresh is the frame interval of backends that pace themselves.
	// Zero means 60 Hz.
	Refresh time.Duration
}

// Validate reports whether the configuration describes a usable display.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Scale < 0 {
		return fmt.Errorf("%w: scale %v", ErrInvalidConfig, c.Scale)
	}
	if c.Transform > framebuffer.TransformFlipped270 {
		return fmt.Errorf("%w: transform %d", ErrInvalidConfig, c.Transform)
	}
	return nil
}

// DisplayBackend is a compositor.Backend that can be selected by name.
type DisplayBackend interface {
	compositor.Backend

	// Name returns the backend identifier (e.g., "headless", "term").
	Name() string

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close() error
}
