// Package backend provides a pluggable display backend abstraction.
//
// A display backend is what an Output presents to: it delivers frame
// callbacks, keeps the pending damage of the screen, owns the scanout
// target and swaps buffers. The compositor only sees the
// compositor.Backend interface; this package adds a name, a Close method
// and a registry so programs can pick a backend at runtime.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime:
//
//	import _ "github.com/gogpu/compositor/backend/headless"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	b, err := backend.Get(backend.BackendTerm, backend.Config{Width: 160, Height: 96})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// # Available Backends
//
//   - "headless": in-memory screen, always available
//   - "term": headless screen presented in a terminal through tcell
package backend
