package window

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Registry routes cross-window messages to coordinator instances by window id.
// It replaces ambient per-window handler state with an injected lookup.
type Registry struct {
	logger *log.Logger

	mu      sync.RWMutex
	windows map[int]*Coordinator
}

// NewRegistry creates an empty coordinator registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		logger:  logger,
		windows: make(map[int]*Coordinator),
	}
}

// Register adds a coordinator under its window id.
func (r *Registry) Register(coordinator *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := coordinator.WindowID()
	if _, exists := r.windows[id]; exists {
		return fmt.Errorf("window %d is already registered", id)
	}
	r.windows[id] = coordinator
	return nil
}

// Unregister removes a coordinator by window id.
func (r *Registry) Unregister(windowID int) {
	r.mu.Lock()
	delete(r.windows, windowID)
	r.mu.Unlock()
}

// Get returns the coordinator for a window id, or nil.
func (r *Registry) Get(windowID int) *Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows[windowID]
}

// Post delivers a message to one window, fire and forget. A message for an
// unknown window is dropped with a log line.
func (r *Registry) Post(windowID int, msg Message) {
	coordinator := r.Get(windowID)
	if coordinator == nil {
		r.logger.Printf("no window %d for %q, dropping", windowID, msg.Method)
		return
	}
	coordinator.Post(msg)
}

// Broadcast delivers a message to every registered window.
func (r *Registry) Broadcast(msg Message) {
	r.mu.RLock()
	coordinators := make([]*Coordinator, 0, len(r.windows))
	for _, coordinator := range r.windows {
		coordinators = append(coordinators, coordinator)
	}
	r.mu.RUnlock()

	for _, coordinator := range coordinators {
		coordinator.Post(msg)
	}
}
