// Package tenant holds the active tenant identity for one serving session.
//
// The context is mutated only by the tenant-switch flow and read by the
// call interceptor. An empty id is a valid state: no tenant header is
// injected and the backend answers with a recognizable permission error.
package tenant

import "sync"

// Context is an explicitly scoped holder for the active tenant id.
// It has no implicit default; callers must Set before a tenant is visible.
type Context struct {
	mu sync.RWMutex
	id string
}

// NewContext creates an empty tenant context.
func NewContext() *Context {
	return &Context{}
}

// Set records the active tenant id.
func (c *Context) Set(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// Get returns the active tenant id, and whether one is set.
func (c *Context) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id, c.id != ""
}

// Clear drops the active tenant id.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = ""
}
