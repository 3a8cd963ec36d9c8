// Package startup hands the path given at launch ("open with") to the UI
// exactly once.
package startup

import "sync"

// Cell holds the launch path until the first Take.
type Cell struct {
	mu       sync.Mutex
	path     string
	consumed bool
}

// New returns a Cell holding path. An empty path is valid and means the
// process was launched without a document.
func New(path string) *Cell {
	return &Cell{path: path}
}

// FromArgs builds a Cell from process arguments with the program name
// already stripped. Only the first argument is used.
func FromArgs(args []string) *Cell {
	if len(args) == 0 {
		return New("")
	}
	return New(args[0])
}

// Take returns the launch path on the first call and "" on every call after.
// Read and clear happen under one lock.
func (c *Cell) Take() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumed {
		return ""
	}
	path := c.path
	c.path = ""
	c.consumed = true
	return path
}

// Consumed reports whether Take has been called.
func (c *Cell) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// Pending reports whether a non-empty launch path is still waiting to be taken.
func (c *Cell) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.consumed && c.path != ""
}
