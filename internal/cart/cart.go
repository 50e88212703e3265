package cart

import (
	"sync"

	"sweetshop/internal/models"
)

// Line is one sweet in the cart with the quantity the customer picked.
type Line struct {
	Sweet    models.Sweet `json:"sweet"`
	Quantity int          `json:"quantity"`
}

// Cart is the ephemeral tab-local shopping cart. It never touches the
// backend and is gone when the process stops; only the on-screen total is
// ever derived from it.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts a sweet in the cart, merging the quantity into an existing line
// for the same sweet.
func (c *Cart) Add(sweet models.Sweet, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Sweet.ID == sweet.ID {
			c.lines[i].Quantity += quantity
			return
		}
	}
	c.lines = append(c.lines, Line{Sweet: sweet, Quantity: quantity})
}

// Remove drops the line for the given sweet. Removing an absent line is a
// no-op.
func (c *Cart) Remove(sweetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.lines[:0]
	for _, line := range c.lines {
		if line.Sweet.ID != sweetID {
			filtered = append(filtered, line)
		}
	}
	c.lines = filtered
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total sums price times quantity across every line.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Sweet.Price * float64(line.Quantity)
	}
	return total
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}
