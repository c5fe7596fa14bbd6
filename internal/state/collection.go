package state

import (
	"log"
	"sync"
)

// Collection is the ordered set of shapes for one room. Order is z-order:
// later shapes draw on top.
type Collection struct {
	shapes []Shape
	mu     sync.RWMutex
}

func NewCollection() *Collection {
	return &Collection{shapes: make([]Shape, 0)}
}

// Replace swaps the whole collection for shapes.
func (c *Collection) Replace(shapes []Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shapes = append(make([]Shape, 0, len(shapes)), shapes...)
	log.Printf("[STATE] Collection replaced: %d shapes", len(shapes))
}

// Append adds s on top of every other shape.
func (c *Collection) Append(s Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shapes = append(c.shapes, s)
}

// Remove takes the shape with the given key out of the collection.
func (c *Collection) Remove(key string) (Shape, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.shapes {
		if s.Key == key {
			c.shapes = append(c.shapes[:i], c.shapes[i+1:]...)
			return s, true
		}
	}
	return Shape{}, false
}

// Get returns the shape with the given key.
func (c *Collection) Get(key string) (Shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.shapes {
		if s.Key == key {
			return s, true
		}
	}
	return Shape{}, false
}

// AssignID records the persisted identity for a drafted shape. It returns false
// when the draft is no longer in the collection.
func (c *Collection) AssignID(key, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.shapes {
		if c.shapes[i].Key == key {
			c.shapes[i].ID = id
			return true
		}
	}
	return false
}

// At returns the first shape hit by p.
func (c *Collection) At(p Point) (Shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := FindAt(p, c.shapes)
	if !ok {
		return Shape{}, false
	}
	return c.shapes[i], true
}

// Shapes returns a copy of the shapes in z-order.
func (c *Collection) Shapes() []Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(make([]Shape, 0, len(c.shapes)), c.shapes...)
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shapes)
}
