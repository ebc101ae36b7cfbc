package transport

import (
	"errors"
	"sync"
)

var ErrCallbackExists = errors.New("callback name already registered")

// Callbacks is the registry behind script callbacks: single-use slots
// addressed by a generated name, which a loaded script may invoke.
type Callbacks struct {
	mu    sync.Mutex
	slots map[string]func(arg string)
}

func NewCallbacks() *Callbacks {
	return &Callbacks{slots: make(map[string]func(string))}
}

func (c *Callbacks) Register(name string, fn func(arg string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.slots[name]; ok {
		return ErrCallbackExists
	}
	c.slots[name] = fn
	return nil
}

func (c *Callbacks) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, name)
}

// Invoke calls the callback registered under name. It reports false when no
// such callback exists, which is what happens to a script that calls a
// callback after its attempt was abandoned.
func (c *Callbacks) Invoke(name, arg string) bool {
	c.mu.Lock()
	fn, ok := c.slots[name]
	c.mu.Unlock()
	if !ok {
		return false
	}
	fn(arg)
	return true
}

func (c *Callbacks) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
