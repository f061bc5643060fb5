// Package options holds the process-wide option table shared between the
// registration protocol, the host's asynchronous capture callback, and the
// option accessors on the handle.
//
// The host exposes option values through two incompatible mechanisms: a
// registered callback fired while the command line is parsed, and a
// synchronous getopt-style query that only works in job-script context. The
// cache gives both a single home so the accessors can present one interface.
package options

// Cache records every option registered by the plugin and the latest value
// captured for each. It is guarded by the dispatch lock; it has no locking
// of its own.
type Cache struct {
	// names is append-only. The index of a name is the slot handed to the
	// native callback mechanism as its correlation token, so entries are
	// never reordered or removed for the life of the process.
	names []string

	// values maps an option name to its most recently captured value. A
	// missing key means the option was never seen; a present key with a
	// nil value means it was set without a value (a flag). Repeated
	// captures overwrite: last value wins.
	values map[string]*string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{values: make(map[string]*string)}
}

// NextSlot returns the slot the next successful registration will occupy.
func (c *Cache) NextSlot() int {
	return len(c.names)
}

// Add appends a registered option name, assigning it the next slot.
// Callers must only Add after the native registration call succeeded.
func (c *Cache) Add(name string) {
	c.names = append(c.names, name)
}

// NameAt reverse-maps a slot back to its option name.
func (c *Cache) NameAt(slot int) (string, bool) {
	if slot < 0 || slot >= len(c.names) {
		return "", false
	}
	return c.names[slot], true
}

// Names returns the registered option names in slot order.
func (c *Cache) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Store records a captured value for an option, overwriting any previous
// capture. A nil value records a flag-style occurrence.
func (c *Cache) Store(name string, value *string) {
	if value != nil {
		v := *value
		c.values[name] = &v
		return
	}
	c.values[name] = nil
}

// Lookup returns the latest captured value for an option. The second result
// reports whether any capture was recorded at all; the first is nil for
// flag-style captures.
func (c *Cache) Lookup(name string) (*string, bool) {
	v, ok := c.values[name]
	return v, ok
}
