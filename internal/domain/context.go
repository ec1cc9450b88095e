package domain

import "sort"

// Context is the mutable key/value store shared by all steps within one
// pipeline run. It is owned by a single pipeline for the duration of the run
// and is not safe for concurrent use; the orchestrator serializes access.
// Insertion order of keys is tracked so snapshots and persisted state stay
// deterministic.
type Context struct {
	keys   []string
	values map[string]any
}

// NewContext returns a context seeded from initial. The seed map is copied;
// callers cannot mutate the context through it afterwards.
func NewContext(initial map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(initial))}
	for _, k := range sortedKeys(initial) {
		c.Set(k, initial[k])
	}
	return c
}

// Get returns the value for key, or def when the key is absent.
func (c *Context) Get(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key. A later write for an existing key shadows the
// earlier one without changing its insertion position.
func (c *Context) Set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Merge applies every key/value pair from data. Later keys overwrite.
func (c *Context) Merge(data map[string]any) {
	for _, k := range sortedKeys(data) {
		c.Set(k, data[k])
	}
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Snapshot returns an independent copy of the current contents. Mutating the
// returned map never affects the live context.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of keys.
func (c *Context) Len() int {
	return len(c.values)
}

// Clear removes every key. The only way keys leave a context during a run.
func (c *Context) Clear() {
	c.keys = nil
	c.values = map[string]any{}
}

// sortedKeys gives map iteration a stable order when seeding or merging, so
// insertion order (and therefore persisted state) is deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
