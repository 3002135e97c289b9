package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHookNotFound is returned when decorating a hook of a plugin that isn't
// installed or doesn't implement it.
var ErrHookNotFound = errors.New("hook not found")

// ChunkHashFunc computes the hash contribution of a plugin for a chunk.
type ChunkHashFunc func(chunk *RenderedChunk) string

type namedChunkHash struct {
	plugin string
	fn     ChunkHashFunc
}

// ChunkHashHooks is the table of chunk hash contributions of the installed
// plugins. Hooks are called through the table, so replacing an entry with a
// decorated function changes what the host calls without touching the plugin.
type ChunkHashHooks struct {
	mu    sync.RWMutex
	hooks []namedChunkHash
}

// NewChunkHashHooks collects the hooks of every plugin implementing
// ChunkHashAugmenter, in installation order.
func NewChunkHashHooks(plugins []Plugin) *ChunkHashHooks {
	h := &ChunkHashHooks{}
	for _, p := range plugins {
		if a, ok := p.(ChunkHashAugmenter); ok {
			h.hooks = append(h.hooks, namedChunkHash{plugin: p.Name(), fn: a.AugmentChunkHash})
		}
	}
	return h
}

// Wrap replaces the hook of the named plugin with wrap(hook).
func (h *ChunkHashHooks) Wrap(plugin string, wrap func(ChunkHashFunc) ChunkHashFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.hooks {
		if h.hooks[i].plugin == plugin {
			h.hooks[i].fn = wrap(h.hooks[i].fn)
			return nil
		}
	}
	return fmt.Errorf("%w: no installed plugin %q contributes to the chunk hash", ErrHookNotFound, plugin)
}

// Compute calls every hook for chunk and returns the non-empty results.
func (h *ChunkHashHooks) Compute(chunk *RenderedChunk) []string {
	h.mu.RLock()
	hooks := make([]namedChunkHash, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.RUnlock()

	var parts []string
	for _, hook := range hooks {
		if part := hook.fn(chunk); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
