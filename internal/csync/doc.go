// Package csync provides thread-safe concurrent data structures.
//
// This package implements a generic, thread-safe map protected by a
// read-write mutex so it can be accessed from multiple goroutines
// without additional synchronization. It backs the registries that
// track live session dispatchers, which are spawned and closed from
// arbitrary producer goroutines.
//
// Example usage:
//
//	children := csync.NewMap[string, *dispatch.Dispatcher]()
//	children.Set(child.ID(), child)
//	if child, exists := children.Get(id); exists {
//		// Use child safely
//	}
package csync
