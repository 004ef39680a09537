package journal

import (
	"sync"

	"github.com/UnicodeSec/druid/internal/lease"
)

// MemoryTaskCatalog is an in-memory TaskCatalog. Production deployments
// back this with the durable task-status database spec §1 names as out
// of scope; this implementation is the reference double used by tests
// and the CLI.
type MemoryTaskCatalog struct {
	mu    sync.RWMutex
	tasks map[string]lease.TaskInfo
}

// NewMemoryTaskCatalog returns an empty MemoryTaskCatalog.
func NewMemoryTaskCatalog() *MemoryTaskCatalog {
	return &MemoryTaskCatalog{tasks: make(map[string]lease.TaskInfo)}
}

// Put registers or replaces a task's descriptor.
func (c *MemoryTaskCatalog) Put(t lease.TaskInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[t.ID] = t
}

// Remove forgets a task, e.g. once it has finished and released every
// lease it held.
func (c *MemoryTaskCatalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}

// TaskByID implements TaskCatalog.
func (c *MemoryTaskCatalog) TaskByID(id string) (lease.TaskInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tasks[id]
	if !ok {
		return lease.TaskInfo{}, ErrNotFound
	}
	return t, nil
}

// ActiveTasks implements TaskCatalog.
func (c *MemoryTaskCatalog) ActiveTasks() ([]lease.TaskInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]lease.TaskInfo, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t)
	}
	return out, nil
}
