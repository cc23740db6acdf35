package sequence

import (
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formsequence/pkg/dom"
)

// Registry tracks live controllers by group (the host element tag) so a
// controller starting a sequence can close the others.
type Registry struct {
	mu     sync.RWMutex
	groups map[string][]*Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string][]*Controller),
	}
}

type registryKey struct{}

// PageRegistry returns the registry shared by every controller on page that
// was not given one explicitly.
func PageRegistry(page *dom.Page) *Registry {
	if page == nil {
		return NewRegistry()
	}
	return page.Shared(registryKey{}, func() any { return NewRegistry() }).(*Registry)
}

// Register adds c to its group. Registering twice is a no-op.
func (r *Registry) Register(c *Controller) {
	if r == nil || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.groups[c.group] {
		if existing.id == c.id {
			return
		}
	}
	r.groups[c.group] = append(r.groups[c.group], c)
}

// Unregister removes c.
func (r *Registry) Unregister(c *Controller) {
	if r == nil || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.groups[c.group]
	for i, existing := range members {
		if existing.id == c.id {
			members = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(r.groups, c.group)
		return
	}
	r.groups[c.group] = members
}

// Controllers lists a group in registration order.
func (r *Registry) Controllers(group string) []*Controller {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Controller(nil), r.groups[group]...)
}

// Lookup finds a controller by id.
func (r *Registry) Lookup(id uuid.UUID) (*Controller, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, members := range r.groups {
		for _, c := range members {
			if c.id == id {
				return c, true
			}
		}
	}
	return nil, false
}

// CloseOthers closes every controller in self's group except self. Controllers
// on the same page are closed synchronously; controllers living on another
// page are closed by a task posted to that page's loop. It returns how many
// controllers were closed or scheduled for closing.
func (r *Registry) CloseOthers(self *Controller) int {
	if r == nil || self == nil {
		return 0
	}
	closed := 0
	for _, other := range r.Controllers(self.group) {
		if other.id == self.id {
			continue
		}
		if other.page != self.page {
			other := other
			if other.page.Loop().Post(func() { other.closeIfEngaged() }) {
				closed++
			}
			continue
		}
		if other.closeIfEngaged() {
			closed++
		}
	}
	return closed
}
