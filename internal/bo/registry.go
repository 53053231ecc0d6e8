package bo

import (
	"sync"

	"golang.org/x/exp/slices"
)

type entry struct {
	object Object
	seq    uint64
}

// Registry holds the objects waiting for the next dispatch, keyed by id.
type Registry struct {
	objects map[string]entry
	nextSeq uint64
	lock    sync.Mutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[string]entry)}
}

// Add registers o. Adding an object that is already present keeps its original position.
func (r *Registry) Add(o Object) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.objects[o.ID()]; ok {
		return
	}
	r.objects[o.ID()] = entry{object: o, seq: r.nextSeq}
	r.nextSeq++
}

// Restampable is an Object whose timestamp can be moved to the current time.
type Restampable interface {
	Object
	Restamp()
}

// Restamp moves o to the current time. If o is registered it is ordered after every object
// registered before this call. An unregistered o is restamped but not added.
func (r *Registry) Restamp(o Restampable) {
	r.lock.Lock()
	defer r.lock.Unlock()
	o.Restamp()
	if e, ok := r.objects[o.ID()]; ok {
		e.seq = r.nextSeq
		r.nextSeq++
		r.objects[o.ID()] = e
	}
}

// Remove unregisters the object with the given id, returning true if it was present.
func (r *Registry) Remove(id string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, ok := r.objects[id]
	delete(r.objects, id)
	return ok
}

// Contains reports whether an object with the given id is registered.
func (r *Registry) Contains(id string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, ok := r.objects[id]
	return ok
}

// Get returns the registered object with the given id.
func (r *Registry) Get(id string) (Object, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, ok := r.objects[id]
	return e.object, ok
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.objects)
}

// All returns the registered objects ordered by timestamp, then by registration order.
func (r *Registry) All() []Object {
	return r.selectOrdered(func(Object) bool { return true }, false)
}

// Take removes and returns every object matching pred, ordered like All.
func (r *Registry) Take(pred func(Object) bool) []Object {
	return r.selectOrdered(pred, true)
}

func (r *Registry) selectOrdered(pred func(Object) bool, remove bool) []Object {
	r.lock.Lock()
	defer r.lock.Unlock()
	matches := make([]entry, 0, len(r.objects))
	for _, e := range r.objects {
		if pred(e.object) {
			matches = append(matches, e)
		}
	}
	slices.SortFunc(matches, func(a, b entry) bool {
		if a.object.Timestamp() != b.object.Timestamp() {
			return a.object.Timestamp() < b.object.Timestamp()
		}
		return a.seq < b.seq
	})
	ret := make([]Object, len(matches))
	for i, e := range matches {
		ret[i] = e.object
		if remove {
			delete(r.objects, e.object.ID())
		}
	}
	return ret
}
