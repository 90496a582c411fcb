package registry

import (
	"sort"
	"sync"

	"github.com/xichen2020/sharedref/refcnt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	errRegistryClosed = errors.New("registry is closed")
	errEmptyName      = errors.New("empty object name")
	errNilObject      = errors.New("nil object")
)

// Listener is notified when objects are added to or removed from a registry.
// Notifications are delivered synchronously while the registry is locked, so
// listeners must not call back into the registry.
type Listener interface {
	// OnAdded is called after an object is added under the given name.
	OnAdded(name string)

	// OnRemoved is called before the object under the given name is removed.
	OnRemoved(name string)
}

// Registry is a named collection of managed objects. It holds a strong
// reference to every object it contains.
type Registry[T refcnt.Countable] struct {
	sync.RWMutex

	opts    *Options
	logger  *zap.Logger
	closed  bool
	entries map[string]*refcnt.Shared[T]
}

// NewRegistry creates a new registry.
func NewRegistry[T refcnt.Countable](opts *Options) *Registry[T] {
	if opts == nil {
		opts = NewOptions()
	}
	return &Registry[T]{
		opts:    opts,
		logger:  opts.InstrumentOptions().Logger(),
		entries: make(map[string]*refcnt.Shared[T]),
	}
}

// Add adds an object under the given name, replacing and releasing whatever
// was registered under that name before.
func (r *Registry[T]) Add(name string, obj T) error {
	if name == "" {
		return errEmptyName
	}

	prev, err := r.add(name, obj)
	if err != nil {
		return err
	}
	if prev != nil {
		prev.Release()
	}
	r.logger.Debug("object added", zap.String("name", name), zap.Bool("replaced", prev != nil))
	return nil
}

// add registers obj and returns the handle it replaced, if any.
func (r *Registry[T]) add(name string, obj T) (*refcnt.Shared[T], error) {
	r.Lock()
	defer r.Unlock()

	if r.closed {
		return nil, errRegistryClosed
	}
	handle := refcnt.NewShared(obj)
	if !handle.Valid() {
		return nil, errNilObject
	}
	prev := r.entries[name]
	r.entries[name] = handle
	if l := r.opts.Listener(); l != nil {
		l.OnAdded(name)
	}
	return prev, nil
}

// Remove removes and releases the object under the given name, and returns
// true if there was one.
func (r *Registry[T]) Remove(name string) bool {
	r.Lock()
	handle, exists := r.entries[name]
	if !exists {
		r.Unlock()
		return false
	}
	if l := r.opts.Listener(); l != nil {
		l.OnRemoved(name)
	}
	delete(r.entries, name)
	r.Unlock()

	handle.Release()
	r.logger.Debug("object removed", zap.String("name", name))
	return true
}

// Rename moves the object registered under oldName to newName. It returns the
// new name and true on success, and fails if oldName is not registered or
// newName is empty or already taken.
func (r *Registry[T]) Rename(oldName, newName string) (string, bool) {
	if newName == "" {
		return "", false
	}

	r.Lock()
	defer r.Unlock()

	handle, exists := r.entries[oldName]
	if !exists {
		return "", false
	}
	if _, taken := r.entries[newName]; taken {
		return "", false
	}
	r.entries[newName] = handle
	delete(r.entries, oldName)
	return newName, true
}

// Get returns a new strong handle to the object under the given name. The
// caller must release the handle.
func (r *Registry[T]) Get(name string) (*refcnt.Shared[T], bool) {
	r.RLock()
	defer r.RUnlock()

	handle, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return handle.Clone(), true
}

// NameOf returns the name the object is registered under.
func (r *Registry[T]) NameOf(obj T) (string, bool) {
	r.RLock()
	defer r.RUnlock()

	for name, handle := range r.entries {
		if refcnt.SameObject(handle.Get(), obj) {
			return name, true
		}
	}
	return "", false
}

// Names returns the registered names in ascending order.
func (r *Registry[T]) Names() []string {
	r.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered objects.
func (r *Registry[T]) Len() int {
	r.RLock()
	n := len(r.entries)
	r.RUnlock()
	return n
}

// Close releases every registered object. Objects can no longer be added
// once the registry is closed.
func (r *Registry[T]) Close() error {
	r.Lock()
	if r.closed {
		r.Unlock()
		return errRegistryClosed
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*refcnt.Shared[T])
	r.Unlock()

	for _, handle := range entries {
		handle.Release()
	}
	r.logger.Debug("registry closed", zap.Int("released", len(entries)))
	return nil
}
