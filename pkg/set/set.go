package set

import (
	"sync"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// ThreadSafeSet keeps items in insertion order. Values returns a snapshot so
// callers may iterate without holding the lock.
type ThreadSafeSet struct {
	set     *linkedhashset.Set
	rwMutex sync.RWMutex
}

func NewThreadSafeSet(items ...interface{}) *ThreadSafeSet {
	return &ThreadSafeSet{set: linkedhashset.New(items...)}
}

func (t *ThreadSafeSet) Contains(items ...interface{}) bool {
	// multiple goroutine reads allowed
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	return t.set.Contains(items...)
}

func (t *ThreadSafeSet) Add(items ...interface{}) {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	t.set.Add(items...)
}

func (t *ThreadSafeSet) Remove(items ...interface{}) {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	t.set.Remove(items...)
}

func (t *ThreadSafeSet) Size() int {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	return t.set.Size()
}

func (t *ThreadSafeSet) Values() []interface{} {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	return t.set.Values()
}

// Drain empties the set and returns what it held, in insertion order.
func (t *ThreadSafeSet) Drain() []interface{} {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	values := t.set.Values()
	t.set.Clear()
	return values
}

func (t *ThreadSafeSet) Clear() {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	t.set.Clear()
}
