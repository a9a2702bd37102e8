package handle

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v2"
)

// Table is a custom map-like structure that hands out integer handles for
// host-visible resources and counts the holders of each one.
//
// A handle starts with a single holder. Retain adds one, Release drops one,
// and the Release that drops the last holder removes the entry and hands
// the resource back to the caller for cleanup. Handle 0 is never issued.
type Table[V any] struct {
	entries *xsync.MapOf[uint64, *entry[V]]
	next    atomic.Uint64
}

type entry[V any] struct {
	value V
	refs  atomic.Int64
}

func NewTable[V any]() *Table[V] {
	return &Table[V]{
		entries: xsync.NewIntegerMapOf[uint64, *entry[V]](),
	}
}

// Insert stores v under a fresh handle owned by one holder.
func (t *Table[V]) Insert(v V) uint64 {
	e := &entry[V]{value: v}
	e.refs.Store(1)

	h := t.next.Add(1)
	t.entries.Store(h, e)

	return h
}

// Load returns the resource behind h, if h is live.
func (t *Table[V]) Load(h uint64) (V, bool) {
	e, ok := t.entries.Load(h)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Ref is one holder's claim on an entry, taken by Acquire. It stays bound
// to the entry it was taken on, so its Release never touches whatever the
// handle maps to later.
type Ref[V any] struct {
	t *Table[V]
	h uint64
	e *entry[V]
}

// Value returns the held resource, or the zero value for a zero Ref.
func (r Ref[V]) Value() V {
	if r.e == nil {
		var zero V
		return zero
	}
	return r.e.value
}

// Release drops the claim. It reports true when this was the last holder;
// the caller then owns cleanup of the resource. Releasing a claim on an
// entry that was drained in the meantime is a no-op.
func (r Ref[V]) Release() (last bool) {
	if r.e == nil {
		return false
	}
	last, _ = r.t.release(r.h, r.e)
	return last
}

// Acquire adds a holder to h and returns a claim bound to its entry. It
// fails once the last holder has released h.
func (t *Table[V]) Acquire(h uint64) (Ref[V], bool) {
	e, ok := t.entries.Load(h)
	if !ok {
		return Ref[V]{}, false
	}

	for {
		n := e.refs.Load()
		if n <= 0 {
			return Ref[V]{}, false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return Ref[V]{t: t, h: h, e: e}, true
		}
	}
}

// Retain adds a holder to h and returns its resource. The holder is later
// dropped by handle with Release.
func (t *Table[V]) Retain(h uint64) (V, bool) {
	r, ok := t.Acquire(h)
	return r.Value(), ok
}

// Release drops a holder from h. last is true for the release that removed
// the entry; the caller then owns cleanup of the returned resource.
func (t *Table[V]) Release(h uint64) (v V, last bool, ok bool) {
	e, found := t.entries.Load(h)
	if !found {
		return v, false, false
	}

	last, ok = t.release(h, e)
	if !ok {
		return v, false, false
	}
	return e.value, last, true
}

func (t *Table[V]) release(h uint64, e *entry[V]) (last bool, ok bool) {
	for {
		n := e.refs.Load()
		if n <= 0 {
			return false, false
		}
		if e.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				// Handles are never reissued, so h still names e here.
				t.entries.Delete(h)
				return true, true
			}
			return false, true
		}
	}
}

// Holders returns the number of holders of h, or 0 if h is not live.
func (t *Table[V]) Holders(h uint64) int {
	e, ok := t.entries.Load(h)
	if !ok {
		return 0
	}
	return int(max(e.refs.Load(), 0))
}

// Drain removes every entry regardless of holders and returns the
// resources. Outstanding claims on drained entries release to nothing.
func (t *Table[V]) Drain() []V {
	var values []V
	t.entries.Range(func(h uint64, e *entry[V]) bool {
		t.entries.Delete(h)
		// A holder that released last in the meantime owns the cleanup.
		if e.refs.Swap(0) > 0 {
			values = append(values, e.value)
		}
		return true
	})
	return values
}

// Len returns the number of live handles.
func (t *Table[V]) Len() int {
	return t.entries.Size()
}
