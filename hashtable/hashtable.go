// Package hashtable implements a small bucketed hash table. It backs
// the process table (pid -> *proc.Process) in package proc. Generified
// over comparable keys rather than an interface{} key with a type
// switch, since hash/equal are supplied by the caller and Go's own maps
// are already generic rather than interface{}-keyed.
package hashtable

import "sync"

type elem[K comparable, V any] struct {
	key  K
	val  V
	next *elem[K, V]
}

type bucket[K comparable, V any] struct {
	sync.Mutex
	first *elem[K, V]
}

// Table is a fixed-bucket-count hash table. The zero value is not
// usable; construct with New.
type Table[K comparable, V any] struct {
	buckets []*bucket[K, V]
	hash    func(K) uint32
}

// New allocates a Table with size buckets, hashed by hash.
func New[K comparable, V any](size int, hash func(K) uint32) *Table[K, V] {
	if size <= 0 {
		size = 1
	}
	t := &Table[K, V]{
		buckets: make([]*bucket[K, V], size),
		hash:    hash,
	}
	for i := range t.buckets {
		t.buckets[i] = &bucket[K, V]{}
	}
	return t
}

func (t *Table[K, V]) bucketFor(k K) *bucket[K, V] {
	h := t.hash(k) % uint32(len(t.buckets))
	return t.buckets[h]
}

// Get looks up key and reports whether it was present.
func (t *Table[K, V]) Get(key K) (V, bool) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	for e := b.first; e != nil; e = e.next {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Set inserts or overwrites key's value.
func (t *Table[K, V]) Set(key K, val V) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	for e := b.first; e != nil; e = e.next {
		if e.key == key {
			e.val = val
			return
		}
	}
	b.first = &elem[K, V]{key: key, val: val, next: b.first}
}

// Del removes key if present; a no-op if it is not.
func (t *Table[K, V]) Del(key K) {
	b := t.bucketFor(key)
	b.Lock()
	defer b.Unlock()
	var prev *elem[K, V]
	for e := b.first; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				b.first = e.next
			} else {
				prev.next = e.next
			}
			return
		}
		prev = e
	}
}

// Len returns the total number of stored elements.
func (t *Table[K, V]) Len() int {
	n := 0
	for _, b := range t.buckets {
		b.Lock()
		for e := b.first; e != nil; e = e.next {
			n++
		}
		b.Unlock()
	}
	return n
}

// Each calls f for every key/value pair. f must not mutate the table.
func (t *Table[K, V]) Each(f func(K, V)) {
	for _, b := range t.buckets {
		b.Lock()
		for e := b.first; e != nil; e = e.next {
			f(e.key, e.val)
		}
		b.Unlock()
	}
}

// IntHash is a hash function for integer-like keys, suitable for pids.
func IntHash[T ~int | ~int32 | ~int64](v T) uint32 {
	n := uint32(2654435761)
	return n * uint32(v)
}
