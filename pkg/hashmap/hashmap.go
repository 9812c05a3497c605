// Package hashmap provides maps and sets keyed by structural identity.
//
// Keys are bucketed by a caller-supplied hash and collisions are resolved by a
// linear scan with a caller-supplied equality. This lets two independently
// constructed values that are equal by content (literals, quads, composite
// link keys) address the same entry.
//
// Map and Set are not safe for concurrent use.
package hashmap

// Hasher supplies the (hash, equals) pair for keys of type K.
// Equal keys must produce equal hashes.
type Hasher[K any] interface {
	Hash(key K) uint32
	Equal(a, b K) bool
}

// Funcs adapts a pair of functions to Hasher.
type Funcs[K any] struct {
	HashFn  func(K) uint32
	EqualFn func(a, b K) bool
}

func (f Funcs[K]) Hash(key K) uint32 { return f.HashFn(key) }
func (f Funcs[K]) Equal(a, b K) bool { return f.EqualFn(a, b) }

type entry[K, V any] struct {
	key   K
	value V
}

// Map is a hash map keyed by structural identity.
type Map[K, V any] struct {
	hasher  Hasher[K]
	buckets map[uint32][]entry[K, V]
	size    int
}

// NewMap creates an empty map using hasher for key identity.
func NewMap[K, V any](hasher Hasher[K]) *Map[K, V] {
	return &Map[K, V]{
		hasher:  hasher,
		buckets: make(map[uint32][]entry[K, V]),
	}
}

// NewMapFunc creates an empty map from a hash and an equality function.
func NewMapFunc[K, V any](hash func(K) uint32, equal func(a, b K) bool) *Map[K, V] {
	return NewMap[K, V](Funcs[K]{HashFn: hash, EqualFn: equal})
}

func (m *Map[K, V]) find(hash uint32, key K) int {
	for i, e := range m.buckets[hash] {
		if m.hasher.Equal(e.key, key) {
			return i
		}
	}
	return -1
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	h := m.hasher.Hash(key)
	if i := m.find(h, key); i >= 0 {
		return m.buckets[h][i].value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	h := m.hasher.Hash(key)
	return m.find(h, key) >= 0
}

// Set stores value for key, replacing any value stored under an equal key.
// The originally stored key instance is kept.
func (m *Map[K, V]) Set(key K, value V) {
	h := m.hasher.Hash(key)
	if i := m.find(h, key); i >= 0 {
		m.buckets[h][i].value = value
		return
	}
	m.buckets[h] = append(m.buckets[h], entry[K, V]{key: key, value: value})
	m.size++
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	h := m.hasher.Hash(key)
	i := m.find(h, key)
	if i < 0 {
		return false
	}
	bucket := m.buckets[h]
	if len(bucket) == 1 {
		delete(m.buckets, h)
	} else {
		m.buckets[h] = append(bucket[:i:i], bucket[i+1:]...)
	}
	m.size--
	return true
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.size
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.buckets = make(map[uint32][]entry[K, V])
	m.size = 0
}

// Range calls fn for every entry until fn returns false. Order is unspecified.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// Keys returns every key. Order is unspecified.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.size)
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns every value. Order is unspecified.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.size)
	m.Range(func(_ K, v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Set is a hash set keyed by structural identity.
type Set[K any] struct {
	m *Map[K, struct{}]
}

// NewSet creates an empty set using hasher for identity.
func NewSet[K any](hasher Hasher[K]) *Set[K] {
	return &Set[K]{m: NewMap[K, struct{}](hasher)}
}

// NewSetFunc creates an empty set from a hash and an equality function.
func NewSetFunc[K any](hash func(K) uint32, equal func(a, b K) bool) *Set[K] {
	return NewSet[K](Funcs[K]{HashFn: hash, EqualFn: equal})
}

// Add inserts key and reports whether it was newly added.
func (s *Set[K]) Add(key K) bool {
	if s.m.Has(key) {
		return false
	}
	s.m.Set(key, struct{}{})
	return true
}

// Has reports whether key is present.
func (s *Set[K]) Has(key K) bool { return s.m.Has(key) }

// Delete removes key and reports whether it was present.
func (s *Set[K]) Delete(key K) bool { return s.m.Delete(key) }

// Len returns the number of members.
func (s *Set[K]) Len() int { return s.m.Len() }

// Clear removes every member.
func (s *Set[K]) Clear() { s.m.Clear() }

// Values returns every member. Order is unspecified.
func (s *Set[K]) Values() []K { return s.m.Keys() }

// Range calls fn for every member until fn returns false.
func (s *Set[K]) Range(fn func(key K) bool) {
	s.m.Range(func(k K, _ struct{}) bool { return fn(k) })
}
