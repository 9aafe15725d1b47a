// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package spirvcache keeps compiled shader code keyed by its source.
//
// Compiling WGSL with naga costs milliseconds, and post effects are
// attached and detached at runtime. The cache is a small LRU guarded by a
// single mutex; entries are immutable once stored.
package spirvcache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the number of modules kept when New gets capacity <= 0.
const DefaultCapacity = 32

// Stats reports cache usage.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key   uint64
	src   string
	words []uint32
}

// Cache maps shader source to SPIR-V words.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]*list.Element
	order    *list.List // front is most recently used

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity modules.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

func hashSource(src string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(src))
	return h.Sum64()
}

// Get returns the words compiled from src.
func (c *Cache) Get(src string) ([]uint32, bool) {
	key := hashSource(src)

	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok || el.Value.(*entry).src != src {
		c.misses.Add(1)
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*entry).words, true
}

// GetOrCompile returns the cached words for src or compiles and stores
// them. Failed compilations are not cached.
//
// compile runs without the lock held; two goroutines missing on the same
// source both compile and the later result wins.
func (c *Cache) GetOrCompile(src string, compile func(string) ([]uint32, error)) ([]uint32, error) {
	if words, ok := c.Get(src); ok {
		return words, nil
	}
	words, err := compile(src)
	if err != nil {
		return nil, err
	}
	c.Put(src, words)
	return words, nil
}

// Put stores words for src, evicting the least recently used module when
// the cache is full.
func (c *Cache) Put(src string, words []uint32) {
	key := hashSource(src)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.src, e.words = src, words
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
		c.evictions.Add(1)
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, src: src, words: words})
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry. Statistics are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*list.Element)
	c.order.Init()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
