// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package containers

import "sync"

type SyncMap[K any, V any] struct {
	internal sync.Map
}

func (m *SyncMap[K, V]) Load(key K) (V, bool) {
	val, found := m.internal.Load(key)
	if !found {
		var empty V
		return empty, false
	}
	return val.(V), true
}

func (m *SyncMap[K, V]) LoadOrStore(key K, val V) (V, bool) {
	actual, loaded := m.internal.LoadOrStore(key, val)
	return actual.(V), loaded
}

func (m *SyncMap[K, V]) Store(key K, val V) {
	m.internal.Store(key, val)
}

func (m *SyncMap[K, V]) Delete(key K) {
	m.internal.Delete(key)
}

func (m *SyncMap[K, V]) Range(fn func(key K, val V) bool) {
	m.internal.Range(func(k, v any) bool {
		return fn(k.(K), v.(V))
	})
}
