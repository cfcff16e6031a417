package services

import (
	"sync"

	"github.com/google/uuid"
)

// CharacteristicLocker serializes all mutating operations on one
// characteristic (submit, edit, exclude, set/recalculate limits, detection)
// while letting different characteristics proceed in parallel.
type CharacteristicLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewCharacteristicLocker() *CharacteristicLocker {
	return &CharacteristicLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the characteristic's mutex and returns its unlock func.
func (l *CharacteristicLocker) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
