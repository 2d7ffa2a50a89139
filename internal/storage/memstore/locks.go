package memstore

import (
	"context"
	"sync"
)

type keyEntry struct {
	sem  chan struct{}
	refs int
}

// keyedMutex выдаёт взаимоисключающие блокировки по строковому ключу.
// Ожидание блокировки прерывается отменой контекста.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: make(map[string]*keyEntry)}
}

func (k *keyedMutex) acquire(key string) *keyEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.keys[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		k.keys[key] = e
	}
	e.refs++
	return e
}

func (k *keyedMutex) release(key string, e *keyEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.keys, key)
	}
}

// Lock захватывает ключ или возвращает ошибку контекста.
func (k *keyedMutex) Lock(ctx context.Context, key string) error {
	e := k.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

// Unlock освобождает ключ, ранее захваченный Lock.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.keys[key]
	k.mu.Unlock()
	if e == nil {
		return
	}
	<-e.sem
	k.release(key, e)
}
