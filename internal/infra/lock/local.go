package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("lock não obtido dentro do prazo")

// LocalLocker é um mutex por chave dentro do processo. Basta quando só há
// uma instância do serviço.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[string]chan struct{}{}}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, wait time.Duration) (func(), error) {
	ch := l.slot(key)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s: %w", key, ErrNotAcquired)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
