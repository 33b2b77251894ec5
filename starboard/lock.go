package starboard

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Locker serializes mirror creation for one key
type Locker interface {
	// Lock blocks until key is held or ctx is done, the returned func releases it
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type LockScope string

const (
	LockScopeMessage LockScope = "message"
	LockScopeGuild   LockScope = "guild"
	LockScopeGlobal  LockScope = "global"
)

func ParseLockScope(value string) (LockScope, error) {
	switch scope := LockScope(value); scope {
	case LockScopeMessage, LockScopeGuild, LockScopeGlobal:
		return scope, nil
	case "":
		return LockScopeMessage, nil
	}
	return "", errors.Errorf("unknown lock scope %q", value)
}

// Key returns the lock key the event maps to under this scope
func (s LockScope) Key(guildID, messageID string) string {
	switch s {
	case LockScopeGlobal:
		return "global"
	case LockScopeGuild:
		return "guild:" + guildID
	default:
		return "message:" + messageID
	}
}

type keyedMutex struct {
	sem  chan struct{}
	refs int
}

// KeyedLocker keeps one mutex per key in process memory. Entries are dropped
// once nobody holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedMutex)}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyedMutex{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *KeyedLocker) release(key string, entry *keyedMutex) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// size is the number of live entries
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
