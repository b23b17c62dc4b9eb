package billing

import "sync"

// consumerLocks serializes mutations per consumer id. Entries are dropped
// once no goroutine holds or waits on them.
type consumerLocks struct {
	mu    sync.Mutex
	locks map[string]*consumerLock
}

type consumerLock struct {
	mu   sync.Mutex
	refs int
}

func newConsumerLocks() *consumerLocks {
	return &consumerLocks{locks: make(map[string]*consumerLock)}
}

// lock blocks until consumerId is free and returns its release func
func (l *consumerLocks) lock(consumerId string) func() {
	l.mu.Lock()
	cl, ok := l.locks[consumerId]
	if !ok {
		cl = &consumerLock{}
		l.locks[consumerId] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, consumerId)
		}
		l.mu.Unlock()
	}
}
