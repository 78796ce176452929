package bot

import "sync"

// conversationLocker serializes access per conversation id. Two concurrent
// requests for the same conversation would otherwise race on the committed
// history and lose updates.
type conversationLocker struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocker() *conversationLocker {
	return &conversationLocker{locks: make(map[string]*conversationLock)}
}

// acquire blocks until the conversation lock is held and returns the
// release function. Entries are reference counted and removed once idle so
// the map does not grow with every conversation ever seen.
func (l *conversationLocker) acquire(conversationID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		l.locks[conversationID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, conversationID)
		}
		l.mu.Unlock()
	}
}
