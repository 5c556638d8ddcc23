package v1

import "sync"

// accountLocks serializes the bind sequence per account: two concurrent
// logins for the same account must not both observe the same old token and
// race to bind. Locks are keyed by account ID and live for the process
// lifetime; the key space is bounded by the externally provisioned
// accounts table.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int]*sync.Mutex)}
}

// get returns the mutex for the given account, creating it on first use.
func (a *accountLocks) get(accountID int) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		a.locks[accountID] = m
	}
	return m
}
