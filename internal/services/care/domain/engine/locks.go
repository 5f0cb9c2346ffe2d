package engine

import "sync"

// patientLocks hands out one mutex per patient id. Entries are dropped once
// no caller holds or waits on them.
type patientLocks struct {
	mu    sync.Mutex
	locks map[string]*patientLock
}

type patientLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the caller owns patientID and returns the release func.
func (l *patientLocks) lock(patientID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*patientLock)
	}
	entry, ok := l.locks[patientID]
	if !ok {
		entry = &patientLock{}
		l.locks[patientID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, patientID)
		}
		l.mu.Unlock()
	}
}

func (l *patientLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
