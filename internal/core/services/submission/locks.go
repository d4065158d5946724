package submission

import (
	"sync"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// tupleLocks serializes lifecycle changes per (student, assignment, question)
type tupleLocks struct {
	mu    sync.Mutex
	locks map[domain.SubmissionKey]*tupleLock
}

type tupleLock struct {
	mu   sync.Mutex
	refs int
}

func newTupleLocks() *tupleLocks {
	return &tupleLocks{locks: make(map[domain.SubmissionKey]*tupleLock)}
}

func (t *tupleLocks) lock(key domain.SubmissionKey) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &tupleLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
