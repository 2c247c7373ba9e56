package banking

import (
	"slices"
	"sync"
)

// lockSet hands out one mutex per account id. Entries are reference counted
// and dropped once no caller holds or waits on them.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[string]*accountLock)}
}

// lock acquires the locks for ids in ascending id order, so two callers
// locking overlapping sets cannot deadlock. The returned function releases
// them.
func (l *lockSet) lock(ids ...string) (unlock func()) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*accountLock, 0, len(ordered))
	for _, id := range ordered {
		l.mu.Lock()
		al, ok := l.locks[id]
		if !ok {
			al = &accountLock{}
			l.locks[id] = al
		}
		al.refs++
		l.mu.Unlock()

		al.mu.Lock()
		held = append(held, al)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, id := range ordered {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, id)
			}
		}
		l.mu.Unlock()
	}
}

func (l *lockSet) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
