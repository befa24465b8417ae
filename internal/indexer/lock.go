package indexer

import "sync/atomic"

// runLock guards a root against overlapping index runs without blocking:
// a second Run returns ErrIndexingInProgress instead of queueing. Cross
// process runs are not serialized; last writer wins on the state files.
type runLock struct {
	busy atomic.Bool
}

// tryAcquire claims the lock, reporting false if a run already holds it.
func (l *runLock) tryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

func (l *runLock) release() {
	l.busy.Store(false)
}
