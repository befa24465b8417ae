package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunLock(t *testing.T) {
	var l runLock

	assert.True(t, l.tryAcquire())
	assert.False(t, l.tryAcquire(), "second acquire fails while held")

	l.release()
	assert.True(t, l.tryAcquire(), "acquirable again after release")
	l.release()
}
