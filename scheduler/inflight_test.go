package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInflightTracksRunningWorkflows(t *testing.T) {
	inflight := NewInflight()
	assert.True(t, inflight.IsIdle("poll"))

	exit := inflight.Enter("poll")
	assert.False(t, inflight.IsIdle("poll"))
	assert.Equal(t, 1, inflight.Count("poll"))
	assert.True(t, inflight.IsIdle("other"), "workflows are tracked independently")

	exit()
	assert.True(t, inflight.IsIdle("poll"))
	assert.Equal(t, 0, inflight.Count("poll"))
}

func TestInflightCountsConcurrentInvocations(t *testing.T) {
	inflight := NewInflight()
	exit1 := inflight.Enter("poll")
	exit2 := inflight.Enter("poll")
	assert.Equal(t, 2, inflight.Count("poll"))

	exit1()
	assert.False(t, inflight.IsIdle("poll"))
	exit2()
	assert.True(t, inflight.IsIdle("poll"))
}

func TestInflightExitIsIdempotent(t *testing.T) {
	inflight := NewInflight()
	exit := inflight.Enter("poll")
	exit()
	exit()
	assert.Equal(t, 0, inflight.Count("poll"))
}
