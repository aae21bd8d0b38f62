package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRunner_SameKeyRunsInOrder(t *testing.T) {
	r := newKeyedRunner()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		require.True(t, r.submit("user:alice", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	r.stop()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.busyKeys())
}

func TestKeyedRunner_SlowKeyDoesNotBlockOthers(t *testing.T) {
	r := newKeyedRunner()
	release := make(chan struct{})

	r.submit("user:slow", func() { <-release })

	done := make(chan struct{})
	start := time.Now()
	r.submit("user:fast", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job on an idle key waited behind another key")
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	close(release)
	r.stop()
}

func TestKeyedRunner_RejectsAfterStop(t *testing.T) {
	r := newKeyedRunner()
	r.stop()

	ran := false
	assert.False(t, r.submit("conversation:c1", func() { ran = true }))
	assert.False(t, ran)
}
