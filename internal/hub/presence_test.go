package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceTracker_TransitionsOnlyAtEdges(t *testing.T) {
	p := newPresenceTracker()
	alice := auth.Identity{UserID: "alice", Name: "Alice", Role: model.RoleAlumni}

	assert.True(t, p.connect(alice), "first socket goes online")
	assert.False(t, p.connect(alice), "second socket is silent")
	assert.Equal(t, 2, p.info("alice").Connections)

	assert.False(t, p.disconnect("alice"), "one socket left")
	assert.True(t, p.info("alice").Online)

	assert.True(t, p.disconnect("alice"), "last socket goes offline")
	assert.False(t, p.info("alice").Online)
	assert.Equal(t, model.PresenceOffline, p.info("alice").Status)

	assert.False(t, p.disconnect("alice"), "unknown users never transition")
}

func TestPresenceTracker_StatusDoesNotTouchCount(t *testing.T) {
	p := newPresenceTracker()
	bob := auth.Identity{UserID: "bob"}

	assert.False(t, p.setStatus("bob", model.PresenceBusy), "offline users have no status")

	p.connect(bob)
	require.True(t, p.setStatus("bob", model.PresenceAway))
	info := p.info("bob")
	assert.Equal(t, model.PresenceAway, info.Status)
	assert.Equal(t, 1, info.Connections)

	// an explicit offline is relayed but the socket still counts
	require.True(t, p.setStatus("bob", model.PresenceOffline))
	assert.True(t, p.info("bob").Online)

	assert.True(t, p.disconnect("bob"))
	p.connect(bob)
	assert.Equal(t, model.PresenceOnline, p.info("bob").Status, "status resets on a fresh session")
}

func TestPresenceTracker_ExtraSocketKeepsStatus(t *testing.T) {
	p := newPresenceTracker()
	dana := auth.Identity{UserID: "dana"}

	p.connect(dana)
	require.True(t, p.setStatus("dana", model.PresenceBusy))

	assert.False(t, p.connect(dana))
	assert.Equal(t, model.PresenceBusy, p.info("dana").Status, "a second device does not override the chosen status")

	p.disconnect("dana")
	assert.Equal(t, model.PresenceBusy, p.info("dana").Status)

	p.disconnect("dana")
	p.connect(dana)
	assert.Equal(t, model.PresenceOnline, p.info("dana").Status)
}

func TestPresenceTracker_ConcurrentConnects(t *testing.T) {
	p := newPresenceTracker()
	id := auth.Identity{UserID: "carol"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	onlines, offlines := 0, 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.connect(id) {
				mu.Lock()
				onlines++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.disconnect("carol") {
				mu.Lock()
				offlines++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, onlines)
	assert.Equal(t, 1, offlines)
	assert.Empty(t, p.snapshot())
}

func TestTypingCoordinator(t *testing.T) {
	type expiry struct {
		conversationID string
		userID         string
	}
	expired := make(chan expiry, 4)
	tc := newTypingCoordinator(50*time.Millisecond, func(conversationID string, id auth.Identity) {
		expired <- expiry{conversationID, id.UserID}
	})
	alice := auth.Identity{UserID: "alice"}

	t.Run("expires without a refresh", func(t *testing.T) {
		assert.True(t, tc.start("c1", alice))
		select {
		case e := <-expired:
			assert.Equal(t, expiry{"c1", "alice"}, e)
		case <-time.After(time.Second):
			t.Fatal("typing indicator never expired")
		}
		assert.False(t, tc.active("c1", "alice"))
	})

	t.Run("refresh keeps it alive", func(t *testing.T) {
		assert.True(t, tc.start("c2", alice))
		time.Sleep(30 * time.Millisecond)
		assert.False(t, tc.start("c2", alice))
		time.Sleep(30 * time.Millisecond)
		assert.True(t, tc.active("c2", "alice"))
		<-expired
	})

	t.Run("stop cancels the timer", func(t *testing.T) {
		tc.start("c3", alice)
		assert.True(t, tc.stop("c3", "alice"))
		assert.False(t, tc.stop("c3", "alice"))
		select {
		case e := <-expired:
			t.Fatalf("unexpected expiry %+v", e)
		case <-time.After(120 * time.Millisecond):
		}
	})
}
