package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientActivityTracking(t *testing.T) {
	c := &Client{}
	c.touchActivity()
	assert.Less(t, c.idleFor(), time.Second)

	c.lastActivity.Store(time.Now().Add(-3 * pongWait).UnixNano())
	assert.Greater(t, c.idleFor(), pongWait*2, "stale activity must trip the idle check")

	c.touchActivity()
	assert.Less(t, c.idleFor(), time.Second)
}

// The read pump records activity while the write pump checks idleness;
// both sides go through the atomic, so concurrent access is safe.
func TestClientActivityConcurrentAccess(t *testing.T) {
	c := &Client{}
	c.touchActivity()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.touchActivity()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = c.idleFor()
			}
		}()
	}
	wg.Wait()

	assert.Less(t, c.idleFor(), time.Second)
}
