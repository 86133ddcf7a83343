package router

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSenderLocksSerializesSameSender(t *testing.T) {
	locks := newSenderLocks()
	var concurrent int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("same-sender")
			defer release()

			n := atomic.AddInt32(&concurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if n <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxConcurrent)
}

func TestSenderLocksAllowsDifferentSendersConcurrently(t *testing.T) {
	locks := newSenderLocks()
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		sender := "sender"
		if i == 1 {
			sender = "other-sender"
		}
		go func(id string) {
			defer wg.Done()
			release := locks.acquire(id)
			defer release()
			time.Sleep(50 * time.Millisecond)
		}(sender)
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
