package ingress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdapterPreservesPerSenderOrder(t *testing.T) {
	var mu sync.Mutex
	var received []string
	done := make(chan struct{}, 1)

	handler := func(_ context.Context, msg InboundMessage) {
		mu.Lock()
		received = append(received, msg.Text)
		if len(received) == 3 {
			done <- struct{}{}
		}
		mu.Unlock()
	}

	a := NewAdapter(handler)
	defer a.Stop()

	a.Deliver(InboundMessage{SenderID: "972500000001", Text: "one", MessageID: "1"})
	a.Deliver(InboundMessage{SenderID: "972500000001", Text: "two", MessageID: "2"})
	a.Deliver(InboundMessage{SenderID: "972500000001", Text: "three", MessageID: "3"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "two", "three"}, received)
}

func TestAdapterDropsOldestWhenSaturated(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	handler := func(_ context.Context, _ InboundMessage) {
		started <- struct{}{}
		<-block
	}

	a := NewAdapter(handler)
	defer func() {
		close(block)
		a.Stop()
	}()

	a.Deliver(InboundMessage{SenderID: "s", Text: "first", MessageID: "1"})
	<-started // handler is now blocked processing "first"

	for i := 0; i < senderQueueDepth+5; i++ {
		a.Deliver(InboundMessage{SenderID: "s", Text: "flood", MessageID: "x"})
	}
	// Should not deadlock or panic; queue silently drops oldest entries.
}
