package egress

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent    int32
	fail    bool
	lastMsg string
}

func (f *fakeTransport) SendMessage(_ context.Context, _, text string) (string, error) {
	if f.fail {
		return "", assert.AnError
	}
	atomic.AddInt32(&f.sent, 1)
	f.lastMsg = text
	return "msg-id", nil
}

func (f *fakeTransport) React(_ context.Context, _, _, _ string) error {
	return nil
}

func TestSendTextSucceeds(t *testing.T) {
	transport := &fakeTransport{}
	adapter := NewAdapter(transport, 5)

	id, err := adapter.SendText(context.Background(), "972500000001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg-id", id)
	assert.Equal(t, "hello", transport.lastMsg)
}

func TestSendTextEnforcesPerRecipientLimit(t *testing.T) {
	transport := &fakeTransport{}
	adapter := NewAdapter(transport, 2)

	_, err1 := adapter.SendText(context.Background(), "972500000001", "a")
	_, err2 := adapter.SendText(context.Background(), "972500000001", "b")
	_, err3 := adapter.SendText(context.Background(), "972500000001", "c")

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Error(t, err3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&transport.sent))
}

func TestSendTextDifferentRecipientsHaveIndependentBuckets(t *testing.T) {
	transport := &fakeTransport{}
	adapter := NewAdapter(transport, 1)

	_, err1 := adapter.SendText(context.Background(), "972500000001", "a")
	_, err2 := adapter.SendText(context.Background(), "972500000002", "b")

	require.NoError(t, err1)
	require.NoError(t, err2)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	assert.Equal(t, retryBaseDelay, backoffDelay(0))
	assert.Equal(t, retryBaseDelay*2, backoffDelay(1))
	assert.Equal(t, retryBaseDelay*4, backoffDelay(2))
	assert.Equal(t, retryMaxDelay, backoffDelay(10))
}

func TestEnqueueRetryDropsOldestWhenFull(t *testing.T) {
	transport := &fakeTransport{fail: true}
	adapter := NewAdapter(transport, 100)

	for i := 0; i < maxQueuedPerSender+5; i++ {
		adapter.enqueueRetry("972500000001", "msg")
	}

	adapter.retryMu.Lock()
	defer adapter.retryMu.Unlock()
	assert.LessOrEqual(t, len(adapter.queue["972500000001"]), maxQueuedPerSender)
}
