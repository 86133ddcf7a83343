// Package egress implements the transport-agnostic Egress adapter of
// spec.md §4.9: SendText/React against an injected Transport, a
// per-recipient rate-limit bucket, and exponential-backoff retry with
// a bounded drop-oldest queue across transport disconnects. Grounded
// on the bot's own domain.Transport contract (SendMessage/MarkRead)
// generalized from a single WhatsApp client to any chat transport.
package egress

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is the out-of-scope chat client this adapter wraps; only
// its wire shape is a contract of this repository, per spec.md §1/§6.
type Transport interface {
	SendMessage(ctx context.Context, recipient, text string) (messageID string, err error)
	React(ctx context.Context, recipient, messageID, emoji string) error
}

const (
	defaultBucketLimit  = 20
	bucketWindow        = time.Minute
	retryBaseDelay      = 5 * time.Second
	retryMultiplier     = 2
	retryMaxDelay       = 60 * time.Second
	maxQueuedPerSender  = 50
)

type bucket struct {
	mu         sync.Mutex
	count      int
	windowEnds time.Time
}

func (b *bucket) allow(now time.Time, limit int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.windowEnds) {
		b.count = 0
		b.windowEnds = now.Add(bucketWindow)
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

type queuedSend struct {
	recipient string
	text      string
}

// Adapter is the sole path the Router uses to reach the transport.
type Adapter struct {
	transport Transport
	limit     int

	mu      sync.Mutex
	buckets map[string]*bucket

	retryMu  sync.Mutex
	retrying map[string]bool
	queue    map[string][]queuedSend
	attempts map[string]int
}

func NewAdapter(transport Transport, perRecipientLimit int) *Adapter {
	if perRecipientLimit <= 0 {
		perRecipientLimit = defaultBucketLimit
	}
	return &Adapter{
		transport: transport,
		limit:     perRecipientLimit,
		buckets:   map[string]*bucket{},
		retrying:  map[string]bool{},
		queue:     map[string][]queuedSend{},
		attempts:  map[string]int{},
	}
}

func (a *Adapter) bucketFor(recipient string) *bucket {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buckets[recipient]
	if !ok {
		b = &bucket{windowEnds: time.Now().Add(bucketWindow)}
		a.buckets[recipient] = b
	}
	return b
}

// SendText delivers text to recipient, respecting the per-recipient
// rate-limit bucket. On transport failure the message is queued for
// background retry with exponential backoff and the call returns the
// transport error; on success the retry attempt counter for recipient
// resets to zero.
func (a *Adapter) SendText(ctx context.Context, recipient, text string) (string, error) {
	if !a.bucketFor(recipient).allow(time.Now(), a.limit) {
		return "", RateLimitedError("recipient rate limit exceeded")
	}
	id, err := a.transport.SendMessage(ctx, recipient, text)
	if err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Warn("[EGRESS] send failed, queuing for retry")
		a.enqueueRetry(recipient, text)
		return "", err
	}
	a.resetAttempts(recipient)
	return id, nil
}

// React sends a single-emoji reaction to messageID; reactions bypass
// the retry queue since they are best-effort acknowledgements.
func (a *Adapter) React(ctx context.Context, recipient, messageID, emoji string) error {
	if !a.bucketFor(recipient).allow(time.Now(), a.limit) {
		return RateLimitedError("recipient rate limit exceeded")
	}
	return a.transport.React(ctx, recipient, messageID, emoji)
}

func (a *Adapter) resetAttempts(recipient string) {
	a.retryMu.Lock()
	defer a.retryMu.Unlock()
	a.attempts[recipient] = 0
}

// enqueueRetry appends text to recipient's bounded retry queue,
// dropping the oldest entry when full, and starts a background
// retry loop for recipient if one is not already running.
func (a *Adapter) enqueueRetry(recipient, text string) {
	a.retryMu.Lock()
	q := a.queue[recipient]
	if len(q) >= maxQueuedPerSender {
		q = q[1:]
	}
	a.queue[recipient] = append(q, queuedSend{recipient: recipient, text: text})
	alreadyRunning := a.retrying[recipient]
	a.retrying[recipient] = true
	a.retryMu.Unlock()

	if !alreadyRunning {
		go a.retryLoop(recipient)
	}
}

func (a *Adapter) retryLoop(recipient string) {
	for {
		a.retryMu.Lock()
		q := a.queue[recipient]
		if len(q) == 0 {
			a.retrying[recipient] = false
			a.retryMu.Unlock()
			return
		}
		next := q[0]
		attempt := a.attempts[recipient]
		a.retryMu.Unlock()

		delay := backoffDelay(attempt)
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := a.transport.SendMessage(ctx, next.recipient, next.text)
		cancel()

		a.retryMu.Lock()
		if err != nil {
			a.attempts[recipient] = attempt + 1
			logrus.WithError(err).WithField("recipient", recipient).Warn("[EGRESS] retry attempt failed")
			a.retryMu.Unlock()
			continue
		}
		if len(a.queue[recipient]) > 0 {
			a.queue[recipient] = a.queue[recipient][1:]
		}
		a.attempts[recipient] = 0
		a.retryMu.Unlock()
	}
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 0; i < attempt; i++ {
		d *= retryMultiplier
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}

// RateLimitedError is returned when a recipient's Egress bucket is exhausted.
type RateLimitedError string

func (e RateLimitedError) Error() string { return string(e) }
