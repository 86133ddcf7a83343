// Package ingress implements the transport-agnostic Ingress adapter of
// spec.md §4.9: it normalizes a raw transport event into an
// InboundMessage and guarantees in-arrival-order delivery per sender
// by running each sender's messages through its own serial queue,
// while different senders are dispatched concurrently. Grounded on
// the bot's own engine dispatch loop, generalized away from a single
// WhatsApp socket toward any transport that can hand it a normalized
// envelope.
package ingress

import (
	"context"
	"sync"
	"time"
)

// InboundMessage is the normalized envelope spec.md §2/§4.9 requires
// every transport to be reduced to before it reaches the Router.
type InboundMessage struct {
	ConversationID string
	SenderID       string // phone in E.164
	Text           string
	MessageID      string
	ReceivedAt     time.Time

	// QuotedMessageID is the message_id this message replies to
	// (WhatsApp's ContextInfo.StanzaID), empty when the message does
	// not quote anything. The Router uses it to resolve spec.md §8
	// scenarios 4-5's "user quotes event E" lead-time reminder flow.
	QuotedMessageID string
}

// Handler processes one InboundMessage to completion (reply, state
// change, or silence) before the next message from the same sender is
// handed to it, per spec.md §5's per-sender ordering guarantee.
type Handler func(ctx context.Context, msg InboundMessage)

const senderQueueDepth = 64

type senderQueue struct {
	ch chan InboundMessage
}

// Adapter receives raw inbound events via Deliver and fans them out to
// Handler, one goroutine per distinct sender, preserving arrival order
// within that sender while allowing unrelated senders to proceed in
// parallel.
type Adapter struct {
	handler Handler

	mu      sync.Mutex
	senders map[string]*senderQueue

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAdapter wires handler as the sole consumer of delivered messages.
func NewAdapter(handler Handler) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		handler: handler,
		senders: map[string]*senderQueue{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Deliver normalizes and enqueues msg for processing. It never blocks
// past enqueueing onto the sender's queue (dropping the oldest pending
// message only if the bounded queue is saturated, which would indicate
// a stuck handler rather than ordinary load).
func (a *Adapter) Deliver(msg InboundMessage) {
	a.mu.Lock()
	q, ok := a.senders[msg.SenderID]
	if !ok {
		q = &senderQueue{ch: make(chan InboundMessage, senderQueueDepth)}
		a.senders[msg.SenderID] = q
		go a.drain(msg.SenderID, q)
	}
	a.mu.Unlock()

	select {
	case q.ch <- msg:
	default:
		// Queue saturated: drop the oldest to make room rather than
		// block the caller indefinitely or silently lose the newest
		// message, which would violate arrival-order expectations less
		// than losing the latest one.
		select {
		case <-q.ch:
		default:
		}
		q.ch <- msg
	}
}

func (a *Adapter) drain(senderID string, q *senderQueue) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case msg := <-q.ch:
			a.handler(a.ctx, msg)
		}
	}
}

// Stop halts delivery to the handler; in-flight handler invocations
// are allowed to finish.
func (a *Adapter) Stop() {
	a.cancel()
}
