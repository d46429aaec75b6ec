package stream

import (
	"sync/atomic"

	"github.com/codedeck/codedeck/internal/domain"
)

// subscriber is the sending side of a subscription held by the Stream.
type subscriber struct {
	c       chan domain.Event
	closedC chan struct{}
	closed  atomic.Bool
}

// Receiver is the receiving end of a subscription held by the consumer.
type Receiver struct {
	C   <-chan domain.Event
	sub *subscriber
}

func newSubscription(bufSize int) (*subscriber, *Receiver) {
	ch := make(chan domain.Event, bufSize)
	closedC := make(chan struct{})
	sub := &subscriber{
		c:       ch,
		closedC: closedC,
	}
	recv := &Receiver{
		C:   ch,
		sub: sub,
	}
	return sub, recv
}

// send delivers one event, blocking until the consumer takes it or the
// subscription closes. Returns false once the subscriber is closed.
func (s *subscriber) send(event domain.Event) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.c <- event:
		return true
	case <-s.closedC:
		return false
	}
}

// Close shuts down the subscription from the sending side and ends the
// consumer's receive loop. The Stream serializes Close against send under
// its own lock; nobody else may call it.
func (s *subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.closedC)
		close(s.c)
	}
}

// abandon shuts down the subscription from the receiving side. The event
// channel stays open because a send may be blocked on it; the sender sees
// closedC and gives up instead.
func (s *subscriber) abandon() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.closedC)
	}
}

// Close tells the stream this consumer is gone. The consumer must stop
// reading C afterwards; remaining events are dropped, not delivered.
func (r *Receiver) Close() {
	r.sub.abandon()
}
