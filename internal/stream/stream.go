// Package stream carries one run's canonical events from the pipeline to
// whatever transport the client connected over. The producer pushes, the
// transport subscribes, and completion is a property of the stream itself:
// finishing is idempotent, emits exactly one Done, and silently swallows
// any pushes that race in afterwards.
package stream

import (
	"sync"

	"github.com/codedeck/codedeck/internal/domain"
)

type Stream struct {
	mu          sync.Mutex
	subscribers []*subscriber
	finished    bool

	// Cancellation state lives under its own lock. A Push can park inside
	// broadcastLocked holding mu while a slow consumer catches up; Cancel
	// must still get through, or a disconnect could never reach the
	// terminate hooks that unblock that very push.
	cancelMu  sync.Mutex
	cancelled bool
	hooks     []func()
}

func New() *Stream {
	return &Stream{}
}

// Subscribe creates a new subscription and returns the receiving end.
// bufSize controls the channel buffer; 0 means unbuffered. Subscribing to a
// finished stream returns an already-closed receiver.
func (st *Stream) Subscribe(bufSize int) *Receiver {
	sub, recv := newSubscription(bufSize)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.finished {
		sub.Close()
		return recv
	}
	st.subscribers = append(st.subscribers, sub)
	return recv
}

// Push delivers one event to all live subscribers. After Finish it is a
// silent no-op so late asynchronous writers cannot corrupt a completed
// stream.
func (st *Stream) Push(event domain.Event) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.finished {
		return
	}
	st.broadcastLocked(event)
}

// Finish pushes the terminal Done event and closes every subscription.
// Idempotent; only the first call emits Done.
func (st *Stream) Finish() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.finished {
		return
	}
	st.broadcastLocked(domain.NewDoneEvent())
	st.finished = true
	for _, sub := range st.subscribers {
		sub.Close()
	}
	st.subscribers = nil
}

// Finished reports whether the stream has completed.
func (st *Stream) Finished() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.finished
}

// OnCancel registers a hook to run when the consumer abandons the stream.
// If cancellation already happened the hook runs immediately, so a producer
// that registers late still gets told.
func (st *Stream) OnCancel(hook func()) {
	st.cancelMu.Lock()
	if st.cancelled {
		st.cancelMu.Unlock()
		hook()
		return
	}
	st.hooks = append(st.hooks, hook)
	st.cancelMu.Unlock()
}

// Cancel records that the consumer is gone and fires the registered hooks.
// Only the first call fires them. Cancel does not finish the stream; the
// producer still finishes it after winding down, which keeps Done unique.
// Cancel never waits on in-flight broadcasts.
func (st *Stream) Cancel() {
	st.cancelMu.Lock()
	if st.cancelled {
		st.cancelMu.Unlock()
		return
	}
	st.cancelled = true
	hooks := st.hooks
	st.hooks = nil
	st.cancelMu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

func (st *Stream) broadcastLocked(event domain.Event) {
	alive := st.subscribers[:0]
	for _, sub := range st.subscribers {
		if sub.send(event) {
			alive = append(alive, sub)
		}
	}
	st.subscribers = alive
}
