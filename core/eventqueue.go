package voicesession

import (
	"context"
	"io"
	"sync"

	"github.com/adastralabs/vox-core/core/protocol"
)

// eventQueue bridges the push-driven producers of outbound protocol events
// (preamble, capture frames, tool results, shutdown events) to the pull-based
// send pump. Enqueue never blocks; Next suspends while the queue is empty and
// resolves with io.EOF once the queue is finished and drained.
//
// Enqueue and Finish are safe for concurrent use. Next is not; exactly one
// consumer owns it.
type eventQueue struct {
	mu sync.Mutex

	queue    []protocol.Envelope
	finished bool

	updateSignal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		updateSignal: make(chan struct{}, 1),
	}
}

// Enqueue appends one envelope in arrival order and wakes the consumer.
// Envelopes enqueued after Finish are dropped; the transport has already
// seen the end of the stream.
func (q *eventQueue) Enqueue(envelope protocol.Envelope) {
	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		logger.Debug("Dropping envelope enqueued after finish", "kind", envelope.Kind())
		return
	}
	q.queue = append(q.queue, envelope)
	q.mu.Unlock()
	q.signalUpdate()
}

// Next pops the oldest envelope, blocking while the queue is empty. It
// returns io.EOF only once the queue is finished and every prior envelope
// has been handed out, and ctx.Err() if ctx ends first.
func (q *eventQueue) Next(ctx context.Context) (protocol.Envelope, error) {
	for {
		q.mu.Lock()
		if len(q.queue) > 0 {
			envelope := q.queue[0]
			q.queue = q.queue[1:]
			q.mu.Unlock()
			return envelope, nil
		}
		finished := q.finished
		q.mu.Unlock()

		if finished {
			return protocol.Envelope{}, io.EOF
		}

		select {
		case <-q.updateSignal:
		case <-ctx.Done():
			return protocol.Envelope{}, ctx.Err()
		}
	}
}

// Finish marks the stream complete. A consumer blocked in Next resolves
// immediately; queued envelopes are still handed out before io.EOF.
func (q *eventQueue) Finish() {
	q.mu.Lock()
	q.finished = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Len reports how many envelopes are waiting to be sent.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *eventQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
