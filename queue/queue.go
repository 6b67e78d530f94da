// Package queue provides the per-kind internal work queues between the
// ingestion pipelines and their consumers. Messages are serialized SIRI
// sub-elements. The default transport is in-process; a RabbitMQ transport
// is available for deployments that want the queue outside the process.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("queue closed")

// Queue is an at-least-once work queue of serialized SIRI fragments.
type Queue interface {
	// Publish enqueues one message, blocking while the queue is full.
	Publish(msg []byte) error
	// Consume drains the queue with the given number of workers, calling
	// handle for every message, until ctx is cancelled.
	Consume(ctx context.Context, workers int, handle func(msg []byte))
	// Close stops the queue; pending messages are dropped.
	Close() error
}

// Chan is the in-process Queue implementation.
type Chan struct {
	ch        chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewChan returns an in-process queue holding up to capacity messages.
func NewChan(capacity int) *Chan {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Chan{
		ch:     make(chan []byte, capacity),
		closed: make(chan struct{}),
	}
}

func (q *Chan) Publish(msg []byte) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- msg:
		return nil
	case <-q.closed:
		return ErrClosed
	}
}

func (q *Chan) Consume(ctx context.Context, workers int, handle func(msg []byte)) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.closed:
					return
				case msg := <-q.ch:
					handle(msg)
				}
			}
		}()
	}
	wg.Wait()
}

func (q *Chan) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}
