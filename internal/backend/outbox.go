package backend

import "sync"

// Outbox delivers events in order without blocking the producer, so
// adapters can emit while holding their own lock. A progress or media
// status event replaces an undelivered one of the same kind at the tail.
type Outbox struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	wake   chan struct{}
	out    chan Event
	done   chan struct{}
	exited chan struct{}
}

// NewOutbox starts an outbox whose channel buffers up to buffer events.
func NewOutbox(buffer int) *Outbox {
	o := &Outbox{
		wake:   make(chan struct{}, 1),
		out:    make(chan Event, buffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go o.run()
	return o
}

// Events is closed by Close.
func (o *Outbox) Events() <-chan Event { return o.out }

// Push queues e. It never blocks and is a no-op after Close.
func (o *Outbox) Push(e Event) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if n := len(o.pending); n > 0 && coalesces(e.Kind) && o.pending[n-1].Kind == e.Kind {
		o.pending[n-1] = e
	} else {
		o.pending = append(o.pending, e)
	}
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Close drops undelivered events and closes the channel. It is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.exited
		return
	}
	o.closed = true
	o.pending = nil
	o.mu.Unlock()

	close(o.done)
	<-o.exited
}

func (o *Outbox) run() {
	defer close(o.exited)
	defer close(o.out)
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			o.mu.Unlock()
			select {
			case <-o.wake:
				continue
			case <-o.done:
				return
			}
		}
		e := o.pending[0]
		o.pending[0] = Event{}
		o.pending = o.pending[1:]
		o.mu.Unlock()

		select {
		case o.out <- e:
		case <-o.done:
			return
		}
	}
}

func coalesces(k Kind) bool {
	return k == ProgressUpdated || k == MediaStatusUpdated
}
