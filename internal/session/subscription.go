package session

const changeBufferSize = 16

// Subscription receives a snapshot after every store mutation.
type Subscription struct {
	Changed <-chan Snapshot
	Done    <-chan struct{}

	changedCh chan Snapshot
	doneCh    chan struct{}
	store     *Store
}

// Subscribe registers a new observer.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		changedCh: make(chan Snapshot, changeBufferSize),
		doneCh:    make(chan struct{}),
		store:     s,
	}
	sub.Changed = sub.changedCh
	sub.Done = sub.doneCh

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()
	return sub
}

// Close unregisters the subscription and closes Done.
func (sub *Subscription) Close() {
	s := sub.store
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, other := range s.subs {
		if other == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(sub.doneCh)
			return
		}
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		select {
		case sub.changedCh <- snap.clone():
		default:
			// Drop if buffer full
		}
	}
}
