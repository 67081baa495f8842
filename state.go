package dealAuth

import "sync"

// stateStore is the single owner of session state. Every transition runs
// under mu, bumps Version and is published to subscribers in order.
type stateStore struct {
	mu       sync.Mutex
	state    State
	inflight int
	subs     map[uint64]*Subscription
	nextID   uint64
	closed   bool
}

func newStateStore() *stateStore {
	return &stateStore{
		state: State{Role: RoleCustomer},
		subs:  make(map[uint64]*Subscription),
	}
}

func (s *stateStore) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// apply runs fn and publishes the result.
func (s *stateStore) apply(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn)
}

// begin opens a loading bracket and clears the previous outcome.
func (s *stateStore) begin() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	return s.applyLocked(func(st *State) {
		st.LastError = nil
		st.Notice = ""
	})
}

// finish closes a loading bracket and applies the outcome in the same
// transition.
func (s *stateStore) finish(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
	return s.applyLocked(fn)
}

func (s *stateStore) applyLocked(fn func(*State)) State {
	if fn != nil {
		fn(&s.state)
	}
	if s.state.CurrentUser == nil {
		s.state.Authenticated = false
	}
	s.state.Loading = s.inflight > 0
	s.state.Version++

	snap := s.state.clone()
	for _, sub := range s.subs {
		sub.offer(snap.clone())
	}
	return snap
}

func (s *stateStore) subscribe(buffer int) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{ch: make(chan State, buffer), store: s}
	if s.closed {
		close(sub.ch)
		sub.closed = true
		return sub
	}
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	sub.offer(s.state.clone())
	return sub
}

func (s *stateStore) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.closed {
		return
	}
	delete(s.subs, sub.id)
	sub.closed = true
	close(sub.ch)
}

func (s *stateStore) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		sub.closed = true
		close(sub.ch)
	}
}

// resetSession returns st to the unauthenticated default.
func resetSession(st *State) {
	st.Authenticated = false
	st.CurrentUser = nil
	st.Role = RoleCustomer
}

func commitSession(st *State, u User) {
	st.Authenticated = true
	st.Role = u.Role
	st.CurrentUser = &u
}

// Subscription delivers state snapshots. A subscriber that falls behind
// loses intermediate snapshots but always receives the latest one.
type Subscription struct {
	ch     chan State
	id     uint64
	store  *stateStore
	closed bool
}

// C returns the snapshot channel. It is closed by Close or Manager.Close.
func (s *Subscription) C() <-chan State {
	return s.ch
}

// Close stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.store == nil {
		return
	}
	s.store.unsubscribe(s)
}

// offer must be called with the store lock held; it is the only sender.
func (s *Subscription) offer(snap State) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
