package payment

import "sync"

// OrderStore is the single source of truth for order amount and paid status.
// Orders are never deleted within a process lifetime. MarkPaid performs an
// unconditional write; the state machine owns the status guards.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]Order)}
}

func (s *OrderStore) Create(amount float64) Order {
	ord := Order{ID: NewOrderID(), Amount: amount, Status: OrderCreated}
	s.mu.Lock()
	s.orders[ord.ID] = ord
	s.mu.Unlock()
	return ord
}

func (s *OrderStore) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ord, ok := s.orders[id]
	return ord, ok
}

func (s *OrderStore) MarkPaid(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ord, ok := s.orders[id]; ok {
		ord.Status = OrderPaid
		s.orders[id] = ord
	}
}

// SessionStore holds tap sessions and an index of the active (non-LOCKED)
// session per order. The index is what makes TapInit's get-or-create a plain
// lookup instead of a scan over all sessions.
type SessionStore struct {
	mu            sync.RWMutex
	sessions      map[string]TapSession
	activeByOrder map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:      make(map[string]TapSession),
		activeByOrder: make(map[string]string),
	}
}

func (s *SessionStore) Create(orderID string) TapSession {
	sess := TapSession{ID: NewSessionID(), OrderID: orderID, Status: SessionReady}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.activeByOrder[orderID] = sess.ID
	s.mu.Unlock()
	return sess
}

func (s *SessionStore) Get(id string) (TapSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// FindActiveByOrder returns the one non-LOCKED session bound to the order,
// if any. At most one can exist at a time.
func (s *SessionStore) FindActiveByOrder(orderID string) (TapSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.activeByOrder[orderID]
	if !ok {
		return TapSession{}, false
	}
	sess := s.sessions[id]
	return sess, true
}

// Lock sets the session to LOCKED and drops it from the active index.
// Idempotent: locking a locked session is a no-op.
func (s *SessionStore) Lock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status == SessionLocked {
		return
	}
	sess.Status = SessionLocked
	s.sessions[id] = sess
	if s.activeByOrder[sess.OrderID] == id {
		delete(s.activeByOrder, sess.OrderID)
	}
}

// Ledger is the append-only record of completed payments. Entries are never
// updated or deleted once written.
type Ledger struct {
	mu      sync.RWMutex
	entries []Transaction
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(txn Transaction) {
	l.mu.Lock()
	l.entries = append(l.entries, txn)
	l.mu.Unlock()
}

// List returns a copy of all entries, newest last.
func (l *Ledger) List() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}
