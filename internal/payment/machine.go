package payment

import (
	"log"
	"sync"
	"time"
)

// minPanLength is the shortest card number TapSubmit accepts. Anything
// shorter is rejected before any state changes.
const minPanLength = 12

// SubmitResult is the successful outcome of TapSubmit.
type SubmitResult struct {
	OrderID       string
	TransactionID string
}

// Service is the payment state machine. It owns the three stores and runs
// every mutating operation under a per-order mutex, so the TapInit
// find-or-create sequence and the TapSubmit/ManualPay settlement sequence
// are atomic with respect to concurrent calls on the same order.
type Service struct {
	orders   *OrderStore
	sessions *SessionStore
	ledger   *Ledger
	logger   *log.Logger

	// one mutex per order id; entries live as long as the order does
	locks sync.Map

	now func() time.Time
}

func NewService(orders *OrderStore, sessions *SessionStore, ledger *Ledger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		orders:   orders,
		sessions: sessions,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

// lockOrder requires the order to exist; callers verify that first so the
// lock map only ever holds entries for known order ids.
func (s *Service) lockOrder(orderID string) func() {
	v, _ := s.locks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateOrder registers a new order with status CREATED. No precondition.
func (s *Service) CreateOrder(amount float64) Order {
	ord := s.orders.Create(amount)
	s.logger.Printf("[Order %s] created, amount=%.2f", ord.ID, ord.Amount)
	return ord
}

// GetOrder looks up an order by id.
func (s *Service) GetOrder(orderID string) (Order, error) {
	ord, ok := s.orders.Get(orderID)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return ord, nil
}

// ManualPay settles an order through the manually-entered card path, which
// always succeeds. Re-invoking it on an already-paid order is an idempotent
// no-op that still reports success; it never writes a ledger entry either
// way (manual settlement produces no Transaction record).
func (s *Service) ManualPay(orderID string) (Order, error) {
	if _, ok := s.orders.Get(orderID); !ok {
		return Order{}, ErrOrderNotFound
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	ord, ok := s.orders.Get(orderID)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if ord.Status == OrderPaid {
		s.logger.Printf("[Order %s] manual pay on settled order, no-op", orderID)
		return ord, nil
	}

	s.orders.MarkPaid(orderID)
	ord.Status = OrderPaid
	s.logger.Printf("[Order %s] paid manually, amount=%.2f", orderID, ord.Amount)
	return ord, nil
}

// TapInit returns the order's active tap session, creating one if none
// exists. The find-before-create runs under the order lock, so at most one
// live session per order can ever exist. Calling it again before a submit
// hands back the same session.
func (s *Service) TapInit(orderID string) (TapSession, error) {
	if _, ok := s.orders.Get(orderID); !ok {
		return TapSession{}, ErrOrderNotFound
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	ord, ok := s.orders.Get(orderID)
	if !ok {
		return TapSession{}, ErrOrderNotFound
	}
	if ord.Status == OrderPaid {
		return TapSession{}, ErrAlreadyPaid
	}

	if sess, ok := s.sessions.FindActiveByOrder(orderID); ok {
		s.logger.Printf("[TapSession %s] re-init for order %s", sess.ID, orderID)
		return sess, nil
	}

	sess := s.sessions.Create(orderID)
	s.logger.Printf("[TapSession %s] created for order %s", sess.ID, orderID)
	return sess, nil
}

// TapSubmit converts a card read into a transaction and settles the order.
// A locked session is rejected outright. If the order was settled by another
// path in the meantime, the session is locked so it cannot be replayed and
// the call fails with ErrAlreadyPaid. An invalid card number leaves every
// piece of state untouched, so the same session accepts a corrected resubmit.
func (s *Service) TapSubmit(sessionID, pan, expiry string) (SubmitResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return SubmitResult{}, ErrSessionNotFound
	}

	unlock := s.lockOrder(sess.OrderID)
	defer unlock()

	// re-read under the order lock; a racing submit may have locked it
	sess, _ = s.sessions.Get(sessionID)
	if sess.Status == SessionLocked {
		return SubmitResult{}, ErrSessionLocked
	}

	ord, ok := s.orders.Get(sess.OrderID)
	if !ok {
		return SubmitResult{}, ErrOrderNotFound
	}
	if ord.Status == OrderPaid {
		s.sessions.Lock(sess.ID)
		s.logger.Printf("[TapSession %s] order %s already settled, session burned", sess.ID, ord.ID)
		return SubmitResult{}, ErrAlreadyPaid
	}

	if len(pan) < minPanLength {
		return SubmitResult{}, ErrInvalidPan
	}

	txn := Transaction{
		ID:          NewTransactionID(),
		OrderID:     ord.ID,
		Amount:      ord.Amount,
		MaskedPan:   MaskPan(pan),
		Expiry:      expiry,
		Method:      MethodTapToPay,
		Status:      TxnSuccess,
		CompletedAt: s.now().UTC(),
	}
	s.ledger.Append(txn)
	s.orders.MarkPaid(ord.ID)
	s.sessions.Lock(sess.ID)

	s.logger.Printf("[TapSession %s] order %s paid, txn=%s card=%s", sess.ID, ord.ID, txn.ID, txn.MaskedPan)
	return SubmitResult{OrderID: ord.ID, TransactionID: txn.ID}, nil
}

// ListTransactions returns every ledger entry, newest last.
func (s *Service) ListTransactions() []Transaction {
	return s.ledger.List()
}

// MaskPan keeps only the trailing four digits of a card number. The caller
// must not retain or log the raw value afterwards.
func MaskPan(pan string) string {
	return "**** **** **** " + pan[len(pan)-4:]
}
