package payment

import "time"

type OrderStatus string

const (
	OrderCreated OrderStatus = "CREATED"
	OrderPaid    OrderStatus = "PAID"
)

type SessionStatus string

const (
	SessionReady  SessionStatus = "READY"
	SessionLocked SessionStatus = "LOCKED"
)

const (
	MethodTapToPay = "TAP_TO_PAY"

	// TxnSuccess is the only transaction status: failed attempts never
	// produce a ledger entry.
	TxnSuccess = "SUCCESS"
)

// Order is a checkout unit. Amount is currency-agnostic (the demo UI shows
// SEK) and never changes after creation; only the state machine flips Status.
type Order struct {
	ID     string      `json:"orderId"`
	Amount float64     `json:"amount"`
	Status OrderStatus `json:"status"`
}

// TapSession represents one attempt to settle an order via a proximity card
// read. LOCKED is terminal; a locked session is kept for audit but rejects
// every further submit.
type TapSession struct {
	ID      string        `json:"sessionId"`
	OrderID string        `json:"orderId"`
	Status  SessionStatus `json:"status"`
}

// Transaction is an immutable record of a completed payment. Amount is copied
// from the order at completion time and MaskedPan retains only the last four
// digits; the rest of the card number is discarded at the boundary.
type Transaction struct {
	ID          string    `json:"transactionId"`
	OrderID     string    `json:"orderId"`
	Amount      float64   `json:"amount"`
	MaskedPan   string    `json:"maskedPan"`
	Expiry      string    `json:"expiry"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completedAt"`
}
