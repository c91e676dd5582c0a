package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newID builds identifiers like ORD_1756400000000_9f86d081: a millisecond
// timestamp keeps them generation-ordered, the uuid fragment keeps them
// unique within the same millisecond.
func newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.New().String()[:8])
}

func NewOrderID() string       { return newID("ORD") }
func NewSessionID() string     { return newID("TAP") }
func NewTransactionID() string { return newID("TXN") }
