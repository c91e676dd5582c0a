package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPaymentReceipt(t *testing.T) {
	body := RenderPaymentReceipt("ORD_1", "TXN_1", 298, "TAP_TO_PAY")
	assert.Contains(t, body, "ORD_1")
	assert.Contains(t, body, "298.00 SEK")
	assert.Contains(t, body, "TAP_TO_PAY")
	assert.Contains(t, body, "Ref:    TXN_1")
}

func TestRenderPaymentReceiptManual(t *testing.T) {
	// manual settlements have no ledger entry, so no Ref line
	body := RenderPaymentReceipt("ORD_2", "", 99, "MANUAL")
	assert.Contains(t, body, "ORD_2")
	assert.NotContains(t, body, "Ref:")
}

func TestBuildRFC822(t *testing.T) {
	msg := string(buildRFC822("no-reply@example.local", "test@example.local", "Your payment receipt", "hello"))
	assert.Contains(t, msg, "From: no-reply@example.local\r\n")
	assert.Contains(t, msg, "To: test@example.local\r\n")
	assert.Contains(t, msg, "Subject: Your payment receipt\r\n")
	assert.Contains(t, msg, "\r\n\r\nhello\r\n")
}
