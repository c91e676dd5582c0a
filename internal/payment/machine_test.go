package payment

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	logger := log.New(io.Discard, "", 0)
	return NewService(NewOrderStore(), NewSessionStore(), NewLedger(), logger)
}

func TestTapFlowSettlesOrder(t *testing.T) {
	svc := newTestService()

	ord := svc.CreateOrder(298)
	require.Equal(t, OrderCreated, ord.Status)

	sess, err := svc.TapInit(ord.ID)
	require.NoError(t, err)
	require.Equal(t, SessionReady, sess.Status)
	require.Equal(t, ord.ID, sess.OrderID)

	res, err := svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
	require.NoError(t, err)
	require.Equal(t, ord.ID, res.OrderID)
	require.NotEmpty(t, res.TransactionID)

	paid, err := svc.GetOrder(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderPaid, paid.Status)

	txns := svc.ListTransactions()
	require.Len(t, txns, 1)
	assert.Equal(t, res.TransactionID, txns[0].ID)
	assert.Equal(t, ord.ID, txns[0].OrderID)
	assert.Equal(t, 298.0, txns[0].Amount)
	assert.Equal(t, "**** **** **** 1111", txns[0].MaskedPan)
	assert.Equal(t, "12/27", txns[0].Expiry)
	assert.Equal(t, MethodTapToPay, txns[0].Method)
	assert.Equal(t, TxnSuccess, txns[0].Status)

	// a consumed session rejects replay and never double-settles
	_, err = svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
	require.ErrorIs(t, err, ErrSessionLocked)
	require.Len(t, svc.ListTransactions(), 1)
}

func TestTapInitIsIdempotentPerOrder(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(199)

	first, err := svc.TapInit(ord.ID)
	require.NoError(t, err)
	second, err := svc.TapInit(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestTapInitRejectsPaidOrder(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(99)

	_, err := svc.ManualPay(ord.ID)
	require.NoError(t, err)

	_, err = svc.TapInit(ord.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestManualPayIsIdempotent(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(50)

	for i := 0; i < 2; i++ {
		paid, err := svc.ManualPay(ord.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderPaid, paid.Status)
	}

	// manual settlement writes no ledger entry
	assert.Empty(t, svc.ListTransactions())
}

func TestUnknownIdentifiers(t *testing.T) {
	svc := newTestService()

	_, err := svc.ManualPay("ORD_nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.TapInit("ORD_nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.TapSubmit("TAP_nope", "4111111111111111", "12/27")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUnknownOrderLeavesNoLock(t *testing.T) {
	svc := newTestService()

	_, err := svc.ManualPay("ORD_nope")
	require.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.TapInit("ORD_also_nope")
	require.ErrorIs(t, err, ErrOrderNotFound)

	count := 0
	svc.locks.Range(func(_, _ any) bool { count++; return true })
	assert.Zero(t, count, "unknown order ids must not allocate lock entries")
}

func TestInvalidPanLeavesStateUntouched(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(120)
	sess, err := svc.TapInit(ord.ID)
	require.NoError(t, err)

	_, err = svc.TapSubmit(sess.ID, "123", "12/27")
	require.ErrorIs(t, err, ErrInvalidPan)

	stored, ok := svc.sessions.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionReady, stored.Status)
	current, err := svc.GetOrder(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderCreated, current.Status)
	assert.Empty(t, svc.ListTransactions())

	// same session accepts a corrected resubmit
	res, err := svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
	require.NoError(t, err)
	assert.NotEmpty(t, res.TransactionID)
}

func TestSubmitOnSettledOrderBurnsSession(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(75)
	sess, err := svc.TapInit(ord.ID)
	require.NoError(t, err)

	_, err = svc.ManualPay(ord.ID)
	require.NoError(t, err)

	_, err = svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
	require.ErrorIs(t, err, ErrAlreadyPaid)

	burned, ok := svc.sessions.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionLocked, burned.Status)
	assert.Empty(t, svc.ListTransactions())

	_, err = svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
	assert.ErrorIs(t, err, ErrSessionLocked)
}

func TestTransactionTimestampUsesClock(t *testing.T) {
	svc := newTestService()
	at := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	ord := svc.CreateOrder(10)
	sess, err := svc.TapInit(ord.ID)
	require.NoError(t, err)
	_, err = svc.TapSubmit(sess.ID, "5555444433332222", "01/29")
	require.NoError(t, err)

	txns := svc.ListTransactions()
	require.Len(t, txns, 1)
	assert.Equal(t, at, txns[0].CompletedAt)
}

func TestMaskPan(t *testing.T) {
	masked := MaskPan("4111111111111111")
	assert.Equal(t, "**** **** **** 1111", masked)

	masked = MaskPan("370000000000002")
	assert.Equal(t, "**** **** **** 0002", masked)
}

func TestConcurrentTapInitYieldsOneSession(t *testing.T) {
	svc := newTestService()
	ord := svc.CreateOrder(500)

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			sess, err := svc.TapInit(ord.ID)
			require.NoError(t, err)
			ids[i] = sess.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRacingManualPayAndTapSubmitSettleOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc := newTestService()
		ord := svc.CreateOrder(298)
		sess, err := svc.TapInit(ord.ID)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		var submitErr error
		go func() {
			defer wg.Done()
			_, submitErr = svc.TapSubmit(sess.ID, "4111111111111111", "12/27")
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.ManualPay(ord.ID)
		}()
		wg.Wait()

		paid, err := svc.GetOrder(ord.ID)
		require.NoError(t, err)
		require.Equal(t, OrderPaid, paid.Status)

		txns := svc.ListTransactions()
		if submitErr == nil {
			require.Len(t, txns, 1)
		} else {
			require.ErrorIs(t, submitErr, ErrAlreadyPaid)
			require.Empty(t, txns)
		}
	}
}
