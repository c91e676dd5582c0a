package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anki007123/tap-to-pay/internal/events"
	"github.com/anki007123/tap-to-pay/internal/payment"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RegisterPaymentRoutes wires the checkout/payment endpoints into the mux.
// prod may be nil, in which case no events are published.
func RegisterPaymentRoutes(mux *http.ServeMux, svc *payment.Service, prod *events.Producer, topic string) {
	mux.Handle("/health", otelhttp.NewHandler(http.HandlerFunc(handleHealth), "health"))

	mux.Handle("/order/create", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCreateOrder(svc, w, r)
	}), "order-create"))

	mux.Handle("/payment/manual", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleManualPay(svc, prod, topic, w, r)
	}), "payment-manual"))

	mux.Handle("/payment/tap/init", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleTapInit(svc, w, r)
	}), "tap-init"))

	mux.Handle("/payment/tap/submit", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleTapSubmit(svc, prod, topic, w, r)
	}), "tap-submit"))

	mux.Handle("/payment/transactions", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListTransactions(svc, w, r)
	}), "transactions-list"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func handleCreateOrder(svc *payment.Service, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be non-negative")
		return
	}

	ord := svc.CreateOrder(req.Amount)
	writeJSON(w, http.StatusOK, ord)
}

func handleManualPay(svc *payment.Service, prod *events.Producer, topic string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ord, err := svc.ManualPay(req.OrderID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	publishPaymentCompleted(prod, topic, ord.ID, "", ord.Amount, "MANUAL")
	writeJSON(w, http.StatusOK, map[string]any{
		"orderId": ord.ID,
		"status":  "SUCCESS",
	})
}

func handleTapInit(svc *payment.Service, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := svc.TapInit(req.OrderID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func handleTapSubmit(svc *payment.Service, prod *events.Producer, topic string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
		Pan       string `json:"pan"`
		Expiry    string `json:"expiry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := svc.TapSubmit(req.SessionID, req.Pan, req.Expiry)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	amount := 0.0
	if ord, err := svc.GetOrder(res.OrderID); err == nil {
		amount = ord.Amount
	}
	publishPaymentCompleted(prod, topic, res.OrderID, res.TransactionID, amount, payment.MethodTapToPay)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "SUCCESS",
		"orderId":       res.OrderID,
		"transactionId": res.TransactionID,
	})
}

func handleListTransactions(svc *payment.Service, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	txns := svc.ListTransactions()
	if txns == nil {
		txns = []payment.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// publishPaymentCompleted emits a settlement event, best-effort: a missing
// broker must never fail the checkout request, so it runs detached with its
// own timeout and only logs failures.
func publishPaymentCompleted(prod *events.Producer, topic, orderID, transactionID string, amount float64, method string) {
	if prod == nil {
		return
	}
	evt := events.Envelope{
		EventType:    "PaymentCompleted",
		EventVersion: "v1",
		AggregateID:  orderID,
		Data: map[string]any{
			"orderId":       orderID,
			"transactionId": transactionID,
			"amount":        amount,
			"method":        method,
		},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := prod.Publish(ctx, topic, orderID, evt); err != nil {
			log.Printf("[Events] failed to publish PaymentCompleted for %s: %v", orderID, err)
		}
	}()
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, payment.ErrOrderNotFound), errors.Is(err, payment.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrAlreadyPaid), errors.Is(err, payment.ErrSessionLocked), errors.Is(err, payment.ErrInvalidPan):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
