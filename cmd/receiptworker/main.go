package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/anki007123/tap-to-pay/internal/events"
	"github.com/anki007123/tap-to-pay/internal/receipt"
)

func main() {
	log.Println("Receipt worker starting...")
	startConsumer()
}

func startConsumer() {
	brokers := getenv("KAFKA_BROKERS", "localhost:9092")
	topic := getenv("KAFKA_PAYMENTS_TOPIC", "payments.v1")
	group := getenv("KAFKA_RECEIPT_GROUP_ID", "receipt-workers")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{brokers},
		GroupTopics: []string{topic},
		GroupID:     group, // its own consumer group
		MinBytes:    1e3, MaxBytes: 10e6,
	})
	defer reader.Close()

	sender := pickSender()
	log.Printf("[receipt-worker] consuming %s (group=%s)", topic, group)
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("[receipt-worker] read error: %v", err)
			return
		}

		var evt events.Envelope
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("[receipt-worker] bad json: %v; payload=%s", err, string(msg.Value))
			continue
		}

		switch evt.EventType {
		case "PaymentCompleted":
			handlePaymentCompleted(sender, evt)
		default:
			// ignore other event types
		}
	}
}

func handlePaymentCompleted(sender receipt.Sender, evt events.Envelope) {
	data := toMap(evt.Data)
	orderID := toString(data["orderId"])
	transactionID := toString(data["transactionId"])
	amount := toFloat(data["amount"])
	method := toString(data["method"])

	// Customer contact would live on an account record; the demo accepts an
	// override via env.
	to := getenv("DEMO_TO_EMAIL", "test@example.local")

	body := receipt.RenderPaymentReceipt(orderID, transactionID, amount, method)
	if err := sender.Send(to, "Your payment receipt", body); err != nil {
		log.Printf("[receipt-worker] send failed: %v", err)
		return
	}

	log.Printf("[receipt-worker] sent receipt to=%s order=%s amount=%.2f method=%s", to, orderID, amount, method)
}

func pickSender() receipt.Sender {
	// Use SMTP if configured; else fallback to log
	if os.Getenv("SMTP_HOST") != "" || os.Getenv("SMTP_PORT") != "" {
		return receipt.NewSMTPSender()
	}
	return receipt.LogSender{}
}

// helpers
func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func toMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 0
}
