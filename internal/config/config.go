package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration grouped by concern.
type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	Kafka       KafkaConfig
	Tap         TapConfig
}

type HTTPConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers       []string
	PaymentsTopic string
	ReceiptGroup  string
}

type TapConfig struct {
	// WaitWindow bounds how long the terminal waits for a physical card
	// read before offering retry/cancel.
	WaitWindow time.Duration
}

// Load reads configuration from environment variables, applying sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "tap-to-pay"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_LISTEN_ADDR", ":3001"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			PaymentsTopic: getEnv("KAFKA_PAYMENTS_TOPIC", "payments.v1"),
			ReceiptGroup:  getEnv("KAFKA_RECEIPT_GROUP_ID", "receipt-workers"),
		},
	}

	waitStr := getEnv("TAP_WAIT_SECONDS", "15")
	waitSecs, err := strconv.Atoi(waitStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse TAP_WAIT_SECONDS: %w", err)
	}
	if waitSecs <= 0 {
		return Config{}, fmt.Errorf("TAP_WAIT_SECONDS must be positive, got %d", waitSecs)
	}
	cfg.Tap.WaitWindow = time.Duration(waitSecs) * time.Second

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
