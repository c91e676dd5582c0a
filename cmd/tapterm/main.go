package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/anki007123/tap-to-pay/internal/config"
	"github.com/anki007123/tap-to-pay/internal/tapwait"
)

// tapterm is the terminal-side half of the checkout: it creates an order,
// then drives the tap wait loop against a running server with a simulated
// proximity reader. The reader "taps" the synthetic demo card after a
// configurable delay; zero means no card ever taps, which exercises the
// countdown-expired retry/cancel path.
func main() {
	_ = godotenv.Load()

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		apiBase  = flag.String("api", getenv("API_BASE", "http://localhost:3001"), "checkout API base URL")
		amount   = flag.Float64("amount", 199, "order amount (SEK)")
		tapAfter = flag.Duration("tap-after", 3*time.Second, "simulated tap delay; 0 never taps")
		window   = flag.Duration("window", cfg.Tap.WaitWindow, "wait window per attempt")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[tapterm] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := tapwait.NewClient(*apiBase)
	ord, err := client.CreateOrder(ctx, *amount)
	if err != nil {
		logger.Fatalf("create order: %v", err)
	}
	logger.Printf("order %s created, amount=%.2f SEK", ord.OrderID, ord.Amount)

	reader := &simulatedReader{
		delay:  *tapAfter,
		pan:    "4111111111111111",
		expiry: "12/27",
	}

	ctrl := tapwait.NewController(client, reader,
		tapwait.WithWindow(*window),
		tapwait.WithLogger(logger),
		tapwait.WithCountdown(func(remaining int) {
			fmt.Printf("\rHold your card near the reader... %2ds ", remaining)
		}),
		tapwait.WithStateFunc(func(s tapwait.State) {
			if s == tapwait.StateExpired {
				fmt.Println("\nNo card detected.")
			}
		}),
		tapwait.WithPrompt(promptRetryCancel),
	)

	out := ctrl.Run(ctx, ord.OrderID)
	fmt.Println()
	switch out.State {
	case tapwait.StateSucceeded:
		logger.Printf("payment successful: order=%s txn=%s", out.OrderID, out.TransactionID)
	default:
		logger.Printf("payment abandoned (%s): %v", out.State, out.Err)
	}
}

// promptRetryCancel asks on stdin whether to re-arm the wait.
func promptRetryCancel(ctx context.Context, reason error) tapwait.Decision {
	fmt.Printf("%v. [r]etry or [c]ancel? ", reason)
	answers := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			answers <- strings.ToLower(strings.TrimSpace(sc.Text()))
		} else {
			answers <- ""
		}
	}()
	select {
	case <-ctx.Done():
		return tapwait.Cancel
	case a := <-answers:
		if a == "r" || a == "retry" {
			return tapwait.Retry
		}
		return tapwait.Cancel
	}
}

// simulatedReader stands in for an NFC reader: one listen delivers at most
// one read event, after the configured delay.
type simulatedReader struct {
	delay  time.Duration
	pan    string
	expiry string
}

func (r *simulatedReader) Listen(ctx context.Context) (<-chan tapwait.ReadEvent, error) {
	ch := make(chan tapwait.ReadEvent, 1)
	if r.delay <= 0 {
		return ch, nil
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(r.delay):
			ch <- tapwait.ReadEvent{Pan: r.pan, Expiry: r.expiry}
		}
	}()
	return ch, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
