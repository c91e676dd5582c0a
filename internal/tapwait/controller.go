package tapwait

import (
	"context"
	"errors"
	"log"
	"time"
)

// State is the wait controller's lifecycle state.
type State int

const (
	StateWaiting State = iota
	StateExpired
	StateSucceeded
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateExpired:
		return "EXPIRED"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

var (
	// ErrDeviceUnavailable means the proximity reader could not start a
	// listen. It never reaches the server; the controller recovers through
	// the retry/cancel prompt.
	ErrDeviceUnavailable = errors.New("card reader unavailable")

	// ErrNoCardDetected means the wait window elapsed without a tap.
	ErrNoCardDetected = errors.New("no card detected")
)

// ReadEvent is one signal from the physical reader. Err marks a read error;
// the terminal treats read errors as taps too, so the controller still
// submits whatever card data the event carries.
type ReadEvent struct {
	Pan    string
	Expiry string
	Err    error
}

// CardReader starts a physical-read listen. The returned channel delivers
// read signals until ctx is cancelled. A reader may fire several signals for
// one tap; the controller consumes only the first per wait attempt.
type CardReader interface {
	Listen(ctx context.Context) (<-chan ReadEvent, error)
}

// Checkout is the controller's only view of the server: the tap half of the
// payment contract. The controller never touches order or session state
// directly.
type Checkout interface {
	TapInit(ctx context.Context, orderID string) (InitResult, error)
	TapSubmit(ctx context.Context, sessionID, pan, expiry string) (SubmitResult, error)
}

type Decision int

const (
	Retry Decision = iota
	Cancel
)

// Prompt decides retry-or-cancel after a failed wait attempt. reason is
// ErrNoCardDetected, ErrDeviceUnavailable, or the error from a rejected
// submit.
type Prompt func(ctx context.Context, reason error) Decision

// Outcome is the terminal result of a tap-to-pay flow.
type Outcome struct {
	State         State
	OrderID       string
	SessionID     string
	TransactionID string
	Err           error
}

// Controller drives the bounded wait for a physical card read: countdown,
// at-most-once submit per tap, and the user-facing retry/cancel loop on
// expiry. Retrying re-inits the session, which hands back the same one while
// it is still unlocked.
type Controller struct {
	checkout Checkout
	reader   CardReader
	window   time.Duration
	tick     time.Duration
	prompt   Prompt
	onTick   func(remaining int)
	onState  func(State)
	logger   *log.Logger
}

type Option func(*Controller)

// WithWindow overrides the default 15s wait window.
func WithWindow(d time.Duration) Option { return func(c *Controller) { c.window = d } }

// WithTick overrides the countdown granularity (default one second).
func WithTick(d time.Duration) Option { return func(c *Controller) { c.tick = d } }

// WithPrompt sets the retry/cancel decision hook. Without one, every failed
// attempt cancels.
func WithPrompt(p Prompt) Option { return func(c *Controller) { c.prompt = p } }

// WithCountdown sets the visible-countdown hook, called with the ticks
// remaining in the current wait attempt.
func WithCountdown(fn func(remaining int)) Option { return func(c *Controller) { c.onTick = fn } }

// WithStateFunc sets a hook observing state transitions.
func WithStateFunc(fn func(State)) Option { return func(c *Controller) { c.onState = fn } }

func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

func NewController(checkout Checkout, reader CardReader, opts ...Option) *Controller {
	c := &Controller{
		checkout: checkout,
		reader:   reader,
		window:   15 * time.Second,
		tick:     time.Second,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the flow for one order until a terminal outcome: init the tap
// session, wait for a tap bounded by the window, and loop on user-chosen
// retries. Cancelling ctx abandons the flow client-side only; server-side
// session state is untouched.
func (c *Controller) Run(ctx context.Context, orderID string) Outcome {
	for {
		sess, err := c.checkout.TapInit(ctx, orderID)
		if err != nil {
			return c.finish(Outcome{State: StateCancelled, OrderID: orderID, Err: err})
		}
		out, retry := c.awaitTap(ctx, sess)
		if retry {
			continue
		}
		return c.finish(out)
	}
}

func (c *Controller) awaitTap(ctx context.Context, sess InitResult) (Outcome, bool) {
	out := Outcome{OrderID: sess.OrderID, SessionID: sess.SessionID}

	listenCtx, stopListen := context.WithCancel(ctx)
	defer stopListen()
	reads, err := c.reader.Listen(listenCtx)
	if err != nil {
		c.logger.Printf("[TapWait] reader unavailable for order %s: %v", sess.OrderID, err)
		if c.decide(ctx, ErrDeviceUnavailable) == Retry {
			return Outcome{}, true
		}
		out.State, out.Err = StateCancelled, ErrDeviceUnavailable
		return out, false
	}

	c.setState(StateWaiting)
	timer := time.NewTimer(c.window)
	defer timer.Stop()

	remaining := int(c.window / c.tick)
	var tickC <-chan time.Time
	if c.onTick != nil {
		c.onTick(remaining)
		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			out.State, out.Err = StateCancelled, ctx.Err()
			return out, false

		case <-tickC:
			if remaining > 0 {
				remaining--
			}
			c.onTick(remaining)

		case ev := <-reads:
			// First signal wins. Stop the listen before submitting so
			// duplicate callbacks for the same tap go nowhere.
			stopListen()
			if ev.Err != nil {
				c.logger.Printf("[TapWait] read error on session %s: %v", sess.SessionID, ev.Err)
			}
			res, err := c.checkout.TapSubmit(ctx, sess.SessionID, ev.Pan, ev.Expiry)
			if err != nil {
				c.logger.Printf("[TapWait] submit rejected for session %s: %v", sess.SessionID, err)
				if c.decide(ctx, err) == Retry {
					return Outcome{}, true
				}
				out.State, out.Err = StateCancelled, err
				return out, false
			}
			out.State = StateSucceeded
			out.OrderID = res.OrderID
			out.TransactionID = res.TransactionID
			return out, false

		case <-timer.C:
			c.setState(StateExpired)
			if c.decide(ctx, ErrNoCardDetected) == Retry {
				return Outcome{}, true
			}
			out.State, out.Err = StateCancelled, ErrNoCardDetected
			return out, false
		}
	}
}

func (c *Controller) decide(ctx context.Context, reason error) Decision {
	if c.prompt == nil {
		return Cancel
	}
	return c.prompt(ctx, reason)
}

func (c *Controller) setState(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Controller) finish(out Outcome) Outcome {
	c.setState(out.State)
	return out
}
