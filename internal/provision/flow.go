package provision

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

// State is a step of the provisioning flow.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCredential State = "awaiting_credential"
	StateConnected          State = "connected"
	StateFinalized          State = "finalized"
	StateLoggedOut          State = "logged_out"
)

// Method selects how the user links the device.
type Method string

const (
	MethodQR          Method = "qr"
	MethodPairingCode Method = "pairing_code"
)

var (
	ErrLoggedOut          = errors.New("session logged out")
	ErrTooManyAttempts    = errors.New("provisioning gave up after too many attempts")
	ErrPhoneRequired      = errors.New("pairing code method requires a phone number")
	errUpdatesClosedEarly = errors.New("transport closed without reporting a result")
)

const (
	defaultRetryBackoff    = 2 * time.Second
	defaultMaxRetryBackoff = 30 * time.Second
)

// Options configure a Flow.
type Options struct {
	Method Method
	// Phone in international format, required for MethodPairingCode.
	Phone string
	// MaxAttempts bounds connection attempts; zero retries forever.
	MaxAttempts int
	// RetryBackoff is the first delay before a restart; it doubles up to 30s.
	RetryBackoff time.Duration
	// OnCode receives every QR payload or pairing code.
	OnCode func(method Method, code string)
	// OnState observes transitions.
	OnState func(State)
}

// Flow mints a session token: connect, wait for the user to link the
// device, export the credentials, disconnect.
type Flow struct {
	transport Transport
	store     *creds.FileStore
	opts      Options

	mu       sync.RWMutex
	state    State
	attempts int
}

func NewFlow(transport Transport, store *creds.FileStore, opts Options) (*Flow, error) {
	if opts.Method == "" {
		opts.Method = MethodQR
	}
	if opts.Method == MethodPairingCode && opts.Phone == "" {
		return nil, ErrPhoneRequired
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Flow{transport: transport, store: store, opts: opts, state: StateIdle}, nil
}

func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Flow) Attempts() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attempts
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	f.mu.Unlock()

	if changed && f.opts.OnState != nil {
		f.opts.OnState(s)
	}
}

// Run drives the flow until a token is minted, the account logs out, the
// attempt budget runs out or ctx is cancelled.
func (f *Flow) Run(ctx context.Context) (string, error) {
	backoff := f.opts.RetryBackoff
	for {
		f.setState(StateIdle)
		if err := ctx.Err(); err != nil {
			return "", err
		}

		f.mu.Lock()
		if f.opts.MaxAttempts > 0 && f.attempts >= f.opts.MaxAttempts {
			f.mu.Unlock()
			return "", ErrTooManyAttempts
		}
		f.attempts++
		attempt := f.attempts
		f.mu.Unlock()

		token, err := f.attempt(ctx)
		switch {
		case err == nil:
			return token, nil
		case errors.Is(err, ErrLoggedOut):
			f.setState(StateLoggedOut)
			return "", err
		case ctx.Err() != nil:
			return "", ctx.Err()
		}

		log.Session(f.store.Dir()).WithError(err).WithField("attempt", attempt).Warn("Connection closed, restarting provisioning")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > defaultMaxRetryBackoff {
			backoff = defaultMaxRetryBackoff
		}
	}
}

// attempt runs one connection from Idle. A nil error means Finalized.
func (f *Flow) attempt(ctx context.Context) (string, error) {
	conn, err := f.transport.Connect(ctx, Request{Method: f.opts.Method, Phone: f.opts.Phone})
	if err != nil {
		return "", errors.Wrap(err, "start connection")
	}
	defer conn.Close()

	f.setState(StateAwaitingCredential)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case upd, ok := <-conn.Updates():
			if !ok {
				return "", errUpdatesClosedEarly
			}
			switch upd.Kind {
			case UpdateCode:
				if f.opts.OnCode != nil {
					f.opts.OnCode(f.opts.Method, upd.Code)
				}
			case UpdateOpen:
				f.setState(StateConnected)
				return f.finalize(ctx, conn)
			case UpdateClose:
				if upd.Reason == ReasonLoggedOut {
					return "", ErrLoggedOut
				}
				return "", errors.Errorf("connection closed: %s", upd.Reason)
			}
		}
	}
}

func (f *Flow) finalize(ctx context.Context, conn Conn) (string, error) {
	if err := conn.Flush(ctx, f.store); err != nil {
		return "", errors.Wrap(err, "flush credentials")
	}
	raw, err := f.store.Load()
	if err != nil {
		return "", errors.Wrap(err, "read back credentials")
	}

	token := creds.Encode(raw)
	f.setState(StateFinalized)
	return token, nil
}
