package sessionserver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/internal/provision"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNoCode       = errors.New("no linking code was produced in time")
	ErrShuttingDown = errors.New("session server is shutting down")
)

// TransportFactory builds the transport for one session directory.
type TransportFactory func(dir string) provision.Transport

// Session is a read-only view of one provisioning entry.
type Session struct {
	ID        string           `json:"id"`
	Method    provision.Method `json:"method"`
	State     provision.State  `json:"state"`
	Status    Status           `json:"status"`
	QR        string           `json:"qr,omitempty"`
	Code      string           `json:"code,omitempty"`
	Token     string           `json:"-"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

type entry struct {
	id        string
	dir       string
	method    provision.Method
	createdAt time.Time
	cancel    context.CancelFunc
	flow      *provision.Flow

	status  Status
	qr      string
	code    string
	token   string
	err     string
	gotCode chan struct{}
	once    sync.Once
}

func (e *entry) view() Session {
	s := Session{
		ID:        e.id,
		Method:    e.method,
		Status:    e.status,
		QR:        e.qr,
		Code:      e.code,
		Token:     e.token,
		Error:     e.err,
		CreatedAt: e.createdAt,
	}
	if e.flow != nil {
		s.State = e.flow.State()
	}
	return s
}

// Manager tracks in-flight provisioning flows, one per temporary directory.
type Manager struct {
	cfg          config.Server
	newTransport TransportFactory
	metrics      *metrics.Metrics

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	byID   map[string]*entry
	closed bool
}

func NewManager(cfg config.Server, factory TransportFactory, m *metrics.Metrics) *Manager {
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		cfg:          cfg,
		newTransport: factory,
		metrics:      m,
		base:         base,
		stop:         stop,
		byID:         map[string]*entry{},
	}
}

// Start launches a provisioning flow and waits up to the configured QR wait
// for its first code. Pairing-code mode is used when phone is set. On timeout
// the entry and its directory are removed.
func (m *Manager) Start(ctx context.Context, phone string) (Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.cfg.TempDir, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Session{}, errors.Wrap(err, "create session directory")
	}

	method := provision.MethodQR
	if phone != "" {
		method = provision.MethodPairingCode
	}

	e := &entry{
		id:        id,
		dir:       dir,
		method:    method,
		createdAt: time.Now(),
		status:    StatusPending,
		gotCode:   make(chan struct{}),
	}

	flow, err := provision.NewFlow(m.newTransport(dir), creds.NewFileStore(dir), provision.Options{
		Method:      method,
		Phone:       phone,
		MaxAttempts: m.cfg.MaxAttempts,
		OnCode:      m.onCode(e),
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return Session{}, err
	}
	e.flow = flow

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = os.RemoveAll(dir)
		return Session{}, ErrShuttingDown
	}
	runCtx, cancel := context.WithCancel(m.base)
	e.cancel = cancel
	m.byID[id] = e
	active := len(m.byID)
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.SessionsActive(active)
	log.Session(id).WithField("method", method).Info("Session provisioning started")

	done := make(chan struct{})
	go func() {
		defer m.wg.Done()
		defer close(done)
		m.run(runCtx, e)
	}()

	wait := time.NewTimer(m.cfg.QRWait)
	defer wait.Stop()

	select {
	case <-e.gotCode:
		m.mu.Lock()
		view := e.view()
		m.mu.Unlock()
		return view, nil
	case <-done:
	case <-wait.C:
	case <-ctx.Done():
	}

	m.Remove(id)
	return Session{}, ErrNoCode
}

func (m *Manager) onCode(e *entry) func(provision.Method, string) {
	return func(method provision.Method, code string) {
		m.mu.Lock()
		if method == provision.MethodPairingCode {
			e.code = code
		} else {
			e.qr = code
		}
		m.mu.Unlock()
		e.once.Do(func() { close(e.gotCode) })
	}
}

func (m *Manager) run(ctx context.Context, e *entry) {
	entryLog := log.Session(e.id)
	token, err := e.flow.Run(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[e.id]; !ok {
		m.metrics.SessionOutcome("cancelled")
		return
	}

	switch {
	case err == nil:
		e.status, e.token = StatusCompleted, token
		m.metrics.SessionOutcome("finalized")
		entryLog.Info("Session generated successfully")
	case errors.Is(err, provision.ErrLoggedOut):
		e.status, e.err = StatusFailed, err.Error()
		m.metrics.SessionOutcome("logged_out")
		entryLog.Warn("Session logged out before completion")
	case ctx.Err() != nil:
		m.metrics.SessionOutcome("cancelled")
	default:
		e.status, e.err = StatusFailed, err.Error()
		m.metrics.SessionOutcome("failed")
		entryLog.WithError(err).Error("Session provisioning failed")
	}
}

func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return Session{}, false
	}
	return e.view(), true
}

// List returns every entry, oldest first.
func (m *Manager) List() []Session {
	m.mu.Lock()
	out := make([]Session, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, e.view())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Remove cancels the entry's flow and deletes its directory. It reports
// false when the entry was already gone, so racing cleanups are harmless.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	e, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
	}
	active := len(m.byID)
	m.mu.Unlock()

	if !ok {
		return false
	}

	e.cancel()
	if err := os.RemoveAll(e.dir); err != nil {
		log.Session(id).WithError(err).Warn("Failed to remove session directory")
	}
	m.metrics.SessionsActive(active)
	return true
}

// RemoveAfter schedules Remove.
func (m *Manager) RemoveAfter(id string, delay time.Duration) {
	time.AfterFunc(delay, func() { m.Remove(id) })
}

// Sweep removes entries created more than the configured TTL before now.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []string
	for id, e := range m.byID {
		if now.Sub(e.createdAt) > m.cfg.SessionTTL {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range expired {
		if m.Remove(id) {
			log.Session(id).Info("Cleaning up expired session")
			removed++
		}
	}
	return removed
}

// Shutdown cancels every flow, removes every entry and waits for the flows
// to return.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Remove(id)
	}
	m.stop()
	m.wg.Wait()
}
