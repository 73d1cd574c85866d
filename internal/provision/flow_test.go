package provision

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
)

type fakeConn struct {
	updates chan Update
	blob    []byte
	closed  bool
	mu      sync.Mutex
}

func (c *fakeConn) Updates() <-chan Update { return c.updates }

func (c *fakeConn) Flush(_ context.Context, store *creds.FileStore) error {
	return store.Save(c.blob)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// fakeTransport replays one scripted update sequence per connection attempt.
type fakeTransport struct {
	mu       sync.Mutex
	scripts  [][]Update
	requests []Request
	conns    []*fakeConn
	blob     []byte
}

func (t *fakeTransport) Connect(_ context.Context, req Request) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, req)
	if len(t.scripts) == 0 {
		return nil, errors.New("no more scripted attempts")
	}
	script := t.scripts[0]
	t.scripts = t.scripts[1:]

	conn := &fakeConn{updates: make(chan Update, len(script)), blob: t.blob}
	for _, u := range script {
		conn.updates <- u
	}
	t.conns = append(t.conns, conn)
	return conn, nil
}

func newFlow(t *testing.T, transport Transport, opts Options) (*Flow, *[]State) {
	t.Helper()
	var states []State
	var mu sync.Mutex
	opts.RetryBackoff = time.Millisecond
	opts.OnState = func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}
	flow, err := NewFlow(transport, creds.NewFileStore(t.TempDir()), opts)
	require.NoError(t, err)
	return flow, &states
}

func TestFlowFinalizesWithToken(t *testing.T) {
	transport := &fakeTransport{
		blob:    []byte(`{"me":{"id":"1@s.whatsapp.net"}}`),
		scripts: [][]Update{{{Kind: UpdateCode, Code: "2@qr"}, {Kind: UpdateOpen}}},
	}
	var codes []string
	flow, states := newFlow(t, transport, Options{OnCode: func(m Method, code string) {
		require.Equal(t, MethodQR, m)
		codes = append(codes, code)
	}})

	token, err := flow.Run(context.Background())
	require.NoError(t, err)

	raw, err := creds.Decode(token)
	require.NoError(t, err)
	require.Equal(t, transport.blob, raw)
	require.Equal(t, []string{"2@qr"}, codes)
	require.Equal(t, StateFinalized, flow.State())
	require.Equal(t, []State{StateAwaitingCredential, StateConnected, StateFinalized}, *states)
	require.True(t, transport.conns[0].closed)
}

func TestFlowLoggedOutIsTerminal(t *testing.T) {
	transport := &fakeTransport{scripts: [][]Update{
		{{Kind: UpdateClose, Reason: ReasonLoggedOut}},
		{{Kind: UpdateOpen}},
	}}
	flow, states := newFlow(t, transport, Options{})

	_, err := flow.Run(context.Background())
	require.ErrorIs(t, err, ErrLoggedOut)
	require.Equal(t, StateLoggedOut, flow.State())
	require.Len(t, transport.requests, 1, "no reconnect after logout")
	require.Equal(t, StateLoggedOut, (*states)[len(*states)-1])
}

func TestFlowRestartsOnRecoverableClose(t *testing.T) {
	transport := &fakeTransport{
		blob: []byte("creds"),
		scripts: [][]Update{
			{{Kind: UpdateCode, Code: "a"}, {Kind: UpdateClose, Reason: ReasonConnectionLost}},
			{{Kind: UpdateCode, Code: "b"}, {Kind: UpdateClose, Reason: ReasonTimeout}},
			{{Kind: UpdateOpen}},
		},
	}
	flow, states := newFlow(t, transport, Options{})

	token, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, creds.Encode([]byte("creds")), token)
	require.Equal(t, 3, flow.Attempts())
	require.Equal(t, []State{
		StateAwaitingCredential,
		StateIdle, StateAwaitingCredential,
		StateIdle, StateAwaitingCredential, StateConnected, StateFinalized,
	}, *states)
	for _, c := range transport.conns {
		require.True(t, c.closed)
	}
}

func TestFlowMaxAttempts(t *testing.T) {
	transport := &fakeTransport{scripts: [][]Update{
		{{Kind: UpdateClose, Reason: ReasonReplaced}},
		{{Kind: UpdateClose, Reason: ReasonFailure}},
		{{Kind: UpdateOpen}},
	}}
	flow, _ := newFlow(t, transport, Options{MaxAttempts: 2})

	_, err := flow.Run(context.Background())
	require.ErrorIs(t, err, ErrTooManyAttempts)
	require.Len(t, transport.requests, 2)
}

func TestFlowPairingCode(t *testing.T) {
	_, err := NewFlow(&fakeTransport{}, creds.NewFileStore(t.TempDir()), Options{Method: MethodPairingCode})
	require.ErrorIs(t, err, ErrPhoneRequired)

	transport := &fakeTransport{
		blob:    []byte("x"),
		scripts: [][]Update{{{Kind: UpdateCode, Code: "ABCD-EFGH"}, {Kind: UpdateOpen}}},
	}
	var got string
	flow, _ := newFlow(t, transport, Options{Method: MethodPairingCode, Phone: "628123456789", OnCode: func(m Method, code string) {
		require.Equal(t, MethodPairingCode, m)
		got = code
	}})

	_, err = flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ABCD-EFGH", got)
	require.Equal(t, Request{Method: MethodPairingCode, Phone: "628123456789"}, transport.requests[0])
}

func TestFlowStopsOnCancel(t *testing.T) {
	transport := &fakeTransport{scripts: [][]Update{{{Kind: UpdateCode, Code: "a"}}}}
	flow, _ := newFlow(t, transport, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := flow.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, transport.requests, 1)
}
