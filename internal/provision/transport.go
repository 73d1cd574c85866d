package provision

import (
	"context"

	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
)

// Request starts one connection attempt.
type Request struct {
	Method Method
	Phone  string
}

type UpdateKind int

const (
	// UpdateCode carries a QR payload or pairing code to show the user.
	UpdateCode UpdateKind = iota + 1
	// UpdateOpen reports a completed handshake on a linked device.
	UpdateOpen
	// UpdateClose reports the connection ended; Reason says why.
	UpdateClose
)

// Reason explains an UpdateClose. Only ReasonLoggedOut is terminal.
type Reason string

const (
	ReasonLoggedOut      Reason = "logged_out"
	ReasonConnectionLost Reason = "connection_lost"
	ReasonTimeout        Reason = "timeout"
	ReasonReplaced       Reason = "replaced"
	ReasonFailure        Reason = "failure"
)

type Update struct {
	Kind   UpdateKind
	Code   string
	Reason Reason
}

// Conn is one live connection attempt.
type Conn interface {
	Updates() <-chan Update
	// Flush writes the linked device's credentials into store.
	Flush(ctx context.Context, store *creds.FileStore) error
	Close()
}

// Transport opens connection attempts against WhatsApp.
type Transport interface {
	Connect(ctx context.Context, req Request) (Conn, error)
}
