package provision

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// DatastoreFile holds the device store of a provisioning session directory.
const DatastoreFile = "whatsmeow.db"

// WhatsmeowTransport links a fresh device kept in a sqlite store inside dir.
type WhatsmeowTransport struct {
	dir string
}

func NewWhatsmeowTransport(dir string) *WhatsmeowTransport {
	return &WhatsmeowTransport{dir: dir}
}

func (t *WhatsmeowTransport) Connect(ctx context.Context, req Request) (Conn, error) {
	if err := os.MkdirAll(t.dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create session dir %s", t.dir)
	}

	container, err := whatsapp.OpenDatastore(ctx, "sqlite", "file:"+filepath.Join(t.dir, DatastoreFile))
	if err != nil {
		return nil, err
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, errors.Wrap(err, "load device")
	}

	connCtx, cancel := context.WithCancel(ctx)
	c := &whatsmeowConn{
		client:    whatsapp.NewClient(device, whatsapp.ClientOptions{}),
		container: container,
		updates:   make(chan Update, 8),
		done:      make(chan struct{}),
		cancel:    cancel,
		dir:       t.dir,
	}
	c.client.AddEventHandler(c.handle)

	if device.ID == nil {
		qrChan, err := c.client.GetQRChannel(connCtx)
		if err != nil {
			c.Close()
			return nil, errors.Wrap(err, "open qr channel")
		}
		go c.watchQR(connCtx, qrChan, req)
	}

	if err := c.client.Connect(); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "connect")
	}
	return c, nil
}

type whatsmeowConn struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	updates   chan Update
	done      chan struct{}
	cancel    context.CancelFunc
	dir       string
	closeOnce sync.Once
}

func (c *whatsmeowConn) Updates() <-chan Update {
	return c.updates
}

func (c *whatsmeowConn) emit(u Update) {
	select {
	case c.updates <- u:
	case <-c.done:
	}
}

// watchQR forwards QR codes, or swaps the first one for a pairing code when
// linking by phone number.
func (c *whatsmeowConn) watchQR(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem, req Request) {
	pairRequested := false
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			if req.Method != MethodPairingCode {
				c.emit(Update{Kind: UpdateCode, Code: item.Code})
				continue
			}
			if pairRequested {
				continue
			}
			pairRequested = true
			code, err := c.client.PairPhone(ctx, req.Phone, true, whatsmeow.PairClientChrome, whatsapp.PairClientName())
			if err != nil {
				log.Session(c.dir).WithError(err).Error("Pairing code request failed")
				c.emit(Update{Kind: UpdateClose, Reason: ReasonFailure})
				return
			}
			c.emit(Update{Kind: UpdateCode, Code: code})
		case whatsmeow.QRChannelSuccess.Event:
			// the Connected event that follows reports the open connection
		case whatsmeow.QRChannelTimeout.Event:
			c.emit(Update{Kind: UpdateClose, Reason: ReasonTimeout})
			return
		case whatsmeow.QRChannelEventError:
			log.Session(c.dir).WithError(item.Error).Error("QR channel error")
			c.emit(Update{Kind: UpdateClose, Reason: ReasonFailure})
			return
		default:
			log.Session(c.dir).WithField("event", item.Event).Warn("QR channel ended unexpectedly")
			c.emit(Update{Kind: UpdateClose, Reason: ReasonFailure})
			return
		}
	}
}

func (c *whatsmeowConn) handle(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		if c.client.Store.ID != nil {
			go c.emit(Update{Kind: UpdateOpen})
		}
	case *events.PairSuccess:
		log.Session(c.dir).WithField("jid", e.ID.String()).Info("Device linked")
	case *events.LoggedOut:
		go c.emit(Update{Kind: UpdateClose, Reason: ReasonLoggedOut})
	case *events.StreamReplaced:
		go c.emit(Update{Kind: UpdateClose, Reason: ReasonReplaced})
	case *events.Disconnected:
		go c.emit(Update{Kind: UpdateClose, Reason: ReasonConnectionLost})
	case *events.ConnectFailure:
		reason := ReasonFailure
		if e.Reason.IsLoggedOut() {
			reason = ReasonLoggedOut
		}
		go c.emit(Update{Kind: UpdateClose, Reason: reason})
	case *events.TemporaryBan, *events.ClientOutdated, *events.PairError:
		log.Session(c.dir).WithField("event", evt).Warn("Provisioning connection rejected")
		go c.emit(Update{Kind: UpdateClose, Reason: ReasonFailure})
	}
}

func (c *whatsmeowConn) Flush(_ context.Context, store *creds.FileStore) error {
	credentials, err := creds.FromDevice(c.client.Store)
	if err != nil {
		return err
	}
	raw, err := credentials.Marshal()
	if err != nil {
		return err
	}
	return store.Save(raw)
}

func (c *whatsmeowConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.client.Disconnect()
		if err := c.container.Close(); err != nil {
			log.Session(c.dir).WithError(err).Warn("Failed to close provisioning datastore")
		}
	})
}
