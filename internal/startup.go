package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

var ErrNoSession = errors.New("no linked device: set SESSION_ID or run `multibot session qr`")

// Startup opens the datastore and returns the device the bot runs as.
// SESSION_ID wins over an existing creds.json, which wins over whatever the
// datastore already holds.
func Startup(ctx context.Context, cfg config.Bot) (*sqlstore.Container, *store.Device, error) {
	log.Bot().Info("Running Startup Tasks")

	container, err := pkgWhatsApp.OpenDatastore(ctx, cfg.DatastoreType, cfg.DatastoreURI)
	if err != nil {
		return nil, nil, err
	}

	device, err := restoreDevice(ctx, container, cfg)
	if err != nil {
		_ = container.Close()
		return nil, nil, err
	}
	return container, device, nil
}

func restoreDevice(ctx context.Context, container *sqlstore.Container, cfg config.Bot) (*store.Device, error) {
	fileStore := creds.NewFileStore(cfg.SessionDir)

	if cfg.SessionID != "" {
		raw, err := creds.Decode(cfg.SessionID)
		if err != nil {
			return nil, errors.Wrap(err, "SESSION_ID")
		}
		if err := fileStore.Save(raw); err != nil {
			return nil, err
		}
		log.Bot().WithField("path", fileStore.Path()).Info("Session restored from SESSION_ID")
	}

	if fileStore.Exists() {
		raw, err := fileStore.Load()
		if err != nil {
			return nil, err
		}
		c, err := creds.Parse(raw)
		if err != nil {
			return nil, err
		}
		device, err := creds.Restore(ctx, container, c)
		if err != nil {
			return nil, err
		}
		log.Bot().WithField("jid", device.ID.String()).Info("Loaded linked device")
		return device, nil
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load device from datastore")
	}
	if device.ID == nil {
		return nil, ErrNoSession
	}
	return device, nil
}
