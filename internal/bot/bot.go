// Package bot runs the live bot: one linked device, the plugin table and the
// inbound message pipeline.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/internal/config"
	"github.com/gdbrns/go-whatsapp-multibot/internal/message"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/internal/plugin"
	"github.com/gdbrns/go-whatsapp-multibot/internal/plugins"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// ErrLoggedOut stops the bot when the account unlinks this device.
var ErrLoggedOut = errors.New("device was logged out, generate a new SESSION_ID")

type Bot struct {
	cfg     config.Bot
	client  *whatsmeow.Client
	session *whatsapp.Session
	metrics *metrics.Metrics

	registry   *command.Registry
	registrar  *command.Registrar
	loader     *plugin.Loader
	dispatcher *dispatcher

	loggedOut chan struct{}
	logoutMu  sync.Once
}

func New(cfg config.Bot, device *store.Device, m *metrics.Metrics) *Bot {
	client := whatsapp.NewClient(device, whatsapp.ClientOptions{AutoReconnect: true})

	b := &Bot{
		cfg:     cfg,
		client:  client,
		metrics: m,
		session: whatsapp.NewSession(client, whatsapp.SessionOptions{
			RatePerSecond: cfg.OutboundRatePerSecond,
			OnSend:        m.Outbound,
		}),
		loggedOut: make(chan struct{}),
	}

	b.registry = command.NewRegistry(m)
	b.dispatcher = newDispatcher(b.registry.Dispatch)
	b.registrar = command.NewRegistrar(b.registry, command.Options{
		Prefix:  cfg.Prefix,
		Version: cfg.Version,
		IsAdmin: b.isAdmin,
		Metrics: m,
	})

	units := plugins.Units(plugins.Deps{
		BotName:    cfg.Name,
		Started:    time.Now(),
		Downloader: plugins.NewDownloader(cfg.DownloaderAPIURL),
		News:       plugins.NewNewsSource(cfg.NewsFeedURL),
		Reload:     func() (plugin.Result, error) { return b.loader.Load() },
	})
	b.loader = plugin.NewLoader(b.registrar, units, plugin.Options{
		Manifest: cfg.PluginManifest,
		Metrics:  m,
	})
	return b
}

func (b *Bot) Registrar() *command.Registrar {
	return b.registrar
}

// EvictIdleLimiters releases per-chat send limiters unused for the
// configured idle period.
func (b *Bot) EvictIdleLimiters() int {
	return b.session.EvictIdleLimiters(time.Now(), b.cfg.LimiterIdle)
}

// Run loads the plugins, connects and serves messages until ctx is done or
// the device is logged out.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.loader.Load(); err != nil {
		return errors.Wrap(err, "load plugins")
	}
	if err := b.loader.Watch(ctx); err != nil {
		log.Bot().WithError(err).Warn("Plugin manifest watch disabled")
	}

	b.client.AddEventHandler(func(evt interface{}) { b.handle(ctx, evt) })

	if err := connectWithRetry(ctx, b.client.Connect, loadRetryPolicy()); err != nil {
		return errors.Wrap(err, "connect to WhatsApp")
	}
	defer b.dispatcher.Wait()
	defer b.client.Disconnect()

	select {
	case <-ctx.Done():
		log.Bot().Info("Shutting down bot")
		return nil
	case <-b.loggedOut:
		return ErrLoggedOut
	}
}

func (b *Bot) self() types.JID {
	if b.client.Store == nil || b.client.Store.ID == nil {
		return types.EmptyJID
	}
	return *b.client.Store.ID
}

func (b *Bot) isAdmin(ev *command.Event) bool {
	return ev.IsFromSelf || b.cfg.IsOwner(ev.Sender.User)
}

func (b *Bot) markLoggedOut() {
	b.logoutMu.Do(func() { close(b.loggedOut) })
}

func (b *Bot) handle(ctx context.Context, evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		m := message.FromEvent(v, b.self())
		if m.Inert() {
			return
		}
		b.dispatcher.Enqueue(ctx, command.NewEvent(m, b.session))

	case *events.Connected:
		log.Bot().WithField("jid", b.self().String()).Info("✅ Bot connected")
		if b.cfg.AlwaysOnline {
			if err := b.session.SetPresence(ctx, true); err != nil {
				log.Bot().WithError(err).Warn("Failed to send available presence")
			}
		}

	case *events.LoggedOut:
		log.Bot().WithField("reason", v.Reason.String()).Error("Device logged out")
		b.markLoggedOut()

	case *events.ConnectFailure:
		if v.Reason.IsLoggedOut() {
			log.Bot().WithField("reason", v.Reason.String()).Error("Connection refused, device logged out")
			b.markLoggedOut()
			return
		}
		log.Bot().WithField("reason", v.Reason.String()).Warn("Connection failed, reconnecting")

	case *events.StreamReplaced:
		log.Bot().Warn("Session opened elsewhere, this connection was replaced")

	case *events.TemporaryBan:
		log.Bot().WithField("code", v.Code.String()).WithField("expire", v.Expire.String()).Error("Account temporarily banned")

	case *events.Disconnected:
		log.Bot().Info("Connection closed, reconnecting")
	}
}
