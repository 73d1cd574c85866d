package command

import (
	"context"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-multibot/internal/message"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

// Conn is the outbound side of the live transport session.
type Conn interface {
	SendText(ctx context.Context, to types.JID, text string, quote *whatsapp.Quote) (string, error)
	SendMedia(ctx context.Context, to types.JID, media whatsapp.Media, quote *whatsapp.Quote) (string, error)
	SendReaction(ctx context.Context, chat, sender types.JID, messageID, emoji string) (string, error)
	Download(ctx context.Context, media whatsmeow.DownloadableMessage) ([]byte, error)
}

// Event is what handlers receive: the normalized message plus the operations
// bound to it and the session it arrived on.
type Event struct {
	*message.Message
	conn Conn
}

func NewEvent(m *message.Message, conn Conn) *Event {
	return &Event{Message: m, conn: conn}
}

func (e *Event) quote() *whatsapp.Quote {
	return &whatsapp.Quote{ID: e.ID, Sender: e.Sender, Message: e.Raw}
}

// Reply sends text to the originating chat quoting this message.
func (e *Event) Reply(ctx context.Context, text string) error {
	_, err := e.conn.SendText(ctx, e.Chat, text, e.quote())
	return err
}

// Send sends text to the originating chat without quoting.
func (e *Event) Send(ctx context.Context, text string) error {
	_, err := e.conn.SendText(ctx, e.Chat, text, nil)
	return err
}

// SendMedia uploads and sends media to the originating chat.
func (e *Event) SendMedia(ctx context.Context, media whatsapp.Media, quoted bool) error {
	var quote *whatsapp.Quote
	if quoted {
		quote = e.quote()
	}
	_, err := e.conn.SendMedia(ctx, e.Chat, media, quote)
	return err
}

// React reacts to this message. An empty emoji removes a previous reaction.
func (e *Event) React(ctx context.Context, emoji string) error {
	_, err := e.conn.SendReaction(ctx, e.Chat, e.Sender, e.ID, emoji)
	return err
}

// Download fetches the attachment of this message.
func (e *Event) Download(ctx context.Context) ([]byte, error) {
	media, ok := e.Media()
	if !ok {
		return nil, message.ErrNotMedia
	}
	return e.conn.Download(ctx, media.Downloadable())
}

// DownloadQuoted fetches the attachment of the message this one replies to.
func (e *Event) DownloadQuoted(ctx context.Context) ([]byte, error) {
	media, ok := e.Quoted.Media()
	if !ok {
		return nil, message.ErrNotMedia
	}
	return e.conn.Download(ctx, media.Downloadable())
}
