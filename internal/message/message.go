package message

import (
	"time"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ErrNotMedia is returned when a download is requested for a message without an attachment.
var ErrNotMedia = errors.New("message carries no downloadable media")

// Message is the normalized form of one inbound chat event.
type Message struct {
	ID         string
	Chat       types.JID
	Sender     types.JID
	IsFromSelf bool
	IsGroup    bool
	PushName   string
	Timestamp  time.Time

	Content  Content
	Text     string
	Quoted   *Quoted
	Mentions []types.JID

	Raw *waE2E.Message
}

// Quoted is the message a reply points at. It has no identity envelope of its own
// beyond the stanza id and participant carried in the reply's context info.
type Quoted struct {
	ID      string
	Sender  types.JID
	Content Content
	Text    string
	Raw     *waE2E.Message
}

// Type returns the content tag, or "" for a payload-less message.
func (m *Message) Type() ContentType {
	if m.Content == nil {
		return ""
	}
	return m.Content.Type()
}

// Inert reports whether the message must never reach handlers.
func (m *Message) Inert() bool {
	if m == nil || m.Content == nil {
		return true
	}
	_, control := m.Content.(SenderKeyDistribution)
	return control
}

// Media returns the downloadable attachment, if any.
func (m *Message) Media() (Media, bool) {
	if m.Content == nil {
		return nil, false
	}
	media, ok := m.Content.(Media)
	return media, ok
}

// Media returns the downloadable attachment of the quoted message, if any.
func (q *Quoted) Media() (Media, bool) {
	if q == nil || q.Content == nil {
		return nil, false
	}
	media, ok := q.Content.(Media)
	return media, ok
}

// FromEvent normalizes a whatsmeow message event. self is the bot's own account.
func FromEvent(evt *events.Message, self types.JID) *Message {
	return Normalize(evt.Info, evt.Message, self)
}

// Normalize builds a Message from the identity envelope and payload of a raw message.
func Normalize(info types.MessageInfo, raw *waE2E.Message, self types.JID) *Message {
	chat := info.Chat.ToNonAD()
	m := &Message{
		ID:         info.ID,
		Chat:       chat,
		IsFromSelf: info.IsFromMe,
		IsGroup:    chat.Server == types.GroupServer,
		PushName:   info.PushName,
		Timestamp:  info.Timestamp,
		Raw:        raw,
	}

	switch {
	case m.IsFromSelf:
		m.Sender = self.ToNonAD()
		if m.Sender.IsEmpty() {
			m.Sender = info.Sender.ToNonAD()
		}
	case m.IsGroup:
		m.Sender = info.Sender.ToNonAD()
	default:
		m.Sender = chat
	}
	if m.Sender.IsEmpty() {
		m.Sender = chat
	}

	m.Content = Classify(raw)
	if m.Content == nil {
		return m
	}
	m.Text = ExtractText(raw)

	if ctxInfo := contextInfo(raw); ctxInfo != nil {
		for _, mentioned := range ctxInfo.GetMentionedJID() {
			if jid, err := types.ParseJID(mentioned); err == nil {
				m.Mentions = append(m.Mentions, jid.ToNonAD())
			}
		}
		if quoted := ctxInfo.GetQuotedMessage(); quoted != nil {
			m.Quoted = &Quoted{
				ID:      ctxInfo.GetStanzaID(),
				Content: Classify(quoted),
				Text:    ExtractText(quoted),
				Raw:     quoted,
			}
			if participant, err := types.ParseJID(ctxInfo.GetParticipant()); err == nil {
				m.Quoted.Sender = participant.ToNonAD()
			}
			if m.Quoted.Sender.IsEmpty() {
				m.Quoted.Sender = chat
			}
		}
	}

	return m
}
