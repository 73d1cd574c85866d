package whatsapp

import (
	"context"
	"sync"
	"time"

	"github.com/forPelevin/gomoji"
	"github.com/pkg/errors"
	"github.com/rivo/uniseg"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"
)

var (
	ErrNotConnected = errors.New("WhatsApp Client is not Connected")
	ErrNotLoggedIn  = errors.New("WhatsApp Client is not Logged In")
	ErrInvalidEmoji = errors.New("WhatsApp Message React Emoji Must Be Contain Only 1 Emoji Character")
	ErrEmptyMedia   = errors.New("media payload is empty")
	ErrUnknownMedia = errors.New("unknown media kind")
)

// Quote identifies the message an outbound message replies to.
type Quote struct {
	ID      string
	Sender  types.JID
	Message *waE2E.Message
}

func (q *Quote) contextInfo() *waE2E.ContextInfo {
	if q == nil || q.ID == "" {
		return nil
	}
	return &waE2E.ContextInfo{
		StanzaID:      proto.String(q.ID),
		Participant:   proto.String(q.Sender.String()),
		QuotedMessage: q.Message,
	}
}

// SessionOptions configure outbound behaviour of a Session.
type SessionOptions struct {
	// RatePerSecond limits sends per chat; zero disables limiting.
	RatePerSecond float64
	Burst         int
	// OnSend observes every send attempt, e.g. for metrics.
	OnSend func(kind string, err error)
}

// Session wraps a logged in client with the outbound operations the bot uses.
type Session struct {
	client *whatsmeow.Client
	limit  rate.Limit
	burst  int
	onSend func(kind string, err error)

	mu       sync.Mutex
	limiters map[types.JID]*chatLimiter
}

type chatLimiter struct {
	*rate.Limiter
	lastUsed time.Time
}

func NewSession(client *whatsmeow.Client, opts SessionOptions) *Session {
	s := &Session{
		client:   client,
		limit:    rate.Inf,
		burst:    opts.Burst,
		onSend:   opts.OnSend,
		limiters: make(map[types.JID]*chatLimiter),
	}
	if opts.RatePerSecond > 0 {
		s.limit = rate.Limit(opts.RatePerSecond)
	}
	if s.burst <= 0 {
		s.burst = 5
	}
	return s
}

// IsClientOK reports whether the session can send right now.
func (s *Session) IsClientOK() error {
	if !s.client.IsConnected() {
		return ErrNotConnected
	}
	if !s.client.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *Session) limiter(chat types.JID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[chat]
	if !ok {
		l = &chatLimiter{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[chat] = l
	}
	l.lastUsed = time.Now()
	return l.Limiter
}

// EvictIdleLimiters drops the send limiters of chats with no send since
// idle before now and returns how many were removed.
func (s *Session) EvictIdleLimiters(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for chat, l := range s.limiters {
		if now.Sub(l.lastUsed) >= idle {
			delete(s.limiters, chat)
			removed++
		}
	}
	return removed
}

func (s *Session) send(ctx context.Context, kind string, to types.JID, msg *waE2E.Message) (string, error) {
	if err := s.IsClientOK(); err != nil {
		return "", err
	}
	if err := s.limiter(to).Wait(ctx); err != nil {
		return "", errors.Wrap(err, "wait for send slot")
	}

	resp, err := s.client.SendMessage(ctx, to, msg)
	if s.onSend != nil {
		s.onSend(kind, err)
	}
	if err != nil {
		return "", errors.Wrapf(err, "send %s message", kind)
	}
	return resp.ID, nil
}

// SendText sends text, quoting quote when it is not nil.
func (s *Session) SendText(ctx context.Context, to types.JID, text string, quote *Quote) (string, error) {
	return s.send(ctx, "text", to, buildText(text, quote))
}

// SendReaction reacts to message id sent by sender in chat. An empty emoji removes the reaction.
func (s *Session) SendReaction(ctx context.Context, chat, sender types.JID, id, emoji string) (string, error) {
	if err := ValidateReaction(emoji); err != nil {
		return "", err
	}
	return s.send(ctx, "reaction", chat, s.client.BuildReaction(chat, sender, id, emoji))
}

// SendMedia uploads media and sends it, quoting quote when it is not nil.
func (s *Session) SendMedia(ctx context.Context, to types.JID, media Media, quote *Quote) (string, error) {
	if len(media.Data) == 0 {
		return "", ErrEmptyMedia
	}
	if err := s.IsClientOK(); err != nil {
		return "", err
	}

	uploaded, err := s.client.Upload(ctx, media.Data, media.Kind.appInfo())
	if err != nil {
		return "", errors.Wrapf(err, "upload %s", media.Kind)
	}

	var thumb []byte
	if media.Kind == MediaImage {
		// a broken thumbnail only costs the preview
		thumb, _ = Thumbnail(media.Data)
	}

	msg, err := buildMedia(media, uploaded, thumb, quote)
	if err != nil {
		return "", err
	}
	return s.send(ctx, media.Kind.String(), to, msg)
}

// Download fetches and decrypts an inbound attachment.
func (s *Session) Download(ctx context.Context, msg whatsmeow.DownloadableMessage) ([]byte, error) {
	data, err := s.client.Download(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "download media")
	}
	return data, nil
}

// SetPresence announces the account as available or unavailable.
func (s *Session) SetPresence(ctx context.Context, available bool) error {
	presence := types.PresenceUnavailable
	if available {
		presence = types.PresenceAvailable
	}
	return s.client.SendPresence(ctx, presence)
}

// ValidateReaction accepts an empty string (reaction removal) or exactly one emoji.
func ValidateReaction(emoji string) error {
	if emoji == "" {
		return nil
	}
	if !gomoji.ContainsEmoji(emoji) || uniseg.GraphemeClusterCount(emoji) != 1 {
		return ErrInvalidEmoji
	}
	return nil
}

func buildText(text string, quote *Quote) *waE2E.Message {
	ctxInfo := quote.contextInfo()
	if ctxInfo == nil {
		return &waE2E.Message{Conversation: proto.String(text)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: ctxInfo,
		},
	}
}
