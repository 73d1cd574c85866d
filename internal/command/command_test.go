package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-multibot/internal/message"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/whatsapp"
)

type sent struct {
	to    types.JID
	text  string
	quote *whatsapp.Quote
}

type fakeConn struct {
	mu    sync.Mutex
	texts []sent
}

func (f *fakeConn) SendText(_ context.Context, to types.JID, text string, quote *whatsapp.Quote) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sent{to: to, text: text, quote: quote})
	return "ID", nil
}

func (f *fakeConn) SendMedia(context.Context, types.JID, whatsapp.Media, *whatsapp.Quote) (string, error) {
	return "ID", nil
}

func (f *fakeConn) SendReaction(context.Context, types.JID, types.JID, string, string) (string, error) {
	return "ID", nil
}

func (f *fakeConn) Download(context.Context, whatsmeow.DownloadableMessage) ([]byte, error) {
	return []byte("media"), nil
}

var chat = types.NewJID("15550000002", types.DefaultUserServer)

func textEvent(conn Conn, text string) *Event {
	info := types.MessageInfo{MessageSource: types.MessageSource{Chat: chat, Sender: chat}, ID: "MSG1"}
	return NewEvent(message.Normalize(info, &waE2E.Message{Conversation: proto.String(text)}, types.EmptyJID), conn)
}

func newRegistrar(prefix string) (*Registry, *Registrar) {
	registry := NewRegistry(nil)
	return registry, NewRegistrar(registry, Options{Prefix: prefix, Version: "1.0.0"})
}

func TestCommandMatchScenarios(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		text    string
		fired   bool
		arg     string
	}{
		{"alive without argument", "alive ?(.*)", ".alive", true, ""},
		{"tiktok with url", "tiktok ?(.*)", ".tiktok https://tiktok.com/x", true, "https://tiktok.com/x"},
		{"case insensitive", "alive ?(.*)", ".ALIVE now", true, "now"},
		{"surrounding whitespace", "alive ?(.*)", "  .alive  ", true, ""},
		{"no capture group", "ping", ".ping extra", true, ""},
		{"missing prefix", "alive ?(.*)", "alive", false, ""},
		{"prefix is literal", "alive ?(.*)", "xalive", false, ""},
		{"not at start", "alive ?(.*)", "say .alive", false, ""},
		{"other command", "alive ?(.*)", ".menu", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			registry, registrar := newRegistrar(".")
			fired, got := false, "unset"
			require.NoError(t, registrar.Define(Spec{Pattern: tc.pattern}, func(_ context.Context, _ *Event, match string, _ *Context) error {
				fired, got = true, match
				return nil
			}))

			registry.Dispatch(context.Background(), textEvent(&fakeConn{}, tc.text))
			require.Equal(t, tc.fired, fired)
			if tc.fired {
				require.Equal(t, tc.arg, got)
			}
		})
	}
}

func TestMultiCharacterPrefix(t *testing.T) {
	registry, registrar := newRegistrar("!?")
	var got []string
	require.NoError(t, registrar.Define(Spec{Pattern: "news ?(.*)"}, func(_ context.Context, _ *Event, match string, _ *Context) error {
		got = append(got, match)
		return nil
	}))

	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, "!?news world"))
	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, "!news world"))
	require.Equal(t, []string{"world"}, got)
}

// Every matching command runs, in registration order, rather than the first match winning.
func TestAllMatchingHandlersRunInOrder(t *testing.T) {
	registry, registrar := newRegistrar(".")
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, registrar.Define(Spec{Pattern: "al(.*)"}, func(context.Context, *Event, string, *Context) error {
			order = append(order, i)
			return nil
		}))
	}

	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, ".alive"))
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestHandlerFailureIsIsolated(t *testing.T) {
	registry, registrar := newRegistrar(".")
	conn := &fakeConn{}
	var ran []string

	require.NoError(t, registrar.Define(Spec{Pattern: "x"}, func(context.Context, *Event, string, *Context) error {
		ran = append(ran, "error")
		return errors.New("boom")
	}))
	require.NoError(t, registrar.Define(Spec{Pattern: "x"}, func(context.Context, *Event, string, *Context) error {
		ran = append(ran, "panic")
		panic("kaboom")
	}))
	require.NoError(t, registrar.Define(Spec{Pattern: "x"}, func(context.Context, *Event, string, *Context) error {
		ran = append(ran, "ok")
		return nil
	}))

	registry.Dispatch(context.Background(), textEvent(conn, ".x"))

	require.Equal(t, []string{"error", "panic", "ok"}, ran)
	require.Len(t, conn.texts, 2)
	for _, s := range conn.texts {
		require.Equal(t, FailureNotice, s.text)
		require.Equal(t, chat, s.to)
		require.Equal(t, "MSG1", s.quote.ID)
	}
}

func TestRawEventHandlerPanicDoesNotStopDispatch(t *testing.T) {
	registry := NewRegistry(nil)
	var ran bool
	registry.Register("a", func(context.Context, *Event) error { panic("nope") })
	registry.Register("b", func(context.Context, *Event) error { ran = true; return nil })

	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, "hello"))
	require.True(t, ran)
}

func TestInertMessagesAreNeverDispatched(t *testing.T) {
	registry := NewRegistry(nil)
	calls := 0
	registry.Register("", func(context.Context, *Event) error { calls++; return nil })

	info := types.MessageInfo{MessageSource: types.MessageSource{Chat: chat, Sender: chat}}
	registry.Dispatch(context.Background(), NewEvent(message.Normalize(info, nil, types.EmptyJID), &fakeConn{}))
	registry.Dispatch(context.Background(), NewEvent(message.Normalize(info, &waE2E.Message{
		SenderKeyDistributionMessage: &waE2E.SenderKeyDistributionMessage{GroupID: proto.String("g")},
	}, types.EmptyJID), &fakeConn{}))

	require.Zero(t, calls)
}

func TestContextAndMetadata(t *testing.T) {
	registry, registrar := newRegistrar(".")
	registrar.SetPluginCount(5)

	var cc *Context
	require.NoError(t, registrar.Define(Spec{Pattern: "menu ?(.*)", Description: "Show menu", Category: "info"}, func(_ context.Context, _ *Event, _ string, c *Context) error {
		cc = c
		return nil
	}))
	require.NoError(t, registrar.Define(Spec{Pattern: "(?:hi|hello)", Hidden: true}, func(context.Context, *Event, string, *Context) error {
		return nil
	}))

	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, ".menu"))
	require.NotNil(t, cc)
	require.Equal(t, ".", cc.Prefix)
	require.Equal(t, "1.0.0", cc.Version)
	require.Equal(t, 5, cc.PluginCount)
	require.Len(t, cc.Commands, 2)
	require.Equal(t, "menu", cc.Commands[0].Name)
	require.Equal(t, "info", cc.Commands[0].Category)
	require.Equal(t, "(?:hi|hello)", cc.Commands[1].Name)
	require.Equal(t, "misc", cc.Commands[1].Category)
	require.Equal(t, "No description", cc.Commands[1].Description)
}

func TestDefineRejectsBadSpecs(t *testing.T) {
	_, registrar := newRegistrar(".")
	noop := func(context.Context, *Event, string, *Context) error { return nil }

	require.Error(t, registrar.Define(Spec{Pattern: ""}, noop))
	require.Error(t, registrar.Define(Spec{Pattern: "bad("}, noop))
	require.Error(t, registrar.Define(Spec{Pattern: "ok"}, nil))
	require.Empty(t, registrar.Commands())
}

func TestAdminOnly(t *testing.T) {
	registry := NewRegistry(nil)
	registrar := NewRegistrar(registry, Options{Prefix: ".", IsAdmin: func(ev *Event) bool {
		return ev.Sender.User == "15550000009"
	}})
	calls := 0
	require.NoError(t, registrar.Define(Spec{Pattern: "reload", AdminOnly: true}, func(context.Context, *Event, string, *Context) error {
		calls++
		return nil
	}))

	registry.Dispatch(context.Background(), textEvent(&fakeConn{}, ".reload"))
	require.Zero(t, calls)

	admin := types.NewJID("15550000009", types.DefaultUserServer)
	info := types.MessageInfo{MessageSource: types.MessageSource{Chat: admin, Sender: admin}}
	registry.Dispatch(context.Background(), NewEvent(message.Normalize(info, &waE2E.Message{Conversation: proto.String(".reload")}, types.EmptyJID), &fakeConn{}))
	require.Equal(t, 1, calls)
}

func TestRemoveOwner(t *testing.T) {
	registry, registrar := newRegistrar(".")
	noop := func(context.Context, *Event, string, *Context) error { return nil }

	require.NoError(t, registrar.Scope("alive").Define(Spec{Pattern: "alive"}, noop))
	require.NoError(t, registrar.Scope("news").Define(Spec{Pattern: "news"}, noop))
	require.NoError(t, registrar.Scope("alive").Define(Spec{Pattern: "uptime"}, noop))
	require.Equal(t, 3, registry.Len())

	require.Equal(t, 2, registrar.RemoveOwner("alive"))
	require.Equal(t, 1, registry.Len())
	require.Equal(t, "news", registrar.Commands()[0].Name)
}

func TestEventDownload(t *testing.T) {
	conn := &fakeConn{}
	ev := textEvent(conn, "plain")
	_, err := ev.Download(context.Background())
	require.ErrorIs(t, err, message.ErrNotMedia)

	info := types.MessageInfo{MessageSource: types.MessageSource{Chat: chat, Sender: chat}}
	ev = NewEvent(message.Normalize(info, &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, types.EmptyJID), conn)
	data, err := ev.Download(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("media"), data)
}
