package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/internal/message"
)

func chatEvent(chat types.JID, id string) *command.Event {
	return command.NewEvent(&message.Message{ID: id, Chat: chat, Sender: chat, Text: id}, nil)
}

func TestDispatcherKeepsArrivalOrderPerChat(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	d := newDispatcher(func(_ context.Context, ev *command.Event) {
		if ev.ID == "1" {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		got = append(got, ev.ID)
		mu.Unlock()
	})

	chat := types.NewJID("15550000001", types.DefaultUserServer)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		d.Enqueue(context.Background(), chatEvent(chat, id))
	}
	d.Wait()

	require.Equal(t, []string{"1", "2", "3", "4", "5"}, got)
	require.Zero(t, d.Active())
}

func TestDispatcherChatsDoNotBlockEachOther(t *testing.T) {
	release := make(chan struct{})
	done := make(chan string, 2)
	d := newDispatcher(func(_ context.Context, ev *command.Event) {
		if ev.ID == "slow" {
			<-release
		}
		done <- ev.ID
	})

	slow := types.NewJID("15550000001", types.DefaultUserServer)
	fast := types.NewJID("120363000000000001", types.GroupServer)
	d.Enqueue(context.Background(), chatEvent(slow, "slow"))
	d.Enqueue(context.Background(), chatEvent(fast, "fast"))

	select {
	case id := <-done:
		require.Equal(t, "fast", id)
	case <-time.After(time.Second):
		t.Fatal("fast chat was blocked by a slow handler in another chat")
	}
	require.Eventually(t, func() bool { return d.Active() == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	d.Wait()
	require.Equal(t, "slow", <-done)
	require.Zero(t, d.Active())
}
