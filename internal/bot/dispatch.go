package bot

import (
	"context"
	"sync"

	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
)

// chatQueue holds the events of one chat waiting for its worker.
type chatQueue struct {
	pending []*command.Event
}

// dispatcher runs events of the same chat one after another in arrival order.
// Chats are served by separate workers, and a worker exits once its queue is
// empty. Enqueue never blocks.
type dispatcher struct {
	dispatch func(ctx context.Context, ev *command.Event)

	mu     sync.Mutex
	queues map[types.JID]*chatQueue
	wg     sync.WaitGroup
}

func newDispatcher(dispatch func(ctx context.Context, ev *command.Event)) *dispatcher {
	return &dispatcher{
		dispatch: dispatch,
		queues:   make(map[types.JID]*chatQueue),
	}
}

func (d *dispatcher) Enqueue(ctx context.Context, ev *command.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[ev.Chat]; ok {
		q.pending = append(q.pending, ev)
		return
	}
	q := &chatQueue{pending: []*command.Event{ev}}
	d.queues[ev.Chat] = q
	d.wg.Add(1)
	go d.drain(ctx, ev.Chat, q)
}

func (d *dispatcher) drain(ctx context.Context, chat types.JID, q *chatQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, chat)
			d.mu.Unlock()
			return
		}
		ev := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		d.mu.Unlock()

		d.dispatch(ctx, ev)
	}
}

// Active reports how many chats currently have a worker.
func (d *dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Wait blocks until every queued event has been dispatched.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}
