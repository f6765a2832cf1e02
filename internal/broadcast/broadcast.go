package broadcast

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/trackside/derby-scoreboard-backend/internal/model"
)

// Getter re-encodes the current state of one entity kind. A nil payload (or
// an error) marks the entity as gone; the update is still emitted so
// subscribers see the tombstone.
type Getter func(id model.ID) (any, error)

// Update is one entry of a broadcast batch.
type Update struct {
	ID   model.ID `json:"id"`
	Data any      `json:"data"`
}

// Broadcaster accumulates dirty entity ids during a command and fans their
// re-encoded state out to every subscriber as a single JSON batch.
//
// It is only ever touched from the hub goroutine, so it carries no lock;
// iteration during a flush never yields.
type Broadcaster struct {
	log     *zap.Logger
	getters map[model.Kind]Getter

	pending    []model.ID
	pendingSet map[model.ID]struct{}

	subscribers map[string]chan []byte
}

func New(log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		log:         log,
		getters:     make(map[model.Kind]Getter),
		pendingSet:  make(map[model.ID]struct{}),
		subscribers: make(map[string]chan []byte),
	}
}

// RegisterGetter installs the encoder for one entity kind.
func (b *Broadcaster) RegisterGetter(kind model.Kind, g Getter) {
	b.getters[kind] = g
}

// QueueUpdate marks an entity dirty. Repeated queues of the same id coalesce
// into one emission. sendNow flushes immediately; clock callbacks use it so
// their updates go out as their own batch.
func (b *Broadcaster) QueueUpdate(id model.ID, sendNow bool) {
	if _, dup := b.pendingSet[id]; !dup {
		b.pendingSet[id] = struct{}{}
		b.pending = append(b.pending, id)
	}
	if sendNow {
		b.Flush()
	}
}

// Flush drains the pending set and sends the batch to every subscriber. Slow
// subscribers are dropped and left to the client's reconnect logic.
func (b *Broadcaster) Flush() {
	if len(b.pending) == 0 {
		return
	}
	batch := make([]Update, 0, len(b.pending))
	for _, id := range b.pending {
		getter, ok := b.getters[id.Kind]
		if !ok {
			b.log.Warn("no getter for update kind", zap.String("kind", string(id.Kind)))
			continue
		}
		data, err := getter(id)
		if err != nil {
			// Entity deleted after the queue; emit the tombstone.
			b.log.Debug("encoding tombstone for removed entity",
				zap.String("kind", string(id.Kind)), zap.Error(err))
			data = nil
		}
		batch = append(batch, Update{ID: id, Data: data})
	}
	b.pending = b.pending[:0]
	clear(b.pendingSet)

	if len(batch) == 0 {
		return
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		b.log.Error("marshal broadcast batch", zap.Error(err))
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
			// Subscriber is slow/full - drop them.
			b.log.Info("dropping slow subscriber", zap.String("client", id))
			close(ch)
			delete(b.subscribers, id)
		}
	}
}

// Subscribe registers a client outbox.
func (b *Broadcaster) Subscribe(clientID string, outbox chan []byte) {
	b.subscribers[clientID] = outbox
}

// Unsubscribe removes a client; safe to call for an already-dropped client.
func (b *Broadcaster) Unsubscribe(clientID string) {
	if ch, ok := b.subscribers[clientID]; ok {
		close(ch)
		delete(b.subscribers, clientID)
	}
}

// SendTo delivers a frame to a single subscriber, dropping it when slow.
func (b *Broadcaster) SendTo(clientID string, frame []byte) {
	ch, ok := b.subscribers[clientID]
	if !ok {
		return
	}
	select {
	case ch <- frame:
	default:
		b.log.Info("dropping slow subscriber", zap.String("client", clientID))
		close(ch)
		delete(b.subscribers, clientID)
	}
}

// NumSubscribers reports the live subscriber count.
func (b *Broadcaster) NumSubscribers() int { return len(b.subscribers) }

// CloseAll tells every subscriber no more frames are coming.
func (b *Broadcaster) CloseAll() {
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
