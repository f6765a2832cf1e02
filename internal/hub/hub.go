package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/trackside/derby-scoreboard-backend/internal/broadcast"
	"github.com/trackside/derby-scoreboard-backend/internal/command"
	"github.com/trackside/derby-scoreboard-backend/internal/model"
)

type Msg interface{ isHubMsg() }

// Join registers a connection; the hub acknowledges on the outbox with the
// connection id, then sends every broadcast batch there.
type Join struct {
	ClientID string
	Outbox   chan []byte
}

type Leave struct{ ClientID string }

// Frame is one raw command envelope from a client.
type Frame struct {
	ClientID string
	Data     []byte
}

// ClockFired arrives from a clock alarm task; its update flushes immediately
// as its own batch.
type ClockFired struct {
	ID model.ID
	At time.Time
}

type Shutdown struct{}

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan View }

type View struct {
	NumClients int
	NumBouts   int
}

func (Join) isHubMsg()       {}
func (Leave) isHubMsg()      {}
func (Frame) isHubMsg()      {}
func (ClockFired) isHubMsg() {}
func (Shutdown) isHubMsg()   {}
func (GetView) isHubMsg()    {}

// Hub is the single goroutine that owns all game state. Commands, clock
// alarms, and connection lifecycle all arrive as messages on its inbox, so
// mutators and encoders run without locks.
type Hub struct {
	inbox      chan Msg
	log        *zap.Logger
	series     *model.Series
	caster     *broadcast.Broadcaster
	dispatcher *command.Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
}

// New wires the series, command registry, and broadcaster, then starts the
// loop. A duplicate command registration is a startup error.
func New(parent context.Context, log *zap.Logger) (*Hub, error) {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan Msg, 64),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	h.caster = broadcast.New(log)
	h.series = model.NewSeries(h.caster, h.clockAlarm)
	h.registerGetters()

	reg := command.NewRegistry()
	if err := command.RegisterAll(reg, h.series); err != nil {
		cancel()
		return nil, err
	}
	h.dispatcher = command.NewDispatcher(reg, log)

	go h.loop()
	return h, nil
}

// Inbox exposes the message channel to the ws layer and tests.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) registerGetters() {
	h.caster.RegisterGetter(model.KindSeries, func(id model.ID) (any, error) {
		return h.series.Encode(), nil
	})
	h.caster.RegisterGetter(model.KindBout, func(id model.ID) (any, error) {
		b, err := h.series.Bout(id.Bout)
		if err != nil {
			return nil, err
		}
		return b.Encode(time.Now()), nil
	})
	h.caster.RegisterGetter(model.KindPeriod, func(id model.ID) (any, error) {
		p, err := h.period(id)
		if err != nil {
			return nil, err
		}
		return p.Encode(time.Now()), nil
	})
	h.caster.RegisterGetter(model.KindJam, func(id model.ID) (any, error) {
		p, err := h.period(id)
		if err != nil {
			return nil, err
		}
		j, err := p.Jam(id.Jam)
		if err != nil {
			return nil, err
		}
		return j.Encode(), nil
	})
}

func (h *Hub) period(id model.ID) (*model.Period, error) {
	b, err := h.series.Bout(id.Bout)
	if err != nil {
		return nil, err
	}
	return b.Period(id.Period)
}

// clockAlarm runs on a clock's alarm goroutine; it hands the expiry to the
// loop rather than touching state directly.
func (h *Hub) clockAlarm(id model.ID, at time.Time) {
	select {
	case h.inbox <- ClockFired{ID: id, At: at}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.caster.Subscribe(msg.ClientID, msg.Outbox)
				h.acknowledge(msg.ClientID)
				h.log.Info("client connected", zap.String("client", msg.ClientID))

			case Leave:
				h.caster.Unsubscribe(msg.ClientID)
				h.log.Info("client disconnected", zap.String("client", msg.ClientID))

			case Frame:
				// The reply reaches the originator before the broadcast the
				// command caused.
				if reply, ok := h.dispatcher.Dispatch(msg.Data); ok {
					h.caster.SendTo(msg.ClientID, reply)
				}
				h.caster.Flush()

			case ClockFired:
				h.caster.QueueUpdate(msg.ID, true)

			case GetView:
				msg.Reply <- View{
					NumClients: h.caster.NumSubscribers(),
					NumBouts:   h.series.BoutCount(),
				}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

// acknowledge tells a fresh connection its id, the opaque token the client
// holds for the session.
func (h *Hub) acknowledge(clientID string) {
	frame, err := json.Marshal(struct {
		ConnectionID    string `json:"connectionId"`
		ServerTimestamp string `json:"serverTimestamp"`
	}{
		ConnectionID:    clientID,
		ServerTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	h.caster.SendTo(clientID, frame)
}

func (h *Hub) shutdown() {
	h.caster.CloseAll()
	h.cancel()
}
