package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trackside/derby-scoreboard-backend/internal/hub"
)

// Handler upgrades the connection and bridges it to the hub: raw frames go in
// as-is, replies and broadcast batches come back on the outbox. Connections
// stay open while idle; scoreboards sit untouched between jams.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Info("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		outbox := make(chan []byte, 16)

		h.Inbox() <- hub.Join{ClientID: clientID, Outbox: outbox}
		defer func() { h.Inbox() <- hub.Leave{ClientID: clientID} }()

		// Writer goroutine. The hub closes the outbox when it drops us.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range outbox {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, frame)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (hub.Leave in defer):
				return
			}
			h.Inbox() <- hub.Frame{ClientID: clientID, Data: data}
		}
	}
}
