package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/waitroom"
)

// waitlistStreamHandler pushes the full checked-in ordering to the client:
// the current order immediately on connect, then every re-sorted snapshot.
func waitlistStreamHandler(q *waitroom.Queue, logger zerolog.Logger) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		updates, cancel := q.Updates()
		defer cancel()

		if err := sendOrder(ws, q.CurrentOrder()); err != nil {
			logger.Debug().Err(err).Msg("waitlist stream closed on initial send")
			return
		}

		done := make(chan struct{})
		go func() {
			// Drain reads so we notice the peer going away.
			var discard string
			for {
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					close(done)
					return
				}
			}
		}()

		for {
			select {
			case order, ok := <-updates:
				if !ok {
					return
				}
				if err := sendOrder(ws, order); err != nil {
					logger.Debug().Err(err).Msg("waitlist stream send failed")
					return
				}
			case <-done:
				return
			}
		}
	})
}

func sendOrder(ws *websocket.Conn, order []patient.Record) error {
	if order == nil {
		order = []patient.Record{}
	}
	return websocket.JSON.Send(ws, order)
}
