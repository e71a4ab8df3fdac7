package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"zipsight/internal/service/analyze"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleEvents streams analysis lifecycle events for one workspace over a
// websocket. The stream is one-way; inbound frames are read only to keep
// the connection alive.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		h.log.WithError(err).Warn("events ws set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	writeCh := make(chan analyze.Event, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(eventsWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh, subErr := h.an.Subscribe(ctx, workspaceID)
	if subErr != nil {
		pushEventWS(writeCh, analyze.Event{
			Type:        "error",
			WorkspaceID: workspaceID,
			At:          time.Now(),
			Error:       subErr.Error(),
		})
		cancel()
		<-writerDone
		return
	}

	pushEventWS(writeCh, analyze.Event{
		Type:        "subscribed",
		WorkspaceID: workspaceID,
		At:          time.Now(),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-subCh:
				if !ok {
					return
				}
				pushEventWS(writeCh, evt)
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			return
		}
	}
}

// pushEventWS enqueues without blocking; when the buffer is full the
// oldest event is dropped in favor of the new one.
func pushEventWS(writeCh chan analyze.Event, evt analyze.Event) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- evt:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- evt:
	default:
	}
}
