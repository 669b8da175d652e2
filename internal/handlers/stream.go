package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Streams are authenticated by token, not by cookie, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame of a live stream.
type StreamMessage struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Stream frame types.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// streamSubscription upgrades the request to a WebSocket and writes every snapshot
// of sub, rendered by render, until the client leaves or the subscription ends.
// sub is always released.
func streamSubscription[T any](c echo.Context, sub *livequery.Subscription[T], render func([]T) interface{}) error {
	defer sub.Cancel()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		return nil
	}
	defer conn.Close()

	// The client never sends data; reading only surfaces pongs and disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return nil
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case snap, ok := <-sub.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if snap.Err != nil {
				_ = conn.WriteJSON(StreamMessage{Type: FrameError, Message: "Live updates stopped. Please reload."})
				return nil
			}
			if err := conn.WriteJSON(StreamMessage{Type: FrameSnapshot, Data: render(snap.Items)}); err != nil {
				return nil
			}
		}
	}
}
