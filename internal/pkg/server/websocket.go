package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

const websocketBufferSize = 16

type stateMessage struct {
	Type   string             `json:"type"`
	Device *model.DeviceState `json:"device"`
}

// serveWebsocket sends every device's state on connect and again after each
// handled notification. Updates that find the buffer full are dropped; the
// next one carries the full state anyway.
func (s *server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer c.Close()

	devices := s.fleet.Devices()
	updates := make(chan *musiccast.Device, websocketBufferSize)
	for _, d := range devices {
		d := d
		remove := d.AddObserver(func() {
			select {
			case updates <- d:
			default:
			}
		})
		defer remove()
	}

	closed := make(chan struct{})
	go s.serviceIncoming(c, closed)

	for _, d := range devices {
		if err := c.WriteJSON(stateMessage{Type: "state", Device: d.Snapshot()}); err != nil {
			s.logger.Error("failed to send initial message to websocket", zap.Error(err))
			return
		}
	}
	for {
		select {
		case d := <-updates:
			if err := c.WriteJSON(stateMessage{Type: "state", Device: d.Snapshot()}); err != nil {
				s.logger.Error("failed to send message to websocket", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *server) serviceIncoming(c *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if _, ok := err.(*websocket.CloseError); ok {
				s.logger.Debug("websocket closed", zap.Error(err))
				return
			}
			s.logger.Error("failed to read message from websocket", zap.Error(err))
			return
		}
	}
}
