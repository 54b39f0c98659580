package live

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"shelfhub/pkg/models"
)

// Hub fans progress events out to connected websocket clients. Slow clients
// are dropped rather than allowed to block the broadcast loop.
type Hub struct {
	mu         sync.Mutex
	sendChans  map[*websocket.Conn]chan []byte
	events     <-chan models.ProgressEvent
	unregister chan *websocket.Conn
	logger     *zap.Logger
}

func NewHub(events <-chan models.ProgressEvent, logger *zap.Logger) *Hub {
	return &Hub{
		sendChans:  make(map[*websocket.Conn]chan []byte),
		events:     events,
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.unregister:
			h.mu.Lock()
			if sendChan, ok := h.sendChans[conn]; ok {
				close(sendChan)
				delete(h.sendChans, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case evt, ok := <-h.events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("marshal progress event", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for conn, sendChan := range h.sendChans {
				select {
				case sendChan <- data:
				default:
					h.logger.Warn("client send channel full, removing")
					delete(h.sendChans, conn)
					close(sendChan)
					conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) chan []byte {
	sendChan := make(chan []byte, 256)
	h.mu.Lock()
	h.sendChans[conn] = sendChan
	h.mu.Unlock()
	return sendChan
}
