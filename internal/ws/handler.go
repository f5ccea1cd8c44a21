package ws

import (
	"context"
	"net/http"

	"github.com/mrcolv86/bierserv/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection read loop.
type Handler struct {
	registry   *Registry
	classifier *Classifier
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHandler creates a WebSocket handler
func NewHandler(registry *Registry, classifier *Classifier, readBufferSize, writeBufferSize int) *Handler {
	return &Handler{
		registry:   registry,
		classifier: classifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			// auth happens in-band via control messages
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: util.GetLogger(),
	}
}

// Serve handles the /ws endpoint
func (h *Handler) Serve(c *gin.Context) {
	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := h.registry.Register(socket)

	socket.SetPongHandler(func(string) error {
		h.registry.MarkAlive(conn.ID())
		return nil
	})

	h.registry.Send(conn, Envelope{Type: MsgConnected, Data: map[string]interface{}{
		"connection_id": conn.ID(),
	}})

	go h.readLoop(conn, socket)
}

func (h *Handler) readLoop(conn *Connection, socket *websocket.Conn) {
	defer func() {
		h.registry.Unregister(conn.ID())
		_ = socket.Close()
	}()

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			h.logger.Debug("Read loop ended",
				zap.String("conn_id", conn.ID()),
				zap.Error(err))
			return
		}
		h.classifier.HandleMessage(context.Background(), conn, raw)
	}
}
