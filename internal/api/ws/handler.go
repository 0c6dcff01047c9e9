package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/domain/session"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/monitoring"
)

// The tool binds loopback; origin checks are handled by the CORS layer for
// the REST surface, and local pages are the only expected WS peers.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the inbound command frame.
type Message struct {
	Type    string         `json:"type"`
	Payload MessagePayload `json:"payload"`
}

// MessagePayload carries the union of command fields.
type MessagePayload struct {
	ImageID    string `json:"image_id"`
	ClassIndex *int   `json:"class_index"`
	Direction  string `json:"direction"`
	Index      *int   `json:"index"`
}

// Handler manages WebSocket connections
type Handler struct {
	hub     *Hub
	engine  *session.Engine
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, engine *session.Engine, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		hub:     hub,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	peer := &client{id: uuid.NewString(), conn: conn}
	h.hub.add(peer)
	defer func() {
		h.hub.remove(peer.id)
		conn.Close()
	}()

	h.logger.Debug("WebSocket client connected", zap.String("client", peer.id))

	// Initial state so the client can render without an extra round trip.
	if err := peer.send(Envelope{Type: "state_update", Payload: h.engine.GetState()}); err != nil {
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("inbound", msg.Type)
		h.dispatch(peer, msg)
	}
}

func (h *Handler) dispatch(peer *client, msg Message) {
	switch msg.Type {
	case "sync":
		_ = peer.send(Envelope{Type: "state_update", Payload: h.engine.GetState()})

	case "navigate":
		direction := msg.Payload.Direction
		if direction == "" {
			direction = "next"
		}
		h.engine.Navigate(direction, msg.Payload.Index)
		h.hub.BroadcastState()

	case "label":
		if msg.Payload.ClassIndex == nil {
			h.sendError(peer, "INVALID_CLASS", "class_index is required", msg.Payload.ImageID)
			return
		}
		res, err := h.engine.LabelImage(msg.Payload.ImageID, *msg.Payload.ClassIndex)
		if err != nil {
			h.sendError(peer, string(session.CodeOf(err)), err.Error(), msg.Payload.ImageID)
			return
		}
		h.metrics.RecordLabel()
		h.hub.Broadcast("image_labeled", res)

	case "delete":
		if err := h.engine.DeleteImage(msg.Payload.ImageID); err != nil {
			h.sendError(peer, string(session.CodeOf(err)), err.Error(), msg.Payload.ImageID)
			return
		}
		h.metrics.RecordDeletion()
		h.hub.Broadcast("image_deleted", gin.H{"image_id": msg.Payload.ImageID})

	case "undo":
		res, err := h.engine.Undo()
		if err != nil {
			h.sendError(peer, string(session.CodeOf(err)), err.Error(), "")
			return
		}
		h.metrics.RecordUndo()
		h.hub.Broadcast("undo_completed", undoEvent(h.engine, res))

	case "ping":
		_ = peer.send(Envelope{Type: "pong"})

	default:
		h.sendError(peer, "UNKNOWN_MESSAGE", "unknown message type: "+msg.Type, "")
	}
}

// undoEvent attaches the restored record state to the undo result so
// clients can update a single tile without a full resync.
func undoEvent(engine *session.Engine, res session.UndoResult) gin.H {
	restored := gin.H{
		"label":               nil,
		"class_name":          nil,
		"marked_for_deletion": false,
	}
	if rec, ok := engine.GetImageByID(res.ImageID); ok {
		restored["label"] = rec.Label
		restored["class_name"] = rec.ClassName
		restored["marked_for_deletion"] = rec.MarkedForDeletion
	}
	return gin.H{
		"undone_action":  res.UndoneAction,
		"image_id":       res.ImageID,
		"restored_state": restored,
	}
}

func (h *Handler) sendError(peer *client, code, message, imageID string) {
	payload := gin.H{"code": code, "message": message}
	if imageID != "" {
		payload["details"] = gin.H{"image_id": imageID}
	}
	_ = peer.send(Envelope{Type: "error", Payload: payload})
}
