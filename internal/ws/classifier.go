package ws

import (
	"context"
	"encoding/json"

	"github.com/mrcolv86/bierserv/internal/util"

	"go.uber.org/zap"
)

// WaiterCaller handles a resolved waiter request. Implemented by the order
// lifecycle service; the classifier only triggers it.
type WaiterCaller interface {
	HandleWaiterCall(ctx context.Context, tableID int64) error
}

// Classifier interprets the small fixed vocabulary of inbound control
// messages and attaches identity to connections. Unrecognized message types
// and malformed payloads are swallowed: the connection keeps its prior
// state and never receives an error frame.
type Classifier struct {
	registry     *Registry
	waiterCaller WaiterCaller
	logger       *zap.Logger
}

// NewClassifier creates a session classifier over the registry
func NewClassifier(registry *Registry, waiterCaller WaiterCaller) *Classifier {
	return &Classifier{
		registry:     registry,
		waiterCaller: waiterCaller,
		logger:       util.GetLogger(),
	}
}

// HandleMessage processes one inbound frame from a connection
func (c *Classifier) HandleMessage(ctx context.Context, conn *Connection, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Debug("Dropping unparseable frame", zap.String("conn_id", conn.ID()))
		return
	}

	switch frame.Type {
	case MsgAuth:
		c.handleStaffAuth(conn, frame.Data)
	case MsgCustomerAuth:
		c.handleCustomerAuth(conn, frame.Data)
	case MsgJoinTable:
		c.handleJoinTable(conn, frame.Data)
	case MsgCallWaiter:
		c.handleCallWaiter(ctx, conn, frame.Data)
	default:
		c.logger.Debug("Ignoring unknown message type",
			zap.String("conn_id", conn.ID()),
			zap.String("msg_type", frame.Type))
	}
}

func (c *Classifier) handleStaffAuth(conn *Connection, data json.RawMessage) {
	var payload authPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == 0 || payload.Role == "" {
		return
	}

	if !c.registry.Authenticate(conn.ID(), Staff{UserID: payload.UserID, Role: payload.Role}) {
		return
	}

	c.registry.Send(conn, Envelope{Type: MsgAuthConfirmed, Data: map[string]interface{}{
		"user_id": payload.UserID,
		"role":    payload.Role,
	}})
	c.logger.Info("Staff connection authenticated",
		zap.String("conn_id", conn.ID()),
		zap.Int64("user_id", payload.UserID),
		zap.String("role", payload.Role))
}

func (c *Classifier) handleCustomerAuth(conn *Connection, data json.RawMessage) {
	var payload customerAuthPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.CustomerID == 0 || payload.TableID == 0 {
		return
	}

	if !c.registry.Authenticate(conn.ID(), Customer{CustomerID: payload.CustomerID, TableID: payload.TableID}) {
		return
	}

	c.registry.Send(conn, Envelope{Type: MsgCustomerAuthConfirmed, Data: map[string]interface{}{
		"customer_id": payload.CustomerID,
		"table_id":    payload.TableID,
	}})
	c.logger.Info("Customer connection authenticated",
		zap.String("conn_id", conn.ID()),
		zap.Int64("customer_id", payload.CustomerID),
		zap.Int64("table_id", payload.TableID))
}

func (c *Classifier) handleJoinTable(conn *Connection, data json.RawMessage) {
	var payload joinTablePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.TableID == 0 {
		return
	}

	if !c.registry.JoinTable(conn.ID(), payload.TableID) {
		return
	}

	c.registry.Send(conn, Envelope{Type: MsgTableJoined, Data: map[string]interface{}{
		"table_id": payload.TableID,
	}})
}

// handleCallWaiter resolves the effective table (explicit payload first,
// then the connection's association) and forwards the call. It is an
// action trigger: connection state never changes.
func (c *Classifier) handleCallWaiter(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload callWaiterPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
	}

	tableID := int64(0)
	if payload.TableID != nil {
		tableID = *payload.TableID
	} else if id, ok := c.registry.TableID(conn.ID()); ok {
		tableID = id
	}
	if tableID == 0 {
		return
	}

	if err := c.waiterCaller.HandleWaiterCall(ctx, tableID); err != nil {
		c.logger.Warn("Waiter call failed",
			zap.String("conn_id", conn.ID()),
			zap.Int64("table_id", tableID),
			zap.Error(err))
	}
}
