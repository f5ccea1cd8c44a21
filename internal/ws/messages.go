package ws

import "encoding/json"

// Inbound message types
const (
	MsgAuth         = "AUTH"
	MsgCustomerAuth = "CUSTOMER_AUTH"
	MsgJoinTable    = "JOIN_TABLE"
	MsgCallWaiter   = "CALL_WAITER"
)

// Outbound message types
const (
	MsgConnected             = "CONNECTED"
	MsgAuthConfirmed         = "AUTH_CONFIRMED"
	MsgCustomerAuthConfirmed = "CUSTOMER_AUTH_CONFIRMED"
	MsgTableJoined           = "TABLE_JOINED"
	MsgNewOrder              = "NEW_ORDER"
	MsgOrderUpdated          = "ORDER_UPDATED"
	MsgTableUpdated          = "TABLE_UPDATED"
	MsgWaiterCalled          = "WAITER_CALLED"
	MsgDeliveryReady         = "DELIVERY_READY"
	MsgOrderStatusUpdate     = "ORDER_STATUS_UPDATE"
	MsgNewNotification       = "NEW_NOTIFICATION"
)

// Envelope is the flat wire frame: a type discriminator plus a free-form
// payload. Schema evolution is additive-only.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inboundFrame defers payload decoding until the type is known
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type authPayload struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type customerAuthPayload struct {
	CustomerID int64 `json:"customer_id"`
	TableID    int64 `json:"table_id"`
}

type joinTablePayload struct {
	TableID int64 `json:"table_id"`
}

type callWaiterPayload struct {
	TableID *int64 `json:"table_id"`
}
