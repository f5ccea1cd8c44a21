package models

import "time"

// User represents a staff member
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Staff roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleWaiter  = "waiter"
	RoleKitchen = "kitchen"
)

// Customer represents a customer session started from a table QR code
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name,omitempty"`
	TableID   *int64    `db:"table_id" json:"table_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category groups products on the menu
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	SortOrder   int    `db:"sort_order" json:"sort_order"`
}

// Product represents a menu item
type Product struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	Available   bool      `db:"available" json:"available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProductVariation is a priced variant of a product (e.g. 300ml / 500ml pour)
type ProductVariation struct {
	ID        int64   `db:"id" json:"id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	Price     float64 `db:"price" json:"price"`
}

// Table represents a physical table in the venue
type Table struct {
	ID              int64      `db:"id" json:"id"`
	Number          int        `db:"number" json:"number"`
	Status          string     `db:"status" json:"status"`
	OccupiedSince   *time.Time `db:"occupied_since" json:"occupied_since,omitempty"`
	ReservationTime *time.Time `db:"reservation_time" json:"reservation_time,omitempty"`
}

// Table statuses
const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
	TableStatusReserved = "reserved"
)

// Order represents a customer order placed against a table
type Order struct {
	ID          int64     `db:"id" json:"id"`
	TableID     int64     `db:"table_id" json:"table_id"`
	Status      string    `db:"status" json:"status"`
	TotalAmount float64   `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusNew       = "new"
	OrderStatusPreparing = "preparing"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// IsTerminalStatus reports whether an order in the given status no longer
// counts toward table occupancy.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// OrderItem represents a line item in an order. UnitPrice is a snapshot of
// the product (or variation) price at the time the item was added.
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	VariationID *int64  `db:"variation_id" json:"variation_id,omitempty"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Notes       string  `db:"notes" json:"notes,omitempty"`
}

// Notification is a write-once record mirrored to live connections at
// creation time. A nil RecipientID means broadcast.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID *int64    `db:"recipient_id" json:"recipient_id,omitempty"`
	Message     string    `db:"message" json:"message"`
	Type        string    `db:"type" json:"type"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Notification types
const (
	NotificationTypeOrder         = "order"
	NotificationTypeWaiterRequest = "waiter_request"
	NotificationTypePromotion     = "promotion"
)

// Review is customer feedback left after an order
type Review struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Setting is a key/value configuration row for the dashboard
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DailySales is an aggregate row maintained by the reporting worker
type DailySales struct {
	Day         time.Time `db:"day" json:"day"`
	OrderCount  int       `db:"order_count" json:"order_count"`
	TotalAmount float64   `db:"total_amount" json:"total_amount"`
}
