package ws

// Identity is the classification attached to a connection by its first
// successful auth message. Once set it is immutable for the connection's
// lifetime. A nil Identity means the connection is unauthenticated; such a
// connection may still carry a table association from JOIN_TABLE, which is
// deliberately weaker than customer identity.
type Identity interface {
	identity()
}

// Staff identifies a staff connection by user and role
type Staff struct {
	UserID int64
	Role   string
}

// Customer identifies an authenticated customer at a table
type Customer struct {
	CustomerID int64
	TableID    int64
}

func (Staff) identity()    {}
func (Customer) identity() {}
