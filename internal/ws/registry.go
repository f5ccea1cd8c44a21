package ws

import (
	"context"
	"sync"
	"time"

	"github.com/mrcolv86/bierserv/internal/util"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Transport is the subset of *websocket.Conn the registry writes to.
// Narrowed to an interface so the registry and router are testable with
// fake sockets.
type Transport interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Connection is a live socket tracked by the registry. All mutable state is
// guarded by the registry's lock; the write mutex serializes frames on the
// underlying socket.
type Connection struct {
	id        string
	transport Transport

	writeMu sync.Mutex

	// guarded by Registry.mu
	identity Identity
	tableID  *int64
	alive    bool
}

// ID returns the connection's opaque id
func (c *Connection) ID() string {
	return c.id
}

// Registry maintains the set of live connections and detects dead ones via
// the heartbeat cycle: every tick, a connection that has not ponged since
// the previous tick is closed and removed; survivors have their liveness
// flag cleared and receive a fresh ping.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]*Connection
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewRegistry creates an empty connection registry
func NewRegistry(sendTimeout time.Duration) *Registry {
	return &Registry{
		conns:       make(map[string]*Connection),
		sendTimeout: sendTimeout,
		logger:      util.GetLogger(),
	}
}

// Register adds a live connection and assigns it an opaque id
func (r *Registry) Register(transport Transport) *Connection {
	conn := &Connection{
		id:        uuid.New().String(),
		transport: transport,
		alive:     true,
	}

	r.mu.Lock()
	r.conns[conn.id] = conn
	count := len(r.conns)
	r.mu.Unlock()

	util.WSConnectionsActive.Set(float64(count))
	r.logger.Debug("Connection registered", zap.String("conn_id", conn.id))
	return conn
}

// Unregister removes a connection. Idempotent: unknown ids are a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	count := len(r.conns)
	r.mu.Unlock()

	if ok {
		util.WSConnectionsActive.Set(float64(count))
		r.logger.Debug("Connection unregistered", zap.String("conn_id", id))
	}
}

// MarkAlive records a pong from the peer, keeping the connection through
// the next heartbeat tick.
func (r *Registry) MarkAlive(id string) {
	r.mu.Lock()
	if conn, ok := r.conns[id]; ok {
		conn.alive = true
	}
	r.mu.Unlock()
}

// Authenticate attaches an identity to a connection. The first identity
// wins; later attempts are rejected so a session cannot re-authenticate
// mid-lifetime. A Customer identity also sets the table association.
func (r *Registry) Authenticate(id string, ident Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok || conn.identity != nil {
		return false
	}

	conn.identity = ident
	if customer, ok := ident.(Customer); ok {
		tableID := customer.TableID
		conn.tableID = &tableID
	}
	return true
}

// JoinTable sets only the table association. It does not grant customer
// identity: connections that merely joined a table receive table-scoped
// broadcasts but are excluded from authenticated-customer pushes.
func (r *Registry) JoinTable(id string, tableID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return false
	}

	conn.tableID = &tableID
	return true
}

// TableID returns the connection's table association, if any
func (r *Registry) TableID(id string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok || conn.tableID == nil {
		return 0, false
	}
	return *conn.tableID, true
}

// Send delivers a message to a single connection. Transport failures are
// swallowed: the connection stays registered and is reaped by the next
// heartbeat tick if it is actually gone.
func (r *Registry) Send(conn *Connection, msg Envelope) bool {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()

	if wc, ok := conn.transport.(*websocket.Conn); ok {
		_ = wc.SetWriteDeadline(time.Now().Add(r.sendTimeout))
	}

	if err := conn.transport.WriteJSON(msg); err != nil {
		util.WSSendFailuresTotal.Inc()
		r.logger.Warn("WebSocket send failed",
			zap.String("conn_id", conn.id),
			zap.String("msg_type", msg.Type),
			zap.Error(err))
		return false
	}
	return true
}

// SendTo delivers a message to the connection with the given id
func (r *Registry) SendTo(id string, msg Envelope) bool {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	return r.Send(conn, msg)
}

// forEach invokes fn for every live connection under the read lock with a
// snapshot of its mutable state. The router reads membership only through
// this; it never touches the map itself.
func (r *Registry) forEach(fn func(conn *Connection, ident Identity, tableID *int64)) {
	r.mu.RLock()
	snapshot := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		snapshot = append(snapshot, conn)
	}
	r.mu.RUnlock()

	for _, conn := range snapshot {
		r.mu.RLock()
		ident := conn.identity
		tableID := conn.tableID
		r.mu.RUnlock()
		fn(conn, ident, tableID)
	}
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// HeartbeatTick runs one liveness cycle. Connections that did not pong
// since the previous tick missed a full interval and are closed and
// removed; the rest have their flag cleared and are pinged again.
func (r *Registry) HeartbeatTick() {
	r.mu.Lock()
	var dead []*Connection
	var live []*Connection
	for _, conn := range r.conns {
		if !conn.alive {
			dead = append(dead, conn)
			delete(r.conns, conn.id)
			continue
		}
		conn.alive = false
		live = append(live, conn)
	}
	count := len(r.conns)
	r.mu.Unlock()

	for _, conn := range dead {
		_ = conn.transport.Close()
		util.WSHeartbeatEvictionsTotal.Inc()
		r.logger.Info("Connection evicted by heartbeat", zap.String("conn_id", conn.id))
	}
	if len(dead) > 0 {
		util.WSConnectionsActive.Set(float64(count))
	}

	deadline := time.Now().Add(r.sendTimeout)
	for _, conn := range live {
		conn.writeMu.Lock()
		err := conn.transport.WriteControl(websocket.PingMessage, nil, deadline)
		conn.writeMu.Unlock()
		if err != nil {
			// leave it for the next tick
			r.logger.Debug("Ping failed", zap.String("conn_id", conn.id), zap.Error(err))
		}
	}
}

// RunHeartbeat ticks the liveness cycle at the given interval until the
// context is cancelled.
func (r *Registry) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.HeartbeatTick()
		}
	}
}

// CloseAll closes every connection and empties the registry. Used on
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.transport.Close()
	}
	util.WSConnectionsActive.Set(0)
}
