package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records frames instead of writing to a socket
type fakeTransport struct {
	mu       sync.Mutex
	frames   []Envelope
	pings    int
	closed   bool
	writeErr error
}

func (f *fakeTransport) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, v.(Envelope))
	return nil
}

func (f *fakeTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) messageTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.frames))
	for i, frame := range f.frames {
		types[i] = frame.Type
	}
	return types
}

func newTestRegistry() *Registry {
	return NewRegistry(time.Second)
}

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	r := newTestRegistry()

	a := r.Register(&fakeTransport{})
	b := r.Register(&fakeTransport{})

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	conn := r.Register(&fakeTransport{})

	r.Unregister(conn.ID())
	r.Unregister(conn.ID())
	r.Unregister("no-such-id")

	assert.Equal(t, 0, r.Len())
}

func TestIdentityIsImmutable(t *testing.T) {
	r := newTestRegistry()
	conn := r.Register(&fakeTransport{})

	require.True(t, r.Authenticate(conn.ID(), Staff{UserID: 1, Role: "waiter"}))
	assert.False(t, r.Authenticate(conn.ID(), Staff{UserID: 2, Role: "admin"}))
	assert.False(t, r.Authenticate(conn.ID(), Customer{CustomerID: 9, TableID: 5}))
}

func TestCustomerAuthSetsTableAssociation(t *testing.T) {
	r := newTestRegistry()
	conn := r.Register(&fakeTransport{})

	require.True(t, r.Authenticate(conn.ID(), Customer{CustomerID: 9, TableID: 5}))

	tableID, ok := r.TableID(conn.ID())
	require.True(t, ok)
	assert.Equal(t, int64(5), tableID)
}

func TestJoinTableDoesNotGrantIdentity(t *testing.T) {
	r := newTestRegistry()
	conn := r.Register(&fakeTransport{})

	require.True(t, r.JoinTable(conn.ID(), 5))

	tableID, ok := r.TableID(conn.ID())
	require.True(t, ok)
	assert.Equal(t, int64(5), tableID)

	// a join does not burn the one-shot identity slot
	assert.True(t, r.Authenticate(conn.ID(), Customer{CustomerID: 9, TableID: 5}))
}

func TestHeartbeatEvictsSilentConnectionAfterFullInterval(t *testing.T) {
	r := newTestRegistry()
	liveTransport := &fakeTransport{}
	silentTransport := &fakeTransport{}
	live := r.Register(liveTransport)
	silent := r.Register(silentTransport)

	// first tick: both were alive on registration, so both survive, get
	// their flag cleared, and are pinged
	r.HeartbeatTick()
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, liveTransport.pings)
	assert.Equal(t, 1, silentTransport.pings)

	// only one peer pongs before the next tick
	r.MarkAlive(live.ID())

	r.HeartbeatTick()
	assert.Equal(t, 1, r.Len())
	assert.True(t, silentTransport.closed)

	// the evicted connection receives no further broadcasts
	router := NewRouter(r)
	attempted, delivered := router.Broadcast(TargetAll(), MsgTableUpdated, nil)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, silentTransport.messageTypes())
	assert.Equal(t, []string{MsgTableUpdated}, liveTransport.messageTypes())
	_ = silent
}

func TestSendFailureLeavesConnectionRegistered(t *testing.T) {
	r := newTestRegistry()
	transport := &fakeTransport{writeErr: errors.New("broken pipe")}
	conn := r.Register(transport)

	ok := r.Send(conn, Envelope{Type: MsgConnected})
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestCloseAllEmptiesRegistry(t *testing.T) {
	r := newTestRegistry()
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}
	r.Register(t1)
	r.Register(t2)

	r.CloseAll()

	assert.Equal(t, 0, r.Len())
	assert.True(t, t1.closed)
	assert.True(t, t2.closed)
}
