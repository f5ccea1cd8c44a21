package ws

import (
	"fmt"

	"github.com/mrcolv86/bierserv/internal/util"

	"go.uber.org/zap"
)

type targetKind int

const (
	targetAll targetKind = iota
	targetRole
	targetTable
	targetCustomersAtTable
)

// Target selects the audience for a broadcast. Callers pick the target
// explicitly; the router never infers it.
type Target struct {
	kind    targetKind
	role    string
	tableID int64
}

// TargetAll addresses every live connection regardless of identity
func TargetAll() Target {
	return Target{kind: targetAll}
}

// TargetRole addresses staff connections whose role matches exactly. There
// is no role hierarchy: callers wanting several roles issue several
// broadcasts.
func TargetRole(role string) Target {
	return Target{kind: targetRole, role: role}
}

// TargetTable addresses every connection associated with the table,
// whether staff, customer, or anonymous.
func TargetTable(tableID int64) Target {
	return Target{kind: targetTable, tableID: tableID}
}

// TargetCustomersAtTable addresses the strict subset of TargetTable that
// also carries an authenticated customer identity. Used for personalized
// order-status pushes only, never for staff-facing alerts.
func TargetCustomersAtTable(tableID int64) Target {
	return Target{kind: targetCustomersAtTable, tableID: tableID}
}

func (t Target) String() string {
	switch t.kind {
	case targetRole:
		return fmt.Sprintf("role:%s", t.role)
	case targetTable:
		return fmt.Sprintf("table:%d", t.tableID)
	case targetCustomersAtTable:
		return fmt.Sprintf("customers_at_table:%d", t.tableID)
	default:
		return "all"
	}
}

func (t Target) label() string {
	switch t.kind {
	case targetRole:
		return "role"
	case targetTable:
		return "table"
	case targetCustomersAtTable:
		return "customers_at_table"
	default:
		return "all"
	}
}

func (t Target) matches(ident Identity, tableID *int64) bool {
	switch t.kind {
	case targetAll:
		return true
	case targetRole:
		staff, ok := ident.(Staff)
		return ok && staff.Role == t.role
	case targetTable:
		return tableID != nil && *tableID == t.tableID
	case targetCustomersAtTable:
		customer, ok := ident.(Customer)
		return ok && customer.TableID == t.tableID
	default:
		return false
	}
}

// Router fans out typed events to the audience selected by a Target. It
// reads connection membership through the registry only.
type Router struct {
	registry *Registry
	logger   *zap.Logger
}

// NewRouter creates a broadcast router over the given registry
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		logger:   util.GetLogger(),
	}
}

// Broadcast sends the event to every matching live connection. Individual
// send failures never abort the fan-out; the returned counts are for
// logging, not retries. Connections that are not live at broadcast time
// never receive the event.
func (r *Router) Broadcast(target Target, msgType string, data interface{}) (attempted, delivered int) {
	msg := Envelope{Type: msgType, Data: data}

	r.registry.forEach(func(conn *Connection, ident Identity, tableID *int64) {
		if !target.matches(ident, tableID) {
			return
		}
		attempted++
		if r.registry.Send(conn, msg) {
			delivered++
		}
	})

	util.WSBroadcastsTotal.WithLabelValues(target.label(), msgType).Inc()
	r.logger.Debug("Broadcast dispatched",
		zap.String("target", target.String()),
		zap.String("msg_type", msgType),
		zap.Int("attempted", attempted),
		zap.Int("delivered", delivered))

	return attempted, delivered
}
