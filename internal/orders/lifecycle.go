package orders

import (
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

// transitions is the forward graph every non-admin change must follow.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusApproved, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusApproved:  {enums.OrderStatusPreparing, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusReady},
	enums.OrderStatusReady:     {enums.OrderStatusShipped, enums.OrderStatusDelivered},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
}

// roleTargets is the single role × target-status authorization table. Admin is absent
// because it may set any status; accountant is present with no targets because it only
// advances orders through payment confirmation.
var roleTargets = map[enums.Role]map[enums.OrderStatus]bool{
	enums.RoleVendor: {
		enums.OrderStatusApproved:  true,
		enums.OrderStatusRejected:  true,
		enums.OrderStatusDelivered: true,
	},
	enums.RoleWarehouse: {
		enums.OrderStatusPreparing: true,
		enums.OrderStatusReady:     true,
		enums.OrderStatusShipped:   true,
	},
	enums.RoleAccountant: {},
	enums.RoleCustomer: {
		enums.OrderStatusCancelled: true,
	},
}

// CanSet reports whether role may request target at all, ignoring the current status.
func CanSet(role enums.Role, target enums.OrderStatus) bool {
	if role == enums.RoleAdmin {
		return target.IsValid()
	}
	return roleTargets[role][target]
}

func isEdge(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Authorize validates moving an order from -> to on behalf of role. Callers handle from == to.
func Authorize(role enums.Role, from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", to)
	}
	if !CanSet(role, to) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot set status %s", role, to).
			WithDetails(map[string]any{"role": role, "target": to})
	}
	if from.IsTerminal() {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and can no longer change", from).
			WithDetails(map[string]any{"from": from, "to": to})
	}
	if to == enums.OrderStatusCancelled && !isEdge(from, to) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot be cancelled once %s", from).
			WithDetails(map[string]any{"from": from, "to": to})
	}
	if role != enums.RoleAdmin && !isEdge(from, to) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, to).
			WithDetails(map[string]any{"from": from, "to": to})
	}
	return nil
}
