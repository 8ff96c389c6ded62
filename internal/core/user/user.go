package user

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleRT      Role = "RT"
	RoleNasabah Role = "NASABAH"
)

const (
	PermissionManageLoans    = "manage_loans"
	PermissionApproveLoans   = "approve_loans"
	PermissionRejectLoans    = "reject_loans"
	PermissionReceivePayment = "receive_payment"
	PermissionConfirmPayment = "confirm_payment"
	PermissionManageCash     = "manage_cash"
	PermissionViewLedger     = "view_ledger"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermissionManageLoans,
		PermissionReceivePayment,
		PermissionManageCash,
		PermissionViewLedger,
	},
	RoleRT: {
		PermissionApproveLoans,
		PermissionRejectLoans,
		PermissionConfirmPayment,
		PermissionViewLedger,
	},
	RoleNasabah: {},
}

func ParseRole(v string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := rolePermissions[r]; !ok {
		return "", fmt.Errorf("unknown role %q", v)
	}
	return r, nil
}

func (r Role) Permissions() []string {
	return rolePermissions[r]
}

func (r Role) HasPermission(permission string) bool {
	for _, p := range rolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}

// Actor is whoever is calling. Name is only meaningful for borrowers, whose
// view is filtered by it.
type Actor struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

func (a Actor) HasPermission(permission string) bool {
	return a.Role.HasPermission(permission)
}

func (a Actor) HasAnyPermission(permissions ...string) bool {
	for _, p := range permissions {
		if a.Role.HasPermission(p) {
			return true
		}
	}
	return false
}
