package user

import (
	coreUser "github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/loan"
)

// CurrentUserResponse describes the caller and the work waiting for them.
type CurrentUserResponse struct {
	Role        coreUser.Role `json:"role"`
	Name        string        `json:"name,omitempty"`
	Permissions []string      `json:"permissions"`
	// Pending counts loans waiting on an action this role can take.
	Pending int `json:"pending"`
}

func NewCurrentUserResponse(actor coreUser.Actor, counts loan.Counts) CurrentUserResponse {
	perms := actor.Role.Permissions()
	if perms == nil {
		perms = []string{}
	}

	pending := 0
	if actor.HasPermission(coreUser.PermissionApproveLoans) {
		pending += counts.Pending
	}
	if actor.HasPermission(coreUser.PermissionConfirmPayment) {
		pending += counts.Verifying
	}
	if actor.HasPermission(coreUser.PermissionReceivePayment) {
		pending += counts.Active
	}

	return CurrentUserResponse{
		Role:        actor.Role,
		Name:        actor.Name,
		Permissions: perms,
		Pending:     pending,
	}
}
