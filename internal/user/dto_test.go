package user_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	coreUser "github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/user"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("NewCurrentUserResponse", func() {
	counts := loan.Counts{Pending: 2, Verifying: 1, Active: 4}

	It("counts approvals and confirmations for the RT", func() {
		resp := user.NewCurrentUserResponse(coreUser.Actor{Role: coreUser.RoleRT}, counts)
		Expect(resp.Pending).To(Equal(3))
		Expect(resp.Permissions).To(ContainElements(coreUser.PermissionApproveLoans, coreUser.PermissionConfirmPayment))
	})

	It("counts active loans awaiting payment for the admin", func() {
		resp := user.NewCurrentUserResponse(coreUser.Actor{Role: coreUser.RoleAdmin}, counts)
		Expect(resp.Pending).To(Equal(4))
	})

	It("gives a borrower nothing to act on", func() {
		resp := user.NewCurrentUserResponse(coreUser.Actor{Role: coreUser.RoleNasabah, Name: "Rina Wati"}, counts)
		Expect(resp.Pending).To(BeZero())
		Expect(resp.Permissions).NotTo(BeNil())
		Expect(resp.Permissions).To(BeEmpty())
		Expect(resp.Name).To(Equal("Rina Wati"))
	})
})
