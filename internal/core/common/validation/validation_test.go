package validation_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/common/validation"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

type sample struct {
	Name   string        `json:"borrowerName" validate:"required,max=5"`
	Amount int64         `json:"amount" validate:"gt=0"`
	Date   calendar.Date `json:"date" validate:"required"`
}

func fieldsOf(err *errors.AppError) []string {
	details, ok := err.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	out := make([]string, 0, len(details.Errors))
	for _, e := range details.Errors {
		out = append(out, e.Field)
	}
	return out
}

var _ = Describe("ValidateStruct", func() {
	It("passes a valid struct", func() {
		Expect(validation.ValidateStruct(sample{Name: "Budi", Amount: 1, Date: calendar.MustParse("2023-10-01")})).To(BeNil())
	})

	It("reports json field names with domain codes", func() {
		err := validation.ValidateStruct(sample{Name: "Budi Santoso"})
		Expect(err).NotTo(BeNil())
		Expect(err.StatusCode).To(Equal(400))
		Expect(fieldsOf(err)).To(ConsistOf("borrowerName", "amount", "date"))

		details := err.Details.(errors.ValidationErrors)
		codes := map[string]string{}
		for _, e := range details.Errors {
			codes[e.Field] = e.Code
		}
		Expect(codes["amount"]).To(Equal(string(errors.ErrCodeInvalidAmount)))
		Expect(codes["date"]).To(Equal(string(errors.ErrCodeInvalidDate)))
		Expect(codes["borrowerName"]).To(Equal(string(errors.ErrCodeInvalidBorrower)))
	})
})

var _ = Describe("field validators", func() {
	DescribeTable("ValidateAmount",
		func(amount int64, ok bool) {
			err := validation.ValidateAmount("amount", amount)
			if ok {
				Expect(err).To(BeNil())
			} else {
				Expect(err).NotTo(BeNil())
			}
		},
		Entry("positive", int64(1_000_000), true),
		Entry("one rupiah", int64(1), true),
		Entry("zero", int64(0), false),
		Entry("negative", int64(-500), false),
	)

	It("rejects a blank borrower name", func() {
		Expect(validation.ValidateBorrowerName("   ")).NotTo(BeNil())
		Expect(validation.ValidateBorrowerName("Siti Aminah")).To(BeNil())
	})

	It("requires a date", func() {
		Expect(validation.ValidateDate("date", calendar.Date{})).NotTo(BeNil())
		Expect(validation.ValidateDate("date", calendar.MustParse("2023-10-01"))).To(BeNil())
	})

	It("merges several failures into one error", func() {
		err := validation.Merge(
			validation.ValidateAmount("amount", 0),
			nil,
			validation.ValidateDescription(""),
		)
		Expect(err).NotTo(BeNil())
		Expect(fieldsOf(err)).To(ContainElements("amount", "description"))
	})

	It("returns nil when nothing failed", func() {
		Expect(validation.Merge(nil, nil)).To(BeNil())
	})
})
