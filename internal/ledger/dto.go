package ledger

import (
	errors "github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/common/validation"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/calendar"
	"github.com/frahmantamala/rt-lending/internal/core/datamodel/cashflow"
	"github.com/frahmantamala/rt-lending/internal/finance"
)

// AddTransactionDTO is a manually entered row. Loan rows are produced by
// transitions and cannot be added here.
type AddTransactionDTO struct {
	Date        calendar.Date     `json:"date" validate:"required"`
	Description string            `json:"description" validate:"required,max=500"`
	Amount      int64             `json:"amount" validate:"gt=0"`
	Type        cashflow.Type     `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    cashflow.Category `json:"category,omitempty" validate:"omitempty,oneof=MANUAL INITIAL_BALANCE"`
}

func (dto AddTransactionDTO) Validate() *errors.AppError {
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}
	result := validation.Merge(
		validation.ValidateDescription(dto.Description),
		validation.ValidateAmount("amount", dto.Amount),
	)
	if result != nil {
		return result
	}
	if dto.Category == cashflow.CategoryInitialBalance && dto.Type != cashflow.TypeIncome {
		return errors.NewValidationFieldError("type", "initial balance must be INCOME", errors.ErrCodeInvalidType)
	}
	return nil
}

// EditTransactionDTO patches description, amount and date. Type, category
// and loan link are fixed once a row exists.
type EditTransactionDTO struct {
	Description *string        `json:"description,omitempty" validate:"omitempty,max=500"`
	Amount      *int64         `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Date        *calendar.Date `json:"date,omitempty"`
}

func (dto EditTransactionDTO) Validate() *errors.AppError {
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}
	var results []*errors.AppError
	if dto.Description != nil {
		results = append(results, validation.ValidateDescription(*dto.Description))
	}
	if dto.Amount != nil {
		results = append(results, validation.ValidateAmount("amount", *dto.Amount))
	}
	if dto.Date != nil {
		results = append(results, validation.ValidateDate("date", *dto.Date))
	}
	return validation.Merge(results...)
}

func (dto EditTransactionDTO) IsEmpty() bool {
	return dto.Description == nil && dto.Amount == nil && dto.Date == nil
}

type InitialBalanceDTO struct {
	Amount int64         `json:"amount" validate:"gt=0"`
	Date   calendar.Date `json:"date" validate:"required"`
}

func (dto InitialBalanceDTO) Validate() *errors.AppError {
	return validation.ValidateStruct(dto)
}

// Filter narrows a ledger listing. Zero values match everything.
type Filter struct {
	Type     cashflow.Type
	Category cashflow.Category
	Year     int
	LoanID   string
}

type SummaryResponse struct {
	finance.CashSummary
	Years []int `json:"years"`
}
