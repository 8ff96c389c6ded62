package events

import (
	"time"

	"github.com/google/uuid"
)

// Action names understood by the external spreadsheet API.
const (
	ActionCreateLoan        = "CREATE_LOAN"
	ActionUpdateLoan        = "UPDATE_LOAN"
	ActionDeleteLoan        = "DELETE_LOAN"
	ActionCreateTransaction = "CREATE_TRANSACTION"
	ActionUpdateTransaction = "UPDATE_TRANSACTION"
	ActionDeleteTransaction = "DELETE_TRANSACTION"
)

func AllActions() []string {
	return []string{
		ActionCreateLoan,
		ActionUpdateLoan,
		ActionDeleteLoan,
		ActionCreateTransaction,
		ActionUpdateTransaction,
		ActionDeleteTransaction,
	}
}

func IsDelete(action string) bool {
	return action == ActionDeleteLoan || action == ActionDeleteTransaction
}

func IsLoanAction(action string) bool {
	return action == ActionCreateLoan || action == ActionUpdateLoan || action == ActionDeleteLoan
}

// DeletePayload is what deletes send instead of a full record.
type DeletePayload struct {
	ID string `json:"id"`
}

// ChangeEvent announces a local mutation that has already been applied.
// Record holds a copy of the loan or transaction; deletes carry only the id.
type ChangeEvent struct {
	BaseEvent
	Action   string      `json:"action"`
	EntityID string      `json:"entity_id"`
	Record   interface{} `json:"-"`
}

func NewChangeEvent(action, entityID string, record interface{}) *ChangeEvent {
	return &ChangeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      action,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"action":    action,
				"entity_id": entityID,
			},
		},
		Action:   action,
		EntityID: entityID,
		Record:   record,
	}
}

// Payload is the body sent to sinks: the record, or {"id": …} for deletes.
func (e *ChangeEvent) Payload() interface{} {
	if IsDelete(e.Action) || e.Record == nil {
		return DeletePayload{ID: e.EntityID}
	}
	return e.Record
}
