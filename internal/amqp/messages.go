package amqp

import (
	"encoding/json"
	"time"

	"cashplan/internal/core"
)

// BillDueMessage announces an unpaid bill entering its due-soon window.
type BillDueMessage struct {
	BillID      string    `json:"bill_id"`
	Name        string    `json:"name"`
	Due         string    `json:"due"`
	AmountCents int64     `json:"amount_cents"`
	NeedCents   int64     `json:"need_cents"`
	DaysToDue   int       `json:"days_to_due"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBillDueMessage(billID, name string, due core.Date, amount, need core.Money, daysToDue int) *BillDueMessage {
	return &BillDueMessage{
		BillID:      billID,
		Name:        name,
		Due:         due.String(),
		AmountCents: amount.Cents,
		NeedCents:   need.Cents,
		DaysToDue:   daysToDue,
		Timestamp:   time.Now(),
	}
}

// DedupKey identifies one reminder per bill occurrence.
func (m *BillDueMessage) DedupKey() string {
	return m.BillID + "@" + m.Due
}

func (m *BillDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillDueMessageFromJSON(data []byte) (*BillDueMessage, error) {
	var msg BillDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
