package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reasons carried by FundChangedMessage.
const (
	ReasonFundCreated     = "fund_created"
	ReasonFundUpdated     = "fund_updated"
	ReasonPartnerAdded    = "partner_added"
	ReasonExpenseSaved    = "expense_saved"
	ReasonQuotationSaved  = "quotation_saved"
	ReasonWinnerChanged   = "winner_changed"
	ReasonAccountSaved    = "account_saved"
	ReasonCashInputStored = "cash_input_recorded"
)

// FundChangedMessage tells consumers that a fund's report is stale. It only
// names the fund; consumers reload it from the store.
type FundChangedMessage struct {
	MessageID string    `json:"message_id"`
	FundID    int64     `json:"fund_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFundChangedMessage(fundID int64, reason string) *FundChangedMessage {
	return &FundChangedMessage{
		MessageID: uuid.NewString(),
		FundID:    fundID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *FundChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FundChangedMessageFromJSON decodes a message and rejects one without a
// fund.
func FundChangedMessageFromJSON(data []byte) (*FundChangedMessage, error) {
	var msg FundChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.FundID <= 0 {
		return nil, errors.New("message has no fund_id")
	}
	return &msg, nil
}
