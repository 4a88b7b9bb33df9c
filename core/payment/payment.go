package payment

import "errors"

var ErrAlreadyPaid = errors.New("order is already paid")

type IntentNew struct {
	OrderID string `json:"orderId" validate:"required,uuid4"`
}

type ConfirmNew struct {
	OrderID       string `json:"orderId" validate:"required,uuid4"`
	TransactionID string `json:"transactionId" validate:"required"`
}

// Intent is the caller-facing view of a payment reference. The core does
// not interpret processor fields beyond succeeded-or-not.
type Intent struct {
	TransactionID string `json:"transactionId"`
	ClientSecret  string `json:"clientSecret,omitempty"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}
