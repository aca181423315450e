// model/payment.go
package model

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

type Payment struct {
	ID          int64         `json:"id"`
	Status      PaymentStatus `json:"status"`
	Type        PaymentType   `json:"type"`
	BorrowingID int64         `json:"borrowing_id"`
	SessionURL  string        `json:"session_url"`
	SessionID   string        `json:"session_id"`
	MoneyToPay  float64       `json:"money_to_pay"`
}
