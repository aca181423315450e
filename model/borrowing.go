// model/borrowing.go
package model

import "time"

// Borrowing is active while ActualReturnDate is nil.
type Borrowing struct {
	ID                 int64      `json:"id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	BookID             int64      `json:"book_id"`
	UserID             int64      `json:"user_id"`
}
