package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NataliiaPodoroha/library-service/model"
	borrowingrepo "github.com/NataliiaPodoroha/library-service/repository/borrowing"
	striperepo "github.com/NataliiaPodoroha/library-service/repository/stripe"
)

// FineMultiplier scales the daily fee for overdue days.
const FineMultiplier = 2

// errors used by controllers

type ErrCode string

const (
	ErrOutOfStock      ErrCode = "OUT_OF_STOCK"
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrBadDate         ErrCode = "BAD_DATE"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type Created struct {
	BorrowingID int64
	PaymentID   int64
	SessionURL  string
	MoneyToPay  float64
}

type Returned struct {
	// RedirectURL is set instead of returning when an unresolved
	// payment blocks the return.
	RedirectURL string
	FineID      int64
	FineAmount  float64
}

type ListQuery struct {
	IsActive *bool
	UserID   *int64 // staff only
}

type ListRow = borrowingrepo.ListRow
type DetailRow = borrowingrepo.DetailRow

// Tx runs fn inside one transaction with rollback on error.
type Tx interface {
	Do(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo interface {
	GetBookForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Book, error)
	AdjustInventory(ctx context.Context, tx *sql.Tx, bookID int64, delta int64) error

	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, expected time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returned time.Time) error

	List(ctx context.Context, f borrowingrepo.ListFilter) ([]ListRow, error)
	Detail(ctx context.Context, id int64) (*DetailRow, error)
}

type Payments interface {
	InsertPending(ctx context.Context, tx *sql.Tx, borrowingID int64, ptype model.PaymentType, amount float64) (int64, error)
	SetSession(ctx context.Context, tx *sql.Tx, paymentID int64, sessionID, sessionURL string) error
	PendingSessionURL(ctx context.Context, tx *sql.Tx, borrowingID int64) (string, error)
}

type Gateway interface {
	CreateSession(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error)
}

type Service interface {
	// Create: borrow a book, decrement inventory and open a checkout
	// session for the borrowing price.
	Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error)

	// Return: close the borrowing once, restock the book and fine
	// overdue returns.
	Return(ctx context.Context, actorID int64, isStaff bool, borrowingID int64) (*Returned, error)

	List(ctx context.Context, callerID int64, isStaff bool, q ListQuery) ([]ListRow, error)
	Detail(ctx context.Context, callerID int64, isStaff bool, id int64) (*DetailRow, error)
}

// ----- Service implementation -----

type service struct {
	tx      Tx
	r       Repo
	p       Payments
	g       Gateway
	baseURL string
	now     func() time.Time
}

func New(tx Tx, r Repo, p Payments, g Gateway, baseURL string) Service {
	return &service{tx: tx, r: r, p: p, g: g, baseURL: baseURL, now: time.Now}
}

// Create borrows one copy and opens a PAYMENT checkout session. The
// gateway call runs inside the transaction so a gateway failure leaves
// no borrowing, no inventory change and no payment row behind.
func (s *service) Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error) {
	today := dateOnly(s.now())
	expectedReturn = dateOnly(expectedReturn)
	if expectedReturn.Before(today) {
		return nil, makeErr(ErrBadDate)
	}

	var out Created
	err := s.tx.Do(ctx, func(tx *sql.Tx) error {
		book, err := s.r.GetBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}
		if book.Inventory <= 0 {
			return makeErr(ErrOutOfStock)
		}

		borrowingID, err := s.r.Insert(ctx, tx, userID, bookID, today, expectedReturn)
		if err != nil {
			return err
		}
		if err := s.r.AdjustInventory(ctx, tx, bookID, -1); err != nil {
			return err
		}

		// Price covers every calendar day from borrow to expected
		// return, both ends included.
		price := book.DailyFee * float64(daysBetween(today, expectedReturn)+1)

		paymentID, sessionURL, err := s.openSession(ctx, tx, borrowingID, model.TypePayment, book.Title, price)
		if err != nil {
			return err
		}

		out = Created{
			BorrowingID: borrowingID,
			PaymentID:   paymentID,
			SessionURL:  sessionURL,
			MoneyToPay:  price,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Return(ctx context.Context, actorID int64, isStaff bool, borrowingID int64) (*Returned, error) {
	var out Returned
	err := s.tx.Do(ctx, func(tx *sql.Tx) error {
		b, err := s.r.GetForUpdate(ctx, tx, borrowingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if !isStaff && b.UserID != actorID {
			return makeErr(ErrNotOwner)
		}
		if b.ActualReturnDate != nil {
			return makeErr(ErrAlreadyReturned)
		}

		// An unsettled payment blocks the return; the caller is sent
		// back to its checkout session.
		pendingURL, err := s.p.PendingSessionURL(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if pendingURL != "" {
			out.RedirectURL = pendingURL
			return nil
		}

		book, err := s.r.GetBookForUpdate(ctx, tx, b.BookID)
		if err != nil {
			return err
		}

		today := dateOnly(s.now())
		if err := s.r.MarkReturned(ctx, tx, b.ID, today); err != nil {
			return err
		}
		if err := s.r.AdjustInventory(ctx, tx, b.BookID, +1); err != nil {
			return err
		}

		if today.After(dateOnly(b.ExpectedReturnDate)) {
			overdue := daysBetween(dateOnly(b.ExpectedReturnDate), today)
			fine := float64(overdue) * book.DailyFee * FineMultiplier

			fineID, _, err := s.openSession(ctx, tx, b.ID, model.TypeFine, book.Title, fine)
			if err != nil {
				return err
			}
			out.FineID = fineID
			out.FineAmount = fine
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) List(ctx context.Context, callerID int64, isStaff bool, q ListQuery) ([]ListRow, error) {
	f := borrowingrepo.ListFilter{IsActive: q.IsActive}
	if isStaff {
		f.UserID = q.UserID
	} else {
		f.UserID = &callerID
	}
	return s.r.List(ctx, f)
}

func (s *service) Detail(ctx context.Context, callerID int64, isStaff bool, id int64) (*DetailRow, error) {
	d, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	// Non-staff callers only see their own rows.
	if !isStaff && d.UserID != callerID {
		return nil, makeErr(ErrNotFound)
	}
	return d, nil
}

// openSession inserts the PENDING payment row first so its detail URL
// exists, then attaches the gateway session to it.
func (s *service) openSession(ctx context.Context, tx *sql.Tx, borrowingID int64, ptype model.PaymentType, title string, amount float64) (int64, string, error) {
	paymentID, err := s.p.InsertPending(ctx, tx, borrowingID, ptype, amount)
	if err != nil {
		return 0, "", err
	}

	name := fmt.Sprintf("Payment for %q", title)
	if ptype == model.TypeFine {
		name = fmt.Sprintf("Overdue fine for %q", title)
	}
	sess, err := s.g.CreateSession(ctx, striperepo.CreateSessionReq{
		Name:        name,
		AmountMinor: int64(math.Round(amount * 100)),
		Currency:    "usd",
		SuccessURL:  fmt.Sprintf("%s/v1/payments/%d/success", s.baseURL, paymentID),
		CancelURL:   fmt.Sprintf("%s/v1/payments/%d/cancel", s.baseURL, paymentID),
	})
	if err != nil {
		return 0, "", fmt.Errorf("payment gateway: %w", err)
	}
	if err := s.p.SetSession(ctx, tx, paymentID, sess.SessionID, sess.SessionURL); err != nil {
		return 0, "", err
	}
	return paymentID, sess.SessionURL, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
