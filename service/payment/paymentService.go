package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NataliiaPodoroha/library-service/model"
	paymentrepo "github.com/NataliiaPodoroha/library-service/repository/payment"
	striperepo "github.com/NataliiaPodoroha/library-service/repository/stripe"
)

var ErrNotFound = errors.New("payment not found")

type Repo interface {
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	Detail(ctx context.Context, id int64) (*paymentrepo.DetailRow, error)
	MarkPaid(ctx context.Context, id int64) error
}

type Gateway interface {
	RetrieveSession(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error)
}

type Service interface {
	List(ctx context.Context, callerID int64, isStaff bool) ([]model.Payment, error)
	Detail(ctx context.Context, callerID int64, isStaff bool, id int64) (*model.Payment, error)

	// ConfirmSuccess pulls the session state from the gateway and,
	// when the gateway reports it paid, flips the payment to PAID.
	// Safe to call repeatedly.
	ConfirmSuccess(ctx context.Context, callerID int64, isStaff bool, id int64) (*model.Payment, error)
}

type service struct {
	r Repo
	g Gateway
}

func New(r Repo, g Gateway) Service { return &service{r: r, g: g} }

func (s *service) List(ctx context.Context, callerID int64, isStaff bool) ([]model.Payment, error) {
	if isStaff {
		return s.r.List(ctx, nil)
	}
	return s.r.List(ctx, &callerID)
}

func (s *service) Detail(ctx context.Context, callerID int64, isStaff bool, id int64) (*model.Payment, error) {
	d, err := s.scopedDetail(ctx, callerID, isStaff, id)
	if err != nil {
		return nil, err
	}
	return &d.Payment, nil
}

func (s *service) ConfirmSuccess(ctx context.Context, callerID int64, isStaff bool, id int64) (*model.Payment, error) {
	d, err := s.scopedDetail(ctx, callerID, isStaff, id)
	if err != nil {
		return nil, err
	}
	if d.Status == model.PaymentPaid {
		return &d.Payment, nil
	}

	st, err := s.g.RetrieveSession(ctx, d.SessionID)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	if st.PaymentStatus == "paid" {
		if err := s.r.MarkPaid(ctx, d.ID); err != nil {
			return nil, err
		}
		d.Status = model.PaymentPaid
	}
	return &d.Payment, nil
}

func (s *service) scopedDetail(ctx context.Context, callerID int64, isStaff bool, id int64) (*paymentrepo.DetailRow, error) {
	d, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !isStaff && d.OwnerID != callerID {
		return nil, ErrNotFound
	}
	return d, nil
}
