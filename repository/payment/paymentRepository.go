package paymentrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/NataliiaPodoroha/library-service/model"
)

// DetailRow carries the owning user id so services can scope access
// without a second query.
type DetailRow struct {
	model.Payment
	OwnerID int64 `json:"-"`
}

type Repo interface {
	InsertPending(ctx context.Context, tx *sql.Tx, borrowingID int64, ptype model.PaymentType, amount float64) (int64, error)
	SetSession(ctx context.Context, tx *sql.Tx, paymentID int64, sessionID, sessionURL string) error

	// PendingSessionURL returns "" when the borrowing has no unresolved payment.
	PendingSessionURL(ctx context.Context, tx *sql.Tx, borrowingID int64) (string, error)

	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	Detail(ctx context.Context, id int64) (*DetailRow, error)
	MarkPaid(ctx context.Context, id int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) InsertPending(ctx context.Context, tx *sql.Tx, borrowingID int64, ptype model.PaymentType, amount float64) (int64, error) {
	const q = `
INSERT INTO payments (borrowing_id, status, type, money_to_pay, session_id, session_url)
VALUES ($1,'PENDING',$2,$3,'','')
RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, borrowingID, ptype, amount).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) SetSession(ctx context.Context, tx *sql.Tx, paymentID int64, sessionID, sessionURL string) error {
	const q = `
UPDATE payments
SET session_id=$2, session_url=$3
WHERE id=$1`
	res, err := tx.ExecContext(ctx, q, paymentID, sessionID, sessionURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("payment not found")
	}
	return nil
}

func (r *repo) PendingSessionURL(ctx context.Context, tx *sql.Tx, borrowingID int64) (string, error) {
	const q = `
SELECT session_url
FROM payments
WHERE borrowing_id=$1 AND status='PENDING'
ORDER BY id
LIMIT 1`
	var url string
	err := tx.QueryRowContext(ctx, q, borrowingID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

func (r *repo) List(ctx context.Context, userID *int64) ([]model.Payment, error) {
	q := `
SELECT p.id, p.status, p.type, p.borrowing_id, p.session_url, p.session_id, p.money_to_pay
FROM payments p`
	args := []any{}
	if userID != nil {
		q += `
JOIN borrowings br ON br.id = p.borrowing_id
WHERE br.user_id = $1`
		args = append(args, *userID)
	}
	q += `
ORDER BY p.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Status, &p.Type, &p.BorrowingID, &p.SessionURL, &p.SessionID, &p.MoneyToPay); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*DetailRow, error) {
	const q = `
SELECT p.id, p.status, p.type, p.borrowing_id, p.session_url, p.session_id, p.money_to_pay,
       br.user_id
FROM payments p
JOIN borrowings br ON br.id = p.borrowing_id
WHERE p.id=$1`
	var d DetailRow
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Status, &d.Type, &d.BorrowingID, &d.SessionURL, &d.SessionID, &d.MoneyToPay,
		&d.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) MarkPaid(ctx context.Context, id int64) error {
	// Guarded: repeated confirmations are no-ops.
	const q = `
UPDATE payments
SET status='PAID'
WHERE id=$1 AND status='PENDING'`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
