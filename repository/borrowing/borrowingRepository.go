// repository/borrowing/repo.go
package borrowingrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/NataliiaPodoroha/library-service/model"
)

type ListRow struct {
	ID                 int64      `json:"id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	BookTitle          string     `json:"book_title"`
	UserEmail          string     `json:"user_email"`
}

type DetailRow struct {
	model.Borrowing
	Book      model.Book `json:"book"`
	UserEmail string     `json:"user_email"`
}

type ListFilter struct {
	UserID   *int64
	IsActive *bool
}

type Repo interface {
	// Locked reads & inventory, used inside the borrow/return transaction.
	GetBookForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Book, error)
	AdjustInventory(ctx context.Context, tx *sql.Tx, bookID int64, delta int64) error

	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, expected time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returned time.Time) error

	List(ctx context.Context, f ListFilter) ([]ListRow, error)
	Detail(ctx context.Context, id int64) (*DetailRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) GetBookForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Book, error) {
	const q = `
		SELECT id, title, author, cover, inventory, daily_fee
		FROM books
		WHERE id = $1
		FOR UPDATE`
	var b model.Book
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) AdjustInventory(ctx context.Context, tx *sql.Tx, bookID int64, delta int64) error {
	// Guard: inventory never drops below zero.
	const q = `
		UPDATE books
		SET inventory = inventory + $2
		WHERE id = $1
		AND inventory + $2 >= 0`
	res, err := tx.ExecContext(ctx, q, bookID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, expected time.Time) (int64, error) {
	const q = `
		INSERT INTO borrowings (user_id, book_id, borrow_date, expected_return_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, bookID, borrowDate, expected).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, borrow_date, expected_return_date, actual_return_date, book_id, user_id
		FROM borrowings
		WHERE id = $1
		FOR UPDATE`
	var b model.Borrowing
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.BookID, &b.UserID,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returned time.Time) error {
	const q = `
		UPDATE borrowings
		SET actual_return_date = $2
		WHERE id = $1
		AND actual_return_date IS NULL`
	res, err := tx.ExecContext(ctx, q, id, returned)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]ListRow, error) {
	q := `
		SELECT
			br.id,
			br.borrow_date,
			br.expected_return_date,
			br.actual_return_date,
			b.title AS book_title,
			u.email AS user_email
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE 1=1`
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += ` AND br.user_id = $1`
	}
	if f.IsActive != nil && *f.IsActive {
		q += ` AND br.actual_return_date IS NULL`
	}
	q += ` ORDER BY br.borrow_date DESC, br.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListRow
	for rows.Next() {
		var h ListRow
		if err := rows.Scan(
			&h.ID, &h.BorrowDate, &h.ExpectedReturnDate, &h.ActualReturnDate,
			&h.BookTitle, &h.UserEmail,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*DetailRow, error) {
	const q = `
		SELECT
			br.id, br.borrow_date, br.expected_return_date, br.actual_return_date,
			br.book_id, br.user_id,
			b.id, b.title, b.author, b.cover, b.inventory, b.daily_fee,
			u.email
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.id = $1`
	var d DetailRow
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.BorrowDate, &d.ExpectedReturnDate, &d.ActualReturnDate,
		&d.BookID, &d.UserID,
		&d.Book.ID, &d.Book.Title, &d.Book.Author, &d.Book.Cover, &d.Book.Inventory, &d.Book.DailyFee,
		&d.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
