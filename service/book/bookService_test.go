// service/book/book_service_test.go
package booksvc_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NataliiaPodoroha/library-service/model"
	booksvc "github.com/NataliiaPodoroha/library-service/service/book"
)

type repoMock struct {
	createFn func(ctx context.Context, b *model.Book) (int64, error)
	listFn   func(ctx context.Context) ([]model.Book, error)
	detailFn func(ctx context.Context, id int64) (*model.Book, error)
	updateFn func(ctx context.Context, b *model.Book) error
	deleteFn func(ctx context.Context, id int64) error
}

func (m *repoMock) Create(ctx context.Context, b *model.Book) (int64, error) {
	return m.createFn(ctx, b)
}
func (m *repoMock) List(ctx context.Context) ([]model.Book, error) { return m.listFn(ctx) }
func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return m.detailFn(ctx, id)
}
func (m *repoMock) Update(ctx context.Context, b *model.Book) error { return m.updateFn(ctx, b) }
func (m *repoMock) Delete(ctx context.Context, id int64) error      { return m.deleteFn(ctx, id) }

func sampleBook() *model.Book {
	return &model.Book{
		Title:     "Kobzar",
		Author:    "Taras Shevchenko",
		Cover:     model.CoverHard,
		Inventory: 3,
		DailyFee:  10.50,
	}
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{})

	cases := []func(b *model.Book){
		func(b *model.Book) { b.Title = "" },
		func(b *model.Book) { b.Author = "" },
		func(b *model.Book) { b.Cover = "paperback" },
		func(b *model.Book) { b.Inventory = -1 },
		func(b *model.Book) { b.DailyFee = 0 },
	}
	for i, mutate := range cases {
		b := sampleBook()
		mutate(b)
		if _, err := s.Create(context.Background(), b); !errors.Is(err, booksvc.ErrBadInput) {
			t.Fatalf("case %d: got %v; want ErrBadInput", i, err)
		}
	}
}

func TestCreate_Success(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) (int64, error) {
			if b.Title != "Kobzar" || b.DailyFee != 10.50 {
				return 0, errors.New("bad args")
			}
			return 42, nil
		},
	}
	s := booksvc.New(m)
	id, err := s.Create(context.Background(), sampleBook())
	if err != nil || id != 42 {
		t.Fatalf("got id=%v err=%v; want 42 nil", id, err)
	}
}

func TestCreate_DuplicateTitleAuthor(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) (int64, error) {
			return 0, &pgconn.PgError{Code: pgerrcode.UniqueViolation}
		},
	}
	s := booksvc.New(m)
	if _, err := s.Create(context.Background(), sampleBook()); !errors.Is(err, booksvc.ErrDuplicate) {
		t.Fatalf("got %v; want ErrDuplicate", err)
	}
}

func TestDetail_NotFound(t *testing.T) {
	m := &repoMock{
		detailFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, nil },
	}
	s := booksvc.New(m)
	if _, err := s.Detail(context.Background(), 99); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestUpdateDelete_NotFound(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, b *model.Book) error { return sql.ErrNoRows },
		deleteFn: func(ctx context.Context, id int64) error { return sql.ErrNoRows },
	}
	s := booksvc.New(m)
	if err := s.Update(context.Background(), sampleBook()); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("update: got %v; want ErrNotFound", err)
	}
	if err := s.Delete(context.Background(), 7); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("delete: got %v; want ErrNotFound", err)
	}
}

func TestPassThroughs(t *testing.T) {
	m := &repoMock{
		listFn: func(ctx context.Context) ([]model.Book, error) { return []model.Book{{ID: 1}}, nil },
		detailFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id}, nil
		},
	}
	s := booksvc.New(m)

	rows, err := s.List(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("List got %v %v; want one row", rows, err)
	}
	b, err := s.Detail(context.Background(), 99)
	if err != nil || b.ID != 99 {
		t.Fatalf("Detail got %v %v; want id 99", b, err)
	}
}
