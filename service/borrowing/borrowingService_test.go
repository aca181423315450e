// service/borrowing/borrowing_service_test.go
package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NataliiaPodoroha/library-service/model"
	borrowingrepo "github.com/NataliiaPodoroha/library-service/repository/borrowing"
	striperepo "github.com/NataliiaPodoroha/library-service/repository/stripe"
)

// fakeStore keeps books, borrowings and payments in memory and stands
// in for both the borrowing and the payment repositories.
type fakeStore struct {
	books      map[int64]*model.Book
	borrowings map[int64]*model.Borrowing
	payments   map[int64]*model.Payment
	emails     map[int64]string
	nextBrID   int64
	nextPayID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      map[int64]*model.Book{},
		borrowings: map[int64]*model.Borrowing{},
		payments:   map[int64]*model.Payment{},
		emails:     map[int64]string{},
		nextBrID:   1,
		nextPayID:  1,
	}
}

func (f *fakeStore) snapshot() *fakeStore {
	c := newFakeStore()
	c.nextBrID, c.nextPayID = f.nextBrID, f.nextPayID
	for k, v := range f.books {
		b := *v
		c.books[k] = &b
	}
	for k, v := range f.borrowings {
		b := *v
		c.borrowings[k] = &b
	}
	for k, v := range f.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range f.emails {
		c.emails[k] = v
	}
	return c
}

func (f *fakeStore) restore(s *fakeStore) {
	f.books, f.borrowings, f.payments, f.emails = s.books, s.borrowings, s.payments, s.emails
	f.nextBrID, f.nextPayID = s.nextBrID, s.nextPayID
}

// Repo

func (f *fakeStore) GetBookForUpdate(_ context.Context, _ *sql.Tx, bookID int64) (*model.Book, error) {
	b, ok := f.books[bookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) AdjustInventory(_ context.Context, _ *sql.Tx, bookID int64, delta int64) error {
	b, ok := f.books[bookID]
	if !ok || b.Inventory+delta < 0 {
		return sql.ErrNoRows
	}
	b.Inventory += delta
	return nil
}

func (f *fakeStore) Insert(_ context.Context, _ *sql.Tx, userID, bookID int64, borrowDate, expected time.Time) (int64, error) {
	id := f.nextBrID
	f.nextBrID++
	f.borrowings[id] = &model.Borrowing{
		ID:                 id,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expected,
		BookID:             bookID,
		UserID:             userID,
	}
	return id, nil
}

func (f *fakeStore) GetForUpdate(_ context.Context, _ *sql.Tx, id int64) (*model.Borrowing, error) {
	b, ok := f.borrowings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) MarkReturned(_ context.Context, _ *sql.Tx, id int64, returned time.Time) error {
	b, ok := f.borrowings[id]
	if !ok || b.ActualReturnDate != nil {
		return sql.ErrNoRows
	}
	b.ActualReturnDate = &returned
	return nil
}

func (f *fakeStore) List(_ context.Context, flt borrowingrepo.ListFilter) ([]ListRow, error) {
	var out []ListRow
	for _, b := range f.borrowings {
		if flt.UserID != nil && b.UserID != *flt.UserID {
			continue
		}
		if flt.IsActive != nil && *flt.IsActive && b.ActualReturnDate != nil {
			continue
		}
		out = append(out, ListRow{
			ID:                 b.ID,
			BorrowDate:         b.BorrowDate,
			ExpectedReturnDate: b.ExpectedReturnDate,
			ActualReturnDate:   b.ActualReturnDate,
			BookTitle:          f.books[b.BookID].Title,
			UserEmail:          f.emails[b.UserID],
		})
	}
	return out, nil
}

func (f *fakeStore) Detail(_ context.Context, id int64) (*DetailRow, error) {
	b, ok := f.borrowings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &DetailRow{
		Borrowing: *b,
		Book:      *f.books[b.BookID],
		UserEmail: f.emails[b.UserID],
	}, nil
}

// Payments

func (f *fakeStore) InsertPending(_ context.Context, _ *sql.Tx, borrowingID int64, ptype model.PaymentType, amount float64) (int64, error) {
	id := f.nextPayID
	f.nextPayID++
	f.payments[id] = &model.Payment{
		ID:          id,
		Status:      model.PaymentPending,
		Type:        ptype,
		BorrowingID: borrowingID,
		MoneyToPay:  amount,
	}
	return id, nil
}

func (f *fakeStore) SetSession(_ context.Context, _ *sql.Tx, paymentID int64, sessionID, sessionURL string) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return errors.New("payment not found")
	}
	p.SessionID = sessionID
	p.SessionURL = sessionURL
	return nil
}

func (f *fakeStore) PendingSessionURL(_ context.Context, _ *sql.Tx, borrowingID int64) (string, error) {
	for _, p := range f.payments {
		if p.BorrowingID == borrowingID && p.Status == model.PaymentPending {
			return p.SessionURL, nil
		}
	}
	return "", nil
}

// fakeTx runs the function without a real transaction but mirrors
// rollback semantics by restoring the store on error.
type fakeTx struct{ store *fakeStore }

func (t *fakeTx) Do(_ context.Context, fn func(tx *sql.Tx) error) error {
	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type gatewayMock struct {
	calls    []striperepo.CreateSessionReq
	failWith error
}

func (g *gatewayMock) CreateSession(_ context.Context, req striperepo.CreateSessionReq) (*striperepo.CreateSessionResp, error) {
	if g.failWith != nil {
		return nil, g.failWith
	}
	g.calls = append(g.calls, req)
	return &striperepo.CreateSessionResp{
		SessionID:  "cs_test_123",
		SessionURL: "https://checkout.stripe.test/cs_test_123",
	}, nil
}

// ---- helpers ----

var today = time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, gw *gatewayMock) *service {
	s := New(&fakeTx{store: store}, store, store, gw, "http://localhost:8080").(*service)
	s.now = func() time.Time { return today }
	return s
}

func seedBook(store *fakeStore) *model.Book {
	b := &model.Book{ID: 1, Title: "Kobzar", Author: "Taras Shevchenko", Cover: model.CoverHard, Inventory: 1, DailyFee: 10.50}
	store.books[1] = b
	return b
}

func seedBorrowing(store *fakeStore, userID int64, expected time.Time) *model.Borrowing {
	id := store.nextBrID
	store.nextBrID++
	b := &model.Borrowing{
		ID:                 id,
		BorrowDate:         expected.AddDate(0, 0, -4),
		ExpectedReturnDate: expected,
		BookID:             1,
		UserID:             userID,
	}
	store.borrowings[id] = b
	return b
}

// ---- create ----

func TestCreate_OutOfStock(t *testing.T) {
	store := newFakeStore()
	seedBook(store).Inventory = 0
	gw := &gatewayMock{}
	s := newTestService(store, gw)

	_, err := s.Create(context.Background(), 7, 1, today.AddDate(0, 0, 4))
	require.Error(t, err)
	require.Equal(t, ErrOutOfStock, Code(err))

	require.EqualValues(t, 0, store.books[1].Inventory)
	require.Empty(t, store.borrowings)
	require.Empty(t, store.payments)
	require.Empty(t, gw.calls)
}

func TestCreate_PastExpectedDate(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	s := newTestService(store, &gatewayMock{})

	_, err := s.Create(context.Background(), 7, 1, today.AddDate(0, 0, -1))
	require.Equal(t, ErrBadDate, Code(err))
	require.Empty(t, store.borrowings)
}

func TestCreate_UnknownBook(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &gatewayMock{})

	_, err := s.Create(context.Background(), 7, 99, today.AddDate(0, 0, 4))
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestCreate_PriceInventoryAndSession(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	gw := &gatewayMock{}
	s := newTestService(store, gw)

	// 5 chargeable days: borrow day through expected return, inclusive.
	out, err := s.Create(context.Background(), 7, 1, today.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.InDelta(t, 52.50, out.MoneyToPay, 1e-9)
	require.EqualValues(t, 0, store.books[1].Inventory)

	require.Len(t, store.payments, 1)
	p := store.payments[out.PaymentID]
	require.Equal(t, model.PaymentPending, p.Status)
	require.Equal(t, model.TypePayment, p.Type)
	require.Equal(t, out.BorrowingID, p.BorrowingID)
	require.InDelta(t, 52.50, p.MoneyToPay, 1e-9)
	require.Equal(t, "cs_test_123", p.SessionID)
	require.NotEmpty(t, p.SessionURL)

	require.Len(t, gw.calls, 1)
	require.EqualValues(t, 5250, gw.calls[0].AmountMinor)
	require.Contains(t, gw.calls[0].SuccessURL, "/v1/payments/")
	require.Contains(t, gw.calls[0].SuccessURL, "/success")

	b := store.borrowings[out.BorrowingID]
	require.Equal(t, today, b.BorrowDate)
	require.Nil(t, b.ActualReturnDate)
}

func TestCreate_GatewayFailureLeavesNoState(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	gw := &gatewayMock{failWith: errors.New("stripe is down")}
	s := newTestService(store, gw)

	_, err := s.Create(context.Background(), 7, 1, today.AddDate(0, 0, 4))
	require.Error(t, err)
	require.Equal(t, ErrCode(""), Code(err))

	require.EqualValues(t, 1, store.books[1].Inventory)
	require.Empty(t, store.borrowings)
	require.Empty(t, store.payments)
}

// ---- return ----

func TestReturn_NotFound(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &gatewayMock{})

	_, err := s.Return(context.Background(), 7, false, 99)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestReturn_NotOwner(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	seedBorrowing(store, 7, today)
	s := newTestService(store, &gatewayMock{})

	_, err := s.Return(context.Background(), 8, false, 1)
	require.Equal(t, ErrNotOwner, Code(err))

	// Staff can return on behalf of the owner.
	out, err := s.Return(context.Background(), 8, true, 1)
	require.NoError(t, err)
	require.Empty(t, out.RedirectURL)
}

func TestReturn_OnTime_NoFine(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	store.books[1].Inventory = 0
	seedBorrowing(store, 7, today) // due today, returned today
	gw := &gatewayMock{}
	s := newTestService(store, gw)

	out, err := s.Return(context.Background(), 7, false, 1)
	require.NoError(t, err)
	require.Zero(t, out.FineID)

	require.EqualValues(t, 1, store.books[1].Inventory)
	require.NotNil(t, store.borrowings[1].ActualReturnDate)
	require.Empty(t, store.payments)
	require.Empty(t, gw.calls)
}

func TestReturn_Twice(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	store.books[1].Inventory = 0
	seedBorrowing(store, 7, today)
	s := newTestService(store, &gatewayMock{})

	_, err := s.Return(context.Background(), 7, false, 1)
	require.NoError(t, err)

	_, err = s.Return(context.Background(), 7, false, 1)
	require.Equal(t, ErrAlreadyReturned, Code(err))

	// Second call changed nothing.
	require.EqualValues(t, 1, store.books[1].Inventory)
	require.Equal(t, today, *store.borrowings[1].ActualReturnDate)
}

func TestReturn_TwoDaysLate_CreatesFine(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	store.books[1].Inventory = 0
	seedBorrowing(store, 7, today.AddDate(0, 0, -2))
	gw := &gatewayMock{}
	s := newTestService(store, gw)

	out, err := s.Return(context.Background(), 7, false, 1)
	require.NoError(t, err)
	require.NotZero(t, out.FineID)
	require.InDelta(t, 42.00, out.FineAmount, 1e-9) // 2 days × 10.50 × 2

	require.Len(t, store.payments, 1)
	fine := store.payments[out.FineID]
	require.Equal(t, model.TypeFine, fine.Type)
	require.Equal(t, model.PaymentPending, fine.Status)
	require.InDelta(t, 42.00, fine.MoneyToPay, 1e-9)

	require.Len(t, gw.calls, 1)
	require.EqualValues(t, 4200, gw.calls[0].AmountMinor)
}

func TestReturn_PendingPaymentRedirects(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	store.books[1].Inventory = 0
	b := seedBorrowing(store, 7, today)
	store.payments[1] = &model.Payment{
		ID: 1, Status: model.PaymentPending, Type: model.TypePayment,
		BorrowingID: b.ID, SessionURL: "https://checkout.stripe.test/pending",
	}
	s := newTestService(store, &gatewayMock{})

	out, err := s.Return(context.Background(), 7, false, b.ID)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.test/pending", out.RedirectURL)

	// Nothing changed: the borrowing stays active.
	require.Nil(t, store.borrowings[b.ID].ActualReturnDate)
	require.EqualValues(t, 0, store.books[1].Inventory)
}

func TestCreateThenReturn_InventoryNets(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	s := newTestService(store, &gatewayMock{})

	out, err := s.Create(context.Background(), 7, 1, today.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.EqualValues(t, 0, store.books[1].Inventory)

	// Settle the borrow payment so the return is not blocked.
	store.payments[out.PaymentID].Status = model.PaymentPaid

	_, err = s.Return(context.Background(), 7, false, out.BorrowingID)
	require.NoError(t, err)
	require.EqualValues(t, 1, store.books[1].Inventory)
}

// ---- list / detail scoping ----

func TestList_NonStaffScopedToSelf(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	seedBorrowing(store, 7, today)
	seedBorrowing(store, 8, today)
	s := newTestService(store, &gatewayMock{})

	other := int64(8)
	rows, err := s.List(context.Background(), 7, false, ListQuery{UserID: &other})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, store.borrowings[1].ID, rows[0].ID)
}

func TestList_StaffFilters(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	seedBorrowing(store, 7, today)
	ret := seedBorrowing(store, 8, today)
	ret.ActualReturnDate = &today
	s := newTestService(store, &gatewayMock{})

	rows, err := s.List(context.Background(), 1, true, ListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	active := true
	rows, err = s.List(context.Background(), 1, true, ListQuery{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	target := int64(8)
	rows, err = s.List(context.Background(), 1, true, ListQuery{UserID: &target})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDetail_Scoping(t *testing.T) {
	store := newFakeStore()
	seedBook(store)
	seedBorrowing(store, 7, today)
	s := newTestService(store, &gatewayMock{})

	_, err := s.Detail(context.Background(), 8, false, 1)
	require.Equal(t, ErrNotFound, Code(err))

	d, err := s.Detail(context.Background(), 8, true, 1)
	require.NoError(t, err)
	require.Equal(t, "Kobzar", d.Book.Title)
}
