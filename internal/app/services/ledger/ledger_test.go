package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	borrowstore "github.com/dalemusser/libraryhub/internal/app/store/borrows"
	"github.com/dalemusser/libraryhub/internal/app/services/ledger"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memStore behaves like the borrow collection with its unique
// (email, bookId) index. hidePairs makes GetByPair always miss, so only the
// index protects against duplicates.
type memStore struct {
	mu        sync.Mutex
	recs      []models.BorrowRecord
	calls     int
	hidePairs bool
	failList  error
}

func (m *memStore) List(context.Context) ([]models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failList != nil {
		return nil, m.failList
	}
	return append([]models.BorrowRecord{}, m.recs...), nil
}

func (m *memStore) ListByEmail(_ context.Context, email string) ([]models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]models.BorrowRecord, 0)
	for _, r := range m.recs {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetByPair(_ context.Context, email, bookID string) (*models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if !m.hidePairs {
		for _, r := range m.recs {
			if r.Email == email && r.BookID == bookID {
				return &r, nil
			}
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memStore) Create(_ context.Context, rec models.BorrowRecord) (models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, r := range m.recs {
		if r.Email == rec.Email && r.BookID == rec.BookID {
			return models.BorrowRecord{}, borrowstore.ErrDuplicate
		}
	}
	rec.ID = primitive.NewObjectID()
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memStore) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i, r := range m.recs {
		if r.ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_borrow_events_total"}, []string{"outcome"})
}

func TestBorrowLifecycle(t *testing.T) {
	store := &memStore{}
	events := newCounter()
	svc := ledger.New(store, events, nil)
	ctx := context.Background()

	first, err := svc.Borrow(ctx, "a@x.com", "B1", nil)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, "B1", first.BookID)

	_, err = svc.Borrow(ctx, "a@x.com", "B1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, liberr.ErrDuplicateBorrow)
	assert.Equal(t, "You have already borrowed this book!", liberr.Message(err))
	assert.Equal(t, 1, store.count(), "duplicate borrow must not mutate state")

	require.NoError(t, svc.ReturnBook(ctx, first.ID.Hex()))
	assert.Equal(t, 0, store.count())

	_, err = svc.Borrow(ctx, "a@x.com", "B1", nil)
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(events.WithLabelValues(ledger.OutcomeBorrowed)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(events.WithLabelValues(ledger.OutcomeDuplicate)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(events.WithLabelValues(ledger.OutcomeReturned)))
}

func TestBorrow_NormalizesEmail(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Borrow(ctx, "  Reader@Example.COM ", "B1", nil)
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, "reader@example.com", "B1", nil)
	assert.ErrorIs(t, err, liberr.ErrDuplicateBorrow)
}

func TestBorrow_KeepsDetails(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)

	rec, err := svc.Borrow(context.Background(), "a@x.com", "B1", map[string]any{
		"email":      "a@x.com",
		"bookId":     "B1",
		"_id":        "forged",
		"borrowedAt": "yesterday",
		"bookName":   "Dune",
		"returnDate": "2026-11-01",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bookName": "Dune", "returnDate": "2026-11-01"}, rec.Details)

	rec, err = svc.Borrow(context.Background(), "a@x.com", "B2", map[string]any{"email": "a@x.com"})
	require.NoError(t, err)
	assert.Nil(t, rec.Details)
}

func TestBorrow_MissingParameters(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)

	for _, tc := range []struct{ email, book string }{
		{"", "B1"},
		{"a@x.com", ""},
		{"   ", "  "},
	} {
		_, err := svc.Borrow(context.Background(), tc.email, tc.book, nil)
		assert.ErrorIs(t, err, liberr.ErrMissingParam, "Borrow(%q, %q)", tc.email, tc.book)
	}
	assert.Equal(t, 0, store.calls)
}

func TestBorrow_ConcurrentSamePair(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), "a@x.com", "B1", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, liberr.ErrDuplicateBorrow):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, dupes)
	assert.Equal(t, 1, store.count())
}

func TestBorrow_IndexRejectionIsDuplicate(t *testing.T) {
	store := &memStore{hidePairs: true}
	svc := ledger.New(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Borrow(ctx, "a@x.com", "B1", nil)
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, "a@x.com", "B1", nil)
	assert.ErrorIs(t, err, liberr.ErrDuplicateBorrow)
	assert.Equal(t, 1, store.count())
}

func TestListByEmail(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)
	ctx := context.Background()

	_, err := svc.ListByEmail(ctx, "")
	assert.ErrorIs(t, err, liberr.ErrMissingParam)

	recs, err := svc.ListByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = svc.Borrow(ctx, "a@x.com", "B1", nil)
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, "a@x.com", "B2", nil)
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, "b@x.com", "B1", nil)
	require.NoError(t, err)

	recs, err = svc.ListByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReturnBook(t *testing.T) {
	store := &memStore{}
	svc := ledger.New(store, nil, nil)
	ctx := context.Background()

	err := svc.ReturnBook(ctx, "not-an-id")
	assert.ErrorIs(t, err, liberr.ErrInvalidID)
	assert.Equal(t, 0, store.calls, "malformed id must not reach the store")

	err = svc.ReturnBook(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, liberr.ErrNotFound)
}

func TestListAll_StoreFailure(t *testing.T) {
	svc := ledger.New(&memStore{failList: errors.New("socket closed")}, nil, nil)

	_, err := svc.ListAll(context.Background())
	assert.ErrorIs(t, err, liberr.ErrStore)
	assert.Equal(t, "Server error", liberr.Message(err))
}
