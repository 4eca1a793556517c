// Package ledger records which user (by email) currently holds which book.
//
// A user holds a given book at most once. Borrow checks for an existing
// record before inserting and the store's unique (email, bookId) index
// rejects any insert that slips past the check from another instance. Within
// one process the check and insert also run under a per-pair lock.
package ledger

import (
	"context"
	"errors"

	borrowstore "github.com/dalemusser/libraryhub/internal/app/store/borrows"
	"github.com/dalemusser/libraryhub/internal/app/system/inputval"
	"github.com/dalemusser/libraryhub/internal/app/system/keylock"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/normalize"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store is the persistence the ledger needs. *borrowstore.Store satisfies it.
// Create must return borrowstore.ErrDuplicate when the pair already exists.
type Store interface {
	List(ctx context.Context) ([]models.BorrowRecord, error)
	ListByEmail(ctx context.Context, email string) ([]models.BorrowRecord, error)
	GetByPair(ctx context.Context, email, bookID string) (*models.BorrowRecord, error)
	Create(ctx context.Context, rec models.BorrowRecord) (models.BorrowRecord, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Outcome labels for the borrow counter.
const (
	OutcomeBorrowed  = "borrowed"
	OutcomeDuplicate = "duplicate"
	OutcomeReturned  = "returned"
)

type Service struct {
	store  Store
	locks  *keylock.Locker
	events *prometheus.CounterVec
	log    *zap.Logger
}

// New builds a ledger. events may be nil; when set it is incremented with
// one of the Outcome* labels.
func New(store Store, events *prometheus.CounterVec, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		locks:  keylock.New(),
		events: events,
		log:    logger,
	}
}

// ListAll returns every borrow record.
func (s *Service) ListAll(ctx context.Context) ([]models.BorrowRecord, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "borrow list")
	defer cancel()

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, liberr.Store("list borrows", err)
	}
	return recs, nil
}

// ListByEmail returns the records held by email. No matches is an empty
// slice, not an error.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]models.BorrowRecord, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, liberr.Missing("Email")
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "borrow list by email")
	defer cancel()

	recs, err := s.store.ListByEmail(ctx, email)
	if err != nil {
		return nil, liberr.Store("list borrows by email", err)
	}
	return recs, nil
}

// reserved keys never copied into a record's details.
var reserved = map[string]bool{
	"_id": true, "email": true, "bookId": true, "borrowedAt": true, "details": true,
}

// Borrow records that email holds bookID. Extra client fields are kept in
// the record's details, minus the keys the ledger owns. It fails with a
// DuplicateBorrow error, leaving state unchanged, when the pair is already
// recorded.
func (s *Service) Borrow(ctx context.Context, email, bookID string, details map[string]any) (models.BorrowRecord, error) {
	email = normalize.Email(email)
	bookID = normalize.Name(bookID)
	if email == "" || bookID == "" {
		return models.BorrowRecord{}, liberr.Missing("Email and bookId")
	}

	unlock, err := s.locks.Lock(ctx, email+"|"+bookID)
	if err != nil {
		return models.BorrowRecord{}, liberr.Store("borrow lock", err)
	}
	defer unlock()

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "borrow insert")
	defer cancel()

	_, err = s.store.GetByPair(ctx, email, bookID)
	switch {
	case err == nil:
		s.count(OutcomeDuplicate)
		return models.BorrowRecord{}, liberr.DuplicateBorrow()
	case !errors.Is(err, mongo.ErrNoDocuments):
		return models.BorrowRecord{}, liberr.Store("check borrow", err)
	}

	rec, err := s.store.Create(ctx, models.BorrowRecord{
		Email:   email,
		BookID:  bookID,
		Details: detailsOf(details),
	})
	if errors.Is(err, borrowstore.ErrDuplicate) {
		s.count(OutcomeDuplicate)
		return models.BorrowRecord{}, liberr.DuplicateBorrow()
	}
	if err != nil {
		return models.BorrowRecord{}, liberr.Store("create borrow", err)
	}

	s.count(OutcomeBorrowed)
	s.log.Info("book borrowed",
		zap.String("borrow_id", rec.ID.Hex()),
		zap.String("email", email),
		zap.String("book_id", bookID))
	return rec, nil
}

// ReturnBook deletes the borrow record with the given hex identifier.
func (s *Service) ReturnBook(ctx context.Context, id string) error {
	oid, err := inputval.ObjectID(id)
	if err != nil {
		return liberr.InvalidID()
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "borrow delete")
	defer cancel()

	n, err := s.store.Delete(ctx, oid)
	if err != nil {
		return liberr.Store("delete borrow", err)
	}
	if n == 0 {
		return liberr.NotFound("Borrow record")
	}

	s.count(OutcomeReturned)
	s.log.Info("book returned", zap.String("borrow_id", oid.Hex()))
	return nil
}

func (s *Service) count(outcome string) {
	if s.events != nil {
		s.events.WithLabelValues(outcome).Inc()
	}
}

func detailsOf(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !reserved[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
