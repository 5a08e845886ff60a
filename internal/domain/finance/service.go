package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/platform/metrics"
)

var (
	ErrValidation    = errors.New("invalid transaction")
	ErrInvalidStatus = errors.New("invalid transaction status change")
)

// statusChanges lists the allowed moves. Cancelling a completed transaction
// reverses it in every later summary.
var statusChanges = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {StatusCancelled: true},
	StatusCancelled: {},
}

type Service struct {
	repo   Repository
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc, logger: logger, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Location() *time.Location { return s.loc }

func validate(t *Transaction) error {
	switch {
	case t.Type != TypeIncome && t.Type != TypeExpense:
		return fmt.Errorf("%w: type must be income or expense", ErrValidation)
	case !t.Category.Allows(t.Type):
		return fmt.Errorf("%w: category %q is not a valid %s category", ErrValidation, t.Category, t.Type)
	case t.Amount < 0:
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	case strings.TrimSpace(t.Description) == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case t.PaymentMethod != nil && !validPaymentMethods[*t.PaymentMethod]:
		return fmt.Errorf("%w: invalid payment_method %q", ErrValidation, *t.PaymentMethod)
	case t.ReferenceType != nil && !validReferenceTypes[*t.ReferenceType]:
		return fmt.Errorf("%w: invalid reference_type %q", ErrValidation, *t.ReferenceType)
	}
	if _, ok := statusChanges[t.Status]; !ok {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, t.Status)
	}
	return nil
}

// Create books a transaction. Currency defaults to IDR and status to pending.
func (s *Service) Create(ctx context.Context, t *Transaction, by string) error {
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if err := validate(t); err != nil {
		return err
	}
	t.ID = uuid.New()
	t.CreatedAt = s.now()
	t.CreatedBy = by
	if err := s.repo.Create(ctx, t); err != nil {
		return err
	}
	if t.Counted() {
		metrics.RecordTransaction(string(t.Type), t.Amount)
	}
	s.logger.Info().Str("transaction_id", t.ID.String()).Str("type", string(t.Type)).Float64("amount", t.Amount).Msg("transaction booked")
	return nil
}

// UpdateStatus applies a status change. A concurrent change to the same
// transaction surfaces as ErrConflict.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == status {
		return t, nil
	}
	next, ok := statusChanges[t.Status]
	if !ok || !next[status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, t.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, t.Status, status); err != nil {
		return nil, err
	}
	t.Status = status
	if status == StatusCompleted {
		metrics.RecordTransaction(string(t.Type), t.Amount)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Transaction, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(all, s.loc), nil
}

// Summary totals completed transactions between two inclusive days.
func (s *Service) Summary(ctx context.Context, startDay, endDay string) (Summary, error) {
	txs, err := s.List(ctx, Filter{StartDate: startDay, EndDate: endDay})
	if err != nil {
		return Summary{}, err
	}
	return SummarizeTransactions(txs), nil
}

func (s *Service) Day(ctx context.Context, day string) (DaySummary, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return DaySummary{}, err
	}
	return SummarizeDay(all, day, s.loc), nil
}

func (s *Service) Month(ctx context.Context, year, month int) (MonthSummary, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return MonthSummary{}, err
	}
	return SummarizeMonth(all, year, month, s.loc), nil
}
