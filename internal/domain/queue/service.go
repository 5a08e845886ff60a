package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/domain/masterdata"
	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/platform/metrics"
	"github.com/klinik/klinik/internal/platform/sequence"
	"github.com/klinik/klinik/pkg/dateutil"
)

// Topic is the realtime topic queue events are published on.
const Topic = "queue"

const (
	EventCheckedIn     = "queue.checked_in"
	EventStatusChanged = "queue.status_changed"
)

var ErrValidation = errors.New("invalid queue entry")

// Notifier fans queue events out to waiting-room displays.
type Notifier interface {
	Publish(ctx context.Context, topic, eventType string, payload interface{}) error
}

// PatientLookup resolves the patient a check-in refers to.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Doctors confirms a doctor assigned at check-in is practising.
type Doctors interface {
	CheckActive(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo     Repository
	seq      sequence.Store
	patients PatientLookup
	doctors  Doctors
	notifier Notifier
	loc      *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the queue. notifier may be nil; loc is the clinic time
// zone that decides which day a check-in belongs to.
func NewService(repo Repository, seq sequence.Store, patients PatientLookup, notifier Notifier, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:     repo,
		seq:      seq,
		patients: patients,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetDoctors enables the doctor_id check on check-in.
func (s *Service) SetDoctors(d Doctors) { s.doctors = d }

// Today is the current clinic-local day as YYYY-MM-DD.
func (s *Service) Today() string {
	return dateutil.FormatDateForInput(s.now().In(s.loc))
}

// CheckInRequest is what the front desk submits.
type CheckInRequest struct {
	PatientID uuid.UUID  `json:"patient_id"`
	QueueType Type       `json:"queue_type"`
	Priority  Priority   `json:"priority"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// CheckIn puts a registered patient in today's queue with the next number of
// the day.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*Entry, error) {
	if req.QueueType == "" {
		req.QueueType = TypeCheckup
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}
	if !validTypes[req.QueueType] {
		return nil, fmt.Errorf("%w: queue_type %q", ErrValidation, req.QueueType)
	}
	if !validPriorities[req.Priority] {
		return nil, fmt.Errorf("%w: priority %q", ErrValidation, req.Priority)
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}

	p, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("look up patient: %w", err)
	}
	if req.DoctorID != nil && s.doctors != nil {
		err := s.doctors.CheckActive(ctx, *req.DoctorID)
		switch {
		case errors.Is(err, masterdata.ErrDoctorNotFound), errors.Is(err, masterdata.ErrDoctorInactive):
			return nil, fmt.Errorf("%w: doctor_id: %v", ErrValidation, err)
		case err != nil:
			return nil, fmt.Errorf("look up doctor: %w", err)
		}
	}

	now := s.now()
	day := dateutil.FormatDateForInput(now.In(s.loc))
	n, err := s.seq.Next(ctx, sequence.QueueKey(day))
	if err != nil {
		return nil, fmt.Errorf("issue queue number: %w", err)
	}

	e := &Entry{
		ID:                  uuid.New(),
		PatientID:           p.ID,
		PatientName:         p.Name,
		MedicalRecordNumber: p.MedicalRecordNumber,
		QueueDate:           day,
		QueueNumber:         int(n),
		QueueType:           req.QueueType,
		Status:              StatusWaiting,
		Priority:            req.Priority,
		CheckInTime:         now,
		DoctorID:            req.DoctorID,
		Notes:               req.Notes,
		CreatedAt:           now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	metrics.RecordQueueCheckIn()
	s.logger.Info().Str("queue_id", e.ID.String()).Str("date", day).Int("number", e.QueueNumber).Msg("patient checked in")
	s.publish(ctx, EventCheckedIn, e)
	return e, nil
}

// ChangeStatus applies one workflow step. A concurrent change to the same
// entry surfaces as ErrConflict rather than being overwritten.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := e.Status
	if err := Transition(e, to, s.now()); err != nil {
		return nil, err
	}
	if from == to {
		return e, nil
	}
	if err := s.repo.Update(ctx, e, from); err != nil {
		return nil, err
	}

	metrics.RecordQueueTransition(string(from), string(to))
	s.logger.Info().Str("queue_id", e.ID.String()).Str("from", string(from)).Str("to", string(to)).Msg("queue status changed")
	s.publish(ctx, EventStatusChanged, e)
	return e, nil
}

// LinkMedicalRecord remembers which record the visit produced.
func (s *Service) LinkMedicalRecord(ctx context.Context, id, recordID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	e.MedicalRecordID = &recordID
	return s.repo.Update(ctx, e, e.Status)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one day's queue; an empty day means today.
func (s *Service) List(ctx context.Context, day string) ([]*Entry, error) {
	if day == "" {
		day = s.Today()
	}
	return s.repo.ListByDate(ctx, day)
}

func (s *Service) ListBetween(ctx context.Context, startDay, endDay string) ([]*Entry, error) {
	return s.repo.ListBetween(ctx, startDay, endDay)
}

func (s *Service) Stats(ctx context.Context, day string) (Stats, error) {
	entries, err := s.List(ctx, day)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(entries), nil
}

// SeedSequence raises today's counter past numbers already stored, so a
// restart with a fresh counter does not reissue them.
func (s *Service) SeedSequence(ctx context.Context) error {
	day := s.Today()
	entries, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return err
	}
	return s.seq.Seed(ctx, sequence.QueueKey(day), int64(NextQueueNumber(entries, day)-1))
}

func (s *Service) publish(ctx context.Context, eventType string, e *Entry) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, Topic, eventType, e); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish queue event")
	}
}
