package medicalrecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/domain/vitals"
	"github.com/klinik/klinik/internal/platform/metrics"
)

var (
	// ErrInvalidStatus is returned when a lifecycle step does not apply to the
	// record's current status.
	ErrInvalidStatus = errors.New("invalid medical record status")
	// ErrRecordLocked is returned when changing the clinical content of a
	// completed or archived record.
	ErrRecordLocked = errors.New("medical record is locked")
)

// Patients is the part of the patient registry records depend on.
type Patients interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	RecordConsultation(ctx context.Context, patientID uuid.UUID, diagnosis string, at time.Time) error
}

// QueueLinker attaches a record to the queue visit that produced it.
type QueueLinker interface {
	LinkMedicalRecord(ctx context.Context, queueID, recordID uuid.UUID) error
}

type Service struct {
	repo     Repository
	patients Patients
	queue    QueueLinker
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the record service. queue may be nil.
func NewService(repo Repository, patients Patients, queue QueueLinker, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, queue: queue, logger: logger, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func checkVitals(vs vitals.VitalSigns) error {
	if err := vitals.Validate(vs); err != nil {
		return fmt.Errorf("vital_signs: %w", err)
	}
	return nil
}

// CreateFromIntake opens a draft record from the nurse's intake. queueID,
// when set, links the record to the patient's queue entry.
func (s *Service) CreateFromIntake(ctx context.Context, patientID uuid.UUID, queueID *uuid.UUID, in NurseIntake, by string) (*MedicalRecord, error) {
	return s.create(ctx, patientID, queueID, in, nil, by)
}

// CreateCompleted records a whole consultation at once, as when the doctor
// fills both parts of the form.
func (s *Service) CreateCompleted(ctx context.Context, patientID uuid.UUID, queueID *uuid.UUID, in NurseIntake, fin DoctorFinalization, by string) (*MedicalRecord, error) {
	return s.create(ctx, patientID, queueID, in, &fin, by)
}

func (s *Service) create(ctx context.Context, patientID uuid.UUID, queueID *uuid.UUID, in NurseIntake, fin *DoctorFinalization, by string) (*MedicalRecord, error) {
	fe := in.Validate()
	if fin != nil {
		for k, v := range fin.Validate() {
			fe[k] = v
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	vs := in.VitalSigns(now)
	if err := checkVitals(vs); err != nil {
		return nil, err
	}

	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("look up patient: %w", err)
	}

	consultation := in.ConsultationDate
	if consultation.IsZero() {
		consultation = now
	}
	exam := in.PhysicalExamination
	if exam.ExaminationDate.IsZero() {
		exam.ExaminationDate = consultation
	}

	r := &MedicalRecord{
		ID:                   uuid.New(),
		PatientID:            p.ID,
		MedicalRecordNumber:  p.MedicalRecordNumber,
		QueueEntryID:         queueID,
		ConsultationDate:     consultation,
		LastConsultationDate: p.LastConsultationDate,
		ReservationDate:      in.ReservationDate,
		VitalSigns:           vs,
		Anamnesis:            in.Anamnesis,
		PhysicalExamination:  exam,
		MedicalActions:       in.MedicalActions,
		Therapies:            []Therapy{},
		Status:               in.TargetStatus(),
		CreatedAt:            now,
		CreatedBy:            by,
	}
	if fin != nil {
		applyFinalization(r, *fin)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	metrics.RecordMedicalRecord(string(r.Status))
	s.logger.Info().Str("record_id", r.ID.String()).Str("patient_id", p.ID.String()).Str("status", string(r.Status)).Msg("medical record created")

	if queueID != nil && s.queue != nil {
		if err := s.queue.LinkMedicalRecord(ctx, *queueID, r.ID); err != nil {
			s.logger.Warn().Err(err).Str("queue_id", queueID.String()).Msg("link medical record to queue entry")
		}
	}
	if r.Status == StatusCompleted {
		if err := s.patients.RecordConsultation(ctx, r.PatientID, r.Diagnosis, r.ConsultationDate); err != nil {
			return r, fmt.Errorf("update patient: %w", err)
		}
	}
	return r, nil
}

func applyFinalization(r *MedicalRecord, fin DoctorFinalization) {
	r.Diagnosis = fin.Diagnosis
	r.DiagnosisNotes = fin.DiagnosisNotes
	r.Therapies = append([]Therapy(nil), fin.Therapies...)
	actions := make([]MedicalAction, 0, len(r.MedicalActions)+len(fin.MedicalActions))
	actions = append(actions, r.MedicalActions...)
	r.MedicalActions = append(actions, fin.MedicalActions...)
	r.Status = fin.TargetStatus()
}

// Finalize moves a draft to completed with the doctor's diagnosis and
// therapy, then stamps the consultation on the patient. Of two doctors
// finalizing the same draft, the later gets ErrConflict.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, fin DoctorFinalization, by string) (*MedicalRecord, error) {
	if err := fin.Validate().Err(); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusDraft {
		return nil, fmt.Errorf("%w: cannot finalize a %s record", ErrInvalidStatus, r.Status)
	}
	applyFinalization(r, fin)
	s.touch(r, by)
	if err := s.repo.Update(ctx, r, StatusDraft); err != nil {
		return nil, err
	}
	metrics.RecordMedicalRecord(string(r.Status))
	s.logger.Info().Str("record_id", r.ID.String()).Str("diagnosis", r.Diagnosis).Msg("medical record finalized")

	if err := s.patients.RecordConsultation(ctx, r.PatientID, r.Diagnosis, r.ConsultationDate); err != nil {
		return r, fmt.Errorf("update patient: %w", err)
	}
	return r, nil
}

// Archive retires a completed record. Archived is terminal.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, by string) (*MedicalRecord, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: cannot archive a %s record", ErrInvalidStatus, r.Status)
	}
	r.Status = StatusArchived
	s.touch(r, by)
	if err := s.repo.Update(ctx, r, StatusCompleted); err != nil {
		return nil, err
	}
	metrics.RecordMedicalRecord(string(r.Status))
	return r, nil
}

// UpdateVitals corrects the measurements of a draft.
func (s *Service) UpdateVitals(ctx context.Context, id uuid.UUID, vs vitals.VitalSigns, by string) (*MedicalRecord, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Locked() {
		return nil, ErrRecordLocked
	}
	if vs.MeasuredAt.IsZero() {
		vs.MeasuredAt = s.now()
	}
	if err := checkVitals(vs); err != nil {
		return nil, err
	}
	r.VitalSigns = vs
	s.touch(r, by)
	if err := s.repo.Update(ctx, r, r.Status); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) touch(r *MedicalRecord, by string) {
	now := s.now()
	r.UpdatedAt = &now
	if by != "" {
		r.UpdatedBy = &by
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Latest is the patient's most recent consultation.
func (s *Service) Latest(ctx context.Context, patientID uuid.UUID) (*MedicalRecord, error) {
	rs, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, ErrNotFound
	}
	return rs[0], nil
}

func (s *Service) List(ctx context.Context) ([]*MedicalRecord, error) {
	return s.repo.List(ctx)
}
