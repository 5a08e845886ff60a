package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/platform/metrics"
	"github.com/klinik/klinik/internal/platform/sequence"
	"github.com/klinik/klinik/pkg/pagination"
)

// maxMRNAttempts bounds retries when an issued number collides with a row
// written before the counter was seeded.
const maxMRNAttempts = 5

// DiagnosisCatalog lists the clinic's configured diagnosis names.
type DiagnosisCatalog interface {
	DiagnosisNames(ctx context.Context) ([]string, error)
}

type Service struct {
	repo    Repository
	catalog DiagnosisCatalog
	seq     sequence.Store
	loc     *time.Location
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService builds the registry service. loc is the clinic timezone; the
// year in a medical-record number is the registration year there.
func NewService(repo Repository, seq sequence.Store, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, seq: seq, loc: loc, logger: logger, now: time.Now}
}

// SetClock replaces the time source, for tests and batch imports.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func validate(p *Patient) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case p.DateOfBirth.IsZero():
		return fmt.Errorf("%w: date_of_birth is required", ErrValidation)
	case strings.TrimSpace(p.Address) == "":
		return fmt.Errorf("%w: address is required", ErrValidation)
	case strings.TrimSpace(p.Occupation) == "":
		return fmt.Errorf("%w: occupation is required", ErrValidation)
	case p.Gender != GenderMale && p.Gender != GenderFemale:
		return fmt.Errorf("%w: gender must be male or female", ErrValidation)
	case p.BloodType != "" && !validBloodTypes[p.BloodType]:
		return fmt.Errorf("%w: invalid blood_type %q", ErrValidation, p.BloodType)
	case p.Weight != nil && *p.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrValidation)
	case p.Height != nil && *p.Height <= 0:
		return fmt.Errorf("%w: height must be positive", ErrValidation)
	}
	return nil
}

// Register validates p, issues its medical-record number and stores it. The
// number comes from an atomic per-category counter so concurrent
// registrations never share a sequence value.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if p.TreatmentCategory == "" {
		p.TreatmentCategory = CategoryUmum
	}
	if !p.TreatmentCategory.Valid() {
		return fmt.Errorf("%w: invalid treatment_category %q", ErrValidation, p.TreatmentCategory)
	}
	if err := validate(p); err != nil {
		return err
	}

	now := s.now()
	p.ID = uuid.New()
	p.CreatedAt = now
	p.UpdatedAt = nil
	year := now.In(s.loc).Year()

	for attempt := 0; attempt < maxMRNAttempts; attempt++ {
		seq, err := s.seq.Next(ctx, sequence.MRNKey(string(p.TreatmentCategory)))
		if err != nil {
			return fmt.Errorf("issue medical record number: %w", err)
		}
		p.MedicalRecordNumber = FormatMedicalRecordNumber(p.TreatmentCategory, int(seq), year)

		err = s.repo.Create(ctx, p)
		if errors.Is(err, ErrDuplicateMRN) {
			s.logger.Warn().Str("mrn", p.MedicalRecordNumber).Msg("medical record number already taken, drawing next")
			continue
		}
		if err != nil {
			return err
		}
		metrics.RecordPatientRegistered(string(p.TreatmentCategory))
		s.logger.Info().Str("patient_id", p.ID.String()).Str("mrn", p.MedicalRecordNumber).Msg("patient registered")
		return nil
	}
	return fmt.Errorf("issue medical record number: %w", ErrDuplicateMRN)
}

// SeedSequences raises the MRN counters to the number of stored patients per
// category, so numbering continues after data imported from elsewhere.
func (s *Service) SeedSequences(ctx context.Context) error {
	for _, c := range []TreatmentCategory{CategoryUmum, CategorySirkumsisi} {
		n, err := s.repo.CountByCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("count %s patients: %w", c, err)
		}
		if err := s.seq.Seed(ctx, sequence.MRNKey(string(c)), int64(n)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

// Update replaces the mutable demographics of a patient. The medical-record
// number and treatment category are fixed at registration; an attempt to
// change either fails with ErrImmutableField.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.MedicalRecordNumber != "" && p.MedicalRecordNumber != existing.MedicalRecordNumber {
		return fmt.Errorf("%w: medical_record_number", ErrImmutableField)
	}
	if p.TreatmentCategory != "" && p.TreatmentCategory != existing.TreatmentCategory {
		return fmt.Errorf("%w: treatment_category", ErrImmutableField)
	}
	p.MedicalRecordNumber = existing.MedicalRecordNumber
	p.TreatmentCategory = existing.TreatmentCategory
	p.CreatedAt = existing.CreatedAt
	if p.LastConsultationDate == nil {
		p.LastConsultationDate = existing.LastConsultationDate
	}
	if err := validate(p); err != nil {
		return err
	}
	now := s.now()
	p.UpdatedAt = &now
	return s.repo.Update(ctx, p)
}

// RecordConsultation stamps the outcome of a finalized consultation on the
// patient.
func (s *Service) RecordConsultation(ctx context.Context, patientID uuid.UUID, diagnosis string, at time.Time) error {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	p.LastConsultationDate = &at
	if diagnosis != "" {
		p.Diagnosis = &diagnosis
	}
	now := s.now()
	p.UpdatedAt = &now
	return s.repo.Update(ctx, p)
}

// ListParams combines filtering, ordering and paging.
type ListParams struct {
	Filter Filter
	SortBy string
	Order  string
	Limit  int
	Offset int
}

// List filters, sorts and pages the registry. The total counts matches before
// paging.
func (s *Service) List(ctx context.Context, params ListParams) ([]*Patient, int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	items := params.Filter.Apply(all, s.now())
	SortPatients(items, params.SortBy, params.Order)

	page := pagination.Page(items, pagination.Params{Limit: params.Limit, Offset: params.Offset})
	return page, len(items), nil
}

// All returns the unfiltered registry.
func (s *Service) All(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

func (s *Service) GroupByDiagnosis(ctx context.Context, f Filter) (map[string][]*Patient, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDiagnosis(f.Apply(all, s.now())), nil
}

// SetDiagnosisCatalog makes Diagnoses offer the catalog's names alongside
// the ones already recorded on patients.
func (s *Service) SetDiagnosisCatalog(c DiagnosisCatalog) { s.catalog = c }

// Diagnoses backs the diagnosis picker.
func (s *Service) Diagnoses(ctx context.Context) ([]string, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var catalog []string
	if s.catalog != nil {
		if catalog, err = s.catalog.DiagnosisNames(ctx); err != nil {
			return nil, fmt.Errorf("list diagnosis categories: %w", err)
		}
	}
	return UniqueDiagnoses(all, catalog...), nil
}
