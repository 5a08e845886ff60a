package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/domain/inventory"
)

var (
	ErrValidation = errors.New("invalid master data")
	// ErrDoctorInactive is returned when assigning patients to a doctor who
	// no longer practices at the clinic.
	ErrDoctorInactive = errors.New("doctor is not active")
)

// Medicines resolves the stock items formulas and diagnosis categories
// point at.
type Medicines interface {
	GetMedicine(ctx context.Context, id uuid.UUID) (*inventory.Medicine, error)
}

type Service struct {
	repo      Repository
	medicines Medicines
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires master data. medicines may be nil, in which case medicine
// references are stored unchecked.
func NewService(repo Repository, medicines Medicines, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, medicines: medicines, loc: loc, logger: logger, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateDoctor(d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	if d.Specialization == "" {
		d.Specialization = SpecializationUmum
	}
	switch {
	case d.Name == "":
		return invalid("name is required")
	case d.LicenseNumber == "":
		return invalid("license_number is required")
	case !validSpecializations[d.Specialization]:
		return invalid("unknown specialization %q", d.Specialization)
	}
	for _, slot := range d.Schedule {
		if err := slot.validate(); err != nil {
			return invalid("schedule: %v", err)
		}
	}
	return nil
}

// CreateDoctor registers a practising doctor. New doctors start active.
func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	d.ID = uuid.New()
	d.IsActive = true
	d.CreatedAt = s.now()
	if err := s.repo.CreateDoctor(ctx, d); err != nil {
		return err
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("license", d.LicenseNumber).Msg("doctor registered")
	return nil
}

// UpdateDoctor replaces a doctor's profile and schedule. Activation is kept;
// it only changes through SetDoctorActive.
func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	existing, err := s.repo.GetDoctor(ctx, d.ID)
	if err != nil {
		return err
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	d.IsActive = existing.IsActive
	d.CreatedAt = existing.CreatedAt
	return s.repo.UpdateDoctor(ctx, d)
}

func (s *Service) SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) (*Doctor, error) {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsActive == active {
		return d, nil
	}
	d.IsActive = active
	if err := s.repo.UpdateDoctor(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", id.String()).Bool("active", active).Msg("doctor activation changed")
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, activeOnly bool) ([]*Doctor, error) {
	all, err := s.repo.ListDoctors(ctx)
	if err != nil || !activeOnly {
		return all, err
	}
	out := []*Doctor{}
	for _, d := range all {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

// OnDuty lists the active doctors whose schedule covers at, read in the
// clinic timezone.
func (s *Service) OnDuty(ctx context.Context, at time.Time) ([]*Doctor, error) {
	all, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	local := at.In(s.loc)
	out := []*Doctor{}
	for _, d := range all {
		if d.OnDuty(local) {
			out = append(out, d)
		}
	}
	return out, nil
}

// CheckActive fails with ErrDoctorNotFound or ErrDoctorInactive unless id
// names a doctor who can take patients.
func (s *Service) CheckActive(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	if !d.IsActive {
		return fmt.Errorf("%w: %s", ErrDoctorInactive, d.Name)
	}
	return nil
}

// checkMedicine returns the stock name of id.
func (s *Service) checkMedicine(ctx context.Context, id uuid.UUID) (string, error) {
	if id == uuid.Nil {
		return "", invalid("medicine_id is required")
	}
	if s.medicines == nil {
		return "", nil
	}
	m, err := s.medicines.GetMedicine(ctx, id)
	if errors.Is(err, inventory.ErrNotFound) {
		return "", invalid("medicine %s does not exist", id)
	}
	if err != nil {
		return "", fmt.Errorf("look up medicine: %w", err)
	}
	return m.Name, nil
}

func (s *Service) prepareDiagnosis(ctx context.Context, d *DiagnosisCategory) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	switch {
	case d.Name == "":
		return invalid("name is required")
	case d.Code == "":
		return invalid("code is required")
	}
	seen := make(map[uuid.UUID]bool, len(d.RelatedMedicines))
	related := []uuid.UUID{}
	for _, id := range d.RelatedMedicines {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.checkMedicine(ctx, id); err != nil {
			return err
		}
		related = append(related, id)
	}
	d.RelatedMedicines = related
	return nil
}

func (s *Service) CreateDiagnosis(ctx context.Context, d *DiagnosisCategory) error {
	if err := s.prepareDiagnosis(ctx, d); err != nil {
		return err
	}
	d.ID = uuid.New()
	return s.repo.CreateDiagnosis(ctx, d)
}

func (s *Service) UpdateDiagnosis(ctx context.Context, d *DiagnosisCategory) error {
	if _, err := s.repo.GetDiagnosis(ctx, d.ID); err != nil {
		return err
	}
	if err := s.prepareDiagnosis(ctx, d); err != nil {
		return err
	}
	return s.repo.UpdateDiagnosis(ctx, d)
}

func (s *Service) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteDiagnosis(ctx, id)
}

func (s *Service) GetDiagnosis(ctx context.Context, id uuid.UUID) (*DiagnosisCategory, error) {
	return s.repo.GetDiagnosis(ctx, id)
}

// ListDiagnoses optionally narrows by a case-insensitive match on name or
// code.
func (s *Service) ListDiagnoses(ctx context.Context, search string) ([]*DiagnosisCategory, error) {
	all, err := s.repo.ListDiagnoses(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return all, nil
	}
	out := []*DiagnosisCategory{}
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Code), q) {
			out = append(out, d)
		}
	}
	return out, nil
}

// DiagnosisByName finds a category by exact name, ignoring case.
func (s *Service) DiagnosisByName(ctx context.Context, name string) (*DiagnosisCategory, error) {
	all, err := s.repo.ListDiagnoses(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for _, d := range all {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return nil, ErrDiagnosisNotFound
}

// DiagnosisNames feeds the patient diagnosis picker.
func (s *Service) DiagnosisNames(ctx context.Context) ([]string, error) {
	all, err := s.repo.ListDiagnoses(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, d := range all {
		names = append(names, d.Name)
	}
	return names, nil
}

func (s *Service) prepareFormula(ctx context.Context, f *MedicineFormula) error {
	f.Name = strings.TrimSpace(f.Name)
	switch {
	case f.Name == "":
		return invalid("name is required")
	case strings.TrimSpace(f.Usage) == "":
		return invalid("usage is required")
	case strings.TrimSpace(f.Duration) == "":
		return invalid("duration is required")
	case len(f.Medicines) == 0:
		return invalid("a formula needs at least one medicine")
	}
	items := make([]FormulaItem, len(f.Medicines))
	for i, it := range f.Medicines {
		name, err := s.checkMedicine(ctx, it.MedicineID)
		if err != nil {
			return err
		}
		if name != "" {
			it.MedicineName = name
		}
		switch {
		case strings.TrimSpace(it.MedicineName) == "":
			return invalid("medicines[%d]: medicine_name is required", i)
		case strings.TrimSpace(it.Dosage) == "":
			return invalid("medicines[%d]: dosage is required", i)
		case it.Quantity != nil && *it.Quantity <= 0:
			return invalid("medicines[%d]: quantity must be positive", i)
		}
		items[i] = it
	}
	f.Medicines = items
	return nil
}

// CreateFormula stores a prescription template. Medicine names are taken
// from stock so a renamed medicine shows its current name on the next save.
func (s *Service) CreateFormula(ctx context.Context, f *MedicineFormula, by string) error {
	if err := s.prepareFormula(ctx, f); err != nil {
		return err
	}
	f.ID = uuid.New()
	f.CreatedAt = s.now()
	f.CreatedBy = by
	return s.repo.CreateFormula(ctx, f)
}

func (s *Service) UpdateFormula(ctx context.Context, f *MedicineFormula) error {
	existing, err := s.repo.GetFormula(ctx, f.ID)
	if err != nil {
		return err
	}
	if err := s.prepareFormula(ctx, f); err != nil {
		return err
	}
	f.CreatedAt = existing.CreatedAt
	f.CreatedBy = existing.CreatedBy
	return s.repo.UpdateFormula(ctx, f)
}

func (s *Service) DeleteFormula(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteFormula(ctx, id)
}

func (s *Service) GetFormula(ctx context.Context, id uuid.UUID) (*MedicineFormula, error) {
	return s.repo.GetFormula(ctx, id)
}

// ListFormulas returns every formula, or with diagnosis set only those whose
// indication mentions it.
func (s *Service) ListFormulas(ctx context.Context, diagnosis string) ([]*MedicineFormula, error) {
	all, err := s.repo.ListFormulas(ctx)
	if err != nil || strings.TrimSpace(diagnosis) == "" {
		return all, err
	}
	out := []*MedicineFormula{}
	for _, f := range all {
		if f.Indicates(diagnosis) {
			out = append(out, f)
		}
	}
	return out, nil
}
