package medicalrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/domain/vitals"
	"github.com/klinik/klinik/internal/platform/sequence"
)

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

type linkCall struct{ queueID, recordID uuid.UUID }

type fakeQueue struct{ calls []linkCall }

func (f *fakeQueue) LinkMedicalRecord(_ context.Context, queueID, recordID uuid.UUID) error {
	f.calls = append(f.calls, linkCall{queueID, recordID})
	return nil
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T) (*Service, *patient.Service, *patient.Patient, *fakeQueue) {
	t.Helper()
	patients := patient.NewService(patient.NewMemoryRepo(), sequence.NewMemoryStore(), time.UTC, zerolog.Nop())
	patients.SetClock(func() time.Time { return testNow })
	p := &patient.Patient{
		Name:        "Siti Aminah",
		DateOfBirth: time.Date(1990, time.May, 2, 0, 0, 0, 0, time.UTC),
		Gender:      patient.GenderFemale,
		Address:     "Jl. Melati 3",
		Occupation:  "Pedagang",
	}
	if err := patients.Register(context.Background(), p); err != nil {
		t.Fatalf("register patient: %v", err)
	}
	q := &fakeQueue{}
	svc := NewService(NewMemoryRepo(), patients, q, zerolog.Nop())
	svc.SetClock(func() time.Time { return testNow })
	return svc, patients, p, q
}

func validIntake() NurseIntake {
	return NurseIntake{
		BloodPressureSystolic:  intPtr(120),
		BloodPressureDiastolic: intPtr(80),
		Pulse:                  72,
		SpO2:                   98,
		Temperature:            36.8,
		Anamnesis:              Anamnesis{MainComplaint: "Demam dua hari"},
		PhysicalExamination:    PhysicalExamination{Examination: "Faring hiperemis"},
	}
}

func validFinalization() DoctorFinalization {
	return DoctorFinalization{
		Diagnosis: "Faringitis Akut",
		Therapies: []Therapy{{MedicineName: "Paracetamol", Dosage: "500mg", Frequency: "3x sehari", Duration: "3 hari"}},
	}
}

func TestNurseIntake_Validate(t *testing.T) {
	fe := NurseIntake{}.Validate()
	want := map[string]string{
		"blood_pressure_systolic":  "Tekanan darah sistol harus diisi",
		"blood_pressure_diastolic": "Tekanan darah diastol harus diisi",
		"main_complaint":           "Keluhan utama harus diisi",
		"examination":              "Pemeriksaan fisik harus diisi",
	}
	if len(fe) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), fe)
	}
	for k, v := range want {
		if fe[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, fe[k])
		}
	}

	in := validIntake()
	in.BloodPressureSystolic = intPtr(0)
	if fe := in.Validate(); len(fe) != 0 {
		t.Errorf("an explicit zero is not missing: %v", fe)
	}
}

func TestDoctorFinalization_Validate(t *testing.T) {
	fe := DoctorFinalization{}.Validate()
	if fe["diagnosis"] != "Diagnosis harus dipilih" {
		t.Errorf("unexpected diagnosis message %q", fe["diagnosis"])
	}
	if fe["therapies"] != "Minimal harus ada satu obat/terapi" {
		t.Errorf("unexpected therapies message %q", fe["therapies"])
	}
	if fe := validFinalization().Validate(); fe.Err() != nil {
		t.Errorf("unexpected error: %v", fe.Err())
	}
}

func TestSubmission_TargetStatus(t *testing.T) {
	for _, tt := range []struct {
		sub  Submission
		role string
		want Status
	}{
		{validIntake(), "nurse", StatusDraft},
		{validFinalization(), "doctor", StatusCompleted},
	} {
		if tt.sub.Role() != tt.role || tt.sub.TargetStatus() != tt.want {
			t.Errorf("%T: got %s/%s", tt.sub, tt.sub.Role(), tt.sub.TargetStatus())
		}
	}
}

func TestService_Lifecycle(t *testing.T) {
	svc, patients, p, q := newTestService(t)
	ctx := context.Background()
	queueID := uuid.New()

	r, err := svc.CreateFromIntake(ctx, p.ID, &queueID, validIntake(), "perawat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusDraft {
		t.Errorf("expected draft, got %s", r.Status)
	}
	if r.MedicalRecordNumber != p.MedicalRecordNumber {
		t.Errorf("expected %s, got %s", p.MedicalRecordNumber, r.MedicalRecordNumber)
	}
	if len(q.calls) != 1 || q.calls[0].queueID != queueID || q.calls[0].recordID != r.ID {
		t.Errorf("queue entry not linked: %+v", q.calls)
	}

	if _, err := svc.Archive(ctx, r.ID, "admin"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus archiving a draft, got %v", err)
	}

	done, err := svc.Finalize(ctx, r.ID, validFinalization(), "dokter-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted || done.Diagnosis != "Faringitis Akut" {
		t.Errorf("unexpected record: %s %s", done.Status, done.Diagnosis)
	}
	if done.UpdatedBy == nil || *done.UpdatedBy != "dokter-1" {
		t.Errorf("expected updated_by dokter-1")
	}

	got, err := patients.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Diagnosis == nil || *got.Diagnosis != "Faringitis Akut" {
		t.Errorf("patient diagnosis not stamped")
	}
	if got.LastConsultationDate == nil || !got.LastConsultationDate.Equal(testNow) {
		t.Errorf("patient last consultation not stamped: %v", got.LastConsultationDate)
	}

	if _, err := svc.Finalize(ctx, r.ID, validFinalization(), "dokter-1"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus finalizing twice, got %v", err)
	}
	if _, err := svc.UpdateVitals(ctx, r.ID, vitals.VitalSigns{Temperature: 37}, "perawat-1"); !errors.Is(err, ErrRecordLocked) {
		t.Errorf("expected ErrRecordLocked, got %v", err)
	}

	archived, err := svc.Archive(ctx, r.ID, "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archived.Status != StatusArchived {
		t.Errorf("expected archived, got %s", archived.Status)
	}
	if _, err := svc.Archive(ctx, r.ID, "admin"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus archiving twice, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, p, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateFromIntake(ctx, p.ID, nil, NurseIntake{}, "perawat-1")
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 4 {
		t.Errorf("expected 4 field errors, got %v", ve.Fields)
	}

	in := validIntake()
	in.SpO2 = 140
	if _, err := svc.CreateFromIntake(ctx, p.ID, nil, in, "perawat-1"); !errors.Is(err, vitals.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	if _, err := svc.CreateFromIntake(ctx, uuid.New(), nil, validIntake(), "perawat-1"); !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected patient.ErrNotFound, got %v", err)
	}
}

func TestService_CreateCompleted(t *testing.T) {
	svc, patients, p, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.CreateCompleted(ctx, p.ID, nil, validIntake(), validFinalization(), "dokter-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusCompleted || len(r.Therapies) != 1 {
		t.Errorf("unexpected record: %+v", r)
	}
	got, _ := patients.Get(ctx, p.ID)
	if got.Diagnosis == nil || *got.Diagnosis != "Faringitis Akut" {
		t.Errorf("patient diagnosis not stamped")
	}

	_, err = svc.CreateCompleted(ctx, p.ID, nil, validIntake(), DoctorFinalization{}, "dokter-1")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["therapies"] == "" {
		t.Errorf("expected therapies error, got %v", err)
	}
}

func TestService_ListByPatientNewestFirst(t *testing.T) {
	svc, _, p, _ := newTestService(t)
	ctx := context.Background()

	for _, day := range []int{3, 9, 5} {
		in := validIntake()
		in.ConsultationDate = time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC)
		if _, err := svc.CreateFromIntake(ctx, p.ID, nil, in, "perawat-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, err := svc.ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 records, got %d", len(items))
	}
	for i, day := range []int{9, 5, 3} {
		if items[i].ConsultationDate.Day() != day {
			t.Errorf("position %d: expected day %d, got %d", i, day, items[i].ConsultationDate.Day())
		}
	}

	latest, err := svc.Latest(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.ConsultationDate.Day() != 9 {
		t.Errorf("expected latest on day 9, got %d", latest.ConsultationDate.Day())
	}

	if _, err := svc.Latest(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_UpdateVitalsOnDraft(t *testing.T) {
	svc, _, p, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.CreateFromIntake(ctx, p.ID, nil, validIntake(), "perawat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vs := vitals.VitalSigns{BloodPressureSystolic: 135, BloodPressureDiastolic: 85, Pulse: 80, SpO2: 97, Temperature: 37.5}
	got, err := svc.UpdateVitals(ctx, r.ID, vs, "perawat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VitalSigns.BloodPressureSystolic != 135 || got.VitalSigns.MeasuredAt.IsZero() {
		t.Errorf("vitals not updated: %+v", got.VitalSigns)
	}
	if got.Summary() != "135/85 mmHg, Nadi: 80 bpm, SpO2: 97%, Suhu: 37.5°C" {
		t.Errorf("unexpected summary %q", got.Summary())
	}
}

func TestMemoryRepo_UpdateConflict(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	r := &MedicalRecord{PatientID: uuid.New(), Status: StatusDraft, ConsultationDate: testNow}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := *r
	first.Status = StatusCompleted
	first.Diagnosis = "Faringitis Akut"
	if err := repo.Update(ctx, &first, StatusDraft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := *r
	second.Status = StatusCompleted
	second.Diagnosis = "Tonsilitis"
	if err := repo.Update(ctx, &second, StatusDraft); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	got, _ := repo.GetByID(ctx, r.ID)
	if got.Diagnosis != "Faringitis Akut" {
		t.Errorf("first finalization overwritten, diagnosis %q", got.Diagnosis)
	}

	if err := repo.Update(ctx, &MedicalRecord{ID: uuid.New()}, StatusDraft); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// staleRepo hands out a record as it was before a concurrent write landed.
type staleRepo struct {
	*MemoryRepo
	snapshot *MedicalRecord
}

func (s *staleRepo) GetByID(_ context.Context, _ uuid.UUID) (*MedicalRecord, error) {
	return clone(s.snapshot), nil
}

func TestService_Finalize_TwoDoctors(t *testing.T) {
	svc, patients, p, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.CreateFromIntake(ctx, p.ID, nil, validIntake(), "perawat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	draft, _ := svc.Get(ctx, r.ID)

	if _, err := svc.Finalize(ctx, r.ID, validFinalization(), "dokter-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	late := NewService(&staleRepo{MemoryRepo: svc.repo.(*MemoryRepo), snapshot: draft}, patients, nil, zerolog.Nop())
	fin := validFinalization()
	fin.Diagnosis = "Tonsilitis"
	if _, err := late.Finalize(ctx, r.ID, fin, "dokter-2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, _ := svc.Get(ctx, r.ID)
	if got.Diagnosis != "Faringitis Akut" || got.UpdatedBy == nil || *got.UpdatedBy != "dokter-1" {
		t.Errorf("second doctor overwrote the record: %+v", got)
	}
}

func TestApplyFinalization_CopiesActions(t *testing.T) {
	intake := make([]MedicalAction, 1, 4)
	intake[0] = MedicalAction{Action: "Nebulisasi"}
	r := &MedicalRecord{MedicalActions: intake}

	applyFinalization(r, DoctorFinalization{Diagnosis: "Asma", MedicalActions: []MedicalAction{{Action: "Injeksi"}}})

	if len(r.MedicalActions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(r.MedicalActions))
	}
	r.MedicalActions[0].Action = "changed"
	if intake[0].Action != "Nebulisasi" {
		t.Error("record shares its action slice with the caller's intake")
	}
	if spare := intake[:2]; spare[1].Action != "" {
		t.Errorf("finalization wrote into the caller's backing array: %+v", spare[1])
	}
}
