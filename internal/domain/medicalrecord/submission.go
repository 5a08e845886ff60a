package medicalrecord

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/klinik/klinik/internal/domain/vitals"
)

var ErrValidation = errors.New("medical record validation failed")

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// Submission is one role's contribution to a record. The nurse opens it with
// an intake; the doctor closes it with a finalization.
type Submission interface {
	Role() string
	Validate() FieldErrors
	// TargetStatus is the status the record is in after the submission.
	TargetStatus() Status
}

// NurseIntake holds what is measured and asked before the doctor sees the
// patient. Blood pressure is a pointer so an explicit 0 differs from
// missing.
type NurseIntake struct {
	ConsultationDate       time.Time           `json:"consultation_date"`
	ReservationDate        *time.Time          `json:"reservation_date,omitempty"`
	BloodPressureSystolic  *int                `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int                `json:"blood_pressure_diastolic"`
	Pulse                  int                 `json:"pulse"`
	SpO2                   float64             `json:"spo2"`
	Temperature            float64             `json:"temperature"`
	Anamnesis              Anamnesis           `json:"anamnesis"`
	PhysicalExamination    PhysicalExamination `json:"physical_examination"`
	MedicalActions         []MedicalAction     `json:"medical_actions,omitempty"`
}

func (NurseIntake) Role() string         { return "nurse" }
func (NurseIntake) TargetStatus() Status { return StatusDraft }

func (n NurseIntake) Validate() FieldErrors {
	fe := FieldErrors{}
	if n.BloodPressureSystolic == nil {
		fe["blood_pressure_systolic"] = "Tekanan darah sistol harus diisi"
	}
	if n.BloodPressureDiastolic == nil {
		fe["blood_pressure_diastolic"] = "Tekanan darah diastol harus diisi"
	}
	if strings.TrimSpace(n.Anamnesis.MainComplaint) == "" {
		fe["main_complaint"] = "Keluhan utama harus diisi"
	}
	if strings.TrimSpace(n.PhysicalExamination.Examination) == "" {
		fe["examination"] = "Pemeriksaan fisik harus diisi"
	}
	return fe
}

// VitalSigns assembles the measured values. Call only after Validate passed.
func (n NurseIntake) VitalSigns(measuredAt time.Time) vitals.VitalSigns {
	vs := vitals.VitalSigns{
		Pulse:       n.Pulse,
		SpO2:        n.SpO2,
		Temperature: n.Temperature,
		MeasuredAt:  measuredAt,
	}
	if n.BloodPressureSystolic != nil {
		vs.BloodPressureSystolic = *n.BloodPressureSystolic
	}
	if n.BloodPressureDiastolic != nil {
		vs.BloodPressureDiastolic = *n.BloodPressureDiastolic
	}
	return vs
}

type DoctorFinalization struct {
	Diagnosis      string          `json:"diagnosis"`
	DiagnosisNotes *string         `json:"diagnosis_notes,omitempty"`
	Therapies      []Therapy       `json:"therapies"`
	MedicalActions []MedicalAction `json:"medical_actions,omitempty"`
}

func (DoctorFinalization) Role() string         { return "doctor" }
func (DoctorFinalization) TargetStatus() Status { return StatusCompleted }

func (d DoctorFinalization) Validate() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(d.Diagnosis) == "" {
		fe["diagnosis"] = "Diagnosis harus dipilih"
	}
	if len(d.Therapies) == 0 {
		fe["therapies"] = "Minimal harus ada satu obat/terapi"
	}
	return fe
}
