package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/klinik/klinik/internal/domain/anthropometry"
)

// TreatmentCategory selects the clinic service line and the MRN code.
type TreatmentCategory string

const (
	CategoryUmum       TreatmentCategory = "umum"
	CategorySirkumsisi TreatmentCategory = "sirkumsisi"
)

// Code is the three-letter category segment of a medical-record number.
func (c TreatmentCategory) Code() string {
	if c == CategoryUmum {
		return "UMM"
	}
	return "SRK"
}

func (c TreatmentCategory) Valid() bool {
	return c == CategoryUmum || c == CategorySirkumsisi
}

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

var validBloodTypes = map[string]bool{"O": true, "A": true, "B": true, "AB": true}

// Patient maps to the patient table.
type Patient struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	MedicalRecordNumber  string            `db:"medical_record_number" json:"medical_record_number"`
	Name                 string            `db:"name" json:"name"`
	DateOfBirth          time.Time         `db:"date_of_birth" json:"date_of_birth"`
	Gender               string            `db:"gender" json:"gender"`
	Address              string            `db:"address" json:"address"`
	BloodType            string            `db:"blood_type" json:"blood_type,omitempty"`
	Occupation           string            `db:"occupation" json:"occupation"`
	Phone                *string           `db:"phone" json:"phone,omitempty"`
	Email                *string           `db:"email" json:"email,omitempty"`
	Weight               *float64          `db:"weight" json:"weight,omitempty"`
	Height               *float64          `db:"height" json:"height,omitempty"`
	TreatmentCategory    TreatmentCategory `db:"treatment_category" json:"treatment_category"`
	Diagnosis            *string           `db:"diagnosis" json:"diagnosis,omitempty"`
	LastConsultationDate *time.Time        `db:"last_consultation_date" json:"last_consultation_date,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            *time.Time        `db:"updated_at" json:"updated_at,omitempty"`
}

// AgeOn is the patient's age in full years at ref.
func (p *Patient) AgeOn(ref time.Time) int {
	return anthropometry.CalculateAge(p.DateOfBirth, ref)
}

// BMI returns the body-mass index when both weight and height are recorded.
func (p *Patient) BMI() (float64, bool) {
	if p.Weight == nil || p.Height == nil || *p.Height <= 0 {
		return 0, false
	}
	return anthropometry.CalculateBMI(*p.Weight, *p.Height), true
}

// DiagnosisOrEmpty flattens the optional diagnosis.
func (p *Patient) DiagnosisOrEmpty() string {
	if p.Diagnosis == nil {
		return ""
	}
	return *p.Diagnosis
}
