package medicalrecord

import (
	"time"

	"github.com/google/uuid"

	"github.com/klinik/klinik/internal/domain/vitals"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

type Anamnesis struct {
	MainComplaint        string `json:"main_complaint"`
	PastIllnessHistory   string `json:"past_illness_history"`
	FamilyIllnessHistory string `json:"family_illness_history"`
	TreatmentHistory     string `json:"treatment_history"`
}

type PhysicalExamination struct {
	Examination     string    `json:"examination"`
	ExaminationDate time.Time `json:"examination_date"`
}

type Therapy struct {
	MedicineName string  `json:"medicine_name"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Duration     string  `json:"duration"`
	Notes        *string `json:"notes,omitempty"`
}

type MedicalAction struct {
	Action      string  `json:"action"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// MedicalRecord maps to the medical_record table. Anamnesis, Therapies and
// MedicalActions are stored as JSONB.
type MedicalRecord struct {
	ID                   uuid.UUID           `db:"id" json:"id"`
	PatientID            uuid.UUID           `db:"patient_id" json:"patient_id"`
	MedicalRecordNumber  string              `db:"medical_record_number" json:"medical_record_number"`
	QueueEntryID         *uuid.UUID          `db:"queue_entry_id" json:"queue_entry_id,omitempty"`
	ConsultationDate     time.Time           `db:"consultation_date" json:"consultation_date"`
	LastConsultationDate *time.Time          `db:"last_consultation_date" json:"last_consultation_date,omitempty"`
	ReservationDate      *time.Time          `db:"reservation_date" json:"reservation_date,omitempty"`
	VitalSigns           vitals.VitalSigns   `db:"vital_signs" json:"vital_signs"`
	Anamnesis            Anamnesis           `db:"anamnesis" json:"anamnesis"`
	PhysicalExamination  PhysicalExamination `db:"physical_examination" json:"physical_examination"`
	Diagnosis            string              `db:"diagnosis" json:"diagnosis"`
	DiagnosisNotes       *string             `db:"diagnosis_notes" json:"diagnosis_notes,omitempty"`
	Therapies            []Therapy           `db:"therapies" json:"therapies"`
	MedicalActions       []MedicalAction     `db:"medical_actions" json:"medical_actions"`
	Status               Status              `db:"status" json:"status"`
	CreatedAt            time.Time           `db:"created_at" json:"created_at"`
	CreatedBy            string              `db:"created_by" json:"created_by"`
	UpdatedAt            *time.Time          `db:"updated_at" json:"updated_at,omitempty"`
	UpdatedBy            *string             `db:"updated_by" json:"updated_by,omitempty"`
}

// Locked reports whether the clinical content can no longer change.
func (r *MedicalRecord) Locked() bool {
	return r.Status == StatusCompleted || r.Status == StatusArchived
}

// Summary renders the vital signs on one line for lists and timelines.
func (r *MedicalRecord) Summary() string {
	return vitals.Format(r.VitalSigns)
}
