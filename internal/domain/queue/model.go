package queue

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusNoShow     Status = "no_show"
)

// Priority is shown on the board but does not reorder the queue.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
	PriorityVIP    Priority = "vip"
)

type Type string

const (
	TypeRegistration Type = "registration"
	TypeCheckup      Type = "checkup"
	TypeFollowup     Type = "followup"
)

var validPriorities = map[Priority]bool{PriorityNormal: true, PriorityUrgent: true, PriorityVIP: true}

var validTypes = map[Type]bool{TypeRegistration: true, TypeCheckup: true, TypeFollowup: true}

// Entry maps to the queue_entry table. QueueDate is the clinic-local day the
// patient checked in; QueueNumber is unique within it.
type Entry struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName         string     `db:"patient_name" json:"patient_name"`
	MedicalRecordNumber string     `db:"medical_record_number" json:"medical_record_number"`
	QueueDate           string     `db:"queue_date" json:"queue_date"`
	QueueNumber         int        `db:"queue_number" json:"queue_number"`
	QueueType           Type       `db:"queue_type" json:"queue_type"`
	Status              Status     `db:"status" json:"status"`
	Priority            Priority   `db:"priority" json:"priority"`
	CheckInTime         time.Time  `db:"check_in_time" json:"check_in_time"`
	StartTime           *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime             *time.Time `db:"end_time" json:"end_time,omitempty"`
	DoctorID            *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	MedicalRecordID     *uuid.UUID `db:"medical_record_id" json:"medical_record_id,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}
