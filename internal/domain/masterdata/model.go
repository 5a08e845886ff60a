package masterdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Specialization string

const (
	SpecializationUmum      Specialization = "umum"
	SpecializationGigi      Specialization = "gigi"
	SpecializationAnak      Specialization = "anak"
	SpecializationKandungan Specialization = "kandungan"
	SpecializationLain      Specialization = "lain"
)

var validSpecializations = map[Specialization]bool{
	SpecializationUmum: true, SpecializationGigi: true, SpecializationAnak: true,
	SpecializationKandungan: true, SpecializationLain: true,
}

// Weekday names as the schedule stores them.
var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ScheduleSlot is one weekly practice block, times as HH:MM in the clinic
// timezone. End is exclusive.
type ScheduleSlot struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (s ScheduleSlot) validate() error {
	if _, ok := weekdays[s.DayOfWeek]; !ok {
		return fmt.Errorf("unknown day_of_week %q", s.DayOfWeek)
	}
	start, err := parseClock(s.StartTime)
	if err != nil {
		return err
	}
	end, err := parseClock(s.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("%s: end_time %s is not after start_time %s", s.DayOfWeek, s.EndTime, s.StartTime)
	}
	return nil
}

// covers assumes a validated slot.
func (s ScheduleSlot) covers(local time.Time) bool {
	if weekdays[s.DayOfWeek] != local.Weekday() {
		return false
	}
	start, _ := parseClock(s.StartTime)
	end, _ := parseClock(s.EndTime)
	m := local.Hour()*60 + local.Minute()
	return m >= start && m < end
}

// Doctor maps to the doctor table. LicenseNumber is the STR (Surat Tanda
// Registrasi) and is unique.
type Doctor struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Specialization Specialization `db:"specialization" json:"specialization"`
	LicenseNumber  string         `db:"license_number" json:"license_number"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	Email          *string        `db:"email" json:"email,omitempty"`
	Address        *string        `db:"address" json:"address,omitempty"`
	Schedule       []ScheduleSlot `db:"schedule" json:"schedule"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// OnDuty reports whether local falls inside one of the doctor's slots.
func (d *Doctor) OnDuty(local time.Time) bool {
	if !d.IsActive {
		return false
	}
	for _, s := range d.Schedule {
		if s.covers(local) {
			return true
		}
	}
	return false
}

// DiagnosisCategory is an entry of the diagnosis picker. Code is ICD-10 or a
// clinic code, stored upper case and unique.
type DiagnosisCategory struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Code             string      `db:"code" json:"code"`
	Description      *string     `db:"description" json:"description,omitempty"`
	RelatedMedicines []uuid.UUID `db:"related_medicines" json:"related_medicines"`
}

type FormulaItem struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Dosage       string    `json:"dosage"`
	Quantity     *int      `json:"quantity,omitempty"`
}

// MedicineFormula is a named prescription template a doctor can apply.
type MedicineFormula struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	Name       string        `db:"name" json:"name"`
	Medicines  []FormulaItem `db:"medicines" json:"medicines"`
	Usage      string        `db:"usage" json:"usage"`
	Duration   string        `db:"duration" json:"duration"`
	Indication *string       `db:"indication" json:"indication,omitempty"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	CreatedBy  string        `db:"created_by" json:"created_by"`
}

// Indicates reports whether the formula's indication mentions diagnosis,
// ignoring case.
func (f *MedicineFormula) Indicates(diagnosis string) bool {
	diagnosis = strings.TrimSpace(diagnosis)
	if f.Indication == nil || diagnosis == "" {
		return false
	}
	return strings.Contains(strings.ToLower(*f.Indication), strings.ToLower(diagnosis))
}
