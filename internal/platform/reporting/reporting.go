// Package reporting aggregates queue, medical-record, finance and patient
// data into the clinic's daily, monthly and demographic reports.
package reporting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/klinik/klinik/internal/domain/anthropometry"
	"github.com/klinik/klinik/internal/domain/finance"
	"github.com/klinik/klinik/internal/domain/medicalrecord"
	"github.com/klinik/klinik/internal/domain/patient"
	"github.com/klinik/klinik/internal/domain/queue"
	"github.com/klinik/klinik/pkg/dateutil"
)

// FilterByDateRange keeps records whose date falls within [startDate,
// endDate], both inclusive. Dates are compared as YYYY-MM-DD prefixes of
// dateOf's result, so full ISO timestamps work as well as plain dates.
func FilterByDateRange[T any](records []T, startDate, endDate string, dateOf func(T) string) []T {
	out := []T{}
	for _, r := range records {
		d := dateutil.DatePrefix(dateOf(r))
		if d >= startDate && d <= endDate {
			out = append(out, r)
		}
	}
	return out
}

type QueueSource interface {
	ListBetween(ctx context.Context, startDay, endDay string) ([]*queue.Entry, error)
}

type RecordSource interface {
	List(ctx context.Context) ([]*medicalrecord.MedicalRecord, error)
}

type FinanceSource interface {
	List(ctx context.Context, f finance.Filter) ([]*finance.Transaction, error)
}

type PatientSource interface {
	All(ctx context.Context) ([]*patient.Patient, error)
}

type DailyReport struct {
	Date         string  `json:"date"`
	PatientCount int     `json:"patient_count"`
	RecordCount  int     `json:"record_count"`
	Income       float64 `json:"income"`
	Expense      float64 `json:"expense"`
	Profit       float64 `json:"profit"`
	// Queue is the day's queue, kept for the spreadsheet export.
	Queue []*queue.Entry `json:"-"`
}

type MonthlyReport struct {
	Year              int                  `json:"year"`
	Month             int                  `json:"month"`
	Finance           finance.MonthSummary `json:"finance"`
	Visits            int                  `json:"visits"`
	RecordCount       int                  `json:"record_count"`
	NewPatients       int                  `json:"new_patients"`
	ReturningPatients int                  `json:"returning_patients"`
	Diagnoses         map[string]int       `json:"diagnoses"`
}

type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type Demographics struct {
	Total  int              `json:"total"`
	Gender map[string]Share `json:"gender"`
	Age    map[string]Share `json:"age"`
}

type Service struct {
	queue    QueueSource
	records  RecordSource
	finance  FinanceSource
	patients PatientSource
	loc      *time.Location
	now      func() time.Time
}

func NewService(q QueueSource, records RecordSource, fin FinanceSource, patients PatientSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{queue: q, records: records, finance: fin, patients: patients, loc: loc, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) localDay(t time.Time) string {
	return dateutil.FormatDateForInput(t.In(s.loc))
}

func (s *Service) recordsBetween(ctx context.Context, start, end string) ([]*medicalrecord.MedicalRecord, error) {
	all, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return FilterByDateRange(all, start, end, func(r *medicalrecord.MedicalRecord) string {
		return s.localDay(r.ConsultationDate)
	}), nil
}

// DailyReport counts one clinic day. Patients are the day's queue check-ins.
func (s *Service) DailyReport(ctx context.Context, day string) (DailyReport, error) {
	entries, err := s.queue.ListBetween(ctx, day, day)
	if err != nil {
		return DailyReport{}, fmt.Errorf("list queue: %w", err)
	}
	records, err := s.recordsBetween(ctx, day, day)
	if err != nil {
		return DailyReport{}, err
	}
	txs, err := s.finance.List(ctx, finance.Filter{StartDate: day, EndDate: day})
	if err != nil {
		return DailyReport{}, fmt.Errorf("list transactions: %w", err)
	}
	sum := finance.SummarizeTransactions(txs)
	return DailyReport{
		Date:         day,
		PatientCount: len(entries),
		RecordCount:  len(records),
		Income:       sum.TotalIncome,
		Expense:      sum.TotalExpense,
		Profit:       sum.NetProfit,
		Queue:        entries,
	}, nil
}

// MonthlyReport summarizes a calendar month. Returning patients are the
// month's visits minus patients registered that month, or the whole
// registry minus new patients when nobody visited.
func (s *Service) MonthlyReport(ctx context.Context, year, month int) (MonthlyReport, error) {
	start, end := finance.MonthBounds(year, month)

	entries, err := s.queue.ListBetween(ctx, start, end)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("list queue: %w", err)
	}
	records, err := s.recordsBetween(ctx, start, end)
	if err != nil {
		return MonthlyReport{}, err
	}
	txs, err := s.finance.List(ctx, finance.Filter{StartDate: start, EndDate: end})
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("list transactions: %w", err)
	}
	patients, err := s.patients.All(ctx)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("list patients: %w", err)
	}

	newPatients := len(FilterByDateRange(patients, start, end, func(p *patient.Patient) string {
		return s.localDay(p.CreatedAt)
	}))
	base := len(entries)
	if base == 0 {
		base = len(patients)
	}
	returning := base - newPatients
	if returning < 0 {
		returning = 0
	}

	diagnoses := map[string]int{}
	for _, r := range records {
		if r.Diagnosis != "" {
			diagnoses[r.Diagnosis]++
		}
	}

	return MonthlyReport{
		Year:              year,
		Month:             month,
		Finance:           finance.SummarizeMonth(txs, year, month, s.loc),
		Visits:            len(entries),
		RecordCount:       len(records),
		NewPatients:       newPatients,
		ReturningPatients: returning,
		Diagnoses:         diagnoses,
	}, nil
}

// percent is count/total as a percentage rounded to one decimal, 0 for an
// empty population.
func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// Demographics breaks the registry down by gender and age group, ages taken
// today.
func (s *Service) Demographics(ctx context.Context) (Demographics, error) {
	patients, err := s.patients.All(ctx)
	if err != nil {
		return Demographics{}, fmt.Errorf("list patients: %w", err)
	}
	return ComputeDemographics(patients, s.now()), nil
}

func ComputeDemographics(patients []*patient.Patient, ref time.Time) Demographics {
	gender := map[string]int{patient.GenderMale: 0, patient.GenderFemale: 0}
	age := map[string]int{
		anthropometry.AgeGroupChild:   0,
		anthropometry.AgeGroupAdult:   0,
		anthropometry.AgeGroupElderly: 0,
	}
	for _, p := range patients {
		gender[p.Gender]++
		age[anthropometry.AgeGroup(p.AgeOn(ref))]++
	}

	total := len(patients)
	d := Demographics{Total: total, Gender: map[string]Share{}, Age: map[string]Share{}}
	for k, n := range gender {
		d.Gender[k] = Share{Count: n, Percent: percent(n, total)}
	}
	for k, n := range age {
		d.Age[k] = Share{Count: n, Percent: percent(n, total)}
	}
	return d
}
