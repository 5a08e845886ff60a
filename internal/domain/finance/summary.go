package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/klinik/klinik/pkg/dateutil"
)

type Summary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	NetProfit    float64 `json:"net_profit"`
}

// SummarizeTransactions totals completed transactions only; pending and
// cancelled ones are ignored.
func SummarizeTransactions(txs []*Transaction) Summary {
	var s Summary
	for _, t := range txs {
		if !t.Counted() {
			continue
		}
		switch t.Type {
		case TypeIncome:
			s.TotalIncome += t.Amount
		case TypeExpense:
			s.TotalExpense += t.Amount
		}
	}
	s.NetProfit = s.TotalIncome - s.TotalExpense
	return s
}

// DateOf is the clinic-local calendar day of t as YYYY-MM-DD.
func DateOf(t *Transaction, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return dateutil.FormatDateForInput(t.CreatedAt.In(loc))
}

type DaySummary struct {
	Summary
	Date string `json:"date"`
}

func SummarizeDay(txs []*Transaction, day string, loc *time.Location) DaySummary {
	var sameDay []*Transaction
	for _, t := range txs {
		if DateOf(t, loc) == day {
			sameDay = append(sameDay, t)
		}
	}
	return DaySummary{Summary: SummarizeTransactions(sameDay), Date: day}
}

type MonthSummary struct {
	Summary
	Year  int `json:"year"`
	Month int `json:"month"`
	// TransactionCount includes pending and cancelled transactions.
	TransactionCount int `json:"transaction_count"`
}

// MonthBounds returns the first and last day of a month as YYYY-MM-DD.
func MonthBounds(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return dateutil.FormatDateForInput(first), dateutil.FormatDateForInput(last)
}

func SummarizeMonth(txs []*Transaction, year, month int, loc *time.Location) MonthSummary {
	start, end := MonthBounds(year, month)
	inMonth := Filter{StartDate: start, EndDate: end}.Apply(txs, loc)
	return MonthSummary{
		Summary:          SummarizeTransactions(inMonth),
		Year:             year,
		Month:            month,
		TransactionCount: len(inMonth),
	}
}

// ParseMonth reads a YYYY-MM value.
func ParseMonth(s string) (int, int, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return t.Year(), int(t.Month()), nil
}

// Filter narrows a transaction list. Zero fields do not filter; dates are
// inclusive YYYY-MM-DD bounds.
type Filter struct {
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
	Type      Type       `json:"type,omitempty"`
	Category  Category   `json:"category,omitempty"`
	Status    Status     `json:"status,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	MinAmount *float64   `json:"min_amount,omitempty"`
	MaxAmount *float64   `json:"max_amount,omitempty"`
}

func (f Filter) Match(t *Transaction, loc *time.Location) bool {
	if f.StartDate != "" || f.EndDate != "" {
		day := DateOf(t, loc)
		if f.StartDate != "" && day < f.StartDate {
			return false
		}
		if f.EndDate != "" && day > f.EndDate {
			return false
		}
	}
	switch {
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.Category != "" && t.Category != f.Category:
		return false
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.PatientID != nil && (t.PatientID == nil || *t.PatientID != *f.PatientID):
		return false
	case f.MinAmount != nil && t.Amount < *f.MinAmount:
		return false
	case f.MaxAmount != nil && t.Amount > *f.MaxAmount:
		return false
	}
	return true
}

func (f Filter) Apply(txs []*Transaction, loc *time.Location) []*Transaction {
	out := []*Transaction{}
	for _, t := range txs {
		if f.Match(t, loc) {
			out = append(out, t)
		}
	}
	return out
}
