package finance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var wib = time.FixedZone("WIB", 7*3600)

func tx(typ Type, amount float64, status Status, at time.Time) *Transaction {
	cat := CategoryPatientFee
	if typ == TypeExpense {
		cat = CategoryOperational
	}
	return &Transaction{Type: typ, Category: cat, Amount: amount, Status: status, CreatedAt: at, Description: "x"}
}

func TestSummarizeTransactions_CompletedOnly(t *testing.T) {
	at := time.Date(2026, time.January, 15, 3, 0, 0, 0, time.UTC)
	txs := []*Transaction{
		tx(TypeIncome, 150000, StatusCompleted, at),
		tx(TypeIncome, 50000, StatusPending, at),
		tx(TypeExpense, 40000, StatusCompleted, at),
		tx(TypeExpense, 99999, StatusCancelled, at),
	}
	s := SummarizeTransactions(txs)
	if s.TotalIncome != 150000 || s.TotalExpense != 40000 || s.NetProfit != 110000 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if empty := SummarizeTransactions(nil); empty != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestSummarizeDay_UsesClinicDay(t *testing.T) {
	txs := []*Transaction{
		// 2026-01-14 20:00 UTC is 2026-01-15 03:00 in WIB.
		tx(TypeIncome, 100, StatusCompleted, time.Date(2026, time.January, 14, 20, 0, 0, 0, time.UTC)),
		tx(TypeIncome, 10, StatusCompleted, time.Date(2026, time.January, 14, 10, 0, 0, 0, time.UTC)),
	}
	d := SummarizeDay(txs, "2026-01-15", wib)
	if d.TotalIncome != 100 || d.Date != "2026-01-15" {
		t.Errorf("unexpected day summary: %+v", d)
	}
}

func TestSummarizeMonth(t *testing.T) {
	txs := []*Transaction{
		tx(TypeIncome, 300, StatusCompleted, time.Date(2026, time.February, 1, 1, 0, 0, 0, wib)),
		tx(TypeExpense, 100, StatusCompleted, time.Date(2026, time.February, 28, 22, 0, 0, 0, wib)),
		tx(TypeIncome, 999, StatusPending, time.Date(2026, time.February, 10, 9, 0, 0, 0, wib)),
		tx(TypeIncome, 500, StatusCompleted, time.Date(2026, time.March, 1, 0, 30, 0, 0, wib)),
	}
	m := SummarizeMonth(txs, 2026, 2, wib)
	if m.TotalIncome != 300 || m.TotalExpense != 100 || m.NetProfit != 200 {
		t.Errorf("unexpected month summary: %+v", m)
	}
	if m.TransactionCount != 3 {
		t.Errorf("expected 3 transactions, got %d", m.TransactionCount)
	}
	if m.Year != 2026 || m.Month != 2 {
		t.Errorf("unexpected period %d-%d", m.Year, m.Month)
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		year, month int
		start, end  string
	}{
		{2026, 2, "2026-02-01", "2026-02-28"},
		{2024, 2, "2024-02-01", "2024-02-29"},
		{2026, 12, "2026-12-01", "2026-12-31"},
	}
	for _, tt := range tests {
		start, end := MonthBounds(tt.year, tt.month)
		if start != tt.start || end != tt.end {
			t.Errorf("MonthBounds(%d, %d) = %s, %s", tt.year, tt.month, start, end)
		}
	}
}

func TestFilter(t *testing.T) {
	pid := uuid.New()
	minAmount := 100.0
	at := time.Date(2026, time.January, 15, 9, 0, 0, 0, wib)
	a := tx(TypeIncome, 150, StatusCompleted, at)
	a.PatientID = &pid
	b := tx(TypeExpense, 50, StatusCompleted, at)
	c := tx(TypeIncome, 500, StatusCompleted, at.AddDate(0, 0, 5))

	got := Filter{PatientID: &pid}.Apply([]*Transaction{a, b, c}, wib)
	if len(got) != 1 || got[0] != a {
		t.Errorf("patient filter: %v", got)
	}
	got = Filter{MinAmount: &minAmount, EndDate: "2026-01-15"}.Apply([]*Transaction{a, b, c}, wib)
	if len(got) != 1 || got[0] != a {
		t.Errorf("amount/date filter: %v", got)
	}
	got = Filter{Type: TypeIncome}.Apply([]*Transaction{a, b, c}, wib)
	if len(got) != 2 {
		t.Errorf("type filter: %v", got)
	}
}

func TestCategory_Allows(t *testing.T) {
	if !CategoryOther.Allows(TypeIncome) || !CategoryOther.Allows(TypeExpense) {
		t.Error("other should allow both types")
	}
	if CategorySalary.Allows(TypeIncome) {
		t.Error("salary is not income")
	}
}

func newTestService() *Service {
	svc := NewService(NewMemoryRepo(), wib, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2026, time.January, 15, 2, 0, 0, 0, time.UTC) })
	return svc
}

func TestService_Create(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tr := &Transaction{Type: TypeIncome, Category: CategoryConsultationFee, Description: "Konsultasi", Amount: 75000}
	if err := svc.Create(ctx, tr, "kasir-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Currency != "IDR" || tr.Status != StatusPending || tr.CreatedBy != "kasir-1" {
		t.Errorf("unexpected defaults: %+v", tr)
	}

	bad := []*Transaction{
		{Type: TypeIncome, Category: CategoryPatientFee, Description: "x", Amount: -1},
		{Type: TypeIncome, Category: CategorySalary, Description: "x", Amount: 1},
		{Type: "refund", Category: CategoryOther, Description: "x", Amount: 1},
		{Type: TypeExpense, Category: CategoryUtilities, Description: "", Amount: 1},
		{Type: TypeExpense, Category: CategoryUtilities, Description: "x", Amount: 1, Status: "paid"},
	}
	for i, b := range bad {
		if err := svc.Create(ctx, b, "kasir-1"); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tr := &Transaction{Type: TypeIncome, Category: CategoryPatientFee, Description: "Biaya pasien", Amount: 100000}
	if err := svc.Create(ctx, tr, "kasir-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, _ := svc.Summary(ctx, "2026-01-15", "2026-01-15")
	if s.TotalIncome != 0 {
		t.Errorf("pending transaction counted: %+v", s)
	}

	if _, err := svc.UpdateStatus(ctx, tr.ID, StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ = svc.Summary(ctx, "2026-01-15", "2026-01-15")
	if s.TotalIncome != 100000 {
		t.Errorf("expected 100000, got %+v", s)
	}

	if _, err := svc.UpdateStatus(ctx, tr.ID, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, tr.ID, StatusCompleted); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.New(), StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepo_UpdateStatusConflict(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	tr := tx(TypeIncome, 100000, StatusPending, time.Now())
	if err := repo.Create(ctx, tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.UpdateStatus(ctx, tr.ID, StatusPending, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdateStatus(ctx, tr.ID, StatusPending, StatusCompleted); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, uuid.New(), StatusPending, StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// staleRepo serves the transaction as it was before another request changed
// it, the view a request racing that change would have read.
type staleRepo struct {
	*MemoryRepo
	snapshot *Transaction
}

func (r *staleRepo) GetByID(_ context.Context, _ uuid.UUID) (*Transaction, error) {
	cp := *r.snapshot
	return &cp, nil
}

func TestService_UpdateStatus_LosesRaceToCancel(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, wib, zerolog.Nop())
	ctx := context.Background()

	tr := &Transaction{Type: TypeIncome, Category: CategoryPatientFee, Description: "Biaya pasien", Amount: 100000}
	if err := svc.Create(ctx, tr, "kasir-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := repo.GetByID(ctx, tr.ID)

	if _, err := svc.UpdateStatus(ctx, tr.ID, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	late := NewService(&staleRepo{MemoryRepo: repo, snapshot: before}, wib, zerolog.Nop())
	_, err := late.UpdateStatus(ctx, tr.ID, StatusCompleted)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if he, ok := httpError(err).(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", httpError(err))
	}

	got, _ := repo.GetByID(ctx, tr.ID)
	if got.Status != StatusCancelled {
		t.Errorf("cancelled transaction was revived as %s", got.Status)
	}
}

func TestHandler_CreateAndSummary(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"type":"income","category":"medicine_sale","description":"Obat","amount":25000,"status":"completed"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/transactions/summary?month=2026-01", nil)
	rec = httptest.NewRecorder()
	if err := h.Summary(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total_income":25000`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"transaction_count":1`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_BadInput(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/transactions/summary?month=2026-13", nil)
	err := h.Summary(e.NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/transactions?min_amount=lots", nil)
	err = h.List(e.NewContext(req, httptest.NewRecorder()))
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}

	body := `{"type":"income","category":"salary","description":"x","amount":1}`
	req = httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err = h.Create(e.NewContext(req, httptest.NewRecorder()))
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
