package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/klinik/klinik/pkg/dateutil"
)

var queueHeader = []string{"No", "MRN", "Nama Pasien", "Jenis", "Prioritas", "Status", "Check-in"}

type sheet struct {
	name   string
	header []string
	rows   [][]interface{}
	widths []float64
}

// ExportDailyXLSX renders a daily report as a workbook with a summary sheet
// and the day's queue.
func ExportDailyXLSX(r DailyReport) ([]byte, error) {
	summary := sheet{
		name:   "Ringkasan",
		header: []string{"Keterangan", "Nilai"},
		rows: [][]interface{}{
			{"Tanggal", r.Date},
			{"Jumlah Pasien", r.PatientCount},
			{"Rekam Medis", r.RecordCount},
			{"Pemasukan", r.Income},
			{"Pengeluaran", r.Expense},
			{"Laba Bersih", r.Profit},
		},
		widths: []float64{24, 20},
	}
	queue := sheet{name: "Antrian", header: queueHeader, widths: []float64{6, 20, 28, 14, 12, 14, 22}}
	for _, e := range r.Queue {
		queue.rows = append(queue.rows, []interface{}{
			e.QueueNumber, e.MedicalRecordNumber, e.PatientName,
			string(e.QueueType), string(e.Priority), string(e.Status),
			dateutil.ISO(e.CheckInTime),
		})
	}
	return writeWorkbook(summary, queue)
}

// ExportMonthlyXLSX renders a monthly report with a summary sheet and the
// month's diagnosis counts, most frequent first.
func ExportMonthlyXLSX(r MonthlyReport) ([]byte, error) {
	summary := sheet{
		name:   "Ringkasan",
		header: []string{"Keterangan", "Nilai"},
		rows: [][]interface{}{
			{"Bulan", fmt.Sprintf("%04d-%02d", r.Year, r.Month)},
			{"Kunjungan", r.Visits},
			{"Rekam Medis", r.RecordCount},
			{"Pasien Baru", r.NewPatients},
			{"Pasien Lama", r.ReturningPatients},
			{"Jumlah Transaksi", r.Finance.TransactionCount},
			{"Pemasukan", r.Finance.TotalIncome},
			{"Pengeluaran", r.Finance.TotalExpense},
			{"Laba Bersih", r.Finance.NetProfit},
		},
		widths: []float64{24, 20},
	}

	names := make([]string, 0, len(r.Diagnoses))
	for d := range r.Diagnoses {
		names = append(names, d)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.Diagnoses[names[i]] != r.Diagnoses[names[j]] {
			return r.Diagnoses[names[i]] > r.Diagnoses[names[j]]
		}
		return names[i] < names[j]
	})
	diag := sheet{name: "Diagnosis", header: []string{"Diagnosis", "Jumlah"}, widths: []float64{36, 10}}
	for _, d := range names {
		diag.rows = append(diag.rows, []interface{}{d, r.Diagnoses[d]})
	}
	return writeWorkbook(summary, diag)
}

func writeWorkbook(sheets ...sheet) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only runs on the way out.
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := fillSheet(f, s, headerStyle); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheets[0].name)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func fillSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, h := range s.header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.name, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range s.rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(s.name, cell, v); err != nil {
				return err
			}
		}
	}
	for col, w := range s.widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, name, name, w); err != nil {
			return err
		}
	}
	return nil
}
