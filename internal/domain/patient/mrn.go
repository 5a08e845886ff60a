package patient

import "fmt"

// NextSequentialNumber is one more than the number of existing patients in
// category. Registration uses an atomic counter instead (see Service.Register);
// this count is used to seed that counter from existing data.
func NextSequentialNumber(category TreatmentCategory, existing []*Patient) int {
	n := 0
	for _, p := range existing {
		if p.TreatmentCategory == category {
			n++
		}
	}
	return n + 1
}

// FormatMedicalRecordNumber renders RM-{year}/{UMM|SRK}/{seq}. The sequence is
// zero-padded to three digits and never truncated.
func FormatMedicalRecordNumber(category TreatmentCategory, seq, year int) string {
	return fmt.Sprintf("RM-%04d/%s/%03d", year, category.Code(), seq)
}
