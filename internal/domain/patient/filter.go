package patient

import (
	"sort"
	"strings"
	"time"
)

const (
	// NoDiagnosis groups patients without a recorded diagnosis.
	NoDiagnosis = "Tanpa Diagnosis"
	// GeneralMedicine is a placeholder diagnosis left out of diagnosis pickers.
	GeneralMedicine = "Medis Umum"
)

// Filter narrows a patient list. Zero values match everything.
type Filter struct {
	Search            string
	Gender            string
	AgeMin            *int
	AgeMax            *int
	Diagnosis         string
	TreatmentCategory TreatmentCategory
}

// Match reports whether p passes every criterion, with ages computed at ref.
// Search matches the name case-insensitively or any part of the MRN.
func (f Filter) Match(p *Patient, ref time.Time) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.MedicalRecordNumber), q) {
			return false
		}
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.TreatmentCategory != "" && p.TreatmentCategory != f.TreatmentCategory {
		return false
	}
	if f.Diagnosis != "" && p.DiagnosisOrEmpty() != f.Diagnosis {
		return false
	}
	if f.AgeMin != nil || f.AgeMax != nil {
		age := p.AgeOn(ref)
		if f.AgeMin != nil && age < *f.AgeMin {
			return false
		}
		if f.AgeMax != nil && age > *f.AgeMax {
			return false
		}
	}
	return true
}

// Apply returns the patients matching f, preserving order.
func (f Filter) Apply(patients []*Patient, ref time.Time) []*Patient {
	out := make([]*Patient, 0, len(patients))
	for _, p := range patients {
		if f.Match(p, ref) {
			out = append(out, p)
		}
	}
	return out
}

// Sort fields accepted by SortPatients.
const (
	SortByName      = "name"
	SortByAge       = "age"
	SortByCreatedAt = "createdAt"
	SortByMRN       = "medicalRecordNumber"
)

// SortPatients orders patients in place. Unknown fields leave the order
// untouched; order "desc" reverses the comparison. The sort is stable.
func SortPatients(patients []*Patient, field, order string) {
	var less func(a, b *Patient) bool
	switch field {
	case SortByName:
		less = func(a, b *Patient) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByAge:
		// Older patients have earlier birth dates.
		less = func(a, b *Patient) bool { return a.DateOfBirth.After(b.DateOfBirth) }
	case SortByCreatedAt:
		less = func(a, b *Patient) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByMRN:
		less = func(a, b *Patient) bool { return a.MedicalRecordNumber < b.MedicalRecordNumber }
	default:
		return
	}
	desc := order == "desc"
	sort.SliceStable(patients, func(i, j int) bool {
		if desc {
			return less(patients[j], patients[i])
		}
		return less(patients[i], patients[j])
	})
}

// GroupByDiagnosis buckets patients by diagnosis. Patients without one land
// under NoDiagnosis. Input order is kept inside each bucket.
func GroupByDiagnosis(patients []*Patient) map[string][]*Patient {
	groups := make(map[string][]*Patient)
	for _, p := range patients {
		key := p.DiagnosisOrEmpty()
		if key == "" {
			key = NoDiagnosis
		}
		groups[key] = append(groups[key], p)
	}
	return groups
}

// UniqueDiagnoses lists the distinct recorded diagnoses, together with any
// catalog names, in sorted order and excluding GeneralMedicine.
func UniqueDiagnoses(patients []*Patient, catalog ...string) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(d string) {
		if d == "" || d == GeneralMedicine || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}
	for _, d := range catalog {
		add(d)
	}
	for _, p := range patients {
		add(p.DiagnosisOrEmpty())
	}
	sort.Strings(out)
	return out
}
