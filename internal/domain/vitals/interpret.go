// Package vitals classifies vital-sign readings into clinical categories.
//
// The interpreters are total: every numeric input maps to exactly one
// category and none of them return an error. Range validation of raw
// measurements is a separate step (see Validate) performed by callers that
// accept untrusted input.
package vitals

import "time"

// Severity orders interpretation results from benign to critical.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityNormal:
		return "normal"
	case SeverityMild:
		return "mild"
	case SeverityModerate:
		return "moderate"
	default:
		return "severe"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status names returned by the interpreters.
const (
	StatusNormal = "Normal"

	StatusElevated           = "Elevated"
	StatusHypertensionStage1 = "Hypertension Stage 1"
	StatusHypertensionStage2 = "Hypertension Stage 2"
	StatusBradycardia        = "Bradycardia"
	StatusTachycardia        = "Tachycardia"
	StatusLow                = "Low"
	StatusVeryLow            = "Very Low"
	StatusHypothermia        = "Hypothermia"
	StatusSlightFever        = "Slight Fever"
	StatusModerateFever      = "Moderate Fever"
	StatusHighFever          = "High Fever"
)

// VitalSigns is one set of measurements taken at triage.
type VitalSigns struct {
	BloodPressureSystolic  int       `json:"blood_pressure_systolic"`
	BloodPressureDiastolic int       `json:"blood_pressure_diastolic"`
	Pulse                  int       `json:"pulse"`
	SpO2                   float64   `json:"spo2"`
	Temperature            float64   `json:"temperature"`
	MeasuredAt             time.Time `json:"measured_at"`
}

// Result is the interpretation of a single reading. Recommendation is empty
// when no action is suggested.
type Result struct {
	Status         string   `json:"status"`
	Severity       Severity `json:"severity"`
	Color          string   `json:"color"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Normal reports whether the reading needs no attention.
func (r Result) Normal() bool {
	return r.Status == StatusNormal
}

// InterpretBloodPressure classifies a systolic/diastolic pair (mmHg). Bands
// are tested in order and the first match wins.
func InterpretBloodPressure(systolic, diastolic int) Result {
	switch {
	case systolic < 120 && diastolic < 80:
		return Result{
			Status:         StatusNormal,
			Severity:       SeverityNormal,
			Color:          "text-green-700",
			Recommendation: "Tekanan darah normal, pertahankan gaya hidup sehat",
		}
	case systolic < 130 && diastolic < 80:
		return Result{
			Status:         StatusElevated,
			Severity:       SeverityMild,
			Color:          "text-yellow-700",
			Recommendation: "Tekanan darah meningkat, perlu monitoring lebih ketat",
		}
	case systolic < 140 && diastolic < 90:
		return Result{
			Status:         StatusHypertensionStage1,
			Severity:       SeverityModerate,
			Color:          "text-orange-700",
			Recommendation: "Hipertensi tahap 1, mulai pertimbangkan obat",
		}
	default:
		return Result{
			Status:         StatusHypertensionStage2,
			Severity:       SeveritySevere,
			Color:          "text-red-700",
			Recommendation: "Hipertensi tahap 2, perlu treatment segera",
		}
	}
}

// InterpretPulse classifies a resting heart rate (beats per minute).
func InterpretPulse(pulse int) Result {
	switch {
	case pulse < 60:
		return Result{Status: StatusBradycardia, Severity: SeverityModerate, Color: "text-blue-600"}
	case pulse > 100:
		return Result{Status: StatusTachycardia, Severity: SeverityModerate, Color: "text-red-600"}
	default:
		return Result{Status: StatusNormal, Severity: SeverityNormal, Color: "text-green-600"}
	}
}

// InterpretSpO2 classifies peripheral oxygen saturation (percent).
func InterpretSpO2(spo2 float64) Result {
	switch {
	case spo2 >= 95:
		return Result{Status: StatusNormal, Severity: SeverityNormal, Color: "text-green-600"}
	case spo2 >= 90:
		return Result{
			Status:         StatusLow,
			Severity:       SeverityModerate,
			Color:          "text-yellow-600",
			Recommendation: "Oksigen sedikit rendah, perlu monitoring",
		}
	default:
		return Result{
			Status:         StatusVeryLow,
			Severity:       SeveritySevere,
			Color:          "text-red-600",
			Recommendation: "Oksigen sangat rendah, perlu perhatian segera",
		}
	}
}

// InterpretTemperature classifies body temperature in degrees Celsius.
func InterpretTemperature(celsius float64) Result {
	switch {
	case celsius < 36.5:
		return Result{
			Status:         StatusHypothermia,
			Severity:       SeverityModerate,
			Color:          "text-blue-600",
			Recommendation: "Suhu tubuh terlalu rendah",
		}
	case celsius <= 37.2:
		return Result{Status: StatusNormal, Severity: SeverityNormal, Color: "text-green-600"}
	case celsius <= 37.9:
		return Result{Status: StatusSlightFever, Severity: SeverityMild, Color: "text-yellow-600"}
	case celsius <= 38.9:
		return Result{
			Status:         StatusModerateFever,
			Severity:       SeverityModerate,
			Color:          "text-orange-600",
			Recommendation: "Demam sedang, perlu treatment",
		}
	default:
		return Result{
			Status:         StatusHighFever,
			Severity:       SeveritySevere,
			Color:          "text-red-600",
			Recommendation: "Demam tinggi, perlu perhatian segera",
		}
	}
}
