// Package anthropometry derives age and body-mass values from patient
// demographics. All functions are pure.
package anthropometry

import (
	"math"
	"time"
)

// BMI category names.
const (
	CategoryUnderweight = "Underweight"
	CategoryNormal      = "Normal"
	CategoryOverweight  = "Overweight"
	CategoryObese       = "Obese"
)

// Age groups used by demographic reports.
const (
	AgeGroupChild   = "child"
	AgeGroupAdult   = "adult"
	AgeGroupElderly = "elderly"
)

// BMICategory is the classification of a BMI value.
type BMICategory struct {
	Category       string `json:"category"`
	Recommendation string `json:"recommendation"`
	Color          string `json:"color"`
}

// CalculateAge returns the number of full years between birthDate and
// referenceDate. Month and day are compared as a pair, so a Feb 29 birthday
// is reached on Mar 1 in non-leap years.
func CalculateAge(birthDate, referenceDate time.Time) int {
	age := referenceDate.Year() - birthDate.Year()
	rm, rd := referenceDate.Month(), referenceDate.Day()
	bm, bd := birthDate.Month(), birthDate.Day()
	if rm < bm || (rm == bm && rd < bd) {
		age--
	}
	return age
}

// Age is CalculateAge against the current time.
func Age(birthDate time.Time) int {
	return CalculateAge(birthDate, time.Now())
}

// CalculateBMI returns weight / height² (height in metres) rounded half-up to
// one decimal place. Callers must pass a positive height.
func CalculateBMI(weightKg, heightCm float64) float64 {
	m := heightCm / 100
	return roundHalfUp(weightKg/(m*m), 1)
}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p+0.5) / p
}

// ClassifyBMI maps a BMI value onto the four adult categories.
func ClassifyBMI(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return BMICategory{
			Category:       CategoryUnderweight,
			Recommendation: "Tingkatkan asupan nutrisi dan konsultasi dengan dokter",
			Color:          "text-blue-600",
		}
	case bmi < 25:
		return BMICategory{
			Category:       CategoryNormal,
			Recommendation: "Pertahankan gaya hidup sehat",
			Color:          "text-green-600",
		}
	case bmi < 30:
		return BMICategory{
			Category:       CategoryOverweight,
			Recommendation: "Tingkatkan aktivitas fisik dan atur pola makan",
			Color:          "text-yellow-600",
		}
	default:
		return BMICategory{
			Category:       CategoryObese,
			Recommendation: "Konsultasi dengan ahli gizi dan dokter",
			Color:          "text-red-600",
		}
	}
}

// AgeGroup buckets an age in years: under 12 is a child, under 60 an adult.
func AgeGroup(age int) string {
	switch {
	case age < 12:
		return AgeGroupChild
	case age < 60:
		return AgeGroupAdult
	default:
		return AgeGroupElderly
	}
}
