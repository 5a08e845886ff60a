package vitals

import (
	"errors"
	"fmt"
	"strconv"
)

// Alert labels, in the order they are reported.
const (
	LabelBloodPressure = "Tekanan Darah"
	LabelPulse         = "Nadi"
	LabelSpO2          = "SpO2"
	LabelTemperature   = "Suhu"
)

// Summary is the aggregate view of one set of vital signs.
type Summary struct {
	AllNormal bool     `json:"all_normal"`
	Alerts    []string `json:"alerts"`
}

// Interpretation bundles the four single-reading results with their summary.
type Interpretation struct {
	BloodPressure Result  `json:"blood_pressure"`
	Pulse         Result  `json:"pulse"`
	SpO2          Result  `json:"spo2"`
	Temperature   Result  `json:"temperature"`
	Summary       Summary `json:"summary"`
}

// Interpret runs every interpreter over vs.
func Interpret(vs VitalSigns) Interpretation {
	return Interpretation{
		BloodPressure: InterpretBloodPressure(vs.BloodPressureSystolic, vs.BloodPressureDiastolic),
		Pulse:         InterpretPulse(vs.Pulse),
		SpO2:          InterpretSpO2(vs.SpO2),
		Temperature:   InterpretTemperature(vs.Temperature),
		Summary:       Summarize(vs),
	}
}

// Summarize lists every non-normal reading as "<Label>: <Status>", ordered
// blood pressure, pulse, SpO2, temperature. AllNormal holds iff the list is
// empty.
func Summarize(vs VitalSigns) Summary {
	checks := []struct {
		label  string
		result Result
	}{
		{LabelBloodPressure, InterpretBloodPressure(vs.BloodPressureSystolic, vs.BloodPressureDiastolic)},
		{LabelPulse, InterpretPulse(vs.Pulse)},
		{LabelSpO2, InterpretSpO2(vs.SpO2)},
		{LabelTemperature, InterpretTemperature(vs.Temperature)},
	}

	alerts := []string{}
	for _, c := range checks {
		if !c.result.Normal() {
			alerts = append(alerts, c.label+": "+c.result.Status)
		}
	}
	return Summary{AllNormal: len(alerts) == 0, Alerts: alerts}
}

// Format renders vital signs for display on records and print-outs.
func Format(vs VitalSigns) string {
	return fmt.Sprintf("%d/%d mmHg, Nadi: %d bpm, SpO2: %s%%, Suhu: %s°C",
		vs.BloodPressureSystolic, vs.BloodPressureDiastolic, vs.Pulse,
		strconv.FormatFloat(vs.SpO2, 'f', -1, 64),
		strconv.FormatFloat(vs.Temperature, 'f', -1, 64))
}

// ErrOutOfRange marks a measurement that cannot physically be right.
var ErrOutOfRange = errors.New("vital sign out of range")

// OutOfRangeError reports which field failed validation.
type OutOfRangeError struct {
	Field string
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %s value %v", ErrOutOfRange, e.Field, e.Value)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Validate rejects readings outside what a monitor can produce. The
// interpreters never call it.
func Validate(vs VitalSigns) error {
	switch {
	case vs.BloodPressureSystolic < 0 || vs.BloodPressureSystolic > 300:
		return &OutOfRangeError{Field: "blood_pressure_systolic", Value: float64(vs.BloodPressureSystolic)}
	case vs.BloodPressureDiastolic < 0 || vs.BloodPressureDiastolic > 250:
		return &OutOfRangeError{Field: "blood_pressure_diastolic", Value: float64(vs.BloodPressureDiastolic)}
	case vs.Pulse < 0 || vs.Pulse > 300:
		return &OutOfRangeError{Field: "pulse", Value: float64(vs.Pulse)}
	case vs.SpO2 < 0 || vs.SpO2 > 100:
		return &OutOfRangeError{Field: "spo2", Value: vs.SpO2}
	case vs.Temperature <= 25 || vs.Temperature >= 45:
		return &OutOfRangeError{Field: "temperature", Value: vs.Temperature}
	}
	return nil
}
