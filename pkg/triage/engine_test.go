package triage

import (
	"testing"

	"github.com/santerelay/platform/pkg/common/models"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

func TestAssessChestPainIsCritical(t *testing.T) {
	engine := NewEngine(DefaultRules())

	vitals := models.Vitals{
		ChestPain:        true,
		OxygenSaturation: f64(99.0),
		HeartRate:        i(70),
		SystolicBP:       i(120),
	}

	if got := engine.Assess(vitals); got != models.UrgencyCritical {
		t.Fatalf("expected CRITICAL for chest pain, got %s", got)
	}
}

func TestAssessOxygenSaturationBoundary(t *testing.T) {
	engine := NewEngine(DefaultRules())

	if got := engine.Assess(models.Vitals{OxygenSaturation: f64(89.9)}); got != models.UrgencyCritical {
		t.Fatalf("SpO2 89.9 should be CRITICAL, got %s", got)
	}
	if got := engine.Assess(models.Vitals{OxygenSaturation: f64(90.0)}); got != models.UrgencyUrgent {
		t.Fatalf("SpO2 90.0 should not be CRITICAL, got %s", got)
	}
}

func TestAssessHeartRateBounds(t *testing.T) {
	engine := NewEngine(DefaultRules())

	cases := []struct {
		name string
		hr   int
		want models.UrgencyLevel
	}{
		{"tachycardia", 151, models.UrgencyCritical},
		{"upper bound", 150, models.UrgencyUrgent},
		{"bradycardia", 39, models.UrgencyCritical},
		{"lower bound", 40, models.UrgencyUrgent},
	}
	for _, tc := range cases {
		if got := engine.Assess(models.Vitals{HeartRate: i(tc.hr)}); got != tc.want {
			t.Errorf("%s: heart rate %d, expected %s got %s", tc.name, tc.hr, tc.want, got)
		}
	}
}

func TestAssessSystolicPressureBounds(t *testing.T) {
	engine := NewEngine(DefaultRules())

	cases := []struct {
		name string
		sbp  int
		want models.UrgencyLevel
	}{
		{"hypertensive crisis", 181, models.UrgencyCritical},
		{"upper bound", 180, models.UrgencyUrgent},
		{"shock", 79, models.UrgencyCritical},
		{"lower bound", 80, models.UrgencyUrgent},
	}
	for _, tc := range cases {
		if got := engine.Assess(models.Vitals{SystolicBP: i(tc.sbp)}); got != tc.want {
			t.Errorf("%s: systolic %d, expected %s got %s", tc.name, tc.sbp, tc.want, got)
		}
	}
}

func TestAssessAbsentMeasurementsAreSkipped(t *testing.T) {
	engine := NewEngine(DefaultRules())

	if got := engine.Assess(models.Vitals{}); got != models.UrgencyUrgent {
		t.Fatalf("empty vitals should default to URGENT, got %s", got)
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultRules())
	vitals := models.Vitals{OxygenSaturation: f64(88.0), HeartRate: i(95)}

	first := engine.Assess(vitals)
	for n := 0; n < 100; n++ {
		if got := engine.Assess(vitals); got != first {
			t.Fatalf("assessment %d differed: %s vs %s", n, got, first)
		}
	}
	if vitals.OxygenSaturation == nil || *vitals.OxygenSaturation != 88.0 {
		t.Fatal("Assess must not mutate its input")
	}
}
