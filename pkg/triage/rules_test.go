package triage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/santerelay/platform/pkg/common/models"
)

func TestLoadRulesEmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules != DefaultRules() {
		t.Fatalf("expected defaults, got %+v", rules)
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := []byte(`min_oxygen_saturation: 92.0
max_heart_rate: 140
min_heart_rate: 45
max_systolic_pressure: 170
min_systolic_pressure: 85
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules.MinOxygenSaturation != 92.0 {
		t.Errorf("min_oxygen_saturation: got %v, want 92.0", rules.MinOxygenSaturation)
	}
	if rules.MaxHeartRate != 140 || rules.MinHeartRate != 45 {
		t.Errorf("heart rate bounds: got %d/%d, want 140/45", rules.MaxHeartRate, rules.MinHeartRate)
	}
	if rules.MaxSystolicPressure != 170 || rules.MinSystolicPressure != 85 {
		t.Errorf("systolic bounds: got %d/%d, want 170/85", rules.MaxSystolicPressure, rules.MinSystolicPressure)
	}
}

func TestLoadRulesRejectsInvertedBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := []byte(`min_oxygen_saturation: 90.0
max_heart_rate: 40
min_heart_rate: 150
max_systolic_pressure: 180
min_systolic_pressure: 80
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err == nil {
		t.Fatal("expected validation error for inverted heart rate bounds")
	}
	if rules != DefaultRules() {
		t.Fatalf("expected defaults alongside the error, got %+v", rules)
	}
}

func TestLoadRulesMalformedYAMLFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("max_heart_rate: [oops"), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if rules != DefaultRules() {
		t.Fatalf("expected defaults alongside the error, got %+v", rules)
	}

	// A normal heart rate must never score CRITICAL under the fallback.
	hr := 80
	engine := NewEngine(rules)
	if got := engine.Assess(models.Vitals{HeartRate: &hr}); got != models.UrgencyUrgent {
		t.Fatalf("heart rate 80 under fallback rules: got %s, want URGENT", got)
	}
}

func TestLoadRulesMissingFileFallsBackToDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if rules != DefaultRules() {
		t.Fatalf("expected defaults alongside the error, got %+v", rules)
	}
}
