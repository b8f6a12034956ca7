package triage

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rules holds the vital-sign thresholds the engine scores against. They are
// loadable from YAML so clinical staff can tune cutoffs without a rebuild.
type Rules struct {
	MinOxygenSaturation float64 `yaml:"min_oxygen_saturation" json:"min_oxygen_saturation"`
	MaxHeartRate        int     `yaml:"max_heart_rate" json:"max_heart_rate"`
	MinHeartRate        int     `yaml:"min_heart_rate" json:"min_heart_rate"`
	MaxSystolicPressure int     `yaml:"max_systolic_pressure" json:"max_systolic_pressure"`
	MinSystolicPressure int     `yaml:"min_systolic_pressure" json:"min_systolic_pressure"`
}

// LoadRules reads thresholds from a YAML file. On any error the returned
// rules are the defaults, so a caller may log the error and keep going
// without ever scoring against a zero-valued rule set.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return DefaultRules(), err
	}

	if err := rules.validate(); err != nil {
		return DefaultRules(), err
	}

	return rules, nil
}

func (r Rules) validate() error {
	if r.MinOxygenSaturation <= 0 {
		return errors.New("min_oxygen_saturation must be positive")
	}
	if r.MaxHeartRate <= r.MinHeartRate {
		return errors.New("max_heart_rate must exceed min_heart_rate")
	}
	if r.MaxSystolicPressure <= r.MinSystolicPressure {
		return errors.New("max_systolic_pressure must exceed min_systolic_pressure")
	}
	return nil
}

// DefaultRules are the clinically reviewed cutoffs: SpO2 below 90%, heart
// rate outside 40-150 bpm, or systolic pressure outside 80-180 mmHg.
func DefaultRules() Rules {
	return Rules{
		MinOxygenSaturation: 90.0,
		MaxHeartRate:        150,
		MinHeartRate:        40,
		MaxSystolicPressure: 180,
		MinSystolicPressure: 80,
	}
}
