package triage

import (
	"github.com/santerelay/platform/pkg/common/models"
)

// Engine classifies a vitals snapshot into an urgency level. Assess is pure:
// no state, no side effects, safe for concurrent use.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Assess applies the critical-condition rules in order; the first match wins.
// Absent measurements are skipped, never fatal. The engine currently returns
// only CRITICAL or URGENT; NORMAL stays a valid level reserved for future
// rules.
func (e *Engine) Assess(v models.Vitals) models.UrgencyLevel {
	if v.ChestPain {
		return models.UrgencyCritical
	}

	if v.OxygenSaturation != nil && *v.OxygenSaturation < e.rules.MinOxygenSaturation {
		return models.UrgencyCritical
	}

	if v.HeartRate != nil && (*v.HeartRate > e.rules.MaxHeartRate || *v.HeartRate < e.rules.MinHeartRate) {
		return models.UrgencyCritical
	}

	if v.SystolicBP != nil && (*v.SystolicBP > e.rules.MaxSystolicPressure || *v.SystolicBP < e.rules.MinSystolicPressure) {
		return models.UrgencyCritical
	}

	return models.UrgencyUrgent
}
