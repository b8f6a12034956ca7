package triage

import (
	"context"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/observability/metrics"
)

// PatientStore is the slice of the patient collaborator the intake path
// needs: read the record, write back the urgency level.
type PatientStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error)
	UpdateUrgency(ctx context.Context, id uuid.UUID, level models.UrgencyLevel) error
}

// Escalator opens a referral when the assessment warrants one. Satisfied by
// the referral service.
type Escalator interface {
	MaybeAutoCreate(ctx context.Context, patient models.Patient, createdBy uuid.UUID) (*models.Referral, error)
}

// Service is the intake orchestrator: score the vitals, store the urgency,
// then hand a critical clinic case to the escalator.
type Service struct {
	engine    *Engine
	patients  PatientStore
	escalator Escalator
}

func NewService(engine *Engine, patients PatientStore, escalator Escalator) *Service {
	return &Service{engine: engine, patients: patients, escalator: escalator}
}

// Assess re-scores a patient's current vitals and persists the level. When
// the result is CRITICAL and the patient sits at a basic clinic, a referral
// is auto-created; a failure on that path never fails the assessment itself.
func (s *Service) Assess(ctx context.Context, patientID, actor uuid.UUID) (models.Patient, *models.Referral, error) {
	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return models.Patient{}, nil, err
	}

	level := s.engine.Assess(patient.Vitals)
	if err := s.patients.UpdateUrgency(ctx, patientID, level); err != nil {
		return models.Patient{}, nil, err
	}
	patient.UrgencyLevel = level
	metrics.ObserveTriage(level == models.UrgencyCritical)

	ref, err := s.escalator.MaybeAutoCreate(ctx, patient, actor)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("Auto-referral failed")
		return patient, nil, nil
	}

	return patient, ref, nil
}
