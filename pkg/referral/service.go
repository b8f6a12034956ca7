package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/observability/metrics"
)

// Store is the persistence collaborator for the referral lifecycle. Mutate
// must apply fn atomically with respect to concurrent mutations of the same
// referral id; mutations of different ids must not contend.
type Store interface {
	GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error)
	GetFacility(ctx context.Context, id uuid.UUID) (models.Facility, error)
	GetReferral(ctx context.Context, id uuid.UUID) (models.Referral, error)
	CreateReferral(ctx context.Context, ref models.Referral) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*models.Referral) error) (models.Referral, error)
	ListReferrals(ctx context.Context, filter Filter) ([]models.Referral, error)
	AppendEvent(ctx context.Context, event models.LifecycleEvent) error
}

type Filter struct {
	Status         models.ReferralStatus
	FromFacilityID *uuid.UUID
	ToFacilityID   *uuid.UUID
	Limit          int
}

// DestinationResolver picks a destination facility for a required category,
// or nil when none is available.
type DestinationResolver interface {
	ResolveDestination(ctx context.Context, category models.FacilityCategory) (*models.Facility, error)
}

// Publisher receives every lifecycle event. Delivery is fire-and-forget: a
// committed transition is reported successful regardless of what subscribers
// saw.
type Publisher interface {
	Publish(event models.LifecycleEvent)
}

// Mirror is an optional second sink for lifecycle events (Kafka).
type Mirror interface {
	PublishLifecycle(ctx context.Context, event models.LifecycleEvent) error
}

type Service struct {
	store     Store
	resolver  DestinationResolver
	publisher Publisher
	mirror    Mirror
	now       func() time.Time
}

func NewService(store Store, resolver DestinationResolver, publisher Publisher) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithMirror attaches a secondary event sink.
func (s *Service) WithMirror(mirror Mirror) *Service {
	s.mirror = mirror
	return s
}

// Create opens a referral for a patient. The origin facility is captured from
// the patient record at this instant; the destination must be a specialized
// hospital distinct from the origin.
func (s *Service) Create(ctx context.Context, req models.CreateReferralRequest, createdBy uuid.UUID) (models.Referral, error) {
	patient, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return models.Referral{}, err
	}
	origin, err := s.store.GetFacility(ctx, patient.FacilityID)
	if err != nil {
		return models.Referral{}, err
	}
	destination, err := s.store.GetFacility(ctx, req.ToFacilityID)
	if err != nil {
		return models.Referral{}, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "Critical case requiring specialized hospital care"
	}

	return s.open(ctx, patient, origin, destination, reason, req.ClinicalNotes, createdBy, false)
}

// MaybeAutoCreate opens a referral iff the patient is CRITICAL and their
// origin facility is a basic clinic. An unresolvable destination is a no-op,
// not an error: the caller observes only the absence of an emitted event.
func (s *Service) MaybeAutoCreate(ctx context.Context, patient models.Patient, createdBy uuid.UUID) (*models.Referral, error) {
	if patient.UrgencyLevel != models.UrgencyCritical {
		return nil, nil
	}

	origin, err := s.store.GetFacility(ctx, patient.FacilityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if origin.Category != models.FacilityBasicClinic {
		return nil, nil
	}

	destination, err := s.resolver.ResolveDestination(ctx, models.FacilitySpecializedHospital)
	if err != nil {
		return nil, err
	}
	if destination == nil {
		logger.Log.WithField("patient_id", patient.ID).Warn("No specialized hospital available for auto-referral")
		return nil, nil
	}

	ref, err := s.open(ctx, patient, origin, *destination,
		"Auto-referral: critical case escalated from basic clinic",
		"Patient urgency level: "+string(patient.UrgencyLevel),
		createdBy, true)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Service) open(ctx context.Context, patient models.Patient, origin, destination models.Facility, reason, notes string, createdBy uuid.UUID, auto bool) (models.Referral, error) {
	if destination.Category != models.FacilitySpecializedHospital {
		return models.Referral{}, ErrInvalidDestination
	}
	if origin.ID == destination.ID {
		return models.Referral{}, ErrInvalidOrigin
	}

	priority := patient.UrgencyLevel
	if priority == models.UrgencyUnset {
		priority = models.UrgencyCritical
	}

	ref := models.Referral{
		ID:             uuid.New(),
		PatientID:      patient.ID,
		FromFacilityID: origin.ID,
		ToFacilityID:   destination.ID,
		Status:         models.ReferralCreated,
		Priority:       priority,
		Reason:         reason,
		ClinicalNotes:  notes,
		CreatedAt:      s.now(),
		CreatedBy:      createdBy,
	}

	if err := s.store.CreateReferral(ctx, ref); err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralCreated(auto)
	s.emit(ctx, models.EventNewReferral, ref)
	return ref, nil
}

// Send marks a CREATED referral as SENT.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	updated, err := s.store.Mutate(ctx, id, func(r *models.Referral) error {
		if r.Status != models.ReferralCreated {
			return &InvalidTransitionError{Op: "send", ReferralID: id, Status: r.Status}
		}
		now := s.now()
		r.Status = models.ReferralSent
		r.SentAt = &now
		return nil
	})
	if err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralSent()
	s.emit(ctx, models.EventReferralStatusChanged, updated)
	return updated, nil
}

// Accept records a hospital taking the patient. A referral still in CREATED
// may be accepted without ever being sent.
func (s *Service) Accept(ctx context.Context, id, acceptedBy uuid.UUID) (models.Referral, error) {
	updated, err := s.store.Mutate(ctx, id, func(r *models.Referral) error {
		if r.Status != models.ReferralCreated && r.Status != models.ReferralSent {
			return &InvalidTransitionError{Op: "accept", ReferralID: id, Status: r.Status}
		}
		now := s.now()
		r.Status = models.ReferralAccepted
		r.AcceptedAt = &now
		r.AcceptedBy = &acceptedBy
		return nil
	})
	if err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralAccepted()
	s.emit(ctx, models.EventReferralAccepted, updated)
	return updated, nil
}

// Transfer completes the lifecycle for an ACCEPTED referral.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	updated, err := s.store.Mutate(ctx, id, func(r *models.Referral) error {
		if r.Status != models.ReferralAccepted {
			return &InvalidTransitionError{Op: "transfer", ReferralID: id, Status: r.Status}
		}
		now := s.now()
		r.Status = models.ReferralTransferred
		r.TransferredAt = &now
		return nil
	})
	if err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralTransferred()
	s.emit(ctx, models.EventReferralStatusChanged, updated)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	return s.store.GetReferral(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]models.Referral, error) {
	return s.store.ListReferrals(ctx, filter)
}

// emit fans the event out to live subscribers, appends it to the audit
// trail, and mirrors it to Kafka. None of these paths can fail the
// transition that already committed.
func (s *Service) emit(ctx context.Context, name string, ref models.Referral) {
	event := models.LifecycleEvent{
		Event: name,
		Data: models.LifecycleEventData{
			ReferralID: ref.ID,
			PatientID:  ref.PatientID,
			Status:     ref.Status,
			Priority:   ref.Priority,
		},
	}
	if name == models.EventReferralAccepted {
		event.Data.AcceptedBy = ref.AcceptedBy
	}

	s.publisher.Publish(event)

	if err := s.store.AppendEvent(ctx, event); err != nil {
		logger.Log.WithError(err).WithField("referral_id", ref.ID).Warn("Failed to append lifecycle event to audit trail")
	}

	if s.mirror != nil {
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.mirror.PublishLifecycle(mctx, event)
		}()
	}
}
