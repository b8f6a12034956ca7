package models

import (
	"time"

	"github.com/google/uuid"
)

// UrgencyLevel is the triage classification of a patient's condition.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "CRITICAL"
	UrgencyUrgent   UrgencyLevel = "URGENT"
	UrgencyNormal   UrgencyLevel = "NORMAL"
	UrgencyUnset    UrgencyLevel = ""
)

// FacilityCategory distinguishes first-line clinics from referral hospitals.
type FacilityCategory string

const (
	FacilityBasicClinic         FacilityCategory = "BASIC_CLINIC"
	FacilitySpecializedHospital FacilityCategory = "SPECIALIZED_HOSPITAL"
)

// ReferralStatus is the lifecycle stage of a referral.
// The chain is linear: CREATED -> SENT -> ACCEPTED -> TRANSFERRED.
type ReferralStatus string

const (
	ReferralCreated     ReferralStatus = "CREATED"
	ReferralSent        ReferralStatus = "SENT"
	ReferralAccepted    ReferralStatus = "ACCEPTED"
	ReferralTransferred ReferralStatus = "TRANSFERRED"
)

type Facility struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Category  FacilityCategory `json:"category"`
	Address   string           `json:"address,omitempty"`
	City      string           `json:"city,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Vitals is the snapshot the triage engine scores. Absent measurements are
// nil and skipped by the rules.
type Vitals struct {
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	SystolicBP       *int     `json:"blood_pressure_systolic,omitempty"`
	DiastolicBP      *int     `json:"blood_pressure_diastolic,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ChestPain        bool     `json:"chest_pain"`
}

type Patient struct {
	ID             uuid.UUID    `json:"id"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Age            int          `json:"age"`
	Gender         string       `json:"gender"`
	NationalID     string       `json:"national_id,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Address        string       `json:"address,omitempty"`
	Vitals         Vitals       `json:"vitals"`
	UrgencyLevel   UrgencyLevel `json:"urgency_level,omitempty"`
	ChiefComplaint string       `json:"chief_complaint,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	FacilityID     uuid.UUID    `json:"facility_id"`
	RegisteredBy   uuid.UUID    `json:"registered_by"`
	CreatedAt      time.Time    `json:"created_at"`
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"` // nurse or doctor
	FacilityID   *uuid.UUID `json:"facility_id,omitempty"`
	Active       bool       `json:"active"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Referral is the append-only record of one patient's routing from an origin
// facility to a specialized hospital. Status is mutated only through the
// lifecycle service; stage timestamps are each set exactly once.
type Referral struct {
	ID             uuid.UUID      `json:"id"`
	PatientID      uuid.UUID      `json:"patient_id"`
	FromFacilityID uuid.UUID      `json:"from_facility_id"`
	ToFacilityID   uuid.UUID      `json:"to_facility_id"`
	Status         ReferralStatus `json:"status"`
	Priority       UrgencyLevel   `json:"priority"`
	Reason         string         `json:"reason,omitempty"`
	ClinicalNotes  string         `json:"clinical_notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	AcceptedAt     *time.Time     `json:"accepted_at,omitempty"`
	TransferredAt  *time.Time     `json:"transferred_at,omitempty"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	AcceptedBy     *uuid.UUID     `json:"accepted_by,omitempty"`
}

// Lifecycle event names carried on the wire to subscribers.
const (
	EventNewReferral           = "new_referral"
	EventReferralAccepted      = "referral_accepted"
	EventReferralStatusChanged = "referral_status_changed"
)

type LifecycleEventData struct {
	ReferralID uuid.UUID      `json:"referral_id"`
	PatientID  uuid.UUID      `json:"patient_id"`
	Status     ReferralStatus `json:"status"`
	Priority   UrgencyLevel   `json:"priority"`
	AcceptedBy *uuid.UUID     `json:"accepted_by,omitempty"`
}

type LifecycleEvent struct {
	Event string             `json:"event"`
	Data  LifecycleEventData `json:"data"`
}

// Request payloads

type CreateFacilityRequest struct {
	Name     string           `json:"name"`
	Category FacilityCategory `json:"category"`
	Address  string           `json:"address,omitempty"`
	City     string           `json:"city,omitempty"`
	Phone    string           `json:"phone,omitempty"`
}

type CreatePatientRequest struct {
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	NationalID     string    `json:"national_id,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	Vitals         Vitals    `json:"vitals"`
	ChiefComplaint string    `json:"chief_complaint,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	FacilityID     uuid.UUID `json:"facility_id"`
}

type UpdateVitalsRequest struct {
	Vitals Vitals `json:"vitals"`
}

type CreateReferralRequest struct {
	PatientID     uuid.UUID `json:"patient_id"`
	ToFacilityID  uuid.UUID `json:"to_facility_id"`
	Reason        string    `json:"reason,omitempty"`
	ClinicalNotes string    `json:"clinical_notes,omitempty"`
}

type RegisterUserRequest struct {
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	FacilityID *uuid.UUID `json:"facility_id,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
