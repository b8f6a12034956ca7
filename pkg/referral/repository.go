package referral

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements Store on PostgreSQL. Transitions run inside a
// transaction holding a row lock on the single referral, so concurrent
// transitions on one id serialize while other ids proceed freely.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type referralModel struct {
	ID             uuid.UUID  `gorm:"primaryKey;column:id"`
	PatientID      uuid.UUID  `gorm:"column:patient_id;index"`
	FromFacilityID uuid.UUID  `gorm:"column:from_facility_id;index"`
	ToFacilityID   uuid.UUID  `gorm:"column:to_facility_id;index"`
	Status         string     `gorm:"column:status;index"`
	Priority       string     `gorm:"column:priority"`
	Reason         string     `gorm:"column:reason"`
	ClinicalNotes  string     `gorm:"column:clinical_notes"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	SentAt         *time.Time `gorm:"column:sent_at"`
	AcceptedAt     *time.Time `gorm:"column:accepted_at"`
	TransferredAt  *time.Time `gorm:"column:transferred_at"`
	CreatedBy      uuid.UUID  `gorm:"column:created_by"`
	AcceptedBy     *uuid.UUID `gorm:"column:accepted_by"`
}

func (referralModel) TableName() string { return "referrals" }

type referralEventModel struct {
	ID         int64          `gorm:"primaryKey;autoIncrement;column:id"`
	ReferralID uuid.UUID      `gorm:"column:referral_id;index"`
	PatientID  uuid.UUID      `gorm:"column:patient_id"`
	Event      string         `gorm:"column:event"`
	Status     string         `gorm:"column:status"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (referralEventModel) TableName() string { return "referral_events" }

// Read-only rows for the collaborator tables owned by pkg/patients and
// pkg/facility.
type patientRow struct {
	ID               uuid.UUID `gorm:"primaryKey;column:id"`
	FirstName        string    `gorm:"column:first_name"`
	LastName         string    `gorm:"column:last_name"`
	Age              int       `gorm:"column:age"`
	Gender           string    `gorm:"column:gender"`
	NationalID       string    `gorm:"column:national_id"`
	Phone            string    `gorm:"column:phone"`
	Address          string    `gorm:"column:address"`
	OxygenSaturation *float64  `gorm:"column:oxygen_saturation"`
	HeartRate        *int      `gorm:"column:heart_rate"`
	SystolicBP       *int      `gorm:"column:blood_pressure_systolic"`
	DiastolicBP      *int      `gorm:"column:blood_pressure_diastolic"`
	Temperature      *float64  `gorm:"column:temperature"`
	ChestPain        bool      `gorm:"column:chest_pain"`
	UrgencyLevel     string    `gorm:"column:urgency_level"`
	ChiefComplaint   string    `gorm:"column:chief_complaint"`
	Notes            string    `gorm:"column:notes"`
	FacilityID       uuid.UUID `gorm:"column:facility_id"`
	RegisteredBy     uuid.UUID `gorm:"column:registered_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (patientRow) TableName() string { return "patients" }

type facilityRow struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name"`
	Category  string    `gorm:"column:category"`
	Address   string    `gorm:"column:address"`
	City      string    `gorm:"column:city"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (facilityRow) TableName() string { return "facilities" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&referralModel{}, &referralEventModel{})
}

func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var row patientRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Patient{}, notFoundErr("patient", id)
		}
		return models.Patient{}, err
	}
	return patientFromRow(row), nil
}

func (r *Repository) GetFacility(ctx context.Context, id uuid.UUID) (models.Facility, error) {
	var row facilityRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Facility{}, notFoundErr("facility", id)
		}
		return models.Facility{}, err
	}
	return models.Facility{
		ID:        row.ID,
		Name:      row.Name,
		Category:  models.FacilityCategory(row.Category),
		Address:   row.Address,
		City:      row.City,
		Phone:     row.Phone,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *Repository) GetReferral(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	var row referralModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Referral{}, notFoundErr("referral", id)
		}
		return models.Referral{}, err
	}
	return referralFromModel(row), nil
}

func (r *Repository) CreateReferral(ctx context.Context, ref models.Referral) error {
	return r.db.WithContext(ctx).Create(referralToModel(ref)).Error
}

func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.Referral) error) (models.Referral, error) {
	var result models.Referral
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row referralModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("referral", id)
			}
			return err
		}

		ref := referralFromModel(row)
		if err := fn(&ref); err != nil {
			return err
		}

		if err := tx.Save(referralToModel(ref)).Error; err != nil {
			return err
		}
		result = ref
		return nil
	})
	if err != nil {
		return models.Referral{}, err
	}
	return result, nil
}

func (r *Repository) ListReferrals(ctx context.Context, filter Filter) ([]models.Referral, error) {
	query := r.db.WithContext(ctx).Model(&referralModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.FromFacilityID != nil {
		query = query.Where("from_facility_id = ?", *filter.FromFacilityID)
	}
	if filter.ToFacilityID != nil {
		query = query.Where("to_facility_id = ?", *filter.ToFacilityID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var rows []referralModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]models.Referral, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, referralFromModel(row))
	}
	return refs, nil
}

func (r *Repository) AppendEvent(ctx context.Context, event models.LifecycleEvent) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	row := referralEventModel{
		ReferralID: event.Data.ReferralID,
		PatientID:  event.Data.PatientID,
		Event:      event.Event,
		Status:     string(event.Data.Status),
		Payload:    datatypes.JSON(payload),
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// ListEvents returns the audit trail for one referral, oldest first.
func (r *Repository) ListEvents(ctx context.Context, referralID uuid.UUID) ([]models.LifecycleEvent, error) {
	var rows []referralEventModel
	if err := r.db.WithContext(ctx).
		Where("referral_id = ?", referralID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]models.LifecycleEvent, 0, len(rows))
	for _, row := range rows {
		var data models.LifecycleEventData
		if err := json.Unmarshal(row.Payload, &data); err != nil {
			continue
		}
		events = append(events, models.LifecycleEvent{Event: row.Event, Data: data})
	}
	return events, nil
}

func referralToModel(ref models.Referral) *referralModel {
	return &referralModel{
		ID:             ref.ID,
		PatientID:      ref.PatientID,
		FromFacilityID: ref.FromFacilityID,
		ToFacilityID:   ref.ToFacilityID,
		Status:         string(ref.Status),
		Priority:       string(ref.Priority),
		Reason:         ref.Reason,
		ClinicalNotes:  ref.ClinicalNotes,
		CreatedAt:      ref.CreatedAt,
		SentAt:         ref.SentAt,
		AcceptedAt:     ref.AcceptedAt,
		TransferredAt:  ref.TransferredAt,
		CreatedBy:      ref.CreatedBy,
		AcceptedBy:     ref.AcceptedBy,
	}
}

func referralFromModel(row referralModel) models.Referral {
	return models.Referral{
		ID:             row.ID,
		PatientID:      row.PatientID,
		FromFacilityID: row.FromFacilityID,
		ToFacilityID:   row.ToFacilityID,
		Status:         models.ReferralStatus(row.Status),
		Priority:       models.UrgencyLevel(row.Priority),
		Reason:         row.Reason,
		ClinicalNotes:  row.ClinicalNotes,
		CreatedAt:      row.CreatedAt,
		SentAt:         row.SentAt,
		AcceptedAt:     row.AcceptedAt,
		TransferredAt:  row.TransferredAt,
		CreatedBy:      row.CreatedBy,
		AcceptedBy:     row.AcceptedBy,
	}
}

func patientFromRow(row patientRow) models.Patient {
	return models.Patient{
		ID:         row.ID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Age:        row.Age,
		Gender:     row.Gender,
		NationalID: row.NationalID,
		Phone:      row.Phone,
		Address:    row.Address,
		Vitals: models.Vitals{
			OxygenSaturation: row.OxygenSaturation,
			HeartRate:        row.HeartRate,
			SystolicBP:       row.SystolicBP,
			DiastolicBP:      row.DiastolicBP,
			Temperature:      row.Temperature,
			ChestPain:        row.ChestPain,
		},
		UrgencyLevel:   models.UrgencyLevel(row.UrgencyLevel),
		ChiefComplaint: row.ChiefComplaint,
		Notes:          row.Notes,
		FacilityID:     row.FacilityID,
		RegisteredBy:   row.RegisteredBy,
		CreatedAt:      row.CreatedAt,
	}
}
