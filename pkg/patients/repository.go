package patients

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type patientModel struct {
	ID               uuid.UUID `gorm:"primaryKey;column:id"`
	FirstName        string    `gorm:"column:first_name"`
	LastName         string    `gorm:"column:last_name"`
	Age              int       `gorm:"column:age"`
	Gender           string    `gorm:"column:gender"`
	NationalID       string    `gorm:"column:national_id;index"`
	Phone            string    `gorm:"column:phone"`
	Address          string    `gorm:"column:address"`
	OxygenSaturation *float64  `gorm:"column:oxygen_saturation"`
	HeartRate        *int      `gorm:"column:heart_rate"`
	SystolicBP       *int      `gorm:"column:blood_pressure_systolic"`
	DiastolicBP      *int      `gorm:"column:blood_pressure_diastolic"`
	Temperature      *float64  `gorm:"column:temperature"`
	ChestPain        bool      `gorm:"column:chest_pain"`
	UrgencyLevel     string    `gorm:"column:urgency_level;index"`
	ChiefComplaint   string    `gorm:"column:chief_complaint"`
	Notes            string    `gorm:"column:notes"`
	FacilityID       uuid.UUID `gorm:"column:facility_id;index"`
	RegisteredBy     uuid.UUID `gorm:"column:registered_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (patientModel) TableName() string { return "patients" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{})
}

func (r *Repository) Create(ctx context.Context, req models.CreatePatientRequest, registeredBy uuid.UUID) (models.Patient, error) {
	row := toModel(models.Patient{
		ID:             uuid.New(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Age:            req.Age,
		Gender:         req.Gender,
		NationalID:     req.NationalID,
		Phone:          req.Phone,
		Address:        req.Address,
		Vitals:         req.Vitals,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
		FacilityID:     req.FacilityID,
		RegisteredBy:   registeredBy,
		CreatedAt:      time.Now().UTC(),
	})
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Patient{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var row patientModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Patient{}, ErrNotFound
		}
		return models.Patient{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) List(ctx context.Context, facilityID *uuid.UUID, limit int) ([]models.Patient, error) {
	query := r.db.WithContext(ctx).Model(&patientModel{})
	if facilityID != nil {
		query = query.Where("facility_id = ?", *facilityID)
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var rows []patientModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]models.Patient, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromModel(row))
	}
	return result, nil
}

// UpdateVitals replaces the vitals snapshot and clears the urgency level so
// a stale classification is never read alongside fresh vitals.
func (r *Repository) UpdateVitals(ctx context.Context, id uuid.UUID, vitals models.Vitals) (models.Patient, error) {
	updates := map[string]interface{}{
		"oxygen_saturation":        vitals.OxygenSaturation,
		"heart_rate":               vitals.HeartRate,
		"blood_pressure_systolic":  vitals.SystolicBP,
		"blood_pressure_diastolic": vitals.DiastolicBP,
		"temperature":              vitals.Temperature,
		"chest_pain":               vitals.ChestPain,
		"urgency_level":            "",
	}
	result := r.db.WithContext(ctx).Model(&patientModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Patient{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Patient{}, ErrNotFound
	}
	return r.GetPatient(ctx, id)
}

func (r *Repository) UpdateUrgency(ctx context.Context, id uuid.UUID, level models.UrgencyLevel) error {
	result := r.db.WithContext(ctx).Model(&patientModel{}).Where("id = ?", id).Update("urgency_level", string(level))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toModel(p models.Patient) patientModel {
	return patientModel{
		ID:               p.ID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Age:              p.Age,
		Gender:           p.Gender,
		NationalID:       p.NationalID,
		Phone:            p.Phone,
		Address:          p.Address,
		OxygenSaturation: p.Vitals.OxygenSaturation,
		HeartRate:        p.Vitals.HeartRate,
		SystolicBP:       p.Vitals.SystolicBP,
		DiastolicBP:      p.Vitals.DiastolicBP,
		Temperature:      p.Vitals.Temperature,
		ChestPain:        p.Vitals.ChestPain,
		UrgencyLevel:     string(p.UrgencyLevel),
		ChiefComplaint:   p.ChiefComplaint,
		Notes:            p.Notes,
		FacilityID:       p.FacilityID,
		RegisteredBy:     p.RegisteredBy,
		CreatedAt:        p.CreatedAt,
	}
}

func fromModel(row patientModel) models.Patient {
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
