package facility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("facility not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type facilityModel struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;index"`
	Category  string    `gorm:"column:category;index"`
	Address   string    `gorm:"column:address"`
	City      string    `gorm:"column:city"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (facilityModel) TableName() string { return "facilities" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&facilityModel{})
}

func (r *Repository) Create(ctx context.Context, req models.CreateFacilityRequest) (models.Facility, error) {
	if req.Category != models.FacilityBasicClinic && req.Category != models.FacilitySpecializedHospital {
		return models.Facility{}, fmt.Errorf("invalid facility category: %s", req.Category)
	}

	row := facilityModel{
		ID:        uuid.New(),
		Name:      req.Name,
		Category:  string(req.Category),
		Address:   req.Address,
		City:      req.City,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Facility{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Facility, error) {
	var row facilityModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Facility{}, ErrNotFound
		}
		return models.Facility{}, err
	}
	return fromModel(row), nil
}

// ListFacilities satisfies assignment.Directory. Ascending-id order keeps
// first-match resolution deterministic.
func (r *Repository) ListFacilities(ctx context.Context, category models.FacilityCategory) ([]models.Facility, error) {
	query := r.db.WithContext(ctx).Model(&facilityModel{})
	if category != "" {
		query = query.Where("category = ?", string(category))
	}

	var rows []facilityModel
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	facilities := make([]models.Facility, 0, len(rows))
	for _, row := range rows {
		facilities = append(facilities, fromModel(row))
	}
	return facilities, nil
}

func (r *Repository) CountByName(ctx context.Context, name string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&facilityModel{}).Where("name = ?", name).Count(&count).Error
	return count, err
}

func fromModel(row facilityModel) models.Facility {
	return models.Facility{
		ID:        row.ID,
		Name:      row.Name,
		Category:  models.FacilityCategory(row.Category),
		Address:   row.Address,
		City:      row.City,
		Phone:     row.Phone,
		CreatedAt: row.CreatedAt,
	}
}
