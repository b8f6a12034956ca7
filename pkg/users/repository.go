package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type userModel struct {
	ID           uuid.UUID  `gorm:"primaryKey;column:id"`
	Username     string     `gorm:"column:username;uniqueIndex"`
	Email        string     `gorm:"column:email;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash"`
	FullName     string     `gorm:"column:full_name"`
	Role         string     `gorm:"column:role"`
	FacilityID   *uuid.UUID `gorm:"column:facility_id"`
	Active       bool       `gorm:"column:active"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (userModel) TableName() string { return "users" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&userModel{})
}

func (r *Repository) Create(ctx context.Context, user models.User) (models.User, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrUsernameTaken
	}

	row := userModel{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Role:         user.Role,
		FacilityID:   user.FacilityID,
		Active:       user.Active,
		CreatedAt:    user.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.User{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return fromModel(row), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return fromModel(row), nil
}

func fromModel(row userModel) models.User {
	return models.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         row.Role,
		FacilityID:   row.FacilityID,
		Active:       row.Active,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}
}
