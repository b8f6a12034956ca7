package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/database"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/facility"
	"github.com/santerelay/platform/pkg/patients"
	"github.com/santerelay/platform/pkg/users"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo deployment: two basic clinics, two specialized hospitals, a
// nurse and a doctor account, and a handful of patients. Safe to re-run.
func main() {
	logger.Init()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	facilityRepo := facility.NewRepository(db)
	patientRepo := patients.NewRepository(db)
	userRepo := users.NewRepository(db)

	for _, migrate := range []func() error{
		facilityRepo.AutoMigrate,
		patientRepo.AutoMigrate,
		userRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	facilities := seedFacilities(ctx, facilityRepo)
	clinic := facilities["Centre de Santé Riviera"]
	hospital := facilities["CHU de Cocody"]

	nurse := seedUser(ctx, userRepo, models.RegisterUserRequest{
		Username:   "nurse1",
		Email:      "nurse1@santerelay.example",
		Password:   "nurse123",
		FullName:   "Awa Koné",
		Role:       "nurse",
		FacilityID: &clinic,
	})
	seedUser(ctx, userRepo, models.RegisterUserRequest{
		Username:   "doctor1",
		Email:      "doctor1@santerelay.example",
		Password:   "doctor123",
		FullName:   "Dr. Jean Kouassi",
		Role:       "doctor",
		FacilityID: &hospital,
	})

	seedPatients(ctx, patientRepo, clinic, nurse)

	logger.Log.Info("Seed complete")
}

func seedFacilities(ctx context.Context, repo *facility.Repository) map[string]uuid.UUID {
	seeds := []models.CreateFacilityRequest{
		{Name: "Centre de Santé Riviera", Category: models.FacilityBasicClinic, City: "Abidjan", Address: "Riviera Palmeraie", Phone: "+225 27 22 49 10 10"},
		{Name: "Clinique Municipale de Yopougon", Category: models.FacilityBasicClinic, City: "Abidjan", Address: "Yopougon Selmer", Phone: "+225 27 23 45 22 11"},
		{Name: "CHU de Cocody", Category: models.FacilitySpecializedHospital, City: "Abidjan", Address: "Boulevard de l'Université", Phone: "+225 27 22 48 10 00"},
		{Name: "CHU de Treichville", Category: models.FacilitySpecializedHospital, City: "Abidjan", Address: "Boulevard de Marseille", Phone: "+225 27 21 21 42 22"},
	}

	ids := make(map[string]uuid.UUID, len(seeds))
	for _, seed := range seeds {
		count, err := repo.CountByName(ctx, seed.Name)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to check facility")
		}
		if count > 0 {
			existing, err := repo.ListFacilities(ctx, seed.Category)
			if err != nil {
				logger.Log.WithError(err).Fatal("failed to list facilities")
			}
			for _, fac := range existing {
				if fac.Name == seed.Name {
					ids[seed.Name] = fac.ID
				}
			}
			logger.Log.WithField("name", seed.Name).Info("Facility already exists, skipping")
			continue
		}

		fac, err := repo.Create(ctx, seed)
		if err != nil {
			logger.Log.WithError(err).WithField("name", seed.Name).Fatal("failed to create facility")
		}
		ids[seed.Name] = fac.ID
		logger.Log.WithFields(map[string]interface{}{
			"name":     fac.Name,
			"category": fac.Category,
		}).Info("Facility created")
	}
	return ids
}

func seedUser(ctx context.Context, repo *users.Repository, req models.RegisterUserRequest) uuid.UUID {
	if existing, err := repo.GetByUsername(ctx, req.Username); err == nil {
		logger.Log.WithField("username", req.Username).Info("User already exists, skipping")
		return existing.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to hash password")
	}

	user, err := repo.Create(ctx, models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		FacilityID:   req.FacilityID,
		Active:       true,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		logger.Log.WithError(err).WithField("username", req.Username).Fatal("failed to create user")
	}
	logger.Log.WithFields(map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	}).Info("User created")
	return user.ID
}

func seedPatients(ctx context.Context, repo *patients.Repository, facilityID, registeredBy uuid.UUID) {
	spo2Low := 85.0
	hrHigh := 160
	spo2OK := 97.0
	hrOK := 78
	sbpOK := 120

	seeds := []models.CreatePatientRequest{
		{
			FirstName: "Mariam", LastName: "Traoré", Age: 54, Gender: "female",
			NationalID: "CI-1984-00321", Phone: "+225 07 08 12 34 56",
			ChiefComplaint: "Chest pain and shortness of breath",
			Vitals:         models.Vitals{OxygenSaturation: &spo2Low, HeartRate: &hrHigh, ChestPain: true},
			FacilityID:     facilityID,
		},
		{
			FirstName: "Ibrahim", LastName: "Diabaté", Age: 31, Gender: "male",
			NationalID: "CI-1994-00788", Phone: "+225 05 04 98 76 54",
			ChiefComplaint: "Persistent fever",
			Vitals:         models.Vitals{OxygenSaturation: &spo2OK, HeartRate: &hrOK, SystolicBP: &sbpOK},
			FacilityID:     facilityID,
		},
	}

	existing, err := repo.List(ctx, &facilityID, 200)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to list patients")
	}
	byNationalID := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		byNationalID[p.NationalID] = struct{}{}
	}

	for _, seed := range seeds {
		if _, ok := byNationalID[seed.NationalID]; ok {
			logger.Log.WithField("national_id", seed.NationalID).Info("Patient already exists, skipping")
			continue
		}
		patient, err := repo.Create(ctx, seed, registeredBy)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to create patient")
		}
		logger.Log.WithFields(map[string]interface{}{
			"patient_id": patient.ID,
			"name":       patient.FirstName + " " + patient.LastName,
		}).Info("Patient created")
	}
}
