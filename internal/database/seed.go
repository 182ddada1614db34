package database

import (
	"context"
	"errors"
	"fmt"

	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// ErrInvalidEmail is returned by CreateAdmin for a malformed address.
var ErrInvalidEmail = errors.New("invalid email address")

type idRow struct {
	ID string
}

// SampleCatalog is the starter test catalog loaded by the seed command.
func SampleCatalog() []models.Test {
	return []models.Test{
		{Name: "Blood Culture", Category: models.CategoryMicrobiology, Description: "Detection of bacteria and fungi in blood samples",
			PreparationInstructions: "No special preparation required", NormalRange: "Negative", Unit: "CFU/mL", Price: 150, EstimatedDuration: 48},
		{Name: "Urine Culture", Category: models.CategoryMicrobiology, Description: "Detection of bacteria in urine samples",
			PreparationInstructions: "Collect first morning midstream sample", NormalRange: "< 10,000 CFU/mL", Unit: "CFU/mL", Price: 75, EstimatedDuration: 48},
		{Name: "Vitamin D (25-OH)", Category: models.CategoryVitamin, Description: "Measurement of vitamin D levels in blood",
			PreparationInstructions: "No special preparation required", NormalRange: "30-100 ng/mL", Unit: "ng/mL", Price: 120, EstimatedDuration: 24},
		{Name: "Vitamin B12", Category: models.CategoryVitamin, Description: "Measurement of vitamin B12 levels",
			PreparationInstructions: "Fast for 6-8 hours before sampling", NormalRange: "200-900 pg/mL", Unit: "pg/mL", Price: 95, EstimatedDuration: 24},
		{Name: "Glucose (Fasting)", Category: models.CategoryBiochemistry, Description: "Blood glucose level after fasting",
			PreparationInstructions: "Fast for 8-12 hours before sampling", NormalRange: "70-100 mg/dL", Unit: "mg/dL", Price: 25, EstimatedDuration: 2},
		{Name: "Total Cholesterol", Category: models.CategoryBiochemistry, Description: "Total cholesterol level in blood",
			PreparationInstructions: "Fast for 9-12 hours before sampling", NormalRange: "< 200 mg/dL", Unit: "mg/dL", Price: 35, EstimatedDuration: 4},
		{Name: "Complete Blood Count (CBC)", Category: models.CategoryHematology, Description: "Complete blood count including RBC, WBC, platelets",
			PreparationInstructions: "No special preparation required", NormalRange: "See individual components", Unit: "Various", Price: 45, EstimatedDuration: 2},
		{Name: "Hemoglobin A1c", Category: models.CategoryHematology, Description: "Average blood glucose over 2-3 months",
			PreparationInstructions: "No special preparation required", NormalRange: "< 5.7%", Unit: "%", Price: 55, EstimatedDuration: 4},
		{Name: "COVID-19 Antibody Test", Category: models.CategoryImmunology, Description: "Detection of COVID-19 antibodies",
			PreparationInstructions: "No special preparation required", NormalRange: "Negative/Positive", Unit: "Index", Price: 85, EstimatedDuration: 24},
		{Name: "Allergy Panel (Food)", Category: models.CategoryImmunology, Description: "Testing for food allergies",
			PreparationInstructions: "Avoid antihistamines for 5 days before sampling", NormalRange: "See individual allergens", Unit: "kU/L", Price: 200, EstimatedDuration: 72},
	}
}

// SeedCatalog inserts every catalog entry whose name is not present yet and
// returns how many were added.
func SeedCatalog(ctx context.Context, store Store, catalog []models.Test) (int, error) {
	added := 0
	err := store.Transaction(ctx, func(tx Store) error {
		for i := range catalog {
			test := catalog[i]
			var existing idRow
			err := tx.Get(ctx, &existing, "SELECT id FROM tests WHERE name = ?", test.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("look up test %q: %w", test.Name, err)
			}
			test.IsActive = true
			if err := tx.Create(ctx, &test); err != nil {
				return fmt.Errorf("insert test %q: %w", test.Name, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// CreateAdmin registers an administrator account, used to bootstrap a fresh
// installation. The email is normalized the same way registration does it.
func CreateAdmin(ctx context.Context, store Store, firstName, lastName, email, password string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.Validator().Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	user := models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      models.RoleAdmin,
		IsActive:  true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := store.Create(ctx, &user); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &user, nil
}
