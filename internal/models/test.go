package models

// TestCategory represents the lab section a test belongs to
type TestCategory string

const (
	CategoryMicrobiology TestCategory = "microbiology"
	CategoryVitamin      TestCategory = "vitamin"
	CategoryBiochemistry TestCategory = "biochemistry"
	CategoryHematology   TestCategory = "hematology"
	CategoryImmunology   TestCategory = "immunology"
)

// TestCategories is the closed set of catalog categories.
var TestCategories = []TestCategory{
	CategoryMicrobiology,
	CategoryVitamin,
	CategoryBiochemistry,
	CategoryHematology,
	CategoryImmunology,
}

// Valid reports whether c is a known category.
func (c TestCategory) Valid() bool {
	for _, known := range TestCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Test is a catalog entry. Deleting a test only clears IsActive so that
// appointments and results keep referring to it.
type Test struct {
	BaseModel
	Name                    string       `gorm:"size:255;not null" json:"name"`
	Category                TestCategory `gorm:"size:20;not null;index" json:"category"`
	Description             string       `gorm:"type:text;not null" json:"description"`
	PreparationInstructions string       `gorm:"type:text;not null" json:"preparationInstructions"`
	NormalRange             string       `gorm:"size:255;not null" json:"normalRange"`
	Unit                    string       `gorm:"size:50" json:"unit,omitempty"`
	Price                   float64      `gorm:"not null" json:"price"`
	EstimatedDuration       float64      `gorm:"not null" json:"estimatedDuration"` // hours
	IsActive                bool         `gorm:"not null;default:true" json:"isActive"`
}
