package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// Role enum
type Role string

const (
	RolePatient   Role = "patient"
	RolePersonnel Role = "personnel"
	RoleAdmin     Role = "admin"
)

// Roles is the closed set of account roles.
var Roles = []Role{RolePatient, RolePersonnel, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether r belongs to lab staff (personnel or admin).
func (r Role) IsStaff() bool {
	return r == RolePersonnel || r == RoleAdmin
}

// Gender enum
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User represents a patient, lab personnel or administrator account.
// Accounts are never hard-deleted; deactivation clears IsActive.
type User struct {
	BaseModel
	FirstName   string         `gorm:"size:100;not null" json:"firstName"`
	LastName    string         `gorm:"size:100;not null" json:"lastName"`
	Email       string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Phone       string         `gorm:"size:50" json:"phone"`
	DateOfBirth string         `gorm:"size:10" json:"dateOfBirth"`
	Gender      Gender         `gorm:"size:10" json:"gender"`
	Address     datatypes.JSON `json:"address"`
	Role        Role           `gorm:"size:20;not null;default:'patient';index" json:"role"`
	IsActive    bool           `gorm:"not null;default:true" json:"isActive"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID          string         `json:"id"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	DateOfBirth string         `json:"dateOfBirth,omitempty"`
	Gender      Gender         `json:"gender,omitempty"`
	Address     datatypes.JSON `json:"address"`
	Role        Role           `json:"role"`
	IsActive    bool           `json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		Address:     u.Address,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}
