package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResultStatus represents the clinical severity of a result
type ResultStatus string

const (
	ResultNormal   ResultStatus = "normal"
	ResultAbnormal ResultStatus = "abnormal"
	ResultCritical ResultStatus = "critical"
)

// ResultAttachment references a file stored alongside a result.
type ResultAttachment struct {
	Filename string `json:"filename"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
}

// TestResult is a recorded outcome for one test of an appointment.
type TestResult struct {
	BaseModel
	AppointmentID string                                `gorm:"size:36;index;not null" json:"appointmentId"`
	TestID        string                                `gorm:"size:36;index;not null" json:"testId"`
	PatientID     string                                `gorm:"size:36;index;not null" json:"patientId"`
	TechnicianID  string                                `gorm:"size:36;not null" json:"technicianId"`
	ResultValue   string                                `gorm:"type:text;not null" json:"resultValue"`
	Unit          string                                `gorm:"size:50" json:"unit,omitempty"`
	NormalRange   string                                `gorm:"size:255" json:"normalRange,omitempty"`
	Status        ResultStatus                          `gorm:"size:20;not null" json:"status"`
	Comments      string                                `gorm:"type:text" json:"comments,omitempty"`
	Attachments   datatypes.JSONSlice[ResultAttachment] `json:"attachments"`
	CompletedAt   time.Time                             `json:"completedAt"`
	IsApproved    bool                                  `gorm:"not null;default:false" json:"isApproved"`
	ApprovedBy    *string                               `gorm:"size:36" json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time                            `json:"approvedAt,omitempty"`
}
