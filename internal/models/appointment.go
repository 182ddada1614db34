package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in-progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// AppointmentStatuses lists every accepted appointment status.
var AppointmentStatuses = []AppointmentStatus{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

// TestStatus is the per-test progress inside an appointment
type TestStatus string

const (
	TestStatusPending    TestStatus = "pending"
	TestStatusInProgress TestStatus = "in-progress"
	TestStatusCompleted  TestStatus = "completed"
)

// Appointment links a patient and the personnel member who booked it.
// TotalAmount is computed from catalog prices at creation and never
// recalculated.
type Appointment struct {
	BaseModel
	PatientID     string            `gorm:"size:36;index;not null" json:"patientId"`
	PersonnelID   string            `gorm:"size:36;index;not null" json:"personnelId"`
	ScheduledDate string            `gorm:"size:10;not null" json:"scheduledDate"`
	ScheduledTime string            `gorm:"size:5;not null" json:"scheduledTime"`
	Status        AppointmentStatus `gorm:"size:20;not null;default:'scheduled'" json:"status"`
	TotalAmount   float64           `gorm:"not null" json:"totalAmount"`
	Notes         string            `gorm:"type:text" json:"notes"`
}

// AppointmentTest is one ordered test inside an appointment.
type AppointmentTest struct {
	BaseModel
	AppointmentID string     `gorm:"size:36;index;not null" json:"appointmentId"`
	TestID        string     `gorm:"size:36;index;not null" json:"testId"`
	Position      int        `gorm:"not null" json:"position"`
	Status        TestStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
}
