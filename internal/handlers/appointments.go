package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// AppointmentHandler handles appointment-related requests.
type AppointmentHandler struct {
	Store database.Store
	Log   zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(store database.Store, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{Store: store, Log: log}
}

// AppointmentRow is an appointment joined with the names of its participants.
type AppointmentRow struct {
	models.Appointment
	PatientFirstName   string `json:"patientFirstName"`
	PatientLastName    string `json:"patientLastName"`
	PatientEmail       string `json:"patientEmail"`
	PersonnelFirstName string `json:"personnelFirstName"`
	PersonnelLastName  string `json:"personnelLastName"`
}

// AppointmentTestRow is a test ordered in an appointment with its catalog data.
type AppointmentTestRow struct {
	models.AppointmentTest
	TestName string              `json:"testName"`
	Category models.TestCategory `json:"category"`
	Price    float64             `json:"price"`
	IsActive bool                `json:"isActive"`
}

// AppointmentDetail is an appointment together with its ordered tests.
type AppointmentDetail struct {
	AppointmentRow
	Tests []AppointmentTestRow `json:"tests"`
}

const appointmentSelect = `SELECT a.*,
	COALESCE(p.first_name, '') AS patient_first_name,
	COALESCE(p.last_name, '') AS patient_last_name,
	COALESCE(p.email, '') AS patient_email,
	COALESCE(per.first_name, '') AS personnel_first_name,
	COALESCE(per.last_name, '') AS personnel_last_name
FROM appointments a
LEFT JOIN users p ON a.patient_id = p.id
LEFT JOIN users per ON a.personnel_id = per.id`

const appointmentOrder = " ORDER BY a.scheduled_date DESC, a.scheduled_time DESC"

// AppointmentTestInput is one requested test.
type AppointmentTestInput struct {
	TestID string `json:"testId" binding:"required"`
	Notes  string `json:"notes"`
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	PatientID     string                 `json:"patientId" binding:"required"`
	ScheduledDate string                 `json:"scheduledDate" binding:"required,isodate"`
	ScheduledTime string                 `json:"scheduledTime" binding:"required,clock"`
	Tests         []AppointmentTestInput `json:"tests" binding:"required,min=1,unique=TestID,dive"`
	Notes         string                 `json:"notes"`
}

// UpdateStatusRequest carries a new appointment status.
type UpdateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=scheduled in-progress completed cancelled"`
}

// UpdateTestStatusRequest carries a new status for one test of an appointment.
type UpdateTestStatusRequest struct {
	Status models.TestStatus `json:"status" binding:"required,oneof=pending in-progress completed"`
	Notes  *string           `json:"notes"`
}

// tests, totalAmount and patientId are fixed at creation.
var appointmentUpdate = utils.UpdateSpec{
	Table: "appointments",
	Fields: []utils.UpdateField{
		{Key: "scheduledDate", Column: "scheduled_date", Kind: utils.DateValue},
		{Key: "scheduledTime", Column: "scheduled_time", Kind: utils.StringValue, Rule: "clock"},
		{Key: "notes", Column: "notes", Kind: utils.StringValue},
		{Key: "status", Column: "status", Kind: utils.StringValue, Rule: "oneof=scheduled in-progress completed cancelled"},
		{Key: "personnelId", Column: "personnel_id", Kind: utils.StringValue, Rule: "required"},
	},
	TouchColumn: "updated_at",
}

// GetAppointments lists appointments. Patients only ever see their own.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}

	query := appointmentSelect + " WHERE 1=1"
	var args []interface{}

	if status := c.Query("status"); status != "" {
		query += " AND a.status = ?"
		args = append(args, status)
	}
	patientID := c.Query("patientId")
	if caller.Role == models.RolePatient {
		patientID = caller.ID
	}
	if patientID != "" {
		query += " AND a.patient_id = ?"
		args = append(args, patientID)
	}
	if personnelID := c.Query("personnelId"); personnelID != "" {
		query += " AND a.personnel_id = ?"
		args = append(args, personnelID)
	}
	query += appointmentOrder

	rows := []AppointmentRow{}
	if err := h.Store.Select(c.Request.Context(), &rows, query, args...); err != nil {
		serverError(c, h.Log, err, "failed to list appointments")
		return
	}
	utils.Success(c, "Appointments fetched successfully", rows)
}

// GetAppointmentByID returns an appointment with its tests.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}

	detail, err := loadAppointment(c.Request.Context(), h.Store, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		utils.NotFound(c, "Appointment not found")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to fetch appointment")
		return
	}
	if caller.Role == models.RolePatient && detail.PatientID != caller.ID {
		utils.Forbidden(c, "Insufficient permissions")
		return
	}

	utils.Success(c, "Appointment fetched successfully", detail)
}

// CreateAppointment books an appointment for a patient. The appointment and
// every test link are written in one transaction; the total is taken from
// the current catalog prices.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	scheduledDate, _ := utils.NormalizeDate(req.ScheduledDate)

	ctx := c.Request.Context()
	appointment := models.Appointment{
		PatientID:     req.PatientID,
		PersonnelID:   caller.ID,
		ScheduledDate: scheduledDate,
		ScheduledTime: req.ScheduledTime,
		Status:        models.StatusScheduled,
		Notes:         req.Notes,
	}

	err := h.Store.Transaction(ctx, func(tx database.Store) error {
		var patient models.User
		err := tx.Get(ctx, &patient, "SELECT * FROM users WHERE id = ?", req.PatientID)
		if errors.Is(err, database.ErrNotFound) {
			return fieldError("patientId", "patient not found")
		}
		if err != nil {
			return err
		}
		if patient.Role != models.RolePatient || !patient.IsActive {
			return fieldError("patientId", "must reference an active patient")
		}

		testIDs := lo.Map(req.Tests, func(t AppointmentTestInput, _ int) string { return t.TestID })
		var found []models.Test
		if err := tx.Select(ctx, &found, "SELECT * FROM tests WHERE id IN ? AND is_active = ?", testIDs, true); err != nil {
			return err
		}
		catalog := lo.KeyBy(found, func(t models.Test) string { return t.ID })

		var missing []utils.FieldError
		for i, id := range testIDs {
			if _, ok := catalog[id]; !ok {
				missing = append(missing, utils.FieldError{
					Field:   "tests[" + strconv.Itoa(i) + "].testId",
					Message: "test not found or inactive",
				})
			}
		}
		if len(missing) > 0 {
			return &utils.ValidationError{Fields: missing}
		}

		appointment.TotalAmount = lo.SumBy(testIDs, func(id string) float64 { return catalog[id].Price })
		if err := tx.Create(ctx, &appointment); err != nil {
			return err
		}

		for i, input := range req.Tests {
			link := models.AppointmentTest{
				AppointmentID: appointment.ID,
				TestID:        input.TestID,
				Position:      i,
				Status:        models.TestStatusPending,
				Notes:         input.Notes,
			}
			if err := tx.Create(ctx, &link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !rejectInput(c, err) {
			serverError(c, h.Log, err, "failed to create appointment")
		}
		return
	}

	detail, err := loadAppointment(ctx, h.Store, appointment.ID)
	if err != nil {
		serverError(c, h.Log, err, "failed to reload appointment")
		return
	}

	h.Log.Info().
		Str("appointment_id", appointment.ID).
		Str("patient_id", appointment.PatientID).
		Int("tests", len(req.Tests)).
		Float64("total_amount", appointment.TotalAmount).
		Msg("appointment created")
	utils.Created(c, "Appointment created successfully", detail)
}

// UpdateAppointmentStatus sets the status of an appointment. Any listed
// status may follow any other.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	n, err := h.Store.Exec(c.Request.Context(),
		"UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?", req.Status, now(), c.Param("id"))
	if err != nil {
		serverError(c, h.Log, err, "failed to update appointment status")
		return
	}
	if n == 0 {
		utils.NotFound(c, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment status updated successfully", nil)
}

// UpdateAppointment applies a partial update to the schedule, notes, status
// or assigned personnel.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	payload, ok := utils.BindPayload(c)
	if !ok {
		return
	}

	stmt, err := appointmentUpdate.Build(payload)
	if err != nil {
		if !rejectInput(c, err) {
			serverError(c, h.Log, err, "failed to build appointment update")
		}
		return
	}

	ctx := c.Request.Context()
	if personnelID, ok := stmt.Value("personnelId"); ok {
		var staff models.User
		err := h.Store.Get(ctx, &staff, "SELECT * FROM users WHERE id = ? AND is_active = ?", personnelID, true)
		if errors.Is(err, database.ErrNotFound) || (err == nil && !staff.Role.IsStaff()) {
			utils.ValidationFailed(c, []utils.FieldError{{Field: "personnelId", Message: "must reference active personnel"}})
			return
		}
		if err != nil {
			serverError(c, h.Log, err, "failed to look up personnel")
			return
		}
	}

	n, err := h.Store.Exec(ctx, stmt.SQL("id = ?"), stmt.Bind(c.Param("id"))...)
	if err != nil {
		serverError(c, h.Log, err, "failed to update appointment")
		return
	}
	if n == 0 {
		utils.NotFound(c, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment updated successfully", nil)
}

// UpdateAppointmentTestStatus tracks the progress of one test inside an
// appointment.
func (h *AppointmentHandler) UpdateAppointmentTestStatus(c *gin.Context) {
	var req UpdateTestStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	query := "UPDATE appointment_tests SET status = ?, updated_at = ?"
	args := []interface{}{req.Status, now()}
	if req.Notes != nil {
		query += ", notes = ?"
		args = append(args, *req.Notes)
	}
	query += " WHERE appointment_id = ? AND test_id = ?"
	args = append(args, c.Param("id"), c.Param("testId"))

	n, err := h.Store.Exec(c.Request.Context(), query, args...)
	if err != nil {
		serverError(c, h.Log, err, "failed to update appointment test status")
		return
	}
	if n == 0 {
		utils.NotFound(c, "Appointment test not found")
		return
	}

	utils.Success(c, "Appointment test status updated successfully", nil)
}

// loadAppointment reads an appointment with its tests in submission order.
func loadAppointment(ctx context.Context, store database.Store, id string) (*AppointmentDetail, error) {
	var detail AppointmentDetail
	if err := store.Get(ctx, &detail.AppointmentRow, appointmentSelect+" WHERE a.id = ?", id); err != nil {
		return nil, err
	}

	detail.Tests = []AppointmentTestRow{}
	err := store.Select(ctx, &detail.Tests, `SELECT apt.*,
	COALESCE(t.name, '') AS test_name,
	COALESCE(t.category, '') AS category,
	COALESCE(t.price, 0) AS price,
	COALESCE(t.is_active, ?) AS is_active
FROM appointment_tests apt
LEFT JOIN tests t ON apt.test_id = t.id
WHERE apt.appointment_id = ?
ORDER BY apt.position`, false, id)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
