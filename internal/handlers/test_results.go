package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// TestResultHandler records and publishes test results.
type TestResultHandler struct {
	Store database.Store
	Log   zerolog.Logger
}

// NewTestResultHandler creates a new TestResultHandler.
func NewTestResultHandler(store database.Store, log zerolog.Logger) *TestResultHandler {
	return &TestResultHandler{Store: store, Log: log}
}

// CreateTestResultRequest represents the request body for recording a result.
// Unit and normal range default to the catalog values of the test.
type CreateTestResultRequest struct {
	AppointmentID string                    `json:"appointmentId" binding:"required"`
	TestID        string                    `json:"testId" binding:"required"`
	ResultValue   string                    `json:"resultValue" binding:"required"`
	Status        models.ResultStatus       `json:"status" binding:"required,oneof=normal abnormal critical"`
	Unit          string                    `json:"unit"`
	NormalRange   string                    `json:"normalRange"`
	Comments      string                    `json:"comments"`
	Attachments   []models.ResultAttachment `json:"attachments"`
}

// TestResultRow is a result joined with the name of its test.
type TestResultRow struct {
	models.TestResult
	TestName string `json:"testName"`
}

const testResultSelect = `SELECT r.*, COALESCE(t.name, '') AS test_name
FROM test_results r
LEFT JOIN tests t ON r.test_id = t.id`

// CreateTestResult records the outcome of one test of an appointment and
// marks that test completed.
func (h *TestResultHandler) CreateTestResult(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateTestResultRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var result models.TestResult
	err := h.Store.Transaction(ctx, func(tx database.Store) error {
		var appointment models.Appointment
		err := tx.Get(ctx, &appointment, "SELECT * FROM appointments WHERE id = ?", req.AppointmentID)
		if errors.Is(err, database.ErrNotFound) {
			return fieldError("appointmentId", "appointment not found")
		}
		if err != nil {
			return err
		}

		var link models.AppointmentTest
		err = tx.Get(ctx, &link, "SELECT * FROM appointment_tests WHERE appointment_id = ? AND test_id = ?",
			req.AppointmentID, req.TestID)
		if errors.Is(err, database.ErrNotFound) {
			return fieldError("testId", "test is not part of this appointment")
		}
		if err != nil {
			return err
		}

		// Inactive tests keep their results; only the link matters here.
		var test models.Test
		if err := tx.Get(ctx, &test, "SELECT * FROM tests WHERE id = ?", req.TestID); err != nil {
			return err
		}

		result = models.TestResult{
			AppointmentID: appointment.ID,
			TestID:        test.ID,
			PatientID:     appointment.PatientID,
			TechnicianID:  caller.ID,
			ResultValue:   req.ResultValue,
			Unit:          firstNonEmpty(req.Unit, test.Unit),
			NormalRange:   firstNonEmpty(req.NormalRange, test.NormalRange),
			Status:        req.Status,
			Comments:      req.Comments,
			Attachments:   req.Attachments,
			CompletedAt:   now(),
		}
		if result.Attachments == nil {
			result.Attachments = []models.ResultAttachment{}
		}
		if err := tx.Create(ctx, &result); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, "UPDATE appointment_tests SET status = ?, updated_at = ? WHERE id = ?",
			models.TestStatusCompleted, now(), link.ID)
		return err
	})
	if err != nil {
		if !rejectInput(c, err) {
			serverError(c, h.Log, err, "failed to record test result")
		}
		return
	}

	h.Log.Info().
		Str("result_id", result.ID).
		Str("appointment_id", result.AppointmentID).
		Str("status", string(result.Status)).
		Msg("test result recorded")
	utils.Created(c, "Test result recorded successfully", result)
}

// GetTestResults lists results. Patients only ever see their own.
func (h *TestResultHandler) GetTestResults(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}

	query := testResultSelect + " WHERE 1=1"
	var args []interface{}

	if appointmentID := c.Query("appointmentId"); appointmentID != "" {
		query += " AND r.appointment_id = ?"
		args = append(args, appointmentID)
	}
	patientID := c.Query("patientId")
	if caller.Role == models.RolePatient {
		patientID = caller.ID
	}
	if patientID != "" {
		query += " AND r.patient_id = ?"
		args = append(args, patientID)
	}
	if status := c.Query("status"); status != "" {
		query += " AND r.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY r.completed_at DESC"

	rows := []TestResultRow{}
	if err := h.Store.Select(c.Request.Context(), &rows, query, args...); err != nil {
		serverError(c, h.Log, err, "failed to list test results")
		return
	}
	utils.Success(c, "Test results fetched successfully", rows)
}

// GetTestResultByID returns one result.
func (h *TestResultHandler) GetTestResultByID(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}

	var row TestResultRow
	err := h.Store.Get(c.Request.Context(), &row, testResultSelect+" WHERE r.id = ?", c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		utils.NotFound(c, "Test result not found")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to fetch test result")
		return
	}
	if caller.Role == models.RolePatient && row.PatientID != caller.ID {
		utils.Forbidden(c, "Insufficient permissions")
		return
	}

	utils.Success(c, "Test result fetched successfully", row)
}

// ApproveTestResult signs off a result. A result is approved at most once.
func (h *TestResultHandler) ApproveTestResult(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	var result models.TestResult
	err := h.Store.Get(ctx, &result, "SELECT * FROM test_results WHERE id = ?", id)
	if errors.Is(err, database.ErrNotFound) {
		utils.NotFound(c, "Test result not found")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to fetch test result")
		return
	}
	if result.IsApproved {
		utils.BadRequest(c, "Test result already approved")
		return
	}

	approvedAt := now()
	n, err := h.Store.Exec(ctx,
		"UPDATE test_results SET is_approved = ?, approved_by = ?, approved_at = ?, updated_at = ? WHERE id = ? AND is_approved = ?",
		true, caller.ID, approvedAt, approvedAt, id, false)
	if err != nil {
		serverError(c, h.Log, err, "failed to approve test result")
		return
	}
	if n == 0 {
		// Lost a race with another approval.
		utils.BadRequest(c, "Test result already approved")
		return
	}

	result.IsApproved = true
	result.ApprovedBy = &caller.ID
	result.ApprovedAt = &approvedAt
	result.UpdatedAt = approvedAt
	utils.Success(c, "Test result approved successfully", result)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
