package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// UserHandler handles user-related requests.
type UserHandler struct {
	Store database.Store
	Log   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store database.Store, log zerolog.Logger) *UserHandler {
	return &UserHandler{Store: store, Log: log}
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

var userUpdate = utils.UpdateSpec{
	Table: "users",
	Fields: []utils.UpdateField{
		{Key: "firstName", Column: "first_name", Kind: utils.StringValue, Rule: "required"},
		{Key: "lastName", Column: "last_name", Kind: utils.StringValue, Rule: "required"},
		{Key: "email", Column: "email", Kind: utils.StringValue, Rule: "required,email"},
		{Key: "phone", Column: "phone", Kind: utils.StringValue, Rule: "required"},
		{Key: "dateOfBirth", Column: "date_of_birth", Kind: utils.DateValue},
		{Key: "gender", Column: "gender", Kind: utils.StringValue, Rule: "oneof=male female other"},
		{Key: "address", Column: "address", Kind: utils.ObjectValue},
		{Key: "role", Column: "role", Kind: utils.StringValue, Rule: "oneof=patient personnel admin"},
	},
	TouchColumn: "updated_at",
}

// GetUsers lists users, optionally filtered by role and a search term.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := "SELECT * FROM users WHERE 1=1"
	var args []interface{}

	if role := c.Query("role"); role != "" {
		if !models.Role(role).Valid() {
			utils.ValidationFailed(c, []utils.FieldError{{Field: "role", Message: "must be one of: patient, personnel, admin"}})
			return
		}
		query += " AND role = ?"
		args = append(args, role)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		term := "%" + likeEscaper.Replace(search) + "%"
		query += " AND (first_name LIKE ? ESCAPE '!' OR last_name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!')"
		args = append(args, term, term, term)
	}
	query += " ORDER BY last_name, first_name"

	var users []models.User
	if err := h.Store.Select(c.Request.Context(), &users, query, args...); err != nil {
		serverError(c, h.Log, err, "failed to list users")
		return
	}

	sanitized := lo.Map(users, func(u models.User, _ int) models.UserSanitized {
		return u.Sanitize()
	})
	utils.Success(c, "Users fetched successfully", sanitized)
}

// GetUserByID returns one user. Staff may read anyone, others only themselves.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if !caller.Role.IsStaff() && caller.ID != id {
		utils.Forbidden(c, "Insufficient permissions")
		return
	}

	var user models.User
	err := h.Store.Get(c.Request.Context(), &user, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, database.ErrNotFound) {
		utils.NotFound(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to fetch user")
		return
	}

	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUser applies a partial update. Admins may update anyone and change
// roles; other users only their own profile.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	isAdmin := caller.Role == models.RoleAdmin
	if !isAdmin && caller.ID != id {
		utils.Forbidden(c, "Insufficient permissions")
		return
	}

	payload, ok := utils.BindPayload(c)
	if !ok {
		return
	}
	if !isAdmin && payload["role"] != nil {
		utils.Forbidden(c, "Only administrators can change roles")
		return
	}
	if email, ok := payload["email"].(string); ok {
		payload["email"] = utils.NormalizeEmail(email)
	}

	stmt, err := userUpdate.Build(payload)
	if err != nil {
		if !rejectInput(c, err) {
			serverError(c, h.Log, err, "failed to build user update")
		}
		return
	}

	n, err := h.Store.Exec(c.Request.Context(), stmt.SQL("id = ?"), stmt.Bind(id)...)
	if errors.Is(err, database.ErrDuplicate) {
		utils.BadRequest(c, "User already exists")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to update user")
		return
	}
	if n == 0 {
		utils.NotFound(c, "User not found")
		return
	}

	utils.Success(c, "User updated successfully", nil)
}

// DeactivateUser soft-deletes an account. Tokens already issued to it stop
// working on their next use.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id := c.Param("id")
	n, err := h.Store.Exec(c.Request.Context(),
		"UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?", false, now(), id)
	if err != nil {
		serverError(c, h.Log, err, "failed to deactivate user")
		return
	}
	if n == 0 {
		utils.NotFound(c, "User not found")
		return
	}

	h.Log.Info().Str("user_id", id).Msg("user deactivated")
	utils.Success(c, "User deactivated successfully", nil)
}

// GetUserAppointments lists the appointments a user takes part in, either
// as patient or as the personnel member who booked them.
func (h *UserHandler) GetUserAppointments(c *gin.Context) {
	caller, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if !caller.Role.IsStaff() && caller.ID != id {
		utils.Forbidden(c, "Insufficient permissions")
		return
	}

	var rows []AppointmentRow
	query := appointmentSelect + " WHERE a.patient_id = ? OR a.personnel_id = ?" + appointmentOrder
	if err := h.Store.Select(c.Request.Context(), &rows, query, id, id); err != nil {
		serverError(c, h.Log, err, "failed to list user appointments")
		return
	}
	if rows == nil {
		rows = []AppointmentRow{}
	}

	utils.Success(c, "Appointments fetched successfully", rows)
}
