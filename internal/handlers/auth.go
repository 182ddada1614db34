package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"clinical-lab-server/internal/config"
	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Store database.Store
	Cfg   *config.Config
	Log   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store database.Store, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Store: store, Cfg: cfg, Log: log}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName   string                 `json:"firstName" binding:"required"`
	LastName    string                 `json:"lastName" binding:"required"`
	Email       string                 `json:"email" binding:"required,email"`
	Password    string                 `json:"password" binding:"required,min=6"`
	Phone       string                 `json:"phone" binding:"required"`
	DateOfBirth string                 `json:"dateOfBirth" binding:"required,isodate"`
	Gender      models.Gender          `json:"gender" binding:"required,oneof=male female other"`
	Address     map[string]interface{} `json:"address"`
	Role        models.Role            `json:"role" binding:"omitempty,oneof=patient personnel admin"`
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string               `json:"token"`
	User  models.UserSanitized `json:"user"`
}

const msgInvalidCredentials = "Invalid credentials"

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role := req.Role
	if role == "" {
		role = models.RolePatient
	}
	if role != models.RolePatient && !h.Cfg.AllowPrivilegedSignup {
		utils.ValidationFailed(c, []utils.FieldError{{Field: "role", Message: "only patient accounts can self-register"}})
		return
	}

	email := utils.NormalizeEmail(req.Email)
	ctx := c.Request.Context()

	var existing models.User
	err := h.Store.Get(ctx, &existing, "SELECT * FROM users WHERE email = ?", email)
	if err == nil {
		utils.BadRequest(c, "User already exists")
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		serverError(c, h.Log, err, "failed to look up email")
		return
	}

	user := models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Gender:    req.Gender,
		Role:      role,
		IsActive:  true,
	}
	user.DateOfBirth, _ = utils.NormalizeDate(req.DateOfBirth)
	if req.Address != nil {
		raw, err := json.Marshal(req.Address)
		if err != nil {
			utils.ValidationFailed(c, []utils.FieldError{{Field: "address", Message: "must be valid JSON"}})
			return
		}
		user.Address = datatypes.JSON(raw)
	}
	if err := user.SetPassword(req.Password); err != nil {
		serverError(c, h.Log, err, "failed to hash password")
		return
	}

	if err := h.Store.Create(ctx, &user); err != nil {
		// A concurrent registration may win the unique index after our check.
		if errors.Is(err, database.ErrDuplicate) {
			utils.BadRequest(c, "User already exists")
			return
		}
		serverError(c, h.Log, err, "failed to create user")
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		serverError(c, h.Log, err, "failed to sign token")
		return
	}

	h.Log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	utils.Created(c, "User registered successfully", AuthResponse{Token: token, User: user.Sanitize()})
}

// Login handles user login. Unknown emails, inactive accounts and wrong
// passwords all get the same answer.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.Store.Get(c.Request.Context(), &user, "SELECT * FROM users WHERE email = ?", utils.NormalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		utils.BadRequest(c, msgInvalidCredentials)
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to look up user")
		return
	}

	if !user.IsActive || !user.CheckPassword(req.Password) {
		utils.BadRequest(c, msgInvalidCredentials)
		return
	}

	token, err := h.issueToken(user.ID)
	if err != nil {
		serverError(c, h.Log, err, "failed to sign token")
		return
	}

	utils.Success(c, "Login successful", AuthResponse{Token: token, User: user.Sanitize()})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

func (h *AuthHandler) issueToken(userID string) (string, error) {
	ttl := time.Duration(h.Cfg.JWTExpirationHours) * time.Hour
	return utils.GenerateToken(userID, h.Cfg.JWTSecret, ttl)
}
