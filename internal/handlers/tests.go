package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

// TestHandler serves the test catalog.
type TestHandler struct {
	Store database.Store
	Log   zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(store database.Store, log zerolog.Logger) *TestHandler {
	return &TestHandler{Store: store, Log: log}
}

// CreateTestRequest represents the request body for adding a catalog entry.
type CreateTestRequest struct {
	Name                    string              `json:"name" binding:"required"`
	Category                models.TestCategory `json:"category" binding:"required,oneof=microbiology vitamin biochemistry hematology immunology"`
	Description             string              `json:"description" binding:"required"`
	PreparationInstructions string              `json:"preparationInstructions" binding:"required"`
	NormalRange             string              `json:"normalRange" binding:"required"`
	Unit                    string              `json:"unit"`
	Price                   *float64            `json:"price" binding:"required,gte=0"`
	EstimatedDuration       *float64            `json:"estimatedDuration" binding:"required,gte=0"`
}

var testUpdate = utils.UpdateSpec{
	Table: "tests",
	Fields: []utils.UpdateField{
		{Key: "name", Column: "name", Kind: utils.StringValue, Rule: "required"},
		{Key: "category", Column: "category", Kind: utils.StringValue, Rule: "oneof=microbiology vitamin biochemistry hematology immunology"},
		{Key: "description", Column: "description", Kind: utils.StringValue, Rule: "required"},
		{Key: "preparationInstructions", Column: "preparation_instructions", Kind: utils.StringValue, Rule: "required"},
		{Key: "normalRange", Column: "normal_range", Kind: utils.StringValue, Rule: "required"},
		{Key: "unit", Column: "unit", Kind: utils.StringValue},
		{Key: "price", Column: "price", Kind: utils.NumberValue, Rule: "gte=0"},
		{Key: "estimatedDuration", Column: "estimated_duration", Kind: utils.NumberValue, Rule: "gte=0"},
	},
	TouchColumn: "updated_at",
}

// GetTests lists every active test, grouped by category.
func (h *TestHandler) GetTests(c *gin.Context) {
	tests := []models.Test{}
	err := h.Store.Select(c.Request.Context(), &tests,
		"SELECT * FROM tests WHERE is_active = ? ORDER BY category, name", true)
	if err != nil {
		serverError(c, h.Log, err, "failed to list tests")
		return
	}
	utils.Success(c, "Tests fetched successfully", tests)
}

// GetTestsByCategory lists the active tests of one category.
func (h *TestHandler) GetTestsByCategory(c *gin.Context) {
	category := models.TestCategory(c.Param("category"))
	if !category.Valid() {
		utils.ValidationFailed(c, []utils.FieldError{{
			Field:   "category",
			Message: "must be one of: microbiology, vitamin, biochemistry, hematology, immunology",
		}})
		return
	}

	tests := []models.Test{}
	err := h.Store.Select(c.Request.Context(), &tests,
		"SELECT * FROM tests WHERE category = ? AND is_active = ? ORDER BY name", category, true)
	if err != nil {
		serverError(c, h.Log, err, "failed to list tests by category")
		return
	}
	utils.Success(c, "Tests fetched successfully", tests)
}

// GetTestByID returns one active test.
func (h *TestHandler) GetTestByID(c *gin.Context) {
	var test models.Test
	err := h.Store.Get(c.Request.Context(), &test,
		"SELECT * FROM tests WHERE id = ? AND is_active = ?", c.Param("id"), true)
	if errors.Is(err, database.ErrNotFound) {
		utils.NotFound(c, "Test not found")
		return
	}
	if err != nil {
		serverError(c, h.Log, err, "failed to fetch test")
		return
	}
	utils.Success(c, "Test fetched successfully", test)
}

// CreateTest adds a catalog entry.
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req CreateTestRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	test := models.Test{
		Name:                    strings.TrimSpace(req.Name),
		Category:                req.Category,
		Description:             req.Description,
		PreparationInstructions: req.PreparationInstructions,
		NormalRange:             req.NormalRange,
		Unit:                    req.Unit,
		Price:                   *req.Price,
		EstimatedDuration:       *req.EstimatedDuration,
		IsActive:                true,
	}
	if err := h.Store.Create(c.Request.Context(), &test); err != nil {
		serverError(c, h.Log, err, "failed to create test")
		return
	}

	utils.Created(c, "Test created successfully", test)
}

// UpdateTest applies a partial update to a catalog entry. Price changes do
// not touch existing appointments.
func (h *TestHandler) UpdateTest(c *gin.Context) {
	payload, ok := utils.BindPayload(c)
	if !ok {
		return
	}

	stmt, err := testUpdate.Build(payload)
	if err != nil {
		if !rejectInput(c, err) {
			serverError(c, h.Log, err, "failed to build test update")
		}
		return
	}

	n, err := h.Store.Exec(c.Request.Context(), stmt.SQL("id = ?"), stmt.Bind(c.Param("id"))...)
	if err != nil {
		serverError(c, h.Log, err, "failed to update test")
		return
	}
	if n == 0 {
		utils.NotFound(c, "Test not found")
		return
	}

	utils.Success(c, "Test updated successfully", nil)
}

// DeleteTest deactivates a catalog entry. Appointments and results that
// reference it are left untouched.
func (h *TestHandler) DeleteTest(c *gin.Context) {
	n, err := h.Store.Exec(c.Request.Context(),
		"UPDATE tests SET is_active = ?, updated_at = ? WHERE id = ?", false, now(), c.Param("id"))
	if err != nil {
		serverError(c, h.Log, err, "failed to delete test")
		return
	}
	if n == 0 {
		utils.NotFound(c, "Test not found")
		return
	}

	utils.Success(c, "Test deleted successfully", nil)
}
