package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"clinical-lab-server/internal/config"
	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/database/dbtest"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

const testPassword = "password123"

type harness struct {
	t      *testing.T
	cfg    *config.Config
	store  database.Store
	router *gin.Engine
}

type apiResponse struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data"`
	Error   string             `json:"error"`
	Errors  []utils.FieldError `json:"errors"`
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:               "0",
		Origins:            []string{"http://localhost:3000"},
		Environment:        "test",
		JWTSecret:          "routes-test-secret",
		JWTExpirationHours: 168,
	}
	store := dbtest.Store(t)
	return &harness{t: t, cfg: cfg, store: store, router: NewRouter(store, cfg, zerolog.Nop())}
}

func (h *harness) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	h.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

// user inserts an active account and returns it with a valid token.
func (h *harness) user(role models.Role, email string) (*models.User, string) {
	h.t.Helper()
	user := &models.User{
		FirstName:   "First",
		LastName:    string(role),
		Email:       email,
		Phone:       "555-0100",
		DateOfBirth: "1990-01-01",
		Gender:      models.GenderOther,
		Role:        role,
		IsActive:    true,
	}
	require.NoError(h.t, user.SetPassword(testPassword))
	require.NoError(h.t, h.store.Create(context.Background(), user))

	token, err := utils.GenerateToken(user.ID, h.cfg.JWTSecret, time.Hour)
	require.NoError(h.t, err)
	return user, token
}

func (h *harness) test(name string, category models.TestCategory, price float64) *models.Test {
	h.t.Helper()
	test := &models.Test{
		Name:                    name,
		Category:                category,
		Description:             name + " description",
		PreparationInstructions: "None",
		NormalRange:             "0-10",
		Unit:                    "mg/dL",
		Price:                   price,
		EstimatedDuration:       2,
		IsActive:                true,
	}
	require.NoError(h.t, h.store.Create(context.Background(), test))
	return test
}

type countRow struct {
	N int64
}

// count runs a query selecting a single "n" column.
func (h *harness) count(query string, args ...interface{}) int64 {
	h.t.Helper()
	var row countRow
	require.NoError(h.t, h.store.Get(context.Background(), &row, query, args...))
	return row.N
}

func decodeData(t *testing.T, resp apiResponse, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dest), string(resp.Data))
}
