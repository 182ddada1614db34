package routes

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinical-lab-server/internal/models"
)

func TestGetUsers_FiltersAndOrders(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(models.RoleAdmin, "admin@example.com")
	_, patientToken := h.user(models.RolePatient, "zoe@example.com")
	h.user(models.RolePatient, "adam@example.com")
	h.user(models.RolePersonnel, "tech@example.com")

	w, resp := h.do(http.MethodGet, "/api/users?role=patient", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.UserSanitized
	decodeData(t, resp, &users)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, models.RolePatient, u.Role)
	}

	w, resp = h.do(http.MethodGet, "/api/users?search=tech", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "tech@example.com", users[0].Email)

	w, _ = h.do(http.MethodGet, "/api/users?role=doctor", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodGet, "/api/users", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUserByID_Ownership(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")
	bob, _ := h.user(models.RolePatient, "bob@example.com")
	_, techToken := h.user(models.RolePersonnel, "tech@example.com")

	w, _ := h.do(http.MethodGet, "/api/users/"+ann.ID, annToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/api/users/"+bob.ID, annToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodGet, "/api/users/"+bob.ID, techToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := h.do(http.MethodGet, "/api/users/missing", techToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", resp.Error)
}

func TestUpdateUser_PartialUpdate(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")

	w, _ := h.do(http.MethodPut, "/api/users/"+ann.ID, annToken, map[string]interface{}{
		"phone":    "555-9999",
		"address":  map[string]string{"city": "Paris"},
		"lastName": nil,
		"isActive": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.User
	require.NoError(t, h.store.Get(context.Background(), &stored, "SELECT * FROM users WHERE id = ?", ann.ID))
	assert.Equal(t, "555-9999", stored.Phone)
	assert.JSONEq(t, `{"city":"Paris"}`, string(stored.Address))
	assert.Equal(t, ann.LastName, stored.LastName)
	assert.True(t, stored.IsActive, "isActive is not updatable through this route")
	assert.True(t, stored.UpdatedAt.After(ann.UpdatedAt) || stored.UpdatedAt.Equal(ann.UpdatedAt))
}

func TestUpdateUser_EmptyPayload(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")

	for _, body := range []interface{}{map[string]interface{}{}, nil, map[string]interface{}{"tests": []string{"x"}}} {
		w, resp := h.do(http.MethodPut, "/api/users/"+ann.ID, annToken, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No valid fields to update", resp.Error)
	}

	var stored models.User
	require.NoError(t, h.store.Get(context.Background(), &stored, "SELECT * FROM users WHERE id = ?", ann.ID))
	assert.True(t, stored.UpdatedAt.Equal(ann.UpdatedAt), "no write may happen")
}

func TestUpdateUser_Permissions(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")
	bob, _ := h.user(models.RolePatient, "bob@example.com")
	_, adminToken := h.user(models.RoleAdmin, "admin@example.com")

	w, _ := h.do(http.MethodPut, "/api/users/"+bob.ID, annToken, map[string]string{"phone": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPut, "/api/users/"+ann.ID, annToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPut, "/api/users/"+ann.ID, adminToken, map[string]string{"role": "personnel"})
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.User
	require.NoError(t, h.store.Get(context.Background(), &stored, "SELECT * FROM users WHERE id = ?", ann.ID))
	assert.Equal(t, models.RolePersonnel, stored.Role)

	w, resp := h.do(http.MethodPut, "/api/users/"+ann.ID, adminToken, map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "role", resp.Errors[0].Field)

	w, _ = h.do(http.MethodPut, "/api/users/missing", adminToken, map[string]string{"phone": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")
	h.user(models.RolePatient, "bob@example.com")

	w, resp := h.do(http.MethodPut, "/api/users/"+ann.ID, annToken, map[string]string{"email": "Bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", resp.Error)
}

func TestDeactivateUser_RevokesAccess(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")
	_, adminToken := h.user(models.RoleAdmin, "admin@example.com")

	w, _ := h.do(http.MethodGet, "/api/auth/me", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPut, "/api/users/"+ann.ID+"/deactivate", annToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPut, "/api/users/"+ann.ID+"/deactivate", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, h.count("SELECT COUNT(*) AS n FROM users WHERE id = ? AND is_active = ?", ann.ID, false))

	w, resp := h.do(http.MethodGet, "/api/auth/me", annToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is not valid", resp.Error)

	w, _ = h.do(http.MethodPut, "/api/users/missing/deactivate", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUser_AddressMustBeObject(t *testing.T) {
	h := newHarness(t)
	ann, annToken := h.user(models.RolePatient, "ann@example.com")

	for _, address := range []interface{}{"1 Main St", 42, []string{"1 Main St"}} {
		w, resp := h.do(http.MethodPut, "/api/users/"+ann.ID, annToken, map[string]interface{}{"address": address})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "address", resp.Errors[0].Field)
	}

	var stored models.User
	require.NoError(t, h.store.Get(context.Background(), &stored, "SELECT * FROM users WHERE id = ?", ann.ID))
	assert.True(t, stored.UpdatedAt.Equal(ann.UpdatedAt), "no write may happen")
}

func TestGetUsers_SearchMatchesWildcardsLiterally(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(models.RoleAdmin, "admin@example.com")
	h.user(models.RolePatient, "a_b@example.com")
	h.user(models.RolePatient, "axb@example.com")

	for search, want := range map[string][]string{
		"a_b": {"a_b@example.com"},
		"_":   {"a_b@example.com"},
		"%":   {},
	} {
		t.Run(search, func(t *testing.T) {
			w, resp := h.do(http.MethodGet, "/api/users?search="+url.QueryEscape(search), adminToken, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var users []models.UserSanitized
			decodeData(t, resp, &users)
			emails := make([]string, 0, len(users))
			for _, u := range users {
				emails = append(emails, u.Email)
			}
			assert.ElementsMatch(t, want, emails)
		})
	}
}
