package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GenturixHub/genturix-push/internal/models"

	"github.com/stretchr/testify/require"
)

func (f *fakeAdmin) GetUser(_ context.Context, id int) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeAdmin) UpdateUserPassword(_ context.Context, userID int, newPasswordHash string) error {
	if _, ok := f.users[userID]; !ok {
		return errors.New("user not found")
	}
	f.passwords[userID] = newPasswordHash
	u := f.users[userID]
	u.PasswordHash = newPasswordHash
	f.users[userID] = u
	return nil
}

func (f *fakeAdmin) GetUnitMembers(_ context.Context, unitID int) ([]models.User, error) {
	return f.unitMembers[unitID], nil
}

func (f *fakeAdmin) GetDevice(_ context.Context, id int) (models.Device, error) {
	for _, d := range f.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Device{}, errors.New("device not found")
}

// authedRequest builds a request carrying a logged-in session cookie.
func authedRequest(t *testing.T, method, path, body string, user models.User) *http.Request {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	session, _ := sessionStore.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	require.NoError(t, session.Save(r, w))
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestGetUnitMembersHandler(t *testing.T) {
	admin := newFakeAdmin()
	admin.unitMembers[3] = []models.User{
		{ID: 1, Username: "alice", Role: models.RoleResident},
		{ID: 2, Username: "bob", Role: models.RoleGuard},
	}
	h := &Handler{Admin: admin}

	w := httptest.NewRecorder()
	h.GetUnitMembersHandler(w, httptest.NewRequest(http.MethodGet, "/api/admin/units/3/members", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Members []struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Members, 2)
	require.Equal(t, "alice", resp.Members[0].Username)
	require.Equal(t, models.RoleGuard, resp.Members[1].Role)
}

func TestGetUnitMembersRejectsBadID(t *testing.T) {
	h := &Handler{Admin: newFakeAdmin()}

	w := httptest.NewRecorder()
	h.GetUnitMembersHandler(w, httptest.NewRequest(http.MethodGet, "/api/admin/units/abc/members", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDeviceHandler(t *testing.T) {
	admin := newFakeAdmin()
	admin.devices["tok-gate"] = models.Device{ID: 4, Name: "gate-panel", Token: "tok-gate"}
	h := &Handler{Admin: admin}

	w := httptest.NewRecorder()
	h.GetDeviceHandler(w, httptest.NewRequest(http.MethodGet, "/api/admin/devices/4", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Device models.Device `json:"device"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "gate-panel", resp.Device.Name)
	require.Equal(t, "tok-gate", resp.Device.Token)

	w = httptest.NewRecorder()
	h.GetDeviceHandler(w, httptest.NewRequest(http.MethodGet, "/api/admin/devices/99", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangePasswordHandler(t *testing.T) {
	hash, err := models.HashPassword("old-secret")
	require.NoError(t, err)
	user := models.User{ID: 5, Username: "carol", Role: models.RoleSupervisor, PasswordHash: hash}

	admin := newFakeAdmin()
	admin.users[5] = user
	h := &Handler{Admin: admin}

	body := `{"old_password":"old-secret","new_password":"brand-new-secret"}`
	w := httptest.NewRecorder()
	h.ChangePasswordHandler(w, authedRequest(t, http.MethodPost, "/api/profile/password", body, user))
	require.Equal(t, http.StatusOK, w.Code)

	updated := admin.users[5]
	require.True(t, updated.CheckPassword("brand-new-secret"))
	require.False(t, updated.CheckPassword("old-secret"))
}

func TestChangePasswordRejectsWrongOldPassword(t *testing.T) {
	hash, err := models.HashPassword("old-secret")
	require.NoError(t, err)
	user := models.User{ID: 5, Username: "carol", Role: models.RoleSupervisor, PasswordHash: hash}

	admin := newFakeAdmin()
	admin.users[5] = user
	h := &Handler{Admin: admin}

	body := `{"old_password":"wrong","new_password":"brand-new-secret"}`
	w := httptest.NewRecorder()
	h.ChangePasswordHandler(w, authedRequest(t, http.MethodPost, "/api/profile/password", body, user))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, admin.passwords)
}

func TestChangePasswordRejectsShortPassword(t *testing.T) {
	user := models.User{ID: 5, Username: "carol", Role: models.RoleSupervisor}
	admin := newFakeAdmin()
	admin.users[5] = user
	h := &Handler{Admin: admin}

	body := `{"old_password":"old-secret","new_password":"short"}`
	w := httptest.NewRecorder()
	h.ChangePasswordHandler(w, authedRequest(t, http.MethodPost, "/api/profile/password", body, user))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminResetPasswordHandler(t *testing.T) {
	user := models.User{ID: 8, Username: "dave", Role: models.RoleResident}
	admin := newFakeAdmin()
	admin.users[8] = user
	h := &Handler{Admin: admin}

	body := `{"user_id":8,"new_password":"issued-by-admin"}`
	w := httptest.NewRecorder()
	h.AdminResetPasswordHandler(w, httptest.NewRequest(http.MethodPost, "/api/admin/reset-password", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	reset := admin.users[8]
	require.True(t, reset.CheckPassword("issued-by-admin"))
}
