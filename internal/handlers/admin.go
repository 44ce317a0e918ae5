package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/GenturixHub/genturix-push/internal/models"
)

// === User Management ===

func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.GetUsers(r.Context())
	if err != nil {
		http.Error(w, "Failed to get users", http.StatusInternalServerError)
		return
	}

	respUsers := make([]map[string]any, 0, len(users))
	for _, u := range users {
		units := []models.Unit{}
		if assigned, err := h.Admin.GetUserUnits(r.Context(), u.ID); err == nil && assigned != nil {
			units = assigned
		}
		respUsers = append(respUsers, map[string]any{
			"id":           u.ID,
			"username":     u.Username,
			"role":         u.Role,
			"totp_enabled": u.TOTPEnabled,
			"units":        units,
			"created_at":   u.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": respUsers})
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		UnitIDs  []int  `json:"unit_ids"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !models.ValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.Admin.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for _, unitID := range req.UnitIDs {
		if err := h.Admin.AssignUnitToUser(r.Context(), user.ID, unitID); err != nil {
			log.Printf("Failed to assign unit %d to user %d: %v", unitID, user.ID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "user": user})
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		UnitIDs  []int  `json:"unit_ids"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !models.ValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	if err := h.Admin.UpdateUser(r.Context(), id, req.Username, req.Role); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Replace unit assignments with the submitted set
	if current, err := h.Admin.GetUserUnits(r.Context(), id); err == nil {
		for _, u := range current {
			if err := h.Admin.RemoveUnitFromUser(r.Context(), id, u.ID); err != nil {
				log.Printf("Failed to remove unit %d from user %d: %v", u.ID, id, err)
			}
		}
	}
	for _, unitID := range req.UnitIDs {
		if err := h.Admin.AssignUnitToUser(r.Context(), id, unitID); err != nil {
			log.Printf("Failed to assign unit %d to user %d: %v", unitID, id, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeleteUser(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// === Unit Management ===

func (h *Handler) GetUnitsHandler(w http.ResponseWriter, r *http.Request) {
	units, err := h.Admin.GetUnits(r.Context())
	if err != nil {
		http.Error(w, "Failed to get units", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"units": units})
}

func (h *Handler) CreateUnitHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
		Block string `json:"block"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Label == "" {
		http.Error(w, "Label is required", http.StatusBadRequest)
		return
	}

	unit, err := h.Admin.CreateUnit(r.Context(), req.Label, req.Block)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "unit": unit})
}

// GetUnitMembersHandler lists the users assigned to one unit. The path is
// /api/admin/units/{id}/members.
func (h *Handler) GetUnitMembersHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/units/")
	idStr = strings.TrimSuffix(idStr, "/members")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	members, err := h.Admin.GetUnitMembers(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get unit members", http.StatusInternalServerError)
		return
	}

	respMembers := make([]map[string]any, 0, len(members))
	for _, m := range members {
		respMembers = append(respMembers, map[string]any{
			"id":       m.ID,
			"username": m.Username,
			"role":     m.Role,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"members": respMembers})
}

func (h *Handler) DeleteUnitHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/units/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeleteUnit(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// === Device Management ===

func (h *Handler) GetDevicesHandler(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Admin.GetDevices(r.Context())
	if err != nil {
		http.Error(w, "Failed to get devices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"devices": devices})
}

func (h *Handler) CreateDeviceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	actorID, _, _ := GetCurrentUser(r)
	device, err := h.Admin.CreateDevice(r.Context(), req.Name, req.Location, actorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The token is shown once here; agents store it in their own config.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "device": device})
}

// GetDeviceHandler returns one device by id, token included, so an admin
// can re-provision an agent without minting a new device.
func (h *Handler) GetDeviceHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/devices/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	device, err := h.Admin.GetDevice(r.Context(), id)
	if err != nil {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"device": device})
}

func (h *Handler) DeleteDeviceHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/devices/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeleteDevice(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
