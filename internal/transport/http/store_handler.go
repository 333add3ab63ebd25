// Copyright 2026 The ShelfGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
)

// DeviceResponse is the wire shape of a display unit
type DeviceResponse struct {
	LocalID   int    `json:"local_id"`
	Name      string `json:"name"`
	ShelfCode string `json:"shelf_code"`
}

// StoreResponse is the wire shape of a store. Status and device count are
// derived at response time; the wifi password stays encrypted and is not
// exposed on the panel surface.
type StoreResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Country       string           `json:"country"`
	City          string           `json:"city"`
	Branch        string           `json:"branch"`
	Address       string           `json:"address"`
	OwnerName     string           `json:"owner_name"`
	OwnerSurname  string           `json:"owner_surname"`
	WorkingHours  string           `json:"working_hours"`
	ServerLocalIP string           `json:"server_local_ip"`
	ServerToken   string           `json:"server_token"`
	ESP32Token    string           `json:"esp32_token"`
	WifiSSID      string           `json:"wifi_ssid"`
	InstallerID   int64            `json:"installer_id"`
	Status        string           `json:"status"`
	DeviceCount   int              `json:"device_count"`
	LastSeen      *time.Time       `json:"last_seen"`
	CreatedAt     time.Time        `json:"created_at"`
	Devices       []DeviceResponse `json:"devices"`
}

func storeResponse(s *fleet.Store) StoreResponse {
	devices := make([]DeviceResponse, 0, len(s.Devices))
	for _, d := range s.Devices {
		devices = append(devices, DeviceResponse{
			LocalID:   d.LocalID,
			Name:      d.Name,
			ShelfCode: d.ShelfCode,
		})
	}
	return StoreResponse{
		ID:            s.ID,
		Name:          s.Name,
		Country:       s.Country,
		City:          s.City,
		Branch:        s.Branch,
		Address:       s.Address,
		OwnerName:     s.OwnerName,
		OwnerSurname:  s.OwnerSurname,
		WorkingHours:  s.WorkingHours,
		ServerLocalIP: s.ServerLocalIP,
		ServerToken:   s.ServerToken,
		ESP32Token:    s.ESP32Token,
		WifiSSID:      s.WifiSSID,
		InstallerID:   s.InstallerID,
		Status:        string(s.StatusAt(time.Now())),
		DeviceCount:   s.DeviceCount(),
		LastSeen:      s.LastSeen,
		CreatedAt:     s.CreatedAt,
		Devices:       devices,
	}
}

// DeviceRequest describes one display unit in an installation payload
type DeviceRequest struct {
	Name      string `json:"name"`
	ShelfCode string `json:"shelf_code"`
}

// CreateStoreRequest represents a new installation
type CreateStoreRequest struct {
	Name          string          `json:"name"`
	Country       string          `json:"country"`
	City          string          `json:"city"`
	Branch        string          `json:"branch"`
	Address       string          `json:"address"`
	OwnerName     string          `json:"owner_name"`
	OwnerSurname  string          `json:"owner_surname"`
	WorkingHours  string          `json:"working_hours"`
	ServerLocalIP string          `json:"server_local_ip"`
	WifiSSID      string          `json:"wifi_ssid"`
	WifiPassword  string          `json:"wifi_password"`
	Devices       []DeviceRequest `json:"devices"`
}

// CreateStore registers a new installation
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Country == "" || req.City == "" {
		respondError(w, http.StatusBadRequest, "name, country and city are required")
		return
	}

	in := fleet.CreateInput{
		Name:          req.Name,
		Country:       req.Country,
		City:          req.City,
		Branch:        req.Branch,
		Address:       req.Address,
		OwnerName:     req.OwnerName,
		OwnerSurname:  req.OwnerSurname,
		WorkingHours:  req.WorkingHours,
		ServerLocalIP: req.ServerLocalIP,
		WifiSSID:      req.WifiSSID,
		WifiPassword:  req.WifiPassword,
	}
	for _, d := range req.Devices {
		in.Devices = append(in.Devices, fleet.DeviceInput{Name: d.Name, ShelfCode: d.ShelfCode})
	}

	store, err := h.fleetService.Create(r.Context(), p, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, storeResponse(store))
}

// ListStores lists the stores visible to the principal
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginationParams(r)
	stores, err := h.fleetService.List(r.Context(), p, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]StoreResponse, 0, len(stores))
	for _, s := range stores {
		out = append(out, storeResponse(s))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetStore retrieves a single store
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	store, err := h.fleetService.Get(r.Context(), p, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, storeResponse(store))
}

// UpdateStoreRequest represents a partial store update
type UpdateStoreRequest struct {
	Name          *string `json:"name"`
	Country       *string `json:"country"`
	City          *string `json:"city"`
	Branch        *string `json:"branch"`
	Address       *string `json:"address"`
	OwnerName     *string `json:"owner_name"`
	OwnerSurname  *string `json:"owner_surname"`
	WorkingHours  *string `json:"working_hours"`
	ServerLocalIP *string `json:"server_local_ip"`
	WifiSSID      *string `json:"wifi_ssid"`
	WifiPassword  *string `json:"wifi_password"`
}

// UpdateStore applies a partial update to a store
func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	var req UpdateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, err := h.fleetService.Update(r.Context(), p, id, fleet.UpdateInput{
		Name:          req.Name,
		Country:       req.Country,
		City:          req.City,
		Branch:        req.Branch,
		Address:       req.Address,
		OwnerName:     req.OwnerName,
		OwnerSurname:  req.OwnerSurname,
		WorkingHours:  req.WorkingHours,
		ServerLocalIP: req.ServerLocalIP,
		WifiSSID:      req.WifiSSID,
		WifiPassword:  req.WifiPassword,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, storeResponse(store))
}

// DeleteStore removes a store and its devices
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	store, err := h.fleetService.Delete(r.Context(), p, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "store deleted",
		"store":   storeResponse(store),
	})
}

// RegenerateServerToken rotates a store's server credential
func (h *Handler) RegenerateServerToken(w http.ResponseWriter, r *http.Request) {
	h.regenerateToken(w, r, h.fleetService.RegenerateServerToken)
}

// RegenerateESP32Token rotates a store's display-unit credential
func (h *Handler) RegenerateESP32Token(w http.ResponseWriter, r *http.Request) {
	h.regenerateToken(w, r, h.fleetService.RegenerateESP32Token)
}

func (h *Handler) regenerateToken(
	w http.ResponseWriter,
	r *http.Request,
	rotate func(ctx context.Context, p authz.Principal, id int64) (*fleet.Store, error),
) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	store, err := rotate(r.Context(), p, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, storeResponse(store))
}

// AddDevice appends a display unit to a store
func (h *Handler) AddDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	device, err := h.fleetService.AddDevice(r.Context(), p, id, fleet.DeviceInput{
		Name:      req.Name,
		ShelfCode: req.ShelfCode,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, DeviceResponse{
		LocalID:   device.LocalID,
		Name:      device.Name,
		ShelfCode: device.ShelfCode,
	})
}

// RemoveDevice removes a display unit by its store-local ordinal
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	localID, err := strconv.Atoi(chi.URLParam(r, "localID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	if err := h.fleetService.RemoveDevice(r.Context(), p, id, localID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "device removed"})
}

// ListStoreLogs retrieves a store's device logs within the retention
// window. The store must be visible to the principal.
func (h *Handler) ListStoreLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := storeIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	// View authorization rides on the store fetch.
	if _, err := h.fleetService.Get(r.Context(), p, id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	limit, offset := paginationParams(r)
	entries, err := h.oplogService.ListByStore(r.Context(), id, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func storeIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
}
