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
	"encoding/json"
	"net/http"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/firmware"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
)

// Heartbeat records a liveness report from the token-authenticated
// on-site server.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	store, ok := GetTokenStore(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	updated, err := h.fleetService.Heartbeat(r.Context(), store.ServerToken)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.heartbeatCounter.Add(r.Context(), 1)

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"store_id":  updated.ID,
		"last_seen": updated.LastSeen,
	})
}

// LogEntryRequest is one log line in an upload batch
type LogEntryRequest struct {
	DeviceLocalID int        `json:"device_local_id"`
	Level         string     `json:"level"`
	Message       string     `json:"message"`
	LoggedAt      *time.Time `json:"logged_at"`
}

// LogEntryResponse is the wire shape of a stored log entry
type LogEntryResponse struct {
	ID            int64     `json:"id"`
	StoreID       int64     `json:"store_id"`
	DeviceLocalID int       `json:"device_local_id"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	LoggedAt      time.Time `json:"logged_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func logEntryResponse(e oplog.Entry) LogEntryResponse {
	return LogEntryResponse{
		ID:            e.ID,
		StoreID:       e.StoreID,
		DeviceLocalID: e.DeviceLocalID,
		Level:         e.Level,
		Message:       e.Message,
		LoggedAt:      e.LoggedAt,
		CreatedAt:     e.CreatedAt,
	}
}

// IngestLogs accepts a batch of device log lines from the
// token-authenticated on-site server and reports how many were stored.
func (h *Handler) IngestLogs(w http.ResponseWriter, r *http.Request) {
	store, ok := GetTokenStore(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Logs []LogEntryRequest `json:"logs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch := make([]oplog.EntryInput, 0, len(req.Logs))
	for _, l := range req.Logs {
		in := oplog.EntryInput{
			DeviceLocalID: l.DeviceLocalID,
			Level:         l.Level,
			Message:       l.Message,
		}
		if l.LoggedAt != nil {
			in.LoggedAt = *l.LoggedAt
		}
		batch = append(batch, in)
	}

	added, err := h.oplogService.Ingest(r.Context(), store.ID, batch)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.logIngestCounter.Add(r.Context(), added)

	respondJSON(w, http.StatusOK, map[string]any{
		"logs_added": added,
	})
}

// WifiCredentials returns the in-store network credentials to the
// token-authenticated on-site server.
func (h *Handler) WifiCredentials(w http.ResponseWriter, r *http.Request) {
	store, ok := GetTokenStore(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ssid, password, err := h.fleetService.WifiCredentials(r.Context(), store.ServerToken)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"wifi_ssid":     ssid,
		"wifi_password": password,
	})
}

// LatestFirmware answers an update check from the token-authenticated
// on-site server. The target defaults to the server's own firmware.
func (h *Handler) LatestFirmware(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetTokenStore(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	target := firmware.Target(r.URL.Query().Get("target"))
	if target == "" {
		target = firmware.TargetServer
	}

	release, err := h.firmwareService.Latest(r.Context(), target)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, firmwareResponse(release))
}
