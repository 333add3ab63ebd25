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
)

// FirmwareResponse is the wire shape of a firmware release
type FirmwareResponse struct {
	ID           int64     `json:"id"`
	Target       string    `json:"target"`
	Version      string    `json:"version"`
	FileURL      string    `json:"file_url"`
	ReleaseNotes string    `json:"release_notes"`
	CreatedAt    time.Time `json:"created_at"`
}

func firmwareResponse(f *firmware.Release) FirmwareResponse {
	return FirmwareResponse{
		ID:           f.ID,
		Target:       string(f.Target),
		Version:      f.Version,
		FileURL:      f.FileURL,
		ReleaseNotes: f.ReleaseNotes,
		CreatedAt:    f.CreatedAt,
	}
}

// PublishFirmwareRequest represents a new firmware release
type PublishFirmwareRequest struct {
	Target       string `json:"target"`
	Version      string `json:"version"`
	FileURL      string `json:"file_url"`
	ReleaseNotes string `json:"release_notes"`
}

// PublishFirmware records a new firmware release
func (h *Handler) PublishFirmware(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req PublishFirmwareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version == "" || req.FileURL == "" {
		respondError(w, http.StatusBadRequest, "version and file_url are required")
		return
	}

	release, err := h.firmwareService.Publish(r.Context(), p, firmware.PublishInput{
		Target:       firmware.Target(req.Target),
		Version:      req.Version,
		FileURL:      req.FileURL,
		ReleaseNotes: req.ReleaseNotes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, firmwareResponse(release))
}

// ListFirmware lists all firmware releases for the management panel
func (h *Handler) ListFirmware(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginationParams(r)
	releases, err := h.firmwareService.List(r.Context(), p, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]FirmwareResponse, 0, len(releases))
	for _, f := range releases {
		out = append(out, firmwareResponse(f))
	}
	respondJSON(w, http.StatusOK, out)
}
