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
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/identity"
)

// UserResponse is the wire shape of a user. The password hash never
// leaves the service layer.
type UserResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Surname           string    `json:"surname"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Country           string    `json:"country"`
	City              string    `json:"city"`
	AssignedStoreID   *int64    `json:"assigned_store_id,omitempty"`
	PreferredTheme    string    `json:"preferred_theme"`
	PreferredLanguage string    `json:"preferred_language"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

func userResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Surname:           u.Surname,
		Email:             u.Email,
		Role:              string(u.Role),
		Country:           u.Country,
		City:              u.City,
		AssignedStoreID:   u.AssignedStoreID,
		PreferredTheme:    u.PreferredTheme,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
	}
}

// CreateUserRequest represents user creation data
type CreateUserRequest struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	Country         string `json:"country"`
	City            string `json:"city"`
	AssignedStoreID *int64 `json:"assigned_store_id"`
}

// CreateUser creates a new user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "email, password and role are required")
		return
	}

	user, err := h.identityService.Create(r.Context(), p, identity.CreateInput{
		Name:            req.Name,
		Surname:         req.Surname,
		Email:           req.Email,
		Password:        req.Password,
		Role:            authz.Role(req.Role),
		Country:         req.Country,
		City:            req.City,
		AssignedStoreID: req.AssignedStoreID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, userResponse(user))
}

// ListUsers lists the users visible to the principal
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginationParams(r)
	users, err := h.identityService.List(r.Context(), p, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetUser retrieves a single user
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.identityService.Get(r.Context(), p, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(user))
}

// UpdateUserRequest represents a partial user update. Pointer fields
// distinguish "absent" from "set to zero"; a present role field is a
// role-change attempt even when the value is unchanged.
type UpdateUserRequest struct {
	Name            *string `json:"name"`
	Surname         *string `json:"surname"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	Role            *string `json:"role"`
	Country         *string `json:"country"`
	City            *string `json:"city"`
	AssignedStoreID *int64  `json:"assigned_store_id"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateUser applies a partial update to a user
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := identity.UpdateInput{
		Name:            req.Name,
		Surname:         req.Surname,
		Email:           req.Email,
		Password:        req.Password,
		Country:         req.Country,
		City:            req.City,
		AssignedStoreID: req.AssignedStoreID,
		IsActive:        req.IsActive,
	}
	if req.Role != nil {
		role := authz.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.identityService.Update(r.Context(), p, id, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(user))
}

// DeleteUser removes a user
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.identityService.Delete(r.Context(), p, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "user deleted",
		"user":    userResponse(user),
	})
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 100
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
