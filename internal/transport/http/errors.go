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
	"errors"
	"log/slog"
	"net/http"

	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/firmware"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
	"github.com/shelfgrid/shelfgrid/internal/identity"
	"github.com/shelfgrid/shelfgrid/internal/observability/logger"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
)

// respondDomainError maps service errors to transport status codes. Policy
// denials carry a reason discriminator: missing targets map to 404,
// forbidden operations to 403, malformed role changes and denied self
// actions to 400. The deny message is surfaced verbatim.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *authz.DeniedError
	if errors.As(err, &denied) {
		switch denied.Reason {
		case authz.ReasonNotFound:
			respondError(w, http.StatusNotFound, denied.Message)
		case authz.ReasonInvalidRoleChange, authz.ReasonSelfActionDenied:
			respondError(w, http.StatusBadRequest, denied.Message)
		default:
			respondError(w, http.StatusForbidden, denied.Message)
		}
		return
	}

	switch {
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, fleet.ErrStoreNotFound),
		errors.Is(err, fleet.ErrDeviceNotFound),
		errors.Is(err, firmware.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, fleet.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, identity.ErrStoreRequired),
		errors.Is(err, firmware.ErrInvalidTarget),
		errors.Is(err, oplog.ErrEmptyBatch):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "internal error", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
