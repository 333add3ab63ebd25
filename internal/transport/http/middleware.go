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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shelfgrid/shelfgrid/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Log request start
			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware validates the bearer token and puts the principal in the
// request context. The token subject is the user's email; the principal's
// role, country and store assignment are loaded fresh per request, so a
// role change takes effect on the next call, not at next login.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		email, err := h.tokenIssuer.Subject(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		user, err := h.identityService.GetByEmail(r.Context(), email)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		if !user.IsActive {
			respondError(w, http.StatusUnauthorized, "account disabled")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ServerTokenMiddleware authenticates the hardware-facing routes with the
// X-Server-Token header and puts the owning store in the request context.
func (h *Handler) ServerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Server-Token")
		if token == "" {
			respondError(w, http.StatusUnauthorized, "X-Server-Token header is required")
			return
		}

		store, err := h.fleetService.ResolveServerToken(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid server token")
			return
		}

		ctx := context.WithValue(r.Context(), storeKey, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
