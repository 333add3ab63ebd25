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

	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	storeKey     contextKey = "store"
)

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	val, ok := ctx.Value(principalKey).(authz.Principal)
	return val, ok
}

// GetTokenStore retrieves the token-authenticated store from context, on
// the hardware-facing routes.
func GetTokenStore(ctx context.Context) (*fleet.Store, bool) {
	val, ok := ctx.Value(storeKey).(*fleet.Store)
	return val, ok
}
