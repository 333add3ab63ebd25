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

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/authz"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrStoreRequired      = errors.New("market-side users require an assigned store")
)

// User represents a platform user. For market-side roles Country and City
// are not authoritative in storage: they are derived from the assigned
// store at read time, so a store relocation never leaves stale copies.
type User struct {
	ID           int64
	Name         string
	Surname      string
	Email        string
	PasswordHash string
	Role         authz.Role
	Country      string
	City         string

	// AssignedStoreID is set only for market-side roles.
	AssignedStoreID *int64

	PreferredTheme    string
	PreferredLanguage string
	IsActive          bool
	CreatedAt         time.Time
}

// Principal strips the user down to what the policy engine needs.
func (u *User) Principal() authz.Principal {
	return authz.Principal{
		UserID:          u.ID,
		Role:            u.Role,
		Country:         u.Country,
		AssignedStoreID: u.AssignedStoreID,
	}
}

// Repository defines the interface for user persistence.
type Repository interface {
	// Create creates a new user and fills in its ID.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists all mutable fields of the user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user. Stores installed by the user are kept;
	// installer_id is a reference, not ownership.
	Delete(ctx context.Context, id int64) error

	// List retrieves users narrowed by the given scope.
	List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*User, error)
}

// StoreDirectory resolves the region of a store. The identity service uses
// it to derive a market user's effective country and city from its assigned
// store, and to validate assignments at write time.
type StoreDirectory interface {
	Region(ctx context.Context, storeID int64) (country, city string, err error)
}
