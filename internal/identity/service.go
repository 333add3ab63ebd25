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
	"fmt"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
)

// Service provides user management under the authorization policy. Every
// mutating method authorizes before it touches the repository; an update is
// fully applied or fully rejected, never interleaved.
type Service struct {
	repo        Repository
	hasher      *PasswordHasher
	policy      *authz.Engine
	stores      StoreDirectory
	auditLogger audit.Logger
}

// NewService creates a new identity service.
func NewService(
	repo Repository,
	hasher *PasswordHasher,
	policy *authz.Engine,
	stores StoreDirectory,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		policy:      policy,
		stores:      stores,
		auditLogger: auditLogger,
	}
}

// Authenticate verifies email and password. It is only the first stage of
// login; panel authorization is checked separately so that a market-side
// user's rejection is an authorization failure, not a credential failure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: email,
			Metadata: map[string]any{audit.AttrReason: "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, ErrInvalidCredentials
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  user.ID,
		Resource: "login",
	})

	return s.decorate(ctx, user)
}

// GetByEmail retrieves a user by email without an authorization check. It
// exists for the authentication middleware, which needs the principal
// before any policy question can be asked.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return s.decorate(ctx, user)
}

// CreateInput is the payload for user creation.
type CreateInput struct {
	Name            string
	Surname         string
	Email           string
	Password        string
	Role            authz.Role
	Country         string
	City            string
	AssignedStoreID *int64
}

// Create creates a new user on behalf of the principal.
//
// For market-side roles the country and city supplied by the client are
// ignored: they are derived from the assigned store, also for the country
// check itself. An Engineer dispatched to Turkey who provisions a Runner
// for a Turkish store produces a Turkish user, not one in the Engineer's
// home country.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	targetCountry := in.Country
	targetCity := in.City
	if in.Role.MarketSide() {
		if in.AssignedStoreID == nil {
			return nil, ErrStoreRequired
		}
		country, city, err := s.stores.Region(ctx, *in.AssignedStoreID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assigned store: %w", err)
		}
		targetCountry, targetCity = country, city
	}

	if d := s.policy.AuthorizeUserCreate(p, in.Role, targetCountry); !d.Allowed {
		return nil, d.Err()
	}

	if existing, err := s.repo.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if in.Role.MarketSide() {
		// The stored record carries only the assignment; country and city
		// are derived on read.
		user.AssignedStoreID = in.AssignedStoreID
	} else {
		user.Country = in.Country
		user.City = in.City
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  p.UserID,
		Resource: "user",
		Metadata: map[string]any{
			audit.AttrRole:    string(user.Role),
			audit.AttrCountry: targetCountry,
		},
	})

	user.Country = targetCountry
	user.City = targetCity
	return user, nil
}

// Bootstrap ensures the platform Admin exists. It is driven by the
// deployment environment and runs at startup; a second run with the same
// email is a no-op.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         authz.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  user.ID,
		Resource: "bootstrap",
		Metadata: map[string]any{audit.AttrRole: string(authz.RoleAdmin)},
	})
	return nil
}

// Get retrieves a single user, enforcing the view policy. Existence is
// checked before authorization, matching the platform's long-standing 404
// before 403 ordering.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.decorate(ctx, user); err != nil {
		return nil, err
	}

	if d := s.policy.AuthorizeUser(p, authz.OpView, userRef(user), nil); !d.Allowed {
		return nil, d.Err()
	}

	return user, nil
}

// List retrieves the users visible to the principal. Market-side roles see
// only themselves; the list never fails on scope, it narrows.
func (s *Service) List(ctx context.Context, p authz.Principal, limit, offset int) ([]*User, error) {
	scope := s.policy.ScopeFor(p, authz.KindUser)
	if scope.Kind == authz.ScopeNone {
		return []*User{}, nil
	}

	users, err := s.repo.List(ctx, scope, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for _, u := range users {
		if _, err := s.decorate(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateInput is a partial update: nil fields are left untouched. Fields
// are applied one by one from an explicit allow-list; nothing is assigned
// dynamically, so sensitive fields can never slip through.
type UpdateInput struct {
	Name            *string
	Surname         *string
	Email           *string
	Password        *string
	Role            *authz.Role
	Country         *string
	City            *string
	AssignedStoreID *int64
	IsActive        *bool
}

// Update applies a partial update to a user on behalf of the principal.
// A role field present in the payload counts as a role-change attempt even
// if the value matches the current role; the gate fires on presence.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.decorate(ctx, user); err != nil {
		return nil, err
	}

	var change *authz.RoleChange
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, ErrInvalidRole
		}
		change = &authz.RoleChange{NewRole: *in.Role}
	}

	if d := s.policy.AuthorizeUser(p, authz.OpUpdate, userRef(user), change); !d.Allowed {
		return nil, d.Err()
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Surname != nil {
		user.Surname = *in.Surname
	}
	if in.Email != nil && *in.Email != user.Email {
		if existing, err := s.repo.GetByEmail(ctx, *in.Email); err == nil && existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		// Passwords are re-hashed and never assigned as plain fields.
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.AssignedStoreID != nil {
		if _, _, err := s.stores.Region(ctx, *in.AssignedStoreID); err != nil {
			return nil, fmt.Errorf("failed to resolve assigned store: %w", err)
		}
		user.AssignedStoreID = in.AssignedStoreID
	}
	if user.Role.MarketSide() {
		// Client-supplied country and city never stick to market users.
		user.Country = ""
		user.City = ""
	} else {
		user.AssignedStoreID = nil
		if in.Country != nil {
			user.Country = *in.Country
		}
		if in.City != nil {
			user.City = *in.City
		}
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.decorate(ctx, user)
}

// PreferencesInput updates a user's own panel preferences.
type PreferencesInput struct {
	Theme    *string
	Language *string
}

// UpdatePreferences updates the principal's own theme and language.
func (s *Service) UpdatePreferences(ctx context.Context, p authz.Principal, in PreferencesInput) (*User, error) {
	user, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if in.Theme != nil {
		user.PreferredTheme = *in.Theme
	}
	if in.Language != nil {
		user.PreferredLanguage = *in.Language
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	return s.decorate(ctx, user)
}

// Delete removes a user on behalf of the principal. Admin self-deletion
// is denied; stores the user installed are left in place. The target is
// decorated first so country scoping sees a market user's effective
// country, not the empty stored one.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.decorate(ctx, user); err != nil {
		return nil, err
	}

	if d := s.policy.AuthorizeUser(p, authz.OpDelete, userRef(user), nil); !d.Allowed {
		return nil, d.Err()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserDeleted,
		ActorID:  p.UserID,
		Resource: "user",
		Metadata: map[string]any{audit.AttrTarget: user.Email},
	})

	return s.decorate(ctx, user)
}

// decorate fills in the derived fields of a user. For market-side users
// the effective country and city are copied from the assigned store at
// read time; there is no stored copy to go stale.
func (s *Service) decorate(ctx context.Context, user *User) (*User, error) {
	if user.Role.MarketSide() && user.AssignedStoreID != nil {
		country, city, err := s.stores.Region(ctx, *user.AssignedStoreID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assigned store: %w", err)
		}
		user.Country = country
		user.City = city
	}
	return user, nil
}

// userRef builds the policy snapshot for a user. Callers decorate first,
// so a market user's country is the one derived from its assigned store.
func userRef(u *User) authz.UserRef {
	return authz.UserRef{ID: u.ID, Role: u.Role, Country: u.Country}
}
