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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/identity"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, surname, email, password_hash, role, country, city,
	assigned_store_id, preferred_theme, preferred_language, is_active, created_at`

func scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Surname, &user.Email, &user.PasswordHash,
		&user.Role, &user.Country, &user.City,
		&user.AssignedStoreID, &user.PreferredTheme, &user.PreferredLanguage,
		&user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO users (
			name, surname, email, password_hash, role, country, city,
			assigned_store_id, preferred_theme, preferred_language, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		user.Name, user.Surname, user.Email, user.PasswordHash,
		user.Role, user.Country, user.City,
		user.AssignedStoreID, user.PreferredTheme, user.PreferredLanguage,
		user.IsActive, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	user, err := scanUser(r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, err := scanUser(r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update persists all mutable fields of the user
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET
			name = $2,
			surname = $3,
			email = $4,
			password_hash = $5,
			role = $6,
			country = $7,
			city = $8,
			assigned_store_id = $9,
			preferred_theme = $10,
			preferred_language = $11,
			is_active = $12
		WHERE id = $1
	`,
		user.ID, user.Name, user.Surname, user.Email, user.PasswordHash,
		user.Role, user.Country, user.City,
		user.AssignedStoreID, user.PreferredTheme, user.PreferredLanguage,
		user.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// List retrieves users narrowed by scope. A market-side user's effective
// country lives on its assigned store, so country scoping joins stores.
func (r *UserRepository) List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*identity.User, error) {
	query := `
		SELECT u.id, u.name, u.surname, u.email, u.password_hash, u.role, u.country, u.city,
			u.assigned_store_id, u.preferred_theme, u.preferred_language, u.is_active, u.created_at
		FROM users u
		LEFT JOIN stores s ON s.id = u.assigned_store_id
	`
	var args []any

	switch scope.Kind {
	case authz.ScopeUnrestricted:
		// no filter
	case authz.ScopeCountry:
		if scope.MarketOnly {
			query += ` WHERE s.country = $1 AND u.role IN ('Runner', 'Supermarket_Admin')`
		} else {
			query += ` WHERE (u.country = $1 OR s.country = $1)`
		}
		args = append(args, scope.Country)
	case authz.ScopeSelf:
		query += ` WHERE u.id = $1`
		args = append(args, scope.UserID)
	default:
		return []*identity.User{}, nil
	}

	query += fmt.Sprintf(` ORDER BY u.id LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
