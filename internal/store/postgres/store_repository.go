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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
)

// StoreRepository implements fleet.Repository
type StoreRepository struct {
	db *DB
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB) *StoreRepository {
	return &StoreRepository{db: db}
}

const storeColumns = `id, name, country, city, branch, address, owner_name, owner_surname,
	working_hours, server_local_ip, server_token, esp32_token, wifi_ssid, wifi_password,
	installer_id, last_seen, created_at`

func scanStore(row pgx.Row) (*fleet.Store, error) {
	var store fleet.Store
	err := row.Scan(
		&store.ID, &store.Name, &store.Country, &store.City, &store.Branch,
		&store.Address, &store.OwnerName, &store.OwnerSurname, &store.WorkingHours,
		&store.ServerLocalIP, &store.ServerToken, &store.ESP32Token,
		&store.WifiSSID, &store.WifiPassword,
		&store.InstallerID, &store.LastSeen, &store.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// Create persists a store and its devices in one transaction
func (r *StoreRepository) Create(ctx context.Context, store *fleet.Store) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO stores (
			name, country, city, branch, address, owner_name, owner_surname,
			working_hours, server_local_ip, server_token, esp32_token,
			wifi_ssid, wifi_password, installer_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`,
		store.Name, store.Country, store.City, store.Branch, store.Address,
		store.OwnerName, store.OwnerSurname, store.WorkingHours,
		store.ServerLocalIP, store.ServerToken, store.ESP32Token,
		store.WifiSSID, store.WifiPassword, store.InstallerID, store.CreatedAt,
	).Scan(&store.ID)
	if err != nil {
		return fmt.Errorf("failed to insert store: %w", err)
	}

	for i := range store.Devices {
		device := &store.Devices[i]
		device.StoreID = store.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO devices (store_id, local_id, name, shelf_code)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, device.StoreID, device.LocalID, device.Name, device.ShelfCode).
			Scan(&device.ID, &device.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert device: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a store with its devices
func (r *StoreRepository) GetByID(ctx context.Context, id int64) (*fleet.Store, error) {
	store, err := scanStore(r.db.pool.QueryRow(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE id = $1
	`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fleet.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	if err := r.loadDevices(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// GetByServerToken retrieves the store owning a server token
func (r *StoreRepository) GetByServerToken(ctx context.Context, token string) (*fleet.Store, error) {
	store, err := scanStore(r.db.pool.QueryRow(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE server_token = $1
	`, token))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fleet.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store by token: %w", err)
	}

	if err := r.loadDevices(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// Update persists the mutable fields of a store
func (r *StoreRepository) Update(ctx context.Context, store *fleet.Store) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE stores SET
			name = $2,
			country = $3,
			city = $4,
			branch = $5,
			address = $6,
			owner_name = $7,
			owner_surname = $8,
			working_hours = $9,
			server_local_ip = $10,
			server_token = $11,
			esp32_token = $12,
			wifi_ssid = $13,
			wifi_password = $14
		WHERE id = $1
	`,
		store.ID, store.Name, store.Country, store.City, store.Branch,
		store.Address, store.OwnerName, store.OwnerSurname, store.WorkingHours,
		store.ServerLocalIP, store.ServerToken, store.ESP32Token,
		store.WifiSSID, store.WifiPassword,
	)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fleet.ErrStoreNotFound
	}
	return nil
}

// Delete removes a store; devices and logs cascade
func (r *StoreRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fleet.ErrStoreNotFound
	}
	return nil
}

// List retrieves stores narrowed by scope, with their devices
func (r *StoreRepository) List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*fleet.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores`
	var args []any

	switch scope.Kind {
	case authz.ScopeUnrestricted:
		// no filter
	case authz.ScopeCountry:
		query += ` WHERE country = $1`
		args = append(args, scope.Country)
	default:
		return []*fleet.Store{}, nil
	}

	query += fmt.Sprintf(` ORDER BY id LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []*fleet.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stores: %w", err)
	}

	for _, store := range stores {
		if err := r.loadDevices(ctx, store); err != nil {
			return nil, err
		}
	}
	return stores, nil
}

// AddDevice appends a device to a store
func (r *StoreRepository) AddDevice(ctx context.Context, device *fleet.Device) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO devices (store_id, local_id, name, shelf_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, device.StoreID, device.LocalID, device.Name, device.ShelfCode).
		Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

// RemoveDevice removes a device by its store-local ordinal
func (r *StoreRepository) RemoveDevice(ctx context.Context, storeID int64, localID int) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM devices WHERE store_id = $1 AND local_id = $2
	`, storeID, localID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fleet.ErrDeviceNotFound
	}
	return nil
}

// TouchLastSeen records a heartbeat timestamp
func (r *StoreRepository) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE stores SET last_seen = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last_seen: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fleet.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepository) loadDevices(ctx context.Context, store *fleet.Store) error {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, store_id, local_id, name, shelf_code, created_at
		FROM devices
		WHERE store_id = $1
		ORDER BY local_id
	`, store.ID)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	store.Devices = nil
	for rows.Next() {
		var device fleet.Device
		if err := rows.Scan(
			&device.ID, &device.StoreID, &device.LocalID,
			&device.Name, &device.ShelfCode, &device.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan device: %w", err)
		}
		store.Devices = append(store.Devices, device)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate devices: %w", err)
	}
	return nil
}
