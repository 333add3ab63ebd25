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
	"github.com/shelfgrid/shelfgrid/internal/firmware"
)

// FirmwareRepository implements firmware.Repository
type FirmwareRepository struct {
	db *DB
}

// NewFirmwareRepository creates a new firmware repository
func NewFirmwareRepository(db *DB) *FirmwareRepository {
	return &FirmwareRepository{db: db}
}

// Create persists a release
func (r *FirmwareRepository) Create(ctx context.Context, release *firmware.Release) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO firmware_updates (target, version, file_url, release_notes, published_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		release.Target, release.Version, release.FileURL,
		release.ReleaseNotes, release.PublishedBy, release.CreatedAt,
	).Scan(&release.ID)
	if err != nil {
		return fmt.Errorf("failed to insert firmware release: %w", err)
	}
	return nil
}

// Latest retrieves the most recently published release for a target
func (r *FirmwareRepository) Latest(ctx context.Context, target firmware.Target) (*firmware.Release, error) {
	var release firmware.Release
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, target, version, file_url, release_notes, published_by, created_at
		FROM firmware_updates
		WHERE target = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, target).Scan(
		&release.ID, &release.Target, &release.Version, &release.FileURL,
		&release.ReleaseNotes, &release.PublishedBy, &release.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, firmware.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest firmware: %w", err)
	}
	return &release, nil
}

// List retrieves all releases, newest first
func (r *FirmwareRepository) List(ctx context.Context, limit, offset int) ([]*firmware.Release, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, target, version, file_url, release_notes, published_by, created_at
		FROM firmware_updates
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list firmware releases: %w", err)
	}
	defer rows.Close()

	var releases []*firmware.Release
	for rows.Next() {
		var release firmware.Release
		if err := rows.Scan(
			&release.ID, &release.Target, &release.Version, &release.FileURL,
			&release.ReleaseNotes, &release.PublishedBy, &release.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan firmware release: %w", err)
		}
		releases = append(releases, &release)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate firmware releases: %w", err)
	}
	return releases, nil
}
