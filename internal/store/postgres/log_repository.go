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
	"github.com/shelfgrid/shelfgrid/internal/oplog"
)

// LogRepository implements oplog.Repository
type LogRepository struct {
	db *DB
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

// InsertBatch persists a batch of entries with a single COPY
func (r *LogRepository) InsertBatch(ctx context.Context, entries []oplog.Entry) (int64, error) {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.StoreID, e.DeviceLocalID, e.Level, e.Message, e.LoggedAt, e.CreatedAt,
		})
	}

	count, err := r.db.pool.CopyFrom(
		ctx,
		pgx.Identifier{"logs"},
		[]string{"store_id", "device_local_id", "level", "message", "logged_at", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy log batch: %w", err)
	}
	return count, nil
}

// ListByStore retrieves entries for a store newer than the cutoff, newest first
func (r *LogRepository) ListByStore(ctx context.Context, storeID int64, since time.Time, limit, offset int) ([]oplog.Entry, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, store_id, device_local_id, level, message, logged_at, created_at
		FROM logs
		WHERE store_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, storeID, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var entries []oplog.Entry
	for rows.Next() {
		var e oplog.Entry
		if err := rows.Scan(
			&e.ID, &e.StoreID, &e.DeviceLocalID, &e.Level, &e.Message,
			&e.LoggedAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate logs: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries accepted before the cutoff
func (r *LogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete logs: %w", err)
	}
	return result.RowsAffected(), nil
}
