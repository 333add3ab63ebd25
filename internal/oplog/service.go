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

package oplog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
)

// Service handles log ingestion from the on-site servers and the
// retention purge.
type Service struct {
	repo        Repository
	retention   time.Duration
	auditLogger audit.Logger
}

// NewService creates a new log service. A zero retention falls back to
// the default window.
func NewService(repo Repository, retention time.Duration, auditLogger audit.Logger) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{repo: repo, retention: retention, auditLogger: auditLogger}
}

// EntryInput is one log line in an upload batch.
type EntryInput struct {
	DeviceLocalID int
	Level         string
	Message       string
	LoggedAt      time.Time
}

// Ingest persists a batch of entries for a store and returns how many
// were accepted. The batch is written in a single round trip; a partial
// write never happens.
func (s *Service) Ingest(ctx context.Context, storeID int64, batch []EntryInput) (int64, error) {
	if len(batch) == 0 {
		return 0, ErrEmptyBatch
	}

	now := time.Now().UTC()
	entries := make([]Entry, 0, len(batch))
	for _, in := range batch {
		loggedAt := in.LoggedAt
		if loggedAt.IsZero() {
			loggedAt = now
		}
		entries = append(entries, Entry{
			StoreID:       storeID,
			DeviceLocalID: in.DeviceLocalID,
			Level:         in.Level,
			Message:       in.Message,
			LoggedAt:      loggedAt,
			CreatedAt:     now,
		})
	}

	added, err := s.repo.InsertBatch(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to insert log batch: %w", err)
	}
	return added, nil
}

// ListByStore retrieves a store's entries within the retention window.
func (s *Service) ListByStore(ctx context.Context, storeID int64, limit, offset int) ([]Entry, error) {
	since := time.Now().UTC().Add(-s.retention)
	entries, err := s.repo.ListByStore(ctx, storeID, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return entries, nil
}

// Purge removes entries older than the retention window and returns how
// many were removed. It is safe to run concurrently; deletion by cutoff
// is idempotent.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge logs: %w", err)
	}

	if removed > 0 {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLogsPurged,
			Resource: "logs",
			Metadata: map[string]any{"removed": removed, "cutoff": cutoff},
		})
	}
	slog.InfoContext(ctx, "log retention purge complete",
		slog.Int64("removed", removed),
		slog.Time("cutoff", cutoff),
	)
	return removed, nil
}

// Retention returns the configured retention window.
func (s *Service) Retention() time.Duration {
	return s.retention
}
