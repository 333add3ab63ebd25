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

// Package oplog stores the operational logs the on-site servers upload
// in batches on behalf of their display units.
package oplog

import (
	"context"
	"errors"
	"time"
)

// DefaultRetention is how long entries are kept before the purge job
// removes them.
const DefaultRetention = 30 * 24 * time.Hour

// ErrEmptyBatch is returned when an upload contains no entries.
var ErrEmptyBatch = errors.New("empty log batch")

// Entry is one operational log line from a display unit, attributed to
// its store and to the unit's store-local ordinal.
type Entry struct {
	ID            int64
	StoreID       int64
	DeviceLocalID int
	Level         string
	Message       string

	// LoggedAt is the device-reported time of the event; CreatedAt is
	// when the platform accepted it.
	LoggedAt  time.Time
	CreatedAt time.Time
}

// Repository defines the interface for log persistence.
type Repository interface {
	// InsertBatch persists a batch of entries in one round trip.
	InsertBatch(ctx context.Context, entries []Entry) (int64, error)

	// ListByStore retrieves entries for a store newer than the cutoff,
	// newest first.
	ListByStore(ctx context.Context, storeID int64, since time.Time, limit, offset int) ([]Entry, error)

	// DeleteOlderThan removes entries accepted before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
