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

// Package firmware tracks published firmware releases for the on-site
// servers and the display units, and answers their update checks.
package firmware

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrNotFound      = errors.New("no firmware published for target")
	ErrInvalidTarget = errors.New("invalid firmware target")
)

// Target identifies which hardware a release is for.
type Target string

const (
	TargetServer Target = "server"
	TargetESP32  Target = "esp32"
)

// Valid reports whether t is a known target.
func (t Target) Valid() bool {
	return t == TargetServer || t == TargetESP32
}

// Release is one published firmware version.
type Release struct {
	ID           int64
	Target       Target
	Version      string
	FileURL      string
	ReleaseNotes string
	PublishedBy  int64
	CreatedAt    time.Time
}

// Repository defines the interface for firmware persistence.
type Repository interface {
	// Create persists a release and fills in its ID.
	Create(ctx context.Context, release *Release) error

	// Latest retrieves the most recently published release for a target.
	Latest(ctx context.Context, target Target) (*Release, error)

	// List retrieves all releases, newest first.
	List(ctx context.Context, limit, offset int) ([]*Release, error)
}
