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

package firmware

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
)

// Service manages firmware releases. Publishing is Admin-only; update
// checks authenticate with a server token, not a panel session.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new firmware service.
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// PublishInput is the payload for a new release.
type PublishInput struct {
	Target       Target
	Version      string
	FileURL      string
	ReleaseNotes string
}

// Publish records a new firmware release. Only the Admin may publish.
func (s *Service) Publish(ctx context.Context, p authz.Principal, in PublishInput) (*Release, error) {
	if p.Role != authz.RoleAdmin {
		return nil, authz.Deny(authz.ReasonForbidden, "Not authorized to publish firmware.").Err()
	}
	if !in.Target.Valid() {
		return nil, ErrInvalidTarget
	}

	release := &Release{
		Target:       in.Target,
		Version:      in.Version,
		FileURL:      in.FileURL,
		ReleaseNotes: in.ReleaseNotes,
		PublishedBy:  p.UserID,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, release); err != nil {
		return nil, fmt.Errorf("failed to publish firmware: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeFirmwarePublished,
		ActorID:  p.UserID,
		Resource: "firmware",
		Metadata: map[string]any{
			"target":  string(in.Target),
			"version": in.Version,
		},
	})

	return release, nil
}

// Latest returns the newest release for a target, for the update checks
// of the hardware itself.
func (s *Service) Latest(ctx context.Context, target Target) (*Release, error) {
	if !target.Valid() {
		return nil, ErrInvalidTarget
	}
	release, err := s.repo.Latest(ctx, target)
	if err != nil {
		return nil, ErrNotFound
	}
	return release, nil
}

// List returns all releases, newest first, for the management panel.
func (s *Service) List(ctx context.Context, p authz.Principal, limit, offset int) ([]*Release, error) {
	if !p.Role.CompanySide() {
		return nil, authz.Deny(authz.ReasonForbidden, "Not authorized to view firmware releases.").Err()
	}
	releases, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list firmware releases: %w", err)
	}
	return releases, nil
}
