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

// Package fleet manages supermarket installations and the shelf display
// devices mounted in them.
package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/authz"
)

// Domain errors
var (
	ErrStoreNotFound    = errors.New("store not found")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidToken     = errors.New("invalid server token")
	ErrDuplicateLocalID = errors.New("duplicate device id within store")
)

// OnlineWindow is how recently a store's server must have reported in
// for the store to count as Online.
const OnlineWindow = 5 * time.Minute

// Status is the derived liveness of a store's on-site server.
type Status string

const (
	StatusOnline  Status = "Online"
	StatusOffline Status = "Offline"
)

// Device is a single shelf display unit. LocalID is the ordinal the
// installer assigned within the store (1..n); it is unique per store,
// not globally.
type Device struct {
	ID        int64
	StoreID   int64
	LocalID   int
	Name      string
	ShelfCode string
	CreatedAt time.Time
}

// Store is one supermarket installation: the on-site server plus the
// display devices wired to it.
type Store struct {
	ID           int64
	Name         string
	Country      string
	City         string
	Branch       string
	Address      string
	OwnerName    string
	OwnerSurname string
	WorkingHours string

	ServerLocalIP string

	// ServerToken authenticates the on-site server; ESP32Token
	// authenticates the display units. Both are bearer secrets.
	ServerToken string
	ESP32Token  string

	// WifiSSID and WifiPassword are the in-store network credentials the
	// devices join. The password is stored encrypted at rest.
	WifiSSID     string
	WifiPassword string

	InstallerID int64
	CreatedAt   time.Time

	// LastSeen is the time of the most recent heartbeat, nil before the
	// first one.
	LastSeen *time.Time

	Devices []Device
}

// StatusAt derives the store's liveness at the given instant. A store
// with no heartbeat yet is Offline. Stored timestamps may carry any
// location; the comparison is done in UTC.
func (s *Store) StatusAt(now time.Time) Status {
	if s.LastSeen == nil {
		return StatusOffline
	}
	if now.UTC().Sub(s.LastSeen.UTC()) < OnlineWindow {
		return StatusOnline
	}
	return StatusOffline
}

// DeviceCount returns the number of display units in the store.
func (s *Store) DeviceCount() int {
	return len(s.Devices)
}

// Repository defines the interface for store persistence. Devices are
// loaded with their store; a store row is never returned half-hydrated.
type Repository interface {
	// Create persists a store together with its devices and fills in
	// the generated IDs.
	Create(ctx context.Context, store *Store) error

	// GetByID retrieves a store with its devices.
	GetByID(ctx context.Context, id int64) (*Store, error)

	// GetByServerToken retrieves the store owning the given server token.
	GetByServerToken(ctx context.Context, token string) (*Store, error)

	// Update persists the mutable fields of a store (not its devices).
	Update(ctx context.Context, store *Store) error

	// Delete removes a store and, by cascade, its devices and logs.
	Delete(ctx context.Context, id int64) error

	// List retrieves stores narrowed by the given scope.
	List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*Store, error)

	// AddDevice appends a device to a store.
	AddDevice(ctx context.Context, device *Device) error

	// RemoveDevice removes a device by its store-local ordinal.
	RemoveDevice(ctx context.Context, storeID int64, localID int) error

	// TouchLastSeen records a heartbeat timestamp for the store.
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}
