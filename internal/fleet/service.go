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

package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
)

// Service provides store and device management under the authorization
// policy, plus the token-authenticated operations used by the on-site
// hardware itself.
type Service struct {
	repo        Repository
	policy      *authz.Engine
	cipher      *SecretCipher
	auditLogger audit.Logger
}

// NewService creates a new fleet service.
func NewService(repo Repository, policy *authz.Engine, cipher *SecretCipher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		policy:      policy,
		cipher:      cipher,
		auditLogger: auditLogger,
	}
}

// DeviceInput describes one display unit in a new installation.
type DeviceInput struct {
	Name      string
	ShelfCode string
}

// CreateInput is the payload for a new installation.
type CreateInput struct {
	Name         string
	Country      string
	City         string
	Branch       string
	Address      string
	OwnerName    string
	OwnerSurname string
	WorkingHours string

	ServerLocalIP string
	WifiSSID      string
	WifiPassword  string

	Devices []DeviceInput
}

// Create registers a new installation: the store, its devices numbered
// 1..n in payload order, and freshly generated server and device tokens.
// The wifi password is encrypted before it touches storage.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (*Store, error) {
	if d := s.policy.AuthorizeStore(p, authz.OpCreate, nil); !d.Allowed {
		return nil, d.Err()
	}

	serverToken, err := NewServerToken()
	if err != nil {
		return nil, err
	}
	esp32Token, err := NewESP32Token()
	if err != nil {
		return nil, err
	}

	encrypted := ""
	if in.WifiPassword != "" {
		encrypted, err = s.cipher.Encrypt(in.WifiPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt wifi password: %w", err)
		}
	}

	store := &Store{
		Name:          in.Name,
		Country:       in.Country,
		City:          in.City,
		Branch:        in.Branch,
		Address:       in.Address,
		OwnerName:     in.OwnerName,
		OwnerSurname:  in.OwnerSurname,
		WorkingHours:  in.WorkingHours,
		ServerLocalIP: in.ServerLocalIP,
		ServerToken:   serverToken,
		ESP32Token:    esp32Token,
		WifiSSID:      in.WifiSSID,
		WifiPassword:  encrypted,
		InstallerID:   p.UserID,
		CreatedAt:     time.Now(),
	}
	for i, d := range in.Devices {
		store.Devices = append(store.Devices, Device{
			LocalID:   i + 1,
			Name:      d.Name,
			ShelfCode: d.ShelfCode,
		})
	}

	if err := s.repo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeStoreCreated,
		ActorID:  p.UserID,
		Resource: "store",
		Metadata: map[string]any{
			audit.AttrStoreID: store.ID,
			audit.AttrCountry: store.Country,
		},
	})

	return store, nil
}

// Get retrieves a store with its devices, enforcing the view policy.
// Existence is checked before authorization.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpView, storeRef(store)); !d.Allowed {
		return nil, d.Err()
	}

	return store, nil
}

// List retrieves the stores visible to the principal. Market-side roles
// get an empty list, not an error.
func (s *Service) List(ctx context.Context, p authz.Principal, limit, offset int) ([]*Store, error) {
	scope := s.policy.ScopeFor(p, authz.KindStore)
	if scope.Kind == authz.ScopeNone {
		return []*Store{}, nil
	}

	stores, err := s.repo.List(ctx, scope, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// UpdateInput is a partial store update: nil fields are left untouched.
// Tokens are not updatable here; they only rotate through regeneration.
type UpdateInput struct {
	Name         *string
	Country      *string
	City         *string
	Branch       *string
	Address      *string
	OwnerName    *string
	OwnerSurname *string
	WorkingHours *string

	ServerLocalIP *string
	WifiSSID      *string
	WifiPassword  *string
}

// Update applies a partial update to a store on behalf of the principal.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (*Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpUpdate, storeRef(store)); !d.Allowed {
		return nil, d.Err()
	}

	if in.Name != nil {
		store.Name = *in.Name
	}
	if in.Country != nil {
		store.Country = *in.Country
	}
	if in.City != nil {
		store.City = *in.City
	}
	if in.Branch != nil {
		store.Branch = *in.Branch
	}
	if in.Address != nil {
		store.Address = *in.Address
	}
	if in.OwnerName != nil {
		store.OwnerName = *in.OwnerName
	}
	if in.OwnerSurname != nil {
		store.OwnerSurname = *in.OwnerSurname
	}
	if in.WorkingHours != nil {
		store.WorkingHours = *in.WorkingHours
	}
	if in.ServerLocalIP != nil {
		store.ServerLocalIP = *in.ServerLocalIP
	}
	if in.WifiSSID != nil {
		store.WifiSSID = *in.WifiSSID
	}
	if in.WifiPassword != nil {
		encrypted, err := s.cipher.Encrypt(*in.WifiPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt wifi password: %w", err)
		}
		store.WifiPassword = encrypted
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}
	return store, nil
}

// Delete removes a store and its devices on behalf of the principal.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) (*Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpDelete, storeRef(store)); !d.Allowed {
		return nil, d.Err()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete store: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeStoreDeleted,
		ActorID:  p.UserID,
		Resource: "store",
		Metadata: map[string]any{audit.AttrStoreID: id},
	})

	return store, nil
}

// RegenerateServerToken rotates a store's server credential. The old
// token stops working the moment the new one is persisted.
func (s *Service) RegenerateServerToken(ctx context.Context, p authz.Principal, id int64) (*Store, error) {
	return s.regenerate(ctx, p, id, func(store *Store) error {
		token, err := NewServerToken()
		if err != nil {
			return err
		}
		store.ServerToken = token
		return nil
	})
}

// RegenerateESP32Token rotates a store's display-unit credential.
func (s *Service) RegenerateESP32Token(ctx context.Context, p authz.Principal, id int64) (*Store, error) {
	return s.regenerate(ctx, p, id, func(store *Store) error {
		token, err := NewESP32Token()
		if err != nil {
			return err
		}
		store.ESP32Token = token
		return nil
	})
}

func (s *Service) regenerate(ctx context.Context, p authz.Principal, id int64, rotate func(*Store) error) (*Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpRegenerateToken, storeRef(store)); !d.Allowed {
		return nil, d.Err()
	}

	if err := rotate(store); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenRegenerated,
		ActorID:  p.UserID,
		Resource: "store",
		Metadata: map[string]any{audit.AttrStoreID: id},
	})

	return store, nil
}

// AddDevice appends a display unit to a store, assigning the next free
// ordinal after the current maximum.
func (s *Service) AddDevice(ctx context.Context, p authz.Principal, storeID int64, in DeviceInput) (*Device, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpUpdate, storeRef(store)); !d.Allowed {
		return nil, d.Err()
	}

	next := 0
	for _, dev := range store.Devices {
		if dev.LocalID > next {
			next = dev.LocalID
		}
	}
	device := &Device{
		StoreID:   storeID,
		LocalID:   next + 1,
		Name:      in.Name,
		ShelfCode: in.ShelfCode,
	}

	if err := s.repo.AddDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to add device: %w", err)
	}
	return device, nil
}

// RemoveDevice removes a display unit by its store-local ordinal.
func (s *Service) RemoveDevice(ctx context.Context, p authz.Principal, storeID int64, localID int) error {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return ErrStoreNotFound
	}

	if d := s.policy.AuthorizeStore(p, authz.OpUpdate, storeRef(store)); !d.Allowed {
		return d.Err()
	}

	found := false
	for _, dev := range store.Devices {
		if dev.LocalID == localID {
			found = true
			break
		}
	}
	if !found {
		return ErrDeviceNotFound
	}

	if err := s.repo.RemoveDevice(ctx, storeID, localID); err != nil {
		return fmt.Errorf("failed to remove device: %w", err)
	}
	return nil
}

// Heartbeat records a liveness report from an on-site server. The token
// is the only credential; there is no panel principal on this path.
func (s *Service) Heartbeat(ctx context.Context, serverToken string) (*Store, error) {
	store, err := s.repo.GetByServerToken(ctx, serverToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastSeen(ctx, store.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	store.LastSeen = &now
	return store, nil
}

// ResolveServerToken returns the store owning a server token, for the
// hardware-facing endpoints that authenticate by token alone.
func (s *Service) ResolveServerToken(ctx context.Context, serverToken string) (*Store, error) {
	store, err := s.repo.GetByServerToken(ctx, serverToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return store, nil
}

// WifiCredentials returns the in-store network credentials in the clear
// for a token-authenticated on-site server. This is the only path that
// decrypts the wifi password.
func (s *Service) WifiCredentials(ctx context.Context, serverToken string) (ssid, password string, err error) {
	store, err := s.repo.GetByServerToken(ctx, serverToken)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if store.WifiPassword == "" {
		return store.WifiSSID, "", nil
	}
	password, err = s.cipher.Decrypt(store.WifiPassword)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt wifi password: %w", err)
	}
	return store.WifiSSID, password, nil
}

// Region resolves the country and city of a store. The identity service
// uses it to derive the effective location of market-side users.
func (s *Service) Region(ctx context.Context, storeID int64) (string, string, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return "", "", ErrStoreNotFound
	}
	return store.Country, store.City, nil
}

func storeRef(s *Store) *authz.StoreRef {
	return &authz.StoreRef{ID: s.ID, Country: s.Country}
}
