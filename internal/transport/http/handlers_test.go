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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/firmware"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
	"github.com/shelfgrid/shelfgrid/internal/identity"
	"github.com/shelfgrid/shelfgrid/internal/observability/metrics"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories backing the router tests

type mockUserRepo struct {
	users  map[int64]*identity.User
	nextID int64
}

func (m *mockUserRepo) Create(ctx context.Context, u *identity.User) error {
	m.nextID++
	u.ID = m.nextID
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockUserRepo) Update(ctx context.Context, u *identity.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return identity.ErrUserNotFound
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range m.users {
		if scope.Kind == authz.ScopeSelf && u.ID != scope.UserID {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

type mockStoreRepo struct {
	stores       map[int64]*fleet.Store
	nextStoreID  int64
	nextDeviceID int64
}

func (m *mockStoreRepo) Create(ctx context.Context, s *fleet.Store) error {
	m.nextStoreID++
	s.ID = m.nextStoreID
	for i := range s.Devices {
		m.nextDeviceID++
		s.Devices[i].ID = m.nextDeviceID
		s.Devices[i].StoreID = s.ID
	}
	clone := *s
	m.stores[s.ID] = &clone
	return nil
}

func (m *mockStoreRepo) GetByID(ctx context.Context, id int64) (*fleet.Store, error) {
	s, ok := m.stores[id]
	if !ok {
		return nil, fleet.ErrStoreNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *mockStoreRepo) GetByServerToken(ctx context.Context, token string) (*fleet.Store, error) {
	for _, s := range m.stores {
		if s.ServerToken == token {
			clone := *s
			return &clone, nil
		}
	}
	return nil, fleet.ErrStoreNotFound
}

func (m *mockStoreRepo) Update(ctx context.Context, s *fleet.Store) error {
	if _, ok := m.stores[s.ID]; !ok {
		return fleet.ErrStoreNotFound
	}
	clone := *s
	m.stores[s.ID] = &clone
	return nil
}

func (m *mockStoreRepo) Delete(ctx context.Context, id int64) error {
	delete(m.stores, id)
	return nil
}

func (m *mockStoreRepo) List(ctx context.Context, scope authz.Scope, limit, offset int) ([]*fleet.Store, error) {
	var out []*fleet.Store
	for _, s := range m.stores {
		if scope.Kind == authz.ScopeCountry && s.Country != scope.Country {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockStoreRepo) AddDevice(ctx context.Context, d *fleet.Device) error {
	s, ok := m.stores[d.StoreID]
	if !ok {
		return fleet.ErrStoreNotFound
	}
	m.nextDeviceID++
	d.ID = m.nextDeviceID
	s.Devices = append(s.Devices, *d)
	return nil
}

func (m *mockStoreRepo) RemoveDevice(ctx context.Context, storeID int64, localID int) error {
	s, ok := m.stores[storeID]
	if !ok {
		return fleet.ErrStoreNotFound
	}
	for i, d := range s.Devices {
		if d.LocalID == localID {
			s.Devices = append(s.Devices[:i], s.Devices[i+1:]...)
			return nil
		}
	}
	return fleet.ErrDeviceNotFound
}

func (m *mockStoreRepo) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	s, ok := m.stores[id]
	if !ok {
		return fleet.ErrStoreNotFound
	}
	s.LastSeen = &at
	return nil
}

type mockLogRepo struct {
	entries []oplog.Entry
	nextID  int64
}

func (m *mockLogRepo) InsertBatch(ctx context.Context, entries []oplog.Entry) (int64, error) {
	for _, e := range entries {
		m.nextID++
		e.ID = m.nextID
		m.entries = append(m.entries, e)
	}
	return int64(len(entries)), nil
}

func (m *mockLogRepo) ListByStore(ctx context.Context, storeID int64, since time.Time, limit, offset int) ([]oplog.Entry, error) {
	var out []oplog.Entry
	for _, e := range m.entries {
		if e.StoreID == storeID && e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockFirmwareRepo struct {
	releases []*firmware.Release
	nextID   int64
}

func (m *mockFirmwareRepo) Create(ctx context.Context, r *firmware.Release) error {
	m.nextID++
	r.ID = m.nextID
	clone := *r
	m.releases = append(m.releases, &clone)
	return nil
}

func (m *mockFirmwareRepo) Latest(ctx context.Context, target firmware.Target) (*firmware.Release, error) {
	for i := len(m.releases) - 1; i >= 0; i-- {
		if m.releases[i].Target == target {
			clone := *m.releases[i]
			return &clone, nil
		}
	}
	return nil, firmware.ErrNotFound
}

func (m *mockFirmwareRepo) List(ctx context.Context, limit, offset int) ([]*firmware.Release, error) {
	out := make([]*firmware.Release, 0, len(m.releases))
	for i := len(m.releases) - 1; i >= 0; i-- {
		clone := *m.releases[i]
		out = append(out, &clone)
	}
	return out, nil
}

type testEnv struct {
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	userRepo := &mockUserRepo{users: make(map[int64]*identity.User)}
	storeRepo := &mockStoreRepo{stores: make(map[int64]*fleet.Store)}

	cipher, err := fleet.NewSecretCipher("test-encryption-key")
	require.NoError(t, err)

	policy := authz.NewEngine()
	auditLogger := audit.NewSlogLogger()
	hasher := identity.NewPasswordHasher(8192, 1, 1, 16, 32)
	tokenIssuer := identity.NewTokenIssuer("test-secret-key", time.Hour)

	fleetSvc := fleet.NewService(storeRepo, policy, cipher, auditLogger)
	identitySvc := identity.NewService(userRepo, hasher, policy, fleetSvc, auditLogger)
	oplogSvc := oplog.NewService(&mockLogRepo{}, 0, auditLogger)
	firmwareSvc := firmware.NewService(&mockFirmwareRepo{}, auditLogger)

	require.NoError(t, identitySvc.Bootstrap(ctx, "root@example.com", "RootPassword123"))

	meter, err := metrics.New(ctx, metrics.Config{Enabled: false}, "test")
	require.NoError(t, err)

	h, err := NewHandler(identitySvc, fleetSvc, oplogSvc, firmwareSvc, policy, tokenIssuer, auditLogger, meter)
	require.NoError(t, err)

	return &testEnv{router: NewRouter(h, NewRateLimiter(1000, 1000))}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, "POST", "/api/v1/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Success issues bearer token", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/auth/login", "", LoginRequest{Email: "root@example.com", Password: "RootPassword123"})
		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["access_token"])
		assert.Equal(t, "bearer", resp["token_type"])
	})

	t.Run("Wrong password is 401", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/auth/login", "", LoginRequest{Email: "root@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Market role with valid credentials is 403, not 401", func(t *testing.T) {
		token := env.login(t, "root@example.com", "RootPassword123")
		storeID := createStore(t, env, token, "Turkey")

		w := env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name:            "Mehmet",
			Email:           "runner@example.com",
			Password:        "RunnerPassword123",
			Role:            "Runner",
			AssignedStoreID: &storeID,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, "POST", "/api/v1/auth/login", "", LoginRequest{Email: "runner@example.com", Password: "RunnerPassword123"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRouter_AuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("No token", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Garbage token", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/users", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid token reaches the handler", func(t *testing.T) {
		token := env.login(t, "root@example.com", "RootPassword123")
		w := env.do(t, "GET", "/api/v1/auth/me", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "root@example.com", resp.Email)
	})
}

func TestRouter_UserErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root@example.com", "RootPassword123")

	t.Run("Unknown user is 404", func(t *testing.T) {
		w := env.do(t, "GET", "/api/v1/users/9999", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Duplicate email is 409", func(t *testing.T) {
		body := CreateUserRequest{Name: "A", Email: "dup@example.com", Password: "SecurePassword123", Role: "Analyst", Country: "Turkey"}
		w := env.do(t, "POST", "/api/v1/users", token, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		w = env.do(t, "POST", "/api/v1/users", token, body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Market role without store is 400", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name: "B", Email: "b@example.com", Password: "SecurePassword123", Role: "Runner",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Role change by unauthorized editor is 400", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name: "Eda", Email: "analyst2@example.com", Password: "SecurePassword123", Role: "Analyst", Country: "Turkey",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var analyst UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analyst))

		w = env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name: "Engin", Email: "engineer@example.com", Password: "SecurePassword123", Role: "Engineer", Country: "Turkey",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		engToken := env.login(t, "engineer@example.com", "SecurePassword123")
		role := "Runner"
		w = env.do(t, "PUT", fmt.Sprintf("/api/v1/users/%d", analyst.ID), engToken, UpdateUserRequest{Role: &role})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouter_StoreAndOps(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root@example.com", "RootPassword123")

	// 1. Create an installation with two devices
	w := env.do(t, "POST", "/api/v1/stores", token, CreateStoreRequest{
		Name:         "Migros Kadikoy",
		Country:      "Turkey",
		City:         "Istanbul",
		WifiSSID:     "store-net",
		WifiPassword: "wifi-password-123",
		Devices:      []DeviceRequest{{Name: "Aisle 1", ShelfCode: "A1"}, {Name: "Aisle 2", ShelfCode: "A2"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var store StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &store))
	assert.Equal(t, "Offline", store.Status)
	assert.Equal(t, 2, store.DeviceCount)
	require.NotEmpty(t, store.ServerToken)

	serverHeader := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("X-Server-Token", store.ServerToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	// 2. Heartbeat flips the store Online
	rec := serverHeader("POST", "/api/v1/ops/heartbeat", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = env.do(t, "GET", fmt.Sprintf("/api/v1/stores/%d", store.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fresh StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fresh))
	assert.Equal(t, "Online", fresh.Status)

	// 3. Missing server token is 401
	req := httptest.NewRequest("POST", "/api/v1/ops/heartbeat", nil)
	bare := httptest.NewRecorder()
	env.router.ServeHTTP(bare, req)
	assert.Equal(t, http.StatusUnauthorized, bare.Code)

	// 4. Devices upload a log batch
	rec = serverHeader("POST", "/api/v1/ops/logs", map[string]any{
		"logs": []map[string]any{
			{"device_local_id": 1, "level": "INFO", "message": "price refreshed"},
			{"device_local_id": 2, "level": "ERROR", "message": "display blank"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ingest map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingest))
	assert.Equal(t, int64(2), ingest["logs_added"])

	// 5. The panel reads them back
	w = env.do(t, "GET", fmt.Sprintf("/api/v1/stores/%d/logs", store.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []LogEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	// 6. An empty batch is 400
	rec = serverHeader("POST", "/api/v1/ops/logs", map[string]any{"logs": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 7. The server fetches its wifi credentials in the clear
	rec = serverHeader("GET", "/api/v1/ops/wifi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wifi map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wifi))
	assert.Equal(t, "store-net", wifi["wifi_ssid"])
	assert.Equal(t, "wifi-password-123", wifi["wifi_password"])
}

func TestRouter_TokenRegeneration(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root@example.com", "RootPassword123")
	storeID := createStore(t, env, token, "Turkey")

	t.Run("Admin rotates the server token", func(t *testing.T) {
		w := env.do(t, "POST", fmt.Sprintf("/api/v1/stores/%d/regenerate-server-token", storeID), token, nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("Chief is refused", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name: "Aylin", Email: "chief@example.com", Password: "SecurePassword123", Role: "Country Chief", Country: "Turkey",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		chiefToken := env.login(t, "chief@example.com", "SecurePassword123")
		w = env.do(t, "POST", fmt.Sprintf("/api/v1/stores/%d/regenerate-esp32-token", storeID), chiefToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRouter_Firmware(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root@example.com", "RootPassword123")
	storeID := createStore(t, env, token, "Turkey")

	w := env.do(t, "GET", fmt.Sprintf("/api/v1/stores/%d", storeID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var store StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &store))

	t.Run("No release yet is 404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/ops/firmware/latest", nil)
		req.Header.Set("X-Server-Token", store.ServerToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Publish and check", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/firmware", token, PublishFirmwareRequest{
			Target: "server", Version: "1.2.0", FileURL: "https://firmware.example.com/server-1.2.0.bin",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		req := httptest.NewRequest("GET", "/api/v1/ops/firmware/latest?target=server", nil)
		req.Header.Set("X-Server-Token", store.ServerToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var release FirmwareResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &release))
		assert.Equal(t, "1.2.0", release.Version)
	})

	t.Run("Invalid target is 400", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/ops/firmware/latest?target=toaster", nil)
		req.Header.Set("X-Server-Token", store.ServerToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Non-admin publish is 403", func(t *testing.T) {
		w := env.do(t, "POST", "/api/v1/users", token, CreateUserRequest{
			Name: "Eda", Email: "fw-analyst@example.com", Password: "SecurePassword123", Role: "Analyst", Country: "Turkey",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		analystToken := env.login(t, "fw-analyst@example.com", "SecurePassword123")
		w = env.do(t, "POST", "/api/v1/firmware", analystToken, PublishFirmwareRequest{
			Target: "esp32", Version: "0.9.0", FileURL: "https://firmware.example.com/esp32-0.9.0.bin",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func createStore(t *testing.T, env *testEnv, token, country string) int64 {
	t.Helper()
	w := env.do(t, "POST", "/api/v1/stores", token, CreateStoreRequest{
		Name:    "Store " + country,
		Country: country,
		City:    "City",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var store StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &store))
	return store.ID
}
