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

package authz_test

import (
	"errors"
	"testing"

	"github.com/shelfgrid/shelfgrid/internal/authz"
)

func principal(role authz.Role, country string) authz.Principal {
	return authz.Principal{UserID: 1, Role: role, Country: country}
}

func TestAuthz_Store_DecisionTable(t *testing.T) {
	engine := authz.NewEngine()
	trStore := &authz.StoreRef{ID: 10, Country: "Turkey"}
	deStore := &authz.StoreRef{ID: 11, Country: "Germany"}

	tests := []struct {
		name    string
		p       authz.Principal
		op      authz.Operation
		target  *authz.StoreRef
		allowed bool
	}{
		// Admin is unrestricted, including token rotation
		{"admin view any", principal(authz.RoleAdmin, ""), authz.OpView, deStore, true},
		{"admin delete any", principal(authz.RoleAdmin, ""), authz.OpDelete, deStore, true},
		{"admin regenerate", principal(authz.RoleAdmin, ""), authz.OpRegenerateToken, trStore, true},

		// Country Chief: full control within own country only
		{"chief view same country", principal(authz.RoleCountryChief, "Turkey"), authz.OpView, trStore, true},
		{"chief view other country", principal(authz.RoleCountryChief, "Turkey"), authz.OpView, deStore, false},
		{"chief create", principal(authz.RoleCountryChief, "Turkey"), authz.OpCreate, nil, true},
		{"chief update same country", principal(authz.RoleCountryChief, "Turkey"), authz.OpUpdate, trStore, true},
		{"chief delete same country", principal(authz.RoleCountryChief, "Turkey"), authz.OpDelete, trStore, true},
		{"chief delete other country", principal(authz.RoleCountryChief, "Turkey"), authz.OpDelete, deStore, false},
		{"chief regenerate denied", principal(authz.RoleCountryChief, "Turkey"), authz.OpRegenerateToken, trStore, false},

		// Analyst: read and update in country, no installs, no deletes
		{"analyst view same country", principal(authz.RoleAnalyst, "Turkey"), authz.OpView, trStore, true},
		{"analyst create denied", principal(authz.RoleAnalyst, "Turkey"), authz.OpCreate, nil, false},
		{"analyst update same country", principal(authz.RoleAnalyst, "Turkey"), authz.OpUpdate, trStore, true},
		{"analyst delete denied", principal(authz.RoleAnalyst, "Turkey"), authz.OpDelete, trStore, false},

		// Engineer: installs anywhere, manages in own country, never deletes
		{"engineer create", principal(authz.RoleEngineer, "Turkey"), authz.OpCreate, nil, true},
		{"engineer view same country", principal(authz.RoleEngineer, "Turkey"), authz.OpView, trStore, true},
		{"engineer view other country", principal(authz.RoleEngineer, "Turkey"), authz.OpView, deStore, false},
		{"engineer delete denied", principal(authz.RoleEngineer, "Turkey"), authz.OpDelete, trStore, false},
		{"engineer regenerate denied", principal(authz.RoleEngineer, "Turkey"), authz.OpRegenerateToken, trStore, false},

		// Market-side roles never touch the store plane
		{"runner view denied", principal(authz.RoleRunner, ""), authz.OpView, trStore, false},
		{"runner create denied", principal(authz.RoleRunner, ""), authz.OpCreate, nil, false},
		{"supermarket admin update denied", principal(authz.RoleSupermarketAdmin, ""), authz.OpUpdate, trStore, false},
		{"supermarket admin delete denied", principal(authz.RoleSupermarketAdmin, ""), authz.OpDelete, trStore, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.AuthorizeStore(tt.p, tt.op, tt.target)
			if d.Allowed != tt.allowed {
				t.Errorf("AuthorizeStore(%s, %s) = %v, want %v", tt.p.Role, tt.op, d.Allowed, tt.allowed)
			}
		})
	}
}

func TestAuthz_UserCreate_RoleMatrix(t *testing.T) {
	engine := authz.NewEngine()

	tests := []struct {
		name       string
		p          authz.Principal
		targetRole authz.Role
		country    string
		allowed    bool
	}{
		// Admin can create anyone anywhere
		{"admin creates chief", principal(authz.RoleAdmin, ""), authz.RoleCountryChief, "Germany", true},
		{"admin creates admin", principal(authz.RoleAdmin, ""), authz.RoleAdmin, "Germany", true},

		// Country Chief creates its subordinates, own country only
		{"chief creates engineer", principal(authz.RoleCountryChief, "Turkey"), authz.RoleEngineer, "Turkey", true},
		{"chief creates analyst", principal(authz.RoleCountryChief, "Turkey"), authz.RoleAnalyst, "Turkey", true},
		{"chief creates runner", principal(authz.RoleCountryChief, "Turkey"), authz.RoleRunner, "Turkey", true},
		{"chief creates supermarket admin", principal(authz.RoleCountryChief, "Turkey"), authz.RoleSupermarketAdmin, "Turkey", true},
		{"chief creates peer chief denied", principal(authz.RoleCountryChief, "Turkey"), authz.RoleCountryChief, "Turkey", false},
		{"chief creates admin denied", principal(authz.RoleCountryChief, "Turkey"), authz.RoleAdmin, "Turkey", false},
		{"chief cross country denied", principal(authz.RoleCountryChief, "Turkey"), authz.RoleEngineer, "Germany", false},

		// Analyst: no engineers-above, own country only
		{"analyst creates engineer", principal(authz.RoleAnalyst, "Turkey"), authz.RoleEngineer, "Turkey", true},
		{"analyst creates runner", principal(authz.RoleAnalyst, "Turkey"), authz.RoleRunner, "Turkey", true},
		{"analyst creates analyst denied", principal(authz.RoleAnalyst, "Turkey"), authz.RoleAnalyst, "Turkey", false},
		{"analyst cross country denied", principal(authz.RoleAnalyst, "Turkey"), authz.RoleRunner, "Germany", false},

		// Engineer: market roles only, in any country (field installs)
		{"engineer creates runner cross country", principal(authz.RoleEngineer, "Turkey"), authz.RoleRunner, "Germany", true},
		{"engineer creates supermarket admin", principal(authz.RoleEngineer, "Turkey"), authz.RoleSupermarketAdmin, "Turkey", true},
		{"engineer creates engineer denied", principal(authz.RoleEngineer, "Turkey"), authz.RoleEngineer, "Turkey", false},

		// Market roles create nobody
		{"runner creates runner denied", principal(authz.RoleRunner, "Turkey"), authz.RoleRunner, "Turkey", false},
		{"supermarket admin creates runner denied", principal(authz.RoleSupermarketAdmin, "Turkey"), authz.RoleRunner, "Turkey", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.AuthorizeUserCreate(tt.p, tt.targetRole, tt.country)
			if d.Allowed != tt.allowed {
				t.Errorf("AuthorizeUserCreate(%s -> %s in %s) = %v, want %v",
					tt.p.Role, tt.targetRole, tt.country, d.Allowed, tt.allowed)
			}
		})
	}
}

func TestAuthz_User_RoleChangeGateBeforeScope(t *testing.T) {
	engine := authz.NewEngine()

	// An Analyst updating an in-scope market user is normally allowed.
	analyst := principal(authz.RoleAnalyst, "Turkey")
	target := authz.UserRef{ID: 42, Role: authz.RoleRunner, Country: "Turkey"}

	d := engine.AuthorizeUser(analyst, authz.OpUpdate, target, nil)
	if !d.Allowed {
		t.Fatalf("expected analyst update of in-scope runner to be allowed, got deny: %s", d.Message)
	}

	// A present role field trips the gate even when the value is the
	// target's current role: the most specific deny wins.
	change := &authz.RoleChange{NewRole: authz.RoleRunner}
	d = engine.AuthorizeUser(analyst, authz.OpUpdate, target, change)
	if d.Allowed {
		t.Fatal("expected role-change attempt by analyst to be denied")
	}
	if d.Reason != authz.ReasonInvalidRoleChange {
		t.Errorf("expected ReasonInvalidRoleChange, got %s", d.Reason)
	}
}

func TestAuthz_User_ChiefRoleChangeWithinCreatableSet(t *testing.T) {
	engine := authz.NewEngine()
	chief := principal(authz.RoleCountryChief, "Turkey")
	target := authz.UserRef{ID: 42, Role: authz.RoleRunner, Country: "Turkey"}

	// Within the creatable set: allowed.
	d := engine.AuthorizeUser(chief, authz.OpUpdate, target, &authz.RoleChange{NewRole: authz.RoleEngineer})
	if !d.Allowed {
		t.Errorf("expected chief to promote runner to engineer, got deny: %s", d.Message)
	}

	// Outside the creatable set: a chief can never mint peers or admins.
	d = engine.AuthorizeUser(chief, authz.OpUpdate, target, &authz.RoleChange{NewRole: authz.RoleCountryChief})
	if d.Allowed {
		t.Error("expected chief promoting to country chief to be denied")
	}
	d = engine.AuthorizeUser(chief, authz.OpUpdate, target, &authz.RoleChange{NewRole: authz.RoleAdmin})
	if d.Allowed {
		t.Error("expected chief promoting to admin to be denied")
	}
}

func TestAuthz_User_ViewIsIDORProtected(t *testing.T) {
	engine := authz.NewEngine()
	other := authz.UserRef{ID: 99, Role: authz.RoleRunner, Country: "Turkey"}

	// Self view always allowed.
	runner := authz.Principal{UserID: 99, Role: authz.RoleRunner, Country: "Turkey"}
	if d := engine.AuthorizeUser(runner, authz.OpView, other, nil); !d.Allowed {
		t.Error("expected self view to be allowed")
	}

	// A different market user may not view someone else's profile.
	peer := authz.Principal{UserID: 100, Role: authz.RoleRunner, Country: "Turkey"}
	if d := engine.AuthorizeUser(peer, authz.OpView, other, nil); d.Allowed {
		t.Error("expected cross-user view by runner to be denied")
	}

	// Engineers cannot browse arbitrary profiles either.
	engineer := principal(authz.RoleEngineer, "Turkey")
	if d := engine.AuthorizeUser(engineer, authz.OpView, other, nil); d.Allowed {
		t.Error("expected engineer viewing foreign profile to be denied")
	}

	// Country Chief sees everyone in its country.
	chief := principal(authz.RoleCountryChief, "Turkey")
	if d := engine.AuthorizeUser(chief, authz.OpView, other, nil); !d.Allowed {
		t.Error("expected chief view in own country to be allowed")
	}
	chiefDE := principal(authz.RoleCountryChief, "Germany")
	if d := engine.AuthorizeUser(chiefDE, authz.OpView, other, nil); d.Allowed {
		t.Error("expected chief view across countries to be denied")
	}
}

func TestAuthz_User_AdminSelfDeleteDenied(t *testing.T) {
	engine := authz.NewEngine()
	admin := authz.Principal{UserID: 7, Role: authz.RoleAdmin}

	d := engine.AuthorizeUser(admin, authz.OpDelete, authz.UserRef{ID: 7, Role: authz.RoleAdmin}, nil)
	if d.Allowed {
		t.Fatal("expected admin self-delete to be denied")
	}
	if d.Reason != authz.ReasonSelfActionDenied {
		t.Errorf("expected ReasonSelfActionDenied, got %s", d.Reason)
	}

	// Deleting anyone else is fine.
	d = engine.AuthorizeUser(admin, authz.OpDelete, authz.UserRef{ID: 8, Role: authz.RoleAdmin}, nil)
	if !d.Allowed {
		t.Errorf("expected admin delete of another user to be allowed, got deny: %s", d.Message)
	}
}

func TestAuthz_Decision_ErrMapping(t *testing.T) {
	if err := authz.Allow().Err(); err != nil {
		t.Fatalf("expected nil error for allow, got %v", err)
	}

	var denied *authz.DeniedError

	err := authz.Deny(authz.ReasonForbidden, "nope").Err()
	if !errors.As(err, &denied) || !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("forbidden deny should unwrap to ErrForbidden, got %v", err)
	}

	err = authz.Deny(authz.ReasonNotFound, "missing").Err()
	if !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("not-found deny should unwrap to ErrNotFound, got %v", err)
	}

	err = authz.Deny(authz.ReasonInvalidRoleChange, "no").Err()
	if !errors.Is(err, authz.ErrInvalidOperation) {
		t.Errorf("role-change deny should unwrap to ErrInvalidOperation, got %v", err)
	}

	err = authz.Deny(authz.ReasonSelfActionDenied, "no").Err()
	if !errors.Is(err, authz.ErrSelfAction) {
		t.Errorf("self-action deny should unwrap to ErrSelfAction, got %v", err)
	}
}

func TestAuthz_Panel_MarketRolesRejected(t *testing.T) {
	engine := authz.NewEngine()

	for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleCountryChief, authz.RoleAnalyst, authz.RoleEngineer} {
		if d := engine.AuthorizePanel(role); !d.Allowed {
			t.Errorf("expected %s to access the panel", role)
		}
	}
	for _, role := range []authz.Role{authz.RoleRunner, authz.RoleSupermarketAdmin} {
		if d := engine.AuthorizePanel(role); d.Allowed {
			t.Errorf("expected %s to be rejected from the panel", role)
		}
	}
}
