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

package authz

// Role is a user's role in the platform hierarchy.
//
// The string values are the canonical values stored in the database and
// exchanged with the frontend; "Country Chief" deliberately contains a space.
type Role string

const (
	// RoleAdmin is globally unconstrained.
	RoleAdmin Role = "Admin"

	// RoleCountryChief manages stores and company users within its own country.
	RoleCountryChief Role = "Country Chief"

	// RoleAnalyst has read-heavy, country-scoped visibility and manages
	// market-side users plus Engineers within its country.
	RoleAnalyst Role = "Analyst"

	// RoleEngineer installs stores and provisions market-side accounts for
	// them, including stores outside its own country when dispatched.
	RoleEngineer Role = "Engineer"

	// RoleRunner is a market-side, store-scoped role.
	RoleRunner Role = "Runner"

	// RoleSupermarketAdmin is a market-side, store-scoped role.
	RoleSupermarketAdmin Role = "Supermarket_Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCountryChief, RoleAnalyst, RoleEngineer, RoleRunner, RoleSupermarketAdmin:
		return true
	}
	return false
}

// MarketSide reports whether the role belongs to the market side of the
// platform (store-scoped, excluded from the management panel).
func (r Role) MarketSide() bool {
	return r == RoleRunner || r == RoleSupermarketAdmin
}

// CompanySide reports whether the role manages stores, devices and users.
func (r Role) CompanySide() bool {
	return r.Valid() && !r.MarketSide()
}

// CanAccessPanel reports whether the role may use the management panel.
// Market-side roles authenticate successfully but are denied here; the
// two stages are deliberately separate.
func (r Role) CanAccessPanel() bool {
	return r.CompanySide()
}

// creatableRoles maps each role to the target roles it may create or be
// granted management of. Admin is handled separately (may create any role,
// including other Admins).
var creatableRoles = map[Role][]Role{
	RoleCountryChief: {RoleEngineer, RoleAnalyst, RoleRunner, RoleSupermarketAdmin},
	RoleAnalyst:      {RoleEngineer, RoleRunner, RoleSupermarketAdmin},
	RoleEngineer:     {RoleRunner, RoleSupermarketAdmin},
}

// CanCreateRole reports whether a principal with role r may create a user
// with the target role.
func (r Role) CanCreateRole(target Role) bool {
	if r == RoleAdmin {
		return target.Valid()
	}
	for _, allowed := range creatableRoles[r] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CreationCountryScoped reports whether user creation by this role is
// restricted to the principal's own country. Engineers are exempt: they may
// provision market-side accounts for stores they install abroad.
func (r Role) CreationCountryScoped() bool {
	switch r {
	case RoleAdmin, RoleEngineer:
		return false
	}
	return true
}

// CanChangeRoles reports whether the role may ever change another user's
// role. Analyst and Engineer updates with a role field present are rejected
// outright, before any scope check.
func (r Role) CanChangeRoles() bool {
	return r == RoleAdmin || r == RoleCountryChief
}
