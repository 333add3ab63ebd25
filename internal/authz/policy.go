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

// Package authz is the role-scoped authorization engine of the platform.
//
// Every management operation on stores and users flows through the Engine:
// handlers fetch the target snapshot, ask the Engine for a verdict, and only
// then let the persistence layer mutate. The decision tables here replace
// the per-route role conditionals of earlier revisions so that policy
// changes happen in one place.
package authz

// Stable deny messages. The boundary layer surfaces these verbatim.
const (
	msgNotAuthorized     = "Not authorized"
	msgStoreView         = "You do not have permission to view this store."
	msgStoreCreate       = "You are not authorized to perform a new installation."
	msgStoreUpdate       = "Not authorized to update this store."
	msgStoreDelete       = "Not authorized to delete this store."
	msgTokenRegenerate   = "Not authorized to regenerate tokens for this store."
	msgUserView          = "You do not have permission to view this user's profile."
	msgUserCreateRole    = "Not authorized to create a user with this role."
	msgUserCreateCountry = "You can only create users in your own country."
	msgUserUpdate        = "Not authorized to update this user."
	msgUserDelete        = "Not authorized to delete this user."
	msgRoleChange        = "Not authorized to change roles."
	msgSelfDelete        = "You cannot delete your own account."
	msgPanelDenied       = "Your role does not have access to the management panel."
)

// Engine decides per-operation authorization against loaded target
// snapshots. It holds no state and performs no I/O; every method is a pure
// function of its arguments.
type Engine struct{}

// NewEngine creates a policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// AuthorizeStore decides whether the principal may perform op on the target
// store. For OpCreate the target is ignored and may be nil.
func (e *Engine) AuthorizeStore(p Principal, op Operation, target *StoreRef) Decision {
	if p.Role == RoleAdmin {
		return Allow()
	}
	if p.Role.MarketSide() {
		return Deny(ReasonForbidden, msgNotAuthorized)
	}

	if op == OpCreate {
		// Analysts cannot install stores; the other company roles can.
		if p.Role == RoleAnalyst {
			return Deny(ReasonForbidden, msgStoreCreate)
		}
		return Allow()
	}

	if target == nil {
		return Deny(ReasonNotFound, "Store not found")
	}
	sameCountry := target.Country == p.Country

	switch op {
	case OpView:
		if sameCountry {
			return Allow()
		}
		return Deny(ReasonForbidden, msgStoreView)
	case OpUpdate:
		if sameCountry {
			return Allow()
		}
		return Deny(ReasonForbidden, msgStoreUpdate)
	case OpDelete:
		// Only Admin and Country Chief may delete; Engineers install but
		// never uninstall, Analysts are read-mostly.
		if p.Role == RoleCountryChief && sameCountry {
			return Allow()
		}
		return Deny(ReasonForbidden, msgStoreDelete)
	case OpRegenerateToken:
		// Token rotation stays Admin-only: a rotated token bricks the
		// on-site server until it is reconfigured.
		return Deny(ReasonForbidden, msgTokenRegenerate)
	}

	return Deny(ReasonForbidden, msgNotAuthorized)
}

// AuthorizeUserCreate decides whether the principal may create a user with
// the given role and country.
func (e *Engine) AuthorizeUserCreate(p Principal, targetRole Role, targetCountry string) Decision {
	if p.Role == RoleAdmin {
		return Allow()
	}
	if p.Role.CreationCountryScoped() && targetCountry != p.Country {
		return Deny(ReasonForbidden, msgUserCreateCountry)
	}
	if !p.Role.CanCreateRole(targetRole) {
		return Deny(ReasonForbidden, msgUserCreateRole)
	}
	return Allow()
}

// AuthorizeUser decides whether the principal may perform op on the target
// user. change is non-nil when the update payload carries a role field.
//
// The role-change gate is evaluated before any scope check: the most
// specific deny wins, so an Analyst touching the role of an otherwise
// in-scope user is denied for the role change, not allowed by scope.
func (e *Engine) AuthorizeUser(p Principal, op Operation, target UserRef, change *RoleChange) Decision {
	if op == OpUpdate && change != nil && !p.Role.CanChangeRoles() {
		return Deny(ReasonInvalidRoleChange, msgRoleChange)
	}

	switch op {
	case OpView:
		switch {
		case p.Role == RoleAdmin:
			return Allow()
		case p.UserID == target.ID:
			return Allow()
		case p.Role == RoleCountryChief && target.Country == p.Country:
			return Allow()
		}
		return Deny(ReasonForbidden, msgUserView)

	case OpUpdate:
		switch p.Role {
		case RoleAdmin:
			return Allow()
		case RoleCountryChief:
			if target.Country != p.Country {
				return Deny(ReasonForbidden, msgUserUpdate)
			}
			// A Country Chief may re-role only within its creatable set;
			// it can never mint Admins or peer chiefs.
			if change != nil && !p.Role.CanCreateRole(change.NewRole) {
				return Deny(ReasonInvalidRoleChange, msgRoleChange)
			}
			return Allow()
		case RoleAnalyst:
			if target.Role.MarketSide() && target.Country == p.Country {
				return Allow()
			}
		case RoleEngineer:
			if target.Role.MarketSide() {
				return Allow()
			}
		}
		if p.UserID == target.ID {
			// Everyone may maintain their own profile; the role-change
			// gate above already rejected self-elevation attempts.
			return Allow()
		}
		return Deny(ReasonForbidden, msgUserUpdate)

	case OpDelete:
		switch p.Role {
		case RoleAdmin:
			if p.UserID == target.ID {
				return Deny(ReasonSelfActionDenied, msgSelfDelete)
			}
			return Allow()
		case RoleCountryChief:
			if target.Country == p.Country {
				return Allow()
			}
		case RoleAnalyst:
			if target.Role.MarketSide() && target.Country == p.Country {
				return Allow()
			}
		}
		return Deny(ReasonForbidden, msgUserDelete)
	}

	return Deny(ReasonForbidden, msgNotAuthorized)
}

// AuthorizePanel is the second stage of login: authentication may succeed
// while panel authorization fails for market-side roles.
func (e *Engine) AuthorizePanel(role Role) Decision {
	if role.CanAccessPanel() {
		return Allow()
	}
	return Deny(ReasonForbidden, msgPanelDenied)
}
