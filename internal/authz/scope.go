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

// ScopeKind classifies how far a principal's visibility reaches for an
// entity kind.
type ScopeKind string

const (
	// ScopeUnrestricted grants visibility over all entities of the kind.
	ScopeUnrestricted ScopeKind = "unrestricted"

	// ScopeCountry restricts visibility to entities in a single country.
	ScopeCountry ScopeKind = "country"

	// ScopeSelf restricts visibility to the principal's own record.
	ScopeSelf ScopeKind = "self"

	// ScopeNone grants no visibility. List operations degrade to an empty
	// result rather than failing.
	ScopeNone ScopeKind = "none"
)

// Scope is the narrowing predicate for list operations: the subset of
// entities of a kind the principal may see.
type Scope struct {
	Kind    ScopeKind
	Country string
	UserID  int64

	// MarketOnly further narrows user listings to market-side roles.
	// Analysts see only the market users of their country.
	MarketOnly bool
}

// ScopeFor computes the visibility scope of a principal for an entity kind.
// It is a pure function of the principal and never touches storage.
func (e *Engine) ScopeFor(p Principal, kind EntityKind) Scope {
	if p.Role == RoleAdmin {
		return Scope{Kind: ScopeUnrestricted}
	}

	switch kind {
	case KindStore:
		if p.Role.MarketSide() {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeCountry, Country: p.Country}
	case KindUser:
		if p.Role.MarketSide() {
			return Scope{Kind: ScopeSelf, UserID: p.UserID}
		}
		return Scope{
			Kind:       ScopeCountry,
			Country:    p.Country,
			MarketOnly: p.Role == RoleAnalyst,
		}
	}

	return Scope{Kind: ScopeNone}
}
