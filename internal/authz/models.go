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

import "errors"

// Domain errors
var (
	ErrNotFound         = errors.New("target not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrSelfAction       = errors.New("action on own account denied")
)

// Principal is the authenticated actor making a request, stripped of
// credentials. It is immutable for the duration of a request.
type Principal struct {
	UserID  int64
	Role    Role
	Country string

	// AssignedStoreID is set only for market-side roles.
	AssignedStoreID *int64
}

// Operation is a requested action on a target entity.
type Operation string

const (
	OpView            Operation = "view"
	OpCreate          Operation = "create"
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpRegenerateToken Operation = "regenerate_token"
)

// EntityKind identifies the class of entity a scope applies to.
type EntityKind string

const (
	KindStore EntityKind = "store"
	KindUser  EntityKind = "user"
)

// Reason discriminates why a request was denied, so the boundary layer can
// map the denial to the correct transport status.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotFound          Reason = "not_found"
	ReasonForbidden         Reason = "forbidden"
	ReasonInvalidRoleChange Reason = "invalid_role_change"
	ReasonSelfActionDenied  Reason = "self_action_denied"
)

// Decision is the verdict of the policy engine for a single operation.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with a reason discriminator and a stable
// client-visible message.
func Deny(reason Reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}

// Err converts a denying decision into its domain error. Allowed decisions
// return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNotFound:
		return &DeniedError{Reason: d.Reason, Message: d.Message, err: ErrNotFound}
	case ReasonInvalidRoleChange:
		return &DeniedError{Reason: d.Reason, Message: d.Message, err: ErrInvalidOperation}
	case ReasonSelfActionDenied:
		return &DeniedError{Reason: d.Reason, Message: d.Message, err: ErrSelfAction}
	default:
		return &DeniedError{Reason: ReasonForbidden, Message: d.Message, err: ErrForbidden}
	}
}

// DeniedError carries a deny reason across service boundaries.
type DeniedError struct {
	Reason  Reason
	Message string
	err     error
}

func (e *DeniedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.err.Error()
}

func (e *DeniedError) Unwrap() error { return e.err }

// StoreRef is the snapshot of a store the policy engine needs to decide.
type StoreRef struct {
	ID      int64
	Country string
}

// UserRef is the snapshot of a user the policy engine needs to decide.
type UserRef struct {
	ID      int64
	Role    Role
	Country string
}

// RoleChange describes a role field present in an update payload. A nil
// *RoleChange means the payload does not touch the role.
type RoleChange struct {
	NewRole Role
}
