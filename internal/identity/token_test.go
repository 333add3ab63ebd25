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

package identity

import (
	"errors"
	"testing"
	"time"
)

func TestIdentity_Token_IssueAndSubject(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", time.Hour)

	token, err := issuer.Issue("aylin@example.com")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	subject, err := issuer.Subject(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if subject != "aylin@example.com" {
		t.Errorf("expected subject aylin@example.com, got %s", subject)
	}
}

func TestIdentity_Token_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", time.Hour)
	other := NewTokenIssuer("another-secret-key", time.Hour)

	token, err := issuer.Issue("aylin@example.com")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := other.Subject(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIdentity_Token_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", -time.Minute)

	token, err := issuer.Issue("aylin@example.com")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := issuer.Subject(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestIdentity_Token_Garbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.Subject(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
