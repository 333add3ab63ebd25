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

import "testing"

func TestFleet_Cipher_RoundTrip(t *testing.T) {
	c, err := NewSecretCipher("test-encryption-key")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	encrypted, err := c.Encrypt("wifi-password-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if encrypted == "wifi-password-123" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if decrypted != "wifi-password-123" {
		t.Errorf("expected round trip, got %q", decrypted)
	}
}

func TestFleet_Cipher_NonceVariesPerEncryption(t *testing.T) {
	c, err := NewSecretCipher("test-encryption-key")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	a, _ := c.Encrypt("wifi-password-123")
	b, _ := c.Encrypt("wifi-password-123")
	if a == b {
		t.Error("expected distinct ciphertexts for the same plaintext")
	}
}

func TestFleet_Cipher_WrongKey(t *testing.T) {
	c1, _ := NewSecretCipher("key-one")
	c2, _ := NewSecretCipher("key-two")

	encrypted, err := c1.Encrypt("wifi-password-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := c2.Decrypt(encrypted); err == nil {
		t.Error("expected decryption under a different key to fail")
	}
}

func TestFleet_Cipher_RejectsGarbage(t *testing.T) {
	c, _ := NewSecretCipher("test-encryption-key")

	for _, encoded := range []string{"", "shrt", "!!not-base64!!"} {
		if _, err := c.Decrypt(encoded); err == nil {
			t.Errorf("expected error for %q", encoded)
		}
	}
}

func TestFleet_Cipher_EmptyKeyRejected(t *testing.T) {
	if _, err := NewSecretCipher(""); err == nil {
		t.Error("expected empty key to be rejected")
	}
}
