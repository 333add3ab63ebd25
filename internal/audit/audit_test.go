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

package audit

import "testing"

func TestAudit_IsSecret(t *testing.T) {
	secret := []string{"password", "secret", "token", "key", "server_token", "esp32_token", "authorization"}
	for _, k := range secret {
		if !isSecret(k) {
			t.Errorf("expected %q to be redacted", k)
		}
	}

	plain := []string{"store_id", "country", "role", "reason", "email"}
	for _, k := range plain {
		if isSecret(k) {
			t.Errorf("expected %q to pass through", k)
		}
	}
}
