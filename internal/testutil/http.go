package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/edusync/internal/app/system/auth"
)

// SomeUser returns a session user with a fixed UID for handler tests.
func SomeUser(uid string) *auth.SessionUser {
	return &auth.SessionUser{
		UID:   uid,
		Name:  "Test " + uid,
		Email: uid + "@test.com",
	}
}

// NewRequest builds a JSON request with the given body (may be nil)
// and the user injected into context, bypassing the session store.
func NewRequest(t *testing.T, method, target string, body interface{}, u *auth.SessionUser) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	if u != nil {
		r = auth.WithTestUser(r, u)
	}
	return r
}

// DecodeJSON unmarshals a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}
