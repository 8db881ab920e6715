package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apperr"

	"go.uber.org/zap"
)

func TestExchangeAndSign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sign" {
			t.Errorf("path = %s, want /sign", r.URL.Path)
		}
		var req signRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Action != "sign" {
			t.Errorf("action = %q, want sign", req.Action)
		}
		if req.IdentityToken != "tok" || req.FilePath != "groups/g1/notes.pdf" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.ExpiresIn != 900 {
			t.Errorf("expiresIn = %d, want 900", req.ExpiresIn)
		}
		_ = json.NewEncoder(w).Encode(signResponse{SignedURL: "https://cdn.example/signed"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	url, err := c.ExchangeAndSign(context.Background(), "tok", "groups/g1/notes.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("ExchangeAndSign: %v", err)
	}
	if url != "https://cdn.example/signed" {
		t.Errorf("url = %q", url)
	}
}

func TestExchangeAndUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("path = %s, want /upload", r.URL.Path)
		}
		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Base64 == "" || req.ContentType != "application/pdf" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(uploadResponse{Success: true, FilePath: "groups/g1/notes.pdf"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	path, err := c.ExchangeAndUpload(context.Background(), "tok", "groups/g1/notes.pdf", "aGVsbG8=", "application/pdf")
	if err != nil {
		t.Fatalf("ExchangeAndUpload: %v", err)
	}
	if path != "groups/g1/notes.pdf" {
		t.Errorf("path = %q", path)
	}
}

func TestRejectedTokenIsAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token expired"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.ExchangeAndSign(context.Background(), "bad", "f", 0)
	if !apperr.Is(err, apperr.AuthRejected) {
		t.Fatalf("err = %v, want AuthRejected", err)
	}
	if apperr.Retryable(err) {
		t.Error("a rejected token must not be retryable")
	}
}

func TestBackendErrorIsStorageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.ExchangeAndUpload(context.Background(), "tok", "f", "aGk=", "text/plain")
	if !apperr.Is(err, apperr.StorageFailure) {
		t.Fatalf("err = %v, want StorageFailure", err)
	}
	if !apperr.Retryable(err) {
		t.Error("a backend failure should be retryable")
	}
}

func TestDeadlineIsTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ExchangeAndSign(ctx, "tok", "f", 0)
	if !apperr.Is(err, apperr.Timeout) {
		t.Fatalf("err = %v, want Timeout", err)
	}
}

func TestUploadRejectionSurfacesBridgeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(uploadResponse{Success: false, Error: "file too large"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	_, err := c.ExchangeAndUpload(context.Background(), "tok", "f", "aGk=", "text/plain")
	if !apperr.Is(err, apperr.StorageFailure) {
		t.Fatalf("err = %v, want StorageFailure", err)
	}
}
