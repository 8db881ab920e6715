// internal/app/bridge/client.go
//
// Client for the storage bridge: a trusted edge service that verifies
// a caller's identity token and performs privileged object-storage
// operations (signing download URLs, accepting uploads) on its behalf.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apperr"

	"go.uber.org/zap"
)

// DefaultSignTTL is the signed-URL lifetime requested when the caller
// does not specify one.
const DefaultSignTTL = 15 * time.Minute

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client for the bridge at baseURL. timeout bounds each
// round trip; a bridge that does not answer within it surfaces as
// Timeout, not as a hung request.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type signRequest struct {
	IdentityToken string `json:"identityToken"`
	FilePath      string `json:"filePath"`
	Action        string `json:"action"`
	ExpiresIn     int64  `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedUrl"`
	Error     string `json:"error,omitempty"`
}

type uploadRequest struct {
	IdentityToken string `json:"identityToken"`
	FilePath      string `json:"filePath"`
	Base64        string `json:"base64"`
	ContentType   string `json:"contentType"`
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath"`
	Error    string `json:"error,omitempty"`
}

// ExchangeAndSign presents the caller's identity token to the bridge
// and asks for a time-limited signed download URL for filePath.
func (c *Client) ExchangeAndSign(ctx context.Context, identityToken, filePath string, ttl time.Duration) (string, error) {
	const op = "bridge.ExchangeAndSign"

	if ttl <= 0 {
		ttl = DefaultSignTTL
	}
	req := signRequest{
		IdentityToken: identityToken,
		FilePath:      filePath,
		Action:        "sign",
		ExpiresIn:     int64(ttl.Seconds()),
	}

	var resp signResponse
	if err := c.post(ctx, op, "/sign", req, &resp); err != nil {
		return "", err
	}
	if resp.SignedURL == "" {
		return "", apperr.E(apperr.StorageFailure, op, "bridge returned no signed url")
	}
	return resp.SignedURL, nil
}

// ExchangeAndUpload sends base64-encoded file content through the
// bridge and returns the stored path.
func (c *Client) ExchangeAndUpload(ctx context.Context, identityToken, filePath, base64Data, contentType string) (string, error) {
	const op = "bridge.ExchangeAndUpload"

	req := uploadRequest{
		IdentityToken: identityToken,
		FilePath:      filePath,
		Base64:        base64Data,
		ContentType:   contentType,
	}

	var resp uploadResponse
	if err := c.post(ctx, op, "/upload", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", apperr.E(apperr.StorageFailure, op, "bridge rejected upload: "+resp.Error)
	}
	if resp.FilePath != "" {
		return resp.FilePath, nil
	}
	return filePath, nil
}

// post performs one JSON round trip and maps transport/status failures
// onto the error taxonomy: 401/403 means the token exchange was
// refused (AuthRejected), anything else non-2xx is the bridge or the
// store behind it failing (StorageFailure), and deadline expiry is
// Timeout.
func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.ValidationFailed, op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.ValidationFailed, op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		// Wrap promotes deadline expiry to Timeout.
		return apperr.Wrap(apperr.StorageFailure, op, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, op, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized,
		httpResp.StatusCode == http.StatusForbidden:
		c.log.Warn("bridge rejected identity token",
			zap.String("path", path), zap.Int("status", httpResp.StatusCode))
		return apperr.E(apperr.AuthRejected, op, "identity token rejected: "+bridgeError(raw))

	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return apperr.E(apperr.StorageFailure, op,
			fmt.Sprintf("bridge returned %d: %s", httpResp.StatusCode, bridgeError(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.StorageFailure, op, err)
	}
	return nil
}

// bridgeError extracts the bridge's error message from a failed
// response body, falling back to the raw body.
func bridgeError(raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
