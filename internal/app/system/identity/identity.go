// internal/app/system/identity/identity.go
//
// Token verification against the external identity provider. The app
// never mints or parses tokens itself; it exchanges the raw token for
// the provider's verdict at login time.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apperr"

	"go.uber.org/zap"
)

// Identity is the verified subject behind a token.
type Identity struct {
	UID   string
	Name  string
	Email string
}

type Verifier struct {
	verifyURL string
	apiKey    string
	http      *http.Client
	log       *zap.Logger
}

func NewVerifier(verifyURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Verifier {
	return &Verifier{
		verifyURL: verifyURL,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
		log:       logger,
	}
}

type verifyRequest struct {
	IDToken string `json:"idToken"`
}

type verifyResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"users"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// VerifyToken exchanges a raw identity token for the subject it was
// issued to. An invalid or expired token is Unauthorized; a provider
// outage is StorageFailure (or Timeout on deadline expiry).
func (v *Verifier) VerifyToken(ctx context.Context, idToken string) (Identity, error) {
	const op = "identity.VerifyToken"

	if idToken == "" {
		return Identity{}, apperr.E(apperr.Unauthorized, op, "missing identity token")
	}

	payload, err := json.Marshal(verifyRequest{IDToken: idToken})
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.ValidationFailed, op, err)
	}

	url := v.verifyURL
	if v.apiKey != "" {
		url += "?key=" + v.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.ValidationFailed, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.StorageFailure, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.StorageFailure, op, err)
	}

	var vr verifyResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return Identity{}, apperr.Wrap(apperr.StorageFailure, op, err)
	}

	if resp.StatusCode != http.StatusOK || len(vr.Users) == 0 {
		v.log.Info("identity token rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("provider_message", vr.Error.Message))
		return Identity{}, apperr.E(apperr.Unauthorized, op, "identity token rejected")
	}

	u := vr.Users[0]
	if u.LocalID == "" {
		return Identity{}, apperr.E(apperr.Unauthorized, op, "identity token carries no subject")
	}
	return Identity{UID: u.LocalID, Name: u.DisplayName, Email: u.Email}, nil
}
