// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/edusync/internal/app/features/shared"
	userstore "github.com/dalemusser/edusync/internal/app/store/users"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/identity"
	"github.com/dalemusser/edusync/internal/app/system/inputval"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"

	"go.uber.org/zap"
)

type Handler struct {
	Verifier *identity.Verifier
	Users    *userstore.Store
	Log      *zap.Logger
}

func NewHandler(verifier *identity.Verifier, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Verifier: verifier, Users: users, Log: logger}
}

type loginRequest struct {
	IDToken string `json:"idToken"`
}

type loginResponse struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleLogin verifies the caller's identity token, refreshes the
// local profile, and starts a cookie session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "login.HandleLogin"

	var req loginRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.BadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		shared.BadRequest(w, "idToken is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, err := h.Verifier.VerifyToken(ctx, req.IDToken)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	// Provider emails are not trusted for shape; a malformed one is
	// stored empty rather than failing the login.
	email := id.Email
	if !inputval.IsValidEmail(email) {
		email = ""
	}
	u := models.User{
		UID:   id.UID,
		Name:  inputval.CleanText(id.Name),
		Email: email,
	}
	if err := h.Users.Upsert(ctx, u); err != nil {
		h.Log.Error("profile upsert failed", zap.String("uid", id.UID), zap.Error(err))
		shared.Error(w, h.Log, op, err)
		return
	}

	su := auth.SessionUser{UID: id.UID, Name: u.Name, Email: u.Email}
	if err := auth.SignIn(w, r, su); err != nil {
		h.Log.Error("session save failed", zap.String("uid", id.UID), zap.Error(err))
		shared.Error(w, h.Log, op, err)
		return
	}

	h.Log.Info("user signed in", zap.String("uid", id.UID))
	shared.JSON(w, http.StatusOK, loginResponse{UID: id.UID, Name: u.Name, Email: u.Email})
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r); err != nil {
		h.Log.Warn("session clear failed", zap.Error(err))
	}
	shared.NoContent(w)
}
