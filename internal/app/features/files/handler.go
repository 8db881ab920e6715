// internal/app/features/files/handler.go
package files

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/bridge"
	"github.com/dalemusser/edusync/internal/app/features/shared"
	"github.com/dalemusser/edusync/internal/app/notify"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Bridge  *bridge.Client
	Fanout  *notify.Fanout
	SignTTL time.Duration
	Log     *zap.Logger
}

func NewHandler(br *bridge.Client, fanout *notify.Fanout, signTTL time.Duration, logger *zap.Logger) *Handler {
	return &Handler{Bridge: br, Fanout: fanout, SignTTL: signTTL, Log: logger}
}

type uploadRequest struct {
	IDToken     string `json:"idToken"`
	FilePath    string `json:"filePath"`
	Base64      string `json:"base64"`
	ContentType string `json:"contentType"`
	GroupID     string `json:"groupId,omitempty"`
	FileName    string `json:"fileName,omitempty"`
}

type uploadResponse struct {
	FilePath string `json:"filePath"`
}

// HandleUpload pushes a file through the storage bridge and, when the
// upload belongs to a group, notifies the other members. The upload is
// the operation; a failed fanout is logged, not surfaced.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "files.HandleUpload"

	u, _ := auth.CurrentUser(r)

	var req uploadRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.BadRequest(w, "invalid request body")
		return
	}
	switch {
	case strings.TrimSpace(req.IDToken) == "":
		shared.BadRequest(w, "idToken is required")
		return
	case strings.TrimSpace(req.FilePath) == "":
		shared.BadRequest(w, "filePath is required")
		return
	case req.Base64 == "":
		shared.BadRequest(w, "base64 is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	stored, err := h.Bridge.ExchangeAndUpload(ctx, req.IDToken, req.FilePath, req.Base64, req.ContentType)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	if req.GroupID != "" {
		h.notifyUpload(ctx, u, req, stored)
	}

	shared.JSON(w, http.StatusOK, uploadResponse{FilePath: stored})
}

func (h *Handler) notifyUpload(ctx context.Context, u *auth.SessionUser, req uploadRequest, stored string) {
	gid, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		h.Log.Warn("upload carried an invalid group id; skipping fanout",
			zap.String("group_id", req.GroupID))
		return
	}

	name := req.FileName
	if name == "" {
		name = stored
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
	}

	if _, err := h.Fanout.NotifyGroupMembers(ctx, notify.Input{
		GroupID:  gid,
		ActorUID: u.UID,
		EventRef: "file-uploaded:" + stored,
		Type:     models.NotifTypeFile,
		Title:    "New file",
		Message:  u.Name + " uploaded " + name,
		Target: models.Target{
			Screen:     "GroupDetail",
			GroupID:    gid,
			InitialTab: "Files",
		},
	}); err != nil {
		h.Log.Warn("file notification fanout failed",
			zap.String("group_id", gid.Hex()),
			zap.String("file_path", stored),
			zap.Error(err))
	}
}

type signRequest struct {
	IDToken  string `json:"idToken"`
	FilePath string `json:"filePath"`
}

type signResponse struct {
	SignedURL string `json:"signedUrl"`
}

// HandleSign exchanges the caller's identity token for a time-limited
// download URL.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	const op = "files.HandleSign"

	var req signRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.BadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.IDToken) == "" || strings.TrimSpace(req.FilePath) == "" {
		shared.BadRequest(w, "idToken and filePath are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	url, err := h.Bridge.ExchangeAndSign(ctx, req.IDToken, req.FilePath, h.SignTTL)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.JSON(w, http.StatusOK, signResponse{SignedURL: url})
}
