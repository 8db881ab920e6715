// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/edusync/internal/app/features/shared"
	notificationstore "github.com/dalemusser/edusync/internal/app/store/notifications"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/inputval"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultListLimit = 50

type Handler struct {
	Notifs *notificationstore.Store
	Log    *zap.Logger
}

func NewHandler(notifs *notificationstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Notifs: notifs, Log: logger}
}

// HandleList returns the caller's notifications, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "notifications.HandleList"

	u, _ := auth.CurrentUser(r)

	limit := int64(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 200 {
			shared.BadRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ns, err := h.Notifs.ListByRecipient(ctx, u.UID, limit)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.JSON(w, http.StatusOK, ns)
}

// HandleMarkRead marks one of the caller's notifications read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	const op = "notifications.HandleMarkRead"

	u, _ := auth.CurrentUser(r)
	id, ok := notifIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifs.MarkRead(ctx, u.UID, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.NotFound(w, "notification not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// HandleDelete removes one of the caller's notifications.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "notifications.HandleDelete"

	u, _ := auth.CurrentUser(r)
	id, ok := notifIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifs.Delete(ctx, u.UID, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.NotFound(w, "notification not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.NoContent(w)
}

func notifIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	raw := chi.URLParam(r, "notifID")
	if !inputval.IsValidObjectID(raw) {
		shared.BadRequest(w, "invalid notification id")
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(raw)
	return id, true
}
