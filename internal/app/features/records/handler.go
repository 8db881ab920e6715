// internal/app/features/records/handler.go
package records

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/features/shared"
	"github.com/dalemusser/edusync/internal/app/notify"
	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	recordstore "github.com/dalemusser/edusync/internal/app/store/records"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/inputval"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Groups  *groupstore.Store
	Records *recordstore.Store
	Fanout  *notify.Fanout
	Log     *zap.Logger
}

func NewHandler(groups *groupstore.Store, records *recordstore.Store, fanout *notify.Fanout, logger *zap.Logger) *Handler {
	return &Handler{Groups: groups, Records: records, Fanout: fanout, Log: logger}
}

type createRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"dueAt"`
	Type        string    `json:"type"` // "task" | "assignment"
}

// HandleCreate creates a record in the group and notifies the other
// members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "records.HandleCreate"

	u, _ := auth.CurrentUser(r)
	g, gid, ok := h.memberGroup(w, r, u.UID)
	if !ok {
		return
	}

	var req createRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.BadRequest(w, "invalid request body")
		return
	}
	title := inputval.CleanText(strings.TrimSpace(req.Title))
	if title == "" {
		shared.BadRequest(w, "title is required")
		return
	}
	if req.DueAt.IsZero() {
		shared.BadRequest(w, "dueAt is required")
		return
	}
	notifType := models.NotifTypeTask
	if req.Type == models.NotifTypeAssignment {
		notifType = models.NotifTypeAssignment
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec, err := h.Records.Create(ctx, models.Record{
		GroupID:     gid,
		Title:       title,
		Description: inputval.CleanText(req.Description),
		DueAt:       req.DueAt,
		MemberIDs:   g.RosterIDs(),
		CreatedBy:   u.UID,
	})
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	if _, err := h.Fanout.NotifyGroupMembers(ctx, notify.Input{
		GroupID:  gid,
		ActorUID: u.UID,
		EventRef: "record-created:" + rec.ID.Hex(),
		Type:     notifType,
		Title:    g.Name,
		Message:  u.Name + " added \"" + title + "\"",
		Target: models.Target{
			Screen:     "GroupDetail",
			GroupID:    gid,
			GroupName:  g.Name,
			InitialTab: initialTab(notifType),
		},
	}); err != nil {
		h.Log.Warn("record notification fanout failed",
			zap.String("group_id", gid.Hex()),
			zap.String("record_id", rec.ID.Hex()),
			zap.Error(err))
	}

	rec.GroupName = g.Name
	shared.Created(w, rec)
}

// HandleList lists the group's records, soonest due first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "records.HandleList"

	u, _ := auth.CurrentUser(r)
	g, gid, ok := h.memberGroup(w, r, u.UID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Records.ListByGroup(ctx, gid)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	for i := range recs {
		recs[i].GroupName = g.Name
	}
	shared.JSON(w, http.StatusOK, recs)
}

// HandleComplete marks a record completed.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "records.HandleComplete"

	u, _ := auth.CurrentUser(r)
	_, gid, ok := h.memberGroup(w, r, u.UID)
	if !ok {
		return
	}
	rid, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Records.Complete(ctx, gid, rid); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			shared.NotFound(w, "record not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// HandleDelete removes a record.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "records.HandleDelete"

	u, _ := auth.CurrentUser(r)
	_, gid, ok := h.memberGroup(w, r, u.UID)
	if !ok {
		return
	}
	rid, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Records.Delete(ctx, gid, rid); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			shared.NotFound(w, "record not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.NoContent(w)
}

// memberGroup loads the group from the URL and enforces membership.
// Non-members get 404, not 403; group existence is not leaked.
func (h *Handler) memberGroup(w http.ResponseWriter, r *http.Request, uid string) (models.Group, primitive.ObjectID, bool) {
	raw := chi.URLParam(r, "groupID")
	if !inputval.IsValidObjectID(raw) {
		shared.BadRequest(w, "invalid group id")
		return models.Group{}, primitive.NilObjectID, false
	}
	gid, _ := primitive.ObjectIDFromHex(raw)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			shared.NotFound(w, "group not found")
			return models.Group{}, primitive.NilObjectID, false
		}
		shared.Error(w, h.Log, "records.memberGroup", err)
		return models.Group{}, primitive.NilObjectID, false
	}

	for _, id := range g.RosterIDs() {
		if id == uid {
			return g, gid, true
		}
	}
	shared.NotFound(w, "group not found")
	return models.Group{}, primitive.NilObjectID, false
}

func recordIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	raw := chi.URLParam(r, "recordID")
	if !inputval.IsValidObjectID(raw) {
		shared.BadRequest(w, "invalid record id")
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(raw)
	return id, true
}

func initialTab(notifType string) string {
	if notifType == models.NotifTypeAssignment {
		return "Assignments"
	}
	return "Tasks"
}
