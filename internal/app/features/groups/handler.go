// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/features/shared"
	"github.com/dalemusser/edusync/internal/app/notify"
	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	membershipstore "github.com/dalemusser/edusync/internal/app/store/memberships"
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
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Records     *recordstore.Store
	Fanout      *notify.Fanout
	Log         *zap.Logger
}

func NewHandler(groups *groupstore.Store, memberships *membershipstore.Store, records *recordstore.Store, fanout *notify.Fanout, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:      groups,
		Memberships: memberships,
		Records:     records,
		Fanout:      fanout,
		Log:         logger,
	}
}

type groupView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toView(g models.Group) groupView {
	return groupView{
		ID:          g.ID.Hex(),
		Name:        g.Name,
		Description: g.Description,
		MemberCount: len(g.RosterIDs()),
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate creates a group with the caller as its first member.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleCreate"

	u, _ := auth.CurrentUser(r)

	var req createRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.BadRequest(w, "invalid request body")
		return
	}
	name := inputval.CleanText(strings.TrimSpace(req.Name))
	if name == "" {
		shared.BadRequest(w, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	creator := models.GroupMember{UID: u.UID, Name: u.Name, Role: "leader"}
	g, err := h.Groups.Create(ctx, models.Group{
		Name:        name,
		Description: inputval.CleanText(req.Description),
		CreatedBy:   u.UID,
	}, creator)
	if err != nil {
		if errors.Is(err, groupstore.ErrDuplicateGroupName) {
			shared.JSON(w, http.StatusConflict, map[string]string{"error": "a group with that name already exists"})
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}

	// The membership document drives the live watchers; the embedded
	// roster alone is not enough.
	if err := h.Memberships.Join(ctx, g.ID, creator); err != nil && !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		shared.Error(w, h.Log, op, err)
		return
	}

	h.Log.Info("group created", zap.String("group_id", g.ID.Hex()), zap.String("uid", u.UID))
	shared.Created(w, toView(g))
}

// HandleListMine lists the caller's groups.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleListMine"

	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	gs, err := h.Groups.ListByMember(ctx, u.UID)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	views := make([]groupView, 0, len(gs))
	for _, g := range gs {
		views = append(views, toView(g))
	}
	shared.JSON(w, http.StatusOK, views)
}

// HandleGet returns one group the caller belongs to.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleGet"

	u, _ := auth.CurrentUser(r)
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			shared.NotFound(w, "group not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	if !isMember(g, u.UID) {
		shared.NotFound(w, "group not found")
		return
	}
	shared.JSON(w, http.StatusOK, toView(g))
}

// HandleJoin adds the caller to the group and notifies the members.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleJoin"

	u, _ := auth.CurrentUser(r)
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			shared.NotFound(w, "group not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}

	err = h.Memberships.Join(ctx, gid, models.GroupMember{UID: u.UID, Name: u.Name, Role: "member"})
	if err != nil {
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			shared.JSON(w, http.StatusConflict, map[string]string{"error": "already a member"})
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}

	if _, err := h.Fanout.NotifyGroupMembers(ctx, notify.Input{
		GroupID:  gid,
		ActorUID: u.UID,
		EventRef: "join:" + u.UID,
		Type:     models.NotifTypeGroup,
		Title:    g.Name,
		Message:  u.Name + " joined the group",
		Target:   models.Target{Screen: "GroupDetail", GroupID: gid, GroupName: g.Name},
	}); err != nil {
		h.Log.Warn("join notification fanout failed", zap.String("group_id", gid.Hex()), zap.Error(err))
	}

	shared.JSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// HandleLeave removes the caller from the group. Idempotent.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleLeave"

	u, _ := auth.CurrentUser(r)
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Memberships.Leave(ctx, gid, u.UID); err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// HandleDelete deletes a group and everything scoped to it. Creator
// only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleDelete"

	u, _ := auth.CurrentUser(r)
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			shared.NotFound(w, "group not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	if g.CreatedBy != u.UID {
		shared.JSON(w, http.StatusForbidden, map[string]string{"error": "only the creator can delete a group"})
		return
	}

	// Memberships go last: deleting them wakes the members' watchers,
	// and by then the records are already gone.
	records, err := h.Records.DeleteByGroup(ctx, gid)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	memberships, err := h.Memberships.DeleteByGroup(ctx, gid)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}
	if _, err := h.Groups.Delete(ctx, gid); err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	h.Log.Info("group deleted",
		zap.String("group_id", gid.Hex()),
		zap.String("uid", u.UID),
		zap.Int64("records", records),
		zap.Int64("memberships", memberships))
	shared.NoContent(w)
}

type memberView struct {
	UID      string    `json:"uid"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// HandleMembers lists the group's memberships. Members only.
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	const op = "groups.HandleMembers"

	u, _ := auth.CurrentUser(r)
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			shared.NotFound(w, "group not found")
			return
		}
		shared.Error(w, h.Log, op, err)
		return
	}
	if !isMember(g, u.UID) {
		shared.NotFound(w, "group not found")
		return
	}

	ms, err := h.Memberships.ListByGroup(ctx, gid)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	views := make([]memberView, 0, len(ms))
	for _, m := range ms {
		views = append(views, memberView{UID: m.UID, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	shared.JSON(w, http.StatusOK, views)
}

func groupIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	raw := chi.URLParam(r, "groupID")
	if !inputval.IsValidObjectID(raw) {
		shared.BadRequest(w, "invalid group id")
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(raw)
	return id, true
}

func isMember(g models.Group, uid string) bool {
	for _, id := range g.RosterIDs() {
		if id == uid {
			return true
		}
	}
	return false
}
