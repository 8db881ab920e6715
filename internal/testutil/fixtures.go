package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Safe to chain for routes with more than one parameter.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user profile keyed by the given UID.
func (f *Fixtures) CreateUser(ctx context.Context, uid, name string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		UID:       uid,
		Name:      name,
		Email:     uid + "@test.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateGroup inserts a group whose roster contains the given member
// UIDs. The first member is recorded as the creator.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, memberUIDs ...string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		MemberIDs: memberUIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, uid := range memberUIDs {
		g.Members = append(g.Members, models.GroupMember{UID: uid, Name: uid, Role: "member"})
	}
	if len(memberUIDs) > 0 {
		g.CreatedBy = memberUIDs[0]
		g.Members[0].Role = "leader"
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("create group: %v", err)
	}
	return g
}

// CreateMembership inserts a membership document linking the user to
// the group. It does not touch the embedded roster; pair it with
// CreateGroup when both sides matter.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID primitive.ObjectID, uid string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UID:      uid,
		Role:     "member",
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("create membership: %v", err)
	}
	return m
}

// CreateRecord inserts a record in the group with the given title and
// due date.
func (f *Fixtures) CreateRecord(ctx context.Context, groupID primitive.ObjectID, title string, dueAt time.Time) models.Record {
	f.t.Helper()

	rec := models.Record{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Title:     title,
		DueAt:     dueAt,
		Status:    models.StatusUpcoming,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("records").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("create record: %v", err)
	}
	return rec
}

// CreateNotification inserts a notification for the recipient.
func (f *Fixtures) CreateNotification(ctx context.Context, recipientUID string, read bool) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:           primitive.NewObjectID(),
		RecipientUID: recipientUID,
		Type:         models.NotifTypeGroup,
		Title:        "Test",
		Message:      "test notification",
		EventKey:     primitive.NewObjectID().Hex(),
		Read:         read,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("create notification: %v", err)
	}
	return n
}
