package records

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/app/notify"
	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	notificationstore "github.com/dalemusser/edusync/internal/app/store/notifications"
	recordstore "github.com/dalemusser/edusync/internal/app/store/records"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"

	"go.uber.org/zap"
)

func setup(t *testing.T) (*Handler, models.Group) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	log := zap.NewNop()

	groups := groupstore.New(db)
	records := recordstore.New(db, groups, log)
	notifs := notificationstore.New(db.Client(), db, log)
	h := NewHandler(groups, records, notify.New(groups, notifs, log), log)

	g, err := groups.Create(ctx, models.Group{Name: "Algebra"},
		models.GroupMember{UID: "u1", Name: "Ana"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return h, g
}

func TestHandleCreateRecord(t *testing.T) {
	h, g := setup(t)

	body := map[string]interface{}{
		"title":       "Problem set 3",
		"description": "chapters 5-6",
		"dueAt":       time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"type":        "assignment",
	}
	req := testutil.NewRequest(t, "POST", "/groups/"+g.ID.Hex()+"/records", body, testutil.SomeUser("u1"))
	req = testutil.WithChiURLParam(req, "groupID", g.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got models.Record
	testutil.DecodeJSON(t, rec, &got)
	if got.Title != "Problem set 3" || got.GroupName != "Algebra" {
		t.Errorf("record = %+v", got)
	}
	if got.Status != models.StatusUpcoming {
		t.Errorf("Status = %q", got.Status)
	}
	if len(got.MemberIDs) != 1 {
		t.Errorf("MemberIDs = %v, want roster snapshot", got.MemberIDs)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	h, g := setup(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"dueAt": time.Now().Format(time.RFC3339)}},
		{"missing dueAt", map[string]interface{}{"title": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewRequest(t, "POST", "/groups/"+g.ID.Hex()+"/records", tc.body, testutil.SomeUser("u1"))
			req = testutil.WithChiURLParam(req, "groupID", g.ID.Hex())
			rec := httptest.NewRecorder()
			h.HandleCreate(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleListRequiresMembership(t *testing.T) {
	h, g := setup(t)

	req := testutil.NewRequest(t, "GET", "/groups/"+g.ID.Hex()+"/records", nil, testutil.SomeUser("outsider"))
	req = testutil.WithChiURLParam(req, "groupID", g.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("outsider status = %d, want 404", rec.Code)
	}
}

func TestHandleCompleteAndDelete(t *testing.T) {
	h, g := setup(t)
	ctx := testutil.TestContext(t)

	stored, err := h.Records.Create(ctx, models.Record{
		GroupID: g.ID,
		Title:   "lab report",
		DueAt:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	complete := testutil.NewRequest(t, "POST", "/complete", nil, testutil.SomeUser("u1"))
	complete = testutil.WithChiURLParam(complete, "groupID", g.ID.Hex())
	complete = testutil.WithChiURLParam(complete, "recordID", stored.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleComplete(rec, complete)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}

	recs, _ := h.Records.ListByGroup(ctx, g.ID)
	if recs[0].Status != models.StatusCompleted {
		t.Errorf("Status = %q, want completed", recs[0].Status)
	}

	del := testutil.NewRequest(t, "DELETE", "/", nil, testutil.SomeUser("u1"))
	del = testutil.WithChiURLParam(del, "groupID", g.ID.Hex())
	del = testutil.WithChiURLParam(del, "recordID", stored.ID.Hex())
	rec = httptest.NewRecorder()
	h.HandleDelete(rec, del)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// A second delete finds nothing.
	rec = httptest.NewRecorder()
	h.HandleDelete(rec, del)
	if rec.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", rec.Code)
	}
}
