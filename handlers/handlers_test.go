package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/padraicbc/oresults/config"
	bundb "github.com/padraicbc/oresults/db"
	mw "github.com/padraicbc/oresults/middleware"
	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

var (
	testKey = []byte("secret")
	t0      = time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC)
)

type testServer struct {
	e      *echo.Echo
	h      *Handler
	db     *bun.DB
	editor string
	viewer string

	course, category, c32  int64
	ann, bob, cid          int64 // runners
	annRun, bobRun, cidRun int64
	annPunch               int64
}

func mustInsert[T any](t *testing.T, db *bun.DB, row *T) {
	t.Helper()
	if err := bundb.Insert(context.Background(), db, row); err != nil {
		t.Fatalf("Insert %T failed: %v", row, err)
	}
}

func minutes(m int) *time.Time {
	v := t0.Add(time.Duration(m) * time.Minute)
	return &v
}

// newTestServer builds course A (31, 32) with three runners: Ann clean in
// 30:00, Bob in 25:00 without 32, Cid still out.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := bundb.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "event.db"), false)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := bundb.CreateTables(ctx, db); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}

	s := &testServer{db: db}
	course := &models.Course{Code: "A"}
	mustInsert(t, db, course)
	s.course = course.ID
	for i, code := range []int64{31, 32} {
		ctl := &models.Control{Label: fmt.Sprint(code)}
		mustInsert(t, db, ctl)
		mustInsert(t, db, &models.Station{ID: code, ControlID: &ctl.ID})
		mustInsert(t, db, &models.CourseControl{CourseID: course.ID, Position: i + 1, ControlID: ctl.ID})
		if code == 32 {
			s.c32 = ctl.ID
		}
	}
	cat := &models.Category{Name: "M21"}
	mustInsert(t, db, cat)
	s.category = cat.ID

	runner := func(name string, card int64) int64 {
		r := &models.Runner{Name: name, CardID: &card, CategoryID: &cat.ID}
		mustInsert(t, db, r)
		return r.ID
	}
	s.ann, s.bob, s.cid = runner("Ann", 1), runner("Bob", 2), runner("Cid", 3)

	run := func(runner, card int64, finish *time.Time, complete bool) int64 {
		r := &models.Run{CardID: card, RunnerID: &runner, CourseID: &course.ID,
			CardStart: minutes(0), CardFinish: finish, ReadoutTime: finish, Complete: complete}
		mustInsert(t, db, r)
		return r.ID
	}
	s.annRun = run(s.ann, 1, minutes(30), true)
	s.bobRun = run(s.bob, 2, minutes(25), true)
	s.cidRun = run(s.cid, 3, nil, false)

	p := &models.Punch{RunID: s.annRun, StationID: 31, CardTime: minutes(10)}
	mustInsert(t, db, p)
	s.annPunch = p.ID
	mustInsert(t, db, &models.Punch{RunID: s.annRun, StationID: 32, CardTime: minutes(20)})
	mustInsert(t, db, &models.Punch{RunID: s.bobRun, StationID: 31, CardTime: minutes(10)})
	mustInsert(t, db, &models.Punch{RunID: s.cidRun, StationID: 31, CardTime: minutes(12)})

	for name, editor := range map[string]bool{"ed": true, "vi": false} {
		hash, err := HashPasswordForUser(name, "pw-"+name)
		if err != nil {
			t.Fatalf("HashPasswordForUser failed: %v", err)
		}
		if err := bundb.SaveUser(ctx, db, &models.User{Username: name, Password: hash, Editor: editor}); err != nil {
			t.Fatalf("SaveUser failed: %v", err)
		}
	}

	s.h = New(db, testKey, nil, func(snap *results.Snapshot) *results.Event {
		return results.NewEvent(snap, results.Options{})
	})
	if err := s.h.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	s.e = echo.New()
	s.h.Register(s.e)

	if s.editor, err = mw.NewToken(testKey, "ed", true, time.Hour); err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	if s.viewer, err = mw.NewToken(testKey, "vi", false, time.Hour); err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) ranking(t *testing.T, path string) rankingResponse {
	t.Helper()
	rec := s.do(t, http.MethodGet, path, s.viewer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
	}
	var out rankingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Decode ranking failed: %v", err)
	}
	return out
}

func summary(rows []resultRow) string {
	var b bytes.Buffer
	for _, r := range rows {
		fmt.Fprintf(&b, "%d %s %s %s;", r.Rank, r.Name, r.Status, r.Value)
	}
	return b.String()
}

func TestSignin(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name, user, pass string
		want             int
	}{
		{"unknown user", "nobody", "x", http.StatusBadRequest},
		{"wrong password", "ed", "nope", http.StatusUnauthorized},
		{"editor", "ed", "pw-ed", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/signin", "", credentials{Username: tt.user, Password: tt.pass})
			if rec.Code != tt.want {
				t.Fatalf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var out struct {
				Token  string `json:"token"`
				Editor bool   `json:"editor"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if out.Token == "" || !out.Editor {
				t.Errorf("Expected an editor token, got %+v", out)
			}
			if rec := s.do(t, http.MethodGet, "/api/courses", out.Token, nil); rec.Code != http.StatusOK {
				t.Errorf("Token should authorize reads, got %d", rec.Code)
			}
		})
	}
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/api/courses", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a token, got %d", rec.Code)
	}
	path := fmt.Sprintf("/api/controls/%d/override", s.c32)
	if rec := s.do(t, http.MethodPut, path, s.viewer, controlUpdate{Override: true}); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a viewer, got %d", rec.Code)
	}
}

func TestCourseRanking(t *testing.T) {
	s := newTestServer(t)
	out := s.ranking(t, fmt.Sprintf("/api/rankings/course/%d", s.course))
	if out.Key != fmt.Sprintf("course/%d", s.course) {
		t.Errorf("Unexpected key %q", out.Key)
	}
	want := "1 Ann OK 30:00;0 Cid NOT_COMPLETED ;0 Bob MISSING_CONTROLS 25:00;"
	if got := summary(out.Results); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if out.Results[1].Error == "" {
		t.Error("Expected the open run to carry its scoring error")
	}

	skipped := s.ranking(t, fmt.Sprintf("/api/rankings/course/%d?policy=skip", s.course))
	if len(skipped.Results) != 2 {
		t.Errorf("Expected the unscoreable run skipped, got %d rows", len(skipped.Results))
	}
}

func TestRankingErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		path string
		want int
	}{
		{"/api/rankings/course/999", http.StatusNotFound},
		{"/api/rankings/course/abc", http.StatusBadRequest},
		{fmt.Sprintf("/api/rankings/course/%d?policy=maybe", s.course), http.StatusBadRequest},
		{fmt.Sprintf("/api/rankings/course/%d?scorer=bogus", s.course), http.StatusBadRequest},
		{"/api/rankings/category/999/runners", http.StatusNotFound},
		{fmt.Sprintf("/api/rankings/category/%d/teams?leg=-1", s.category), http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodGet, tt.path, s.viewer, nil); rec.Code != tt.want {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.want, rec.Code)
		}
	}
}

func TestCategoryRunnersAndOpen(t *testing.T) {
	s := newTestServer(t)
	out := s.ranking(t, fmt.Sprintf("/api/rankings/category/%d/runners", s.category))
	if len(out.Results) != 3 || out.Results[0].Name != "Ann" || out.Results[0].Rank != 1 {
		t.Errorf("Unexpected category ranking %q", summary(out.Results))
	}
	open := s.ranking(t, "/api/rankings/open")
	if len(open.Results) != 1 || open.Results[0].Name != "Cid" {
		t.Errorf("Expected only Cid out, got %q", summary(open.Results))
	}
}

func TestSubjectValidateAndScore(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/api/subjects/run/%d/validation", s.bobRun), s.viewer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var val results.Validation
	if err := json.Unmarshal(rec.Body.Bytes(), &val); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Status != models.StatusMissingControls || len(val.Entries) != 2 {
		t.Errorf("Unexpected validation %+v", val)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/subjects/runner/%d/score", s.ann), s.viewer, nil)
	var sc scoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sc); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.Code != http.StatusOK || sc.Value != "30:00" {
		t.Errorf("Expected 30:00, got %d %+v", rec.Code, sc)
	}

	tests := []struct {
		path string
		want int
	}{
		{fmt.Sprintf("/api/subjects/run/%d/score", s.cidRun), http.StatusUnprocessableEntity},
		{"/api/subjects/run/999/score", http.StatusNotFound},
		{"/api/subjects/horse/1/score", http.StatusBadRequest},
		{fmt.Sprintf("/api/subjects/run/%d/validation?validator=bogus", s.annRun), http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodGet, tt.path, s.viewer, nil); rec.Code != tt.want {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.want, rec.Code)
		}
	}
}

func TestAddPunchRecomputesAndPersists(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/rankings/course/%d", s.course)
	s.ranking(t, path)

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/runs/%d/punches", s.bobRun), s.editor,
		newPunch{StationID: 32, ManualTime: minutes(20)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	want := "1 Bob OK 25:00;2 Ann OK 30:00;0 Cid NOT_COMPLETED ;"
	if got := summary(s.ranking(t, path).Results); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	if err := s.h.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := summary(s.ranking(t, path).Results); got != want {
		t.Errorf("After reload expected %q, got %q", want, got)
	}
}

func TestUpdatePunchAndDelete(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/punches/%d", s.annPunch)
	ignore := true
	rec := s.do(t, http.MethodPut, path, s.editor, punchUpdate{Ignore: &ignore})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := s.ranking(t, fmt.Sprintf("/api/rankings/course/%d", s.course))
	want := "0 Cid NOT_COMPLETED ;0 Bob MISSING_CONTROLS 25:00;0 Ann MISSING_CONTROLS 30:00;"
	if got := summary(out.Results); got != want {
		t.Errorf("Ignoring Ann's 31 should miss it: expected %q, got %q", want, got)
	}

	if rec := s.do(t, http.MethodDelete, path, s.editor, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, path, s.editor, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestClearManualTimeKeepsATime(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/runs/%d/punches", s.bobRun), s.editor,
		newPunch{StationID: 32, ManualTime: minutes(20)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var added models.Punch
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("Decode punch failed: %v", err)
	}

	tests := []struct {
		name string
		id   int64
		want int
	}{
		{"manual only", added.ID, http.StatusBadRequest},
		{"card time", s.annPunch, http.StatusOK},
	}
	for _, tt := range tests {
		rec := s.do(t, http.MethodPut, fmt.Sprintf("/api/punches/%d", tt.id), s.editor, punchUpdate{ClearManualTime: true})
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.want, rec.Code, rec.Body.String())
		}
	}

	if err := s.h.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	want := "1 Bob OK 25:00;2 Ann OK 30:00;0 Cid NOT_COMPLETED ;"
	if got := summary(s.ranking(t, fmt.Sprintf("/api/rankings/course/%d", s.course)).Results); got != want {
		t.Errorf("Expected the manual punch to survive, got %q", got)
	}
}

func TestRankingDuringReload(t *testing.T) {
	s := newTestServer(t)
	var builds atomic.Int64
	s.h.build = func(snap *results.Snapshot) *results.Event {
		if builds.Add(1)%2 == 0 {
			snap = results.NewSnapshot(results.Tables{})
		}
		return results.NewEvent(snap, results.Options{})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := s.h.Reload(context.Background()); err != nil {
				t.Errorf("Reload failed: %v", err)
				return
			}
		}
	}()

	path := fmt.Sprintf("/api/rankings/course/%d", s.course)
	for i := 0; i < 50; i++ {
		rec := s.do(t, http.MethodGet, path, s.viewer, nil)
		switch rec.Code {
		case http.StatusNotFound:
		case http.StatusOK:
			var out rankingResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("Decode ranking failed: %v", err)
			}
			if len(out.Results) != 3 {
				t.Errorf("Expected a found course to rank its 3 runs, got %d", len(out.Results))
			}
		default:
			t.Errorf("Unexpected status %d", rec.Code)
		}
	}
	wg.Wait()
}

func TestUpdateRun(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/runs/%d", s.annRun)

	bad := "ZZ"
	if rec := s.do(t, http.MethodPut, path, s.editor, runUpdate{Course: &bad}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown course, got %d", rec.Code)
	}

	dsq := models.StatusDisqualified
	if rec := s.do(t, http.MethodPut, path, s.editor, runUpdate{Override: &dsq}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := s.ranking(t, fmt.Sprintf("/api/rankings/course/%d", s.course))
	want := "0 Cid NOT_COMPLETED ;0 Bob MISSING_CONTROLS 25:00;0 Ann DISQUALIFIED 30:00;"
	if got := summary(out.Results); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	empty := ""
	if rec := s.do(t, http.MethodPut, path, s.editor, runUpdate{Course: &empty, ClearStatus: true}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	out = s.ranking(t, fmt.Sprintf("/api/rankings/course/%d", s.course))
	if len(out.Results) != 2 {
		t.Errorf("Ann should have left the course, got %q", summary(out.Results))
	}
}

func TestAssignCard(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/runners/%d/card", s.cid)
	if rec := s.do(t, http.MethodPut, path, s.editor, cardUpdate{Card: 1}); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for Ann's card, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, path, s.editor, cardUpdate{Card: 42}); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOverrideControl(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/rankings/course/%d", s.course)
	s.ranking(t, path)

	rec := s.do(t, http.MethodPut, fmt.Sprintf("/api/controls/%d/override", s.c32), s.editor, controlUpdate{Override: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := "1 Bob OK 25:00;2 Ann OK 30:00;0 Cid NOT_COMPLETED ;"
	if got := summary(s.ranking(t, path).Results); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
