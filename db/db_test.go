package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/oresults/config"
	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := Open(config.DriverSQLite, filepath.Join(t.TempDir(), "event.db"), false)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := CreateTables(context.Background(), db); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	return db
}

func TestCreateTablesIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := CreateTables(context.Background(), db); err != nil {
		t.Errorf("Second CreateTables failed: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x", false); err == nil {
		t.Error("Expected an error for an unknown driver")
	}
}

func TestLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	ctl := &models.Control{Label: "31"}
	mustInsert(t, db, ctl)
	mustInsert(t, db, &models.Station{ID: 31, ControlID: &ctl.ID})
	course := &models.Course{Code: "A"}
	mustInsert(t, db, course)
	mustInsert(t, db, &models.CourseControl{CourseID: course.ID, Position: 1, ControlID: ctl.ID})
	runner := &models.Runner{Name: "Ann"}
	mustInsert(t, db, runner)

	start := time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC)
	finish, at := start.Add(30*time.Minute), start.Add(10*time.Minute)
	run := &models.Run{CardID: 7, RunnerID: &runner.ID, CourseID: &course.ID, CardStart: &start, CardFinish: &finish, Complete: true}
	mustInsert(t, db, run)
	mustInsert(t, db, &models.Punch{RunID: run.ID, StationID: 31, CardTime: &at})

	snap, err := LoadSnapshot(ctx, db)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	got := snap.Run(run.ID)
	if got == nil || got.Course == nil || got.Runner == nil || len(got.Punches) != 1 {
		t.Fatalf("Expected a linked run, got %+v", got)
	}

	e := results.NewEvent(snap, results.Options{})
	val, err := e.Validate(got, nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if val.Status != models.StatusOK {
		t.Errorf("Expected OK, got %s", val.Status)
	}
}

func TestUpdateAndStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	run := &models.Run{CardID: 1}
	mustInsert(t, db, run)
	dq := models.StatusDisqualified
	run.Override = &dq
	if err := Update(ctx, db, run, "override"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	loaded := &models.Run{ID: run.ID}
	if err := db.NewSelect().Model(loaded).WherePK().Scan(ctx); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if loaded.Override == nil || *loaded.Override != models.StatusDisqualified {
		t.Errorf("Expected the override back, got %v", loaded.Override)
	}

	if err := Update(ctx, db, &models.Run{ID: 999}, "override"); err == nil {
		t.Error("Expected an error updating a missing row")
	}
}

func TestSaveUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := SaveUser(ctx, db, &models.User{Username: "ed", Password: "one"}); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	if err := SaveUser(ctx, db, &models.User{Username: "ed", Password: "two", Editor: true}); err != nil {
		t.Fatalf("SaveUser update failed: %v", err)
	}
	u, err := FindUser(ctx, db, "ed")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if u.Password != "two" || !u.Editor {
		t.Errorf("Expected the second save to win, got %+v", u)
	}
}

func mustInsert[T any](t *testing.T, db bun.IDB, row *T) {
	t.Helper()
	if err := Insert(context.Background(), db, row); err != nil {
		t.Fatalf("Insert %T failed: %v", row, err)
	}
}
