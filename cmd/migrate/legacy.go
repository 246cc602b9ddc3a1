package main

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"github.com/padraicbc/oresults/models"
)

// The legacy timing database uses camelCase columns and keeps the status
// override as the numeric status code.

func migrateUsers(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT id, username, password, editor FROM users",
		func(rows *sql.Rows) (models.User, error) {
			var r models.User
			err := rows.Scan(&r.ID, &r.Username, &r.Password, &r.Editor)
			return r, err
		})
}

func migrateControls(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT controlID, label, override FROM controls",
		func(rows *sql.Rows) (models.Control, error) {
			var r models.Control
			err := rows.Scan(&r.ID, &r.Label, &r.Override)
			return r, err
		})
}

func migrateStations(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT stationID, controlID FROM stations",
		func(rows *sql.Rows) (models.Station, error) {
			var (
				r         models.Station
				controlID sql.NullInt64
			)
			err := rows.Scan(&r.ID, &controlID)
			r.ControlID = nullInt64(controlID)
			return r, err
		})
}

func migrateCourses(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT courseID, code, length, climb FROM courses",
		func(rows *sql.Rows) (models.Course, error) {
			var (
				r             models.Course
				length, climb sql.NullFloat64
			)
			err := rows.Scan(&r.ID, &r.Code, &length, &climb)
			r.Length, r.Climb = nullFloat(length), nullFloat(climb)
			return r, err
		})
}

func migrateCourseControls(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT id, courseID, position, controlID, length, climb FROM courseControls",
		func(rows *sql.Rows) (models.CourseControl, error) {
			var (
				r             models.CourseControl
				length, climb sql.NullFloat64
			)
			err := rows.Scan(&r.ID, &r.CourseID, &r.Position, &r.ControlID, &length, &climb)
			r.Length, r.Climb = nullFloat(length), nullFloat(climb)
			return r, err
		})
}

func migrateCategories(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT categoryID, name FROM categories",
		func(rows *sql.Rows) (models.Category, error) {
			var r models.Category
			err := rows.Scan(&r.ID, &r.Name)
			return r, err
		})
}

func migrateTeams(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst, "SELECT teamID, name, number, categoryID FROM teams",
		func(rows *sql.Rows) (models.Team, error) {
			var (
				r          models.Team
				categoryID sql.NullInt64
			)
			err := rows.Scan(&r.ID, &r.Name, &r.Number, &categoryID)
			r.CategoryID = nullInt64(categoryID)
			return r, err
		})
}

func migrateRunners(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT runnerID, name, number, cardID, teamID, categoryID FROM runners",
		func(rows *sql.Rows) (models.Runner, error) {
			var (
				r                          models.Runner
				cardID, teamID, categoryID sql.NullInt64
			)
			err := rows.Scan(&r.ID, &r.Name, &r.Number, &cardID, &teamID, &categoryID)
			r.CardID, r.TeamID, r.CategoryID = nullInt64(cardID), nullInt64(teamID), nullInt64(categoryID)
			return r, err
		})
}

func migrateRuns(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		`SELECT runID, cardID, runnerID, courseID,
		        cardStart, manualStart, cardFinish, manualFinish,
		        cardCheck, manualCheck, cardClear, manualClear,
		        readout, complete, override
		 FROM runs`,
		func(rows *sql.Rows) (models.Run, error) {
			var (
				r                        models.Run
				runnerID, courseID       sql.NullInt64
				cardStart, manualStart   sql.NullTime
				cardFinish, manualFinish sql.NullTime
				cardCheck, manualCheck   sql.NullTime
				cardClear, manualClear   sql.NullTime
				readout                  sql.NullTime
				override                 sql.NullInt64
			)
			if err := rows.Scan(&r.ID, &r.CardID, &runnerID, &courseID,
				&cardStart, &manualStart, &cardFinish, &manualFinish,
				&cardCheck, &manualCheck, &cardClear, &manualClear,
				&readout, &r.Complete, &override); err != nil {
				return r, err
			}
			r.RunnerID, r.CourseID = nullInt64(runnerID), nullInt64(courseID)
			r.CardStart, r.ManualStart = nullTime(cardStart), nullTime(manualStart)
			r.CardFinish, r.ManualFinish = nullTime(cardFinish), nullTime(manualFinish)
			r.CardCheck, r.ManualCheck = nullTime(cardCheck), nullTime(manualCheck)
			r.CardClear, r.ManualClear = nullTime(cardClear), nullTime(manualClear)
			r.ReadoutTime = nullTime(readout)
			if override.Valid {
				st := models.Status(override.Int64)
				if st.Valid() {
					r.Override = &st
				}
			}
			return r, nil
		})
}

func migratePunches(ctx context.Context, src *sql.DB, dst *bun.DB) (int, error) {
	return copyRows(ctx, src, dst,
		"SELECT punchID, runID, stationID, cardTime, manualTime, ignored, sequence FROM punches",
		func(rows *sql.Rows) (models.Punch, error) {
			var (
				r                    models.Punch
				cardTime, manualTime sql.NullTime
				sequence             sql.NullInt64
			)
			err := rows.Scan(&r.ID, &r.RunID, &r.StationID, &cardTime, &manualTime, &r.Ignore, &sequence)
			r.CardTime, r.ManualTime = nullTime(cardTime), nullTime(manualTime)
			r.Sequence = nullInt(sequence)
			return r, err
		})
}
