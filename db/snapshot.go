package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/oresults/models"
	"github.com/padraicbc/oresults/results"
)

// LoadSnapshot reads every event table and links the rows in memory.
func LoadSnapshot(ctx context.Context, db bun.IDB) (*results.Snapshot, error) {
	var t results.Tables
	steps := []struct {
		name string
		dest interface{}
	}{
		{"controls", &t.Controls},
		{"stations", &t.Stations},
		{"courses", &t.Courses},
		{"course controls", &t.CourseControls},
		{"categories", &t.Categories},
		{"teams", &t.Teams},
		{"runners", &t.Runners},
		{"runs", &t.Runs},
		{"punches", &t.Punches},
	}
	for _, s := range steps {
		if err := db.NewSelect().Model(s.dest).Order("id").Scan(ctx); err != nil {
			return nil, fmt.Errorf("load %s: %w", s.name, err)
		}
	}
	return results.NewSnapshot(t), nil
}

// Insert stores a new row and fills its generated primary key.
func Insert[T any](ctx context.Context, db bun.IDB, row *T) error {
	_, err := db.NewInsert().Model(row).Returning("id").Exec(ctx)
	return err
}

// Update writes the given columns of a row identified by its primary key.
func Update[T any](ctx context.Context, db bun.IDB, row *T, columns ...string) error {
	res, err := db.NewUpdate().Model(row).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %T: no such row", row)
	}
	return nil
}

// Delete removes a row identified by its primary key.
func Delete[T any](ctx context.Context, db bun.IDB, row *T) error {
	_, err := db.NewDelete().Model(row).WherePK().Exec(ctx)
	return err
}

// SaveUser creates the user or replaces its password and editor flag.
func SaveUser(ctx context.Context, db bun.IDB, user *models.User) error {
	_, err := db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE").
		Set("password = EXCLUDED.password").
		Set("editor = EXCLUDED.editor").
		Exec(ctx)
	return err
}

// FindUser looks a user up by name.
func FindUser(ctx context.Context, db bun.IDB, username string) (*models.User, error) {
	user := &models.User{}
	if err := db.NewSelect().Model(user).Where("username = ?", username).Scan(ctx); err != nil {
		return nil, err
	}
	return user, nil
}
