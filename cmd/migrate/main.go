// cmd/migrate/main.go
// Copies a legacy MySQL timing database into the results schema, keeping ids.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/timing?parseTime=true" \
//	DB_DRIVER=sqlite SQLITE_PATH=event.db \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/padraicbc/oresults/config"
	bundb "github.com/padraicbc/oresults/db"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.LoadTool()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/timing?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	dst := bundb.Setup(cfg)
	defer dst.Close()
	log.Printf("connected to %s", cfg.DBDriver)

	if err := migrate(ctx, myDB, dst); err != nil {
		log.Fatal(err)
	}
	log.Println("migration complete")
}

// migrate creates the schema and copies every legacy table in dependency
// order. Re-runs skip rows that already exist.
func migrate(ctx context.Context, src *sql.DB, dst *bun.DB) error {
	if err := bundb.CreateTables(ctx, dst); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	// Disable FK enforcement so we can load in bulk without strict ordering
	restore, err := relaxForeignKeys(ctx, dst)
	if err != nil {
		return fmt.Errorf("disable FK: %w", err)
	}
	defer restore()

	steps := []struct {
		name string
		fn   func(context.Context, *sql.DB, *bun.DB) (int, error)
	}{
		{"users", migrateUsers},
		{"controls", migrateControls},
		{"stations", migrateStations},
		{"courses", migrateCourses},
		{"course_controls", migrateCourseControls},
		{"categories", migrateCategories},
		{"teams", migrateTeams},
		{"runners", migrateRunners},
		{"runs", migrateRuns},
		{"punches", migratePunches},
	}

	for _, s := range steps {
		n, err := s.fn(ctx, src, dst)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", s.name, err)
		}
		log.Printf("%-15s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, dst)
	return nil
}

func relaxForeignKeys(ctx context.Context, db *bun.DB) (func(), error) {
	on, off := "SET session_replication_role = 'origin'", "SET session_replication_role = 'replica'"
	if db.Dialect().Name() == dialect.SQLite {
		on, off = "PRAGMA foreign_keys = ON", "PRAGMA foreign_keys = OFF"
	}
	if _, err := db.ExecContext(ctx, off); err != nil {
		return nil, err
	}
	return func() {
		if _, err := db.ExecContext(ctx, on); err != nil {
			log.Printf("re-enable FK: %v", err)
		}
	}, nil
}

// --- helpers ---

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

func nullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, dst bun.IDB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := dst.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows streams query results through scan and inserts them in batches.
func copyRows[T any](ctx context.Context, src *sql.DB, dst bun.IDB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := src.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, dst, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, dst, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// resetSequences advances each PG sequence to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, dst *bun.DB) {
	if dst.Dialect().Name() != dialect.PG {
		return
	}
	tables := []string{
		"users", "controls", "courses", "course_controls", "categories",
		"teams", "runners", "runs", "punches",
	}
	for _, table := range tables {
		seq := table + "_id_seq"
		q := fmt.Sprintf(
			"SELECT setval('%s', COALESCE((SELECT MAX(id) FROM %s), 1))",
			seq, table,
		)
		if _, err := dst.ExecContext(ctx, q); err != nil {
			log.Printf("reset seq %s: %v", seq, err)
		}
	}
	log.Println("sequences reset")
}
