package phototagger

import (
	"context"
	"database/sql"
	_ "embed"
	"sync"
	"time"

	"github.com/tailscale/squibble"
	_ "modernc.org/sqlite"
)

//go:embed db/latest_schema.sql
var dbSchema string

var schema = &squibble.Schema{
	Current: dbSchema,
}

// DB is the optional annotation log. It is a write-only record of what was
// written into which file; it is never consulted to skip or resume work.
type DB struct {
	mu sync.Mutex
	db *sql.DB

	filepath string
}

// Annotation is one row of the log: the metadata written into a single
// image file and when.
type Annotation struct {
	Id        int
	Path      string
	Caption   string
	Keywords  string
	Model     string
	CreatedAt time.Time
}

func (db *DB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.db.Close()
}

func NewDB(ctx context.Context, fname string) (*DB, error) {
	// Open the DB but flip on the cleaner timestamps from Go
	sqldb, err := sql.Open("sqlite", fname+"?_time_format=sqlite")
	if err != nil {
		return nil, err
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := schema.Apply(ctx, sqldb); err != nil {
		return nil, err
	}

	return &DB{db: sqldb, filepath: fname}, nil
}

// RecordAnnotation appends a row to the log and returns its id.
func (db *DB) RecordAnnotation(ctx context.Context, path, caption, keywords, model string, at time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO annotations
		(image_path, caption, keywords, model, created_at)
		VALUES (?,?,?,?,?)`,
		path, caption, keywords, model, at,
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// CountAnnotations returns the number of rows in the log.
func (db *DB) CountAnnotations(ctx context.Context) (int, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM annotations`)
	if row.Err() != nil {
		return 0, row.Err()
	}

	var na int
	if err := row.Scan(&na); err != nil {
		return 0, err
	}

	return na, nil
}

// Annotations returns every row of the log in insertion order.
func (db *DB) Annotations(ctx context.Context) ([]Annotation, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, image_path, caption, keywords, model, created_at
		FROM annotations
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var a Annotation

		var keywords sql.NullString
		err := rows.Scan(&a.Id, &a.Path, &a.Caption, &keywords, &a.Model, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		if keywords.Valid {
			a.Keywords = keywords.String
		}

		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return annotations, nil
}
