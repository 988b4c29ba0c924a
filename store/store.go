// Package store persists distance matrices in a SQLite database so that
// expensive pairwise builds can be reused across analyses.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load for an unknown record ID.
var ErrNotFound = errors.New("store: record not found")

// timeLayout has fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is a stored distance matrix.
type Record struct {
	ID uuid.UUID
	// Metric is the canonical metric name the matrix was built with.
	Metric string
	// Params holds the build options, e.g. zero_tol or fast_mode.
	Params map[string]any
	// Labels optionally names the items, one per row.
	Labels    []string
	Matrix    *mat.Dense
	CreatedAt time.Time
}

// Summary describes a stored record without its matrix.
type Summary struct {
	ID        uuid.UUID
	Metric    string
	Size      int
	CreatedAt time.Time
}

// Store is a SQLite-backed distance matrix store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at path and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// SQLite serializes writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return errors.Wrapf(err, "pragma %q", p)
		}
	}
	return migrate(ctx, s.db)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec and returns its ID. A zero ID is replaced by a fresh one and a
// zero CreatedAt by the current time. Saving an existing ID overwrites it.
func (s *Store) Save(ctx context.Context, rec Record) (uuid.UUID, error) {
	if rec.Matrix == nil {
		return uuid.Nil, errors.New("store: record has no matrix")
	}
	r, c := rec.Matrix.Dims()
	if r != c {
		return uuid.Nil, errors.Newf("store: matrix is %dx%d, want square", r, c)
	}
	if rec.Labels != nil && len(rec.Labels) != r {
		return uuid.Nil, errors.Newf("store: %d labels for %d items", len(rec.Labels), r)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := rec.Matrix.MarshalBinary()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "encode matrix")
	}
	var params, labels []byte
	if len(rec.Params) > 0 {
		if params, err = yaml.Marshal(rec.Params); err != nil {
			return uuid.Nil, errors.Wrap(err, "encode params")
		}
	}
	if rec.Labels != nil {
		if labels, err = yaml.Marshal(rec.Labels); err != nil {
			return uuid.Nil, errors.Wrap(err, "encode labels")
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO distance_matrices (id, metric, size, params, labels, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Metric, r, string(params), string(labels),
		data, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "insert record")
	}
	return rec.ID, nil
}

// Load returns the record with the given ID.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*Record, error) {
	var (
		rec            Record
		rawID, created string
		params, labels string
		data           []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, metric, params, labels, data, created_at
		FROM distance_matrices WHERE id = ?`, id.String(),
	).Scan(&rawID, &rec.Metric, &params, &labels, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query record")
	}

	if rec.ID, err = uuid.Parse(rawID); err != nil {
		return nil, errors.Wrap(err, "parse id")
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, errors.Wrap(err, "parse created_at")
	}
	rec.Matrix = &mat.Dense{}
	if err := rec.Matrix.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "decode matrix")
	}
	if params != "" {
		if err := yaml.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, errors.Wrap(err, "decode params")
		}
	}
	if labels != "" {
		if err := yaml.Unmarshal([]byte(labels), &rec.Labels); err != nil {
			return nil, errors.Wrap(err, "decode labels")
		}
	}
	return &rec, nil
}

// List returns summaries of all records, newest first. A non-empty metric
// restricts the result to that metric.
func (s *Store) List(ctx context.Context, metric string) ([]Summary, error) {
	query := "SELECT id, metric, size, created_at FROM distance_matrices"
	var args []any
	if metric != "" {
		query += " WHERE metric = ?"
		args = append(args, metric)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query records")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum            Summary
			rawID, created string
		)
		if err := rows.Scan(&rawID, &sum.Metric, &sum.Size, &created); err != nil {
			return nil, err
		}
		if sum.ID, err = uuid.Parse(rawID); err != nil {
			return nil, errors.Wrap(err, "parse id")
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, errors.Wrap(err, "parse created_at")
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM distance_matrices WHERE id = ?", id.String())
	if err != nil {
		return errors.Wrap(err, "delete record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
