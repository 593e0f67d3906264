package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/sqlite/migrations"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/vectormath"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DatabaseFile is the file name used inside the data directory.
const DatabaseFile = "vectors.db"

// Index is a SQLite-backed vector index.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex opens (or creates) the index in dataDir.
// If dataDir is empty, defaults to ~/.wikirag/data.
func NewIndex(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".wikirag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets queries run while a load is writing. Transactions begin
	// IMMEDIATE so concurrent upserts queue on busy_timeout instead of
	// failing to upgrade a read lock.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	x := &Index{
		db:   db,
		path: dbPath,
	}

	if err := x.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return x, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// migrate runs all pending migrations.
func (x *Index) migrate(fsys fs.FS) error {
	_, err := x.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := x.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vectors.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := x.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}

	return nil
}

// Collection describes a collection.
func (x *Index) Collection(ctx context.Context, name string) (*domain.Collection, error) {
	info, err := x.collection(ctx, x.db, name)
	if err != nil {
		return nil, err
	}

	row := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points WHERE collection = ?", name)
	if err := row.Scan(&info.PointCount); err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}
	return info, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (x *Index) collection(ctx context.Context, q queryer, name string) (*domain.Collection, error) {
	var (
		dimension int
		distance  string
	)
	row := q.QueryRowContext(ctx, "SELECT dimension, distance FROM collections WHERE name = ?", name)
	if err := row.Scan(&dimension, &distance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting collection %s: %w", name, err)
	}
	return &domain.Collection{
		Name:      name,
		Dimension: dimension,
		Distance:  domain.ParseDistance(distance),
		Status:    domain.CollectionStatusGreen,
	}, nil
}

// CreateCollection creates an empty collection.
func (x *Index) CreateCollection(ctx context.Context, name string, dimension int, distance domain.Distance) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("create collection: %w: name and positive dimension required", domain.ErrInvalidInput)
	}

	res, err := x.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING",
		name, dimension, string(distance))
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create collection %s: already exists", name)
	}
	return nil
}

// Upsert inserts or replaces chunks by ID in a single transaction. A
// replaced point keeps its sequence number.
func (x *Index) Upsert(ctx context.Context, name string, chunks []domain.Chunk) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	info, err := x.collection(ctx, tx, name)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("upsert into %s: %w: chunk without id", name, domain.ErrInvalidInput)
		}
		if err := info.CheckDimension(len(chunk.Vector)); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, seq, vector, payload)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM points WHERE collection = ?), ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		payload, err := json.Marshal(chunk.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload of %s: %w", chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, name, chunk.ID, name, vectormath.Encode(chunk.Vector), string(payload)); err != nil {
			return fmt.Errorf("upserting point %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query scans the collection in insertion order, scores every point and
// ranks the results.
func (x *Index) Query(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.ScoredChunk, error) {
	info, err := x.collection(ctx, x.db, name)
	if err != nil {
		return nil, err
	}
	if err := info.CheckDimension(len(vector)); err != nil {
		return nil, err
	}

	rows, err := x.db.QueryContext(ctx,
		"SELECT id, vector, payload FROM points WHERE collection = ? ORDER BY seq", name)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		var (
			id      string
			blob    []byte
			payload string
		)
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}

		chunk := domain.Chunk{ID: id, Vector: vectormath.Decode(blob)}
		if err := json.Unmarshal([]byte(payload), &chunk.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling payload of %s: %w", id, err)
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk: chunk,
			Score: vectormath.Score(info.Distance, vector, chunk.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}

	return vectormath.Rank(hits, topK, threshold), nil
}

// Count returns the number of points in a collection.
func (x *Index) Count(ctx context.Context, name string) (int, error) {
	info, err := x.Collection(ctx, name)
	if err != nil {
		return 0, err
	}
	return info.PointCount, nil
}

// DeleteCollection removes a collection and its points.
func (x *Index) DeleteCollection(ctx context.Context, name string) error {
	res, err := x.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	return nil
}
