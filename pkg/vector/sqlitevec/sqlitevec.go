// Package sqlitevec stores embeddings in a local SQLite database through the
// sqlite-vec vec0 extension.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/glyph/pkg/vector"
)

// glyph_docs maps caller ids onto the integer rowids vec0 requires. A rowid
// survives overwrites, so ordering by it breaks score ties by first insert.
const schema = `
CREATE TABLE IF NOT EXISTS glyph_docs (
	rowid    INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id   TEXT NOT NULL UNIQUE,
	metadata TEXT NOT NULL DEFAULT '{}'
)`

type Config struct {
	// DBPath is a file path or ":memory:".
	DBPath string

	Dimensions uint
}

// Driver is a vector.Driver over sqlite-vec.
type Driver struct {
	db     *sql.DB
	dims   uint
	logger *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	switch {
	case c.DBPath == "":
		return nil, errors.New("database path is required")
	case c.Dimensions == 0:
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: ":memory:" stays shared across workers and writers serialize.
	db.SetMaxOpenConns(1)

	version, err := migrate(db, c.Dimensions)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec store ready",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", version,
	)

	return &Driver{db: db, dims: c.Dimensions, logger: logger}, nil
}

func migrate(db *sql.DB, dims uint) (string, error) {
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("sqlite-vec not available: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return "", fmt.Errorf("creating documents table: %w", err)
	}

	vec0 := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS glyph_vecs USING vec0(embedding float[%d])`, dims)
	if _, err := db.Exec(vec0); err != nil {
		return "", fmt.Errorf("creating vec0 table: %w", err)
	}
	return version, nil
}

// Add upserts docs in a single transaction. vec0 rows cannot be updated in
// place, so an overwrite deletes and reinserts the embedding under the same rowid.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if err := vector.CheckDimensions(doc.Embedding, d.dims); err != nil {
			return fmt.Errorf("doc %s: %w", doc.ID, err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("beginning transaction", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if err := upsert(ctx, tx, doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}

	d.logger.Debug("sqlite-vec upsert", "count", len(docs))
	return nil
}

func upsert(ctx context.Context, tx *sql.Tx, doc vector.Document) error {
	blob, err := sqlite_vec.SerializeFloat32(doc.Embedding)
	if err != nil {
		return storeErr("serializing embedding for "+doc.ID, err)
	}
	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return storeErr("encoding metadata for "+doc.ID, err)
	}

	var rowID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO glyph_docs(doc_id, metadata) VALUES (?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET metadata = excluded.metadata
		RETURNING rowid`, doc.ID, meta).Scan(&rowID)
	if err != nil {
		return storeErr("writing document "+doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM glyph_vecs WHERE rowid = ?`, rowID); err != nil {
		return storeErr("clearing embedding for "+doc.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO glyph_vecs(rowid, embedding) VALUES (?, ?)`, rowID, blob); err != nil {
		return storeErr("writing embedding for "+doc.ID, err)
	}
	return nil
}

// Query runs a vec0 KNN match. L2 distance maps to a similarity of
// 1 / (1 + distance) so higher is closer.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.CheckDimensions(embedding, d.dims); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, storeErr("serializing query", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT g.doc_id, g.metadata, v.distance
		FROM glyph_vecs v
		JOIN glyph_docs g ON g.rowid = v.rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance, v.rowid`, blob, topK)
	if err != nil {
		return nil, storeErr("querying vectors", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var (
			id, meta string
			distance float64
		)
		if err := rows.Scan(&id, &meta, &distance); err != nil {
			return nil, storeErr("scanning match", err)
		}
		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: id, Metadata: decodeMetadata(meta)},
			Score:    float32(1 / (1 + distance)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("reading matches", err)
	}

	return results, nil
}

// Get returns the stored documents among ids, embeddings included.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	in, args := inList(ids)
	rows, err := d.db.QueryContext(ctx, `
		SELECT g.doc_id, g.metadata, v.embedding
		FROM glyph_docs g
		LEFT JOIN glyph_vecs v ON v.rowid = g.rowid
		WHERE g.doc_id IN (`+in+`)
		ORDER BY g.rowid`, args...)
	if err != nil {
		return nil, storeErr("loading documents", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			id, meta string
			blob     []byte
		)
		if err := rows.Scan(&id, &meta, &blob); err != nil {
			return nil, storeErr("scanning document", err)
		}
		docs = append(docs, vector.Document{
			ID:        id,
			Metadata:  decodeMetadata(meta),
			Embedding: decodeFloat32(blob),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("reading documents", err)
	}
	return docs, nil
}

// Delete drops ids. Unknown ids are ignored.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("beginning transaction", err)
	}
	defer tx.Rollback()

	in, args := inList(ids)
	rowIDs, err := collectRowIDs(ctx, tx, `SELECT rowid FROM glyph_docs WHERE doc_id IN (`+in+`)`, args)
	if err != nil {
		return err
	}
	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM glyph_vecs WHERE rowid = ?`, rowID); err != nil {
			return storeErr(fmt.Sprintf("deleting embedding %d", rowID), err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM glyph_docs WHERE doc_id IN (`+in+`)`, args...); err != nil {
		return storeErr("deleting documents", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}

	d.logger.Debug("sqlite-vec delete", "count", len(rowIDs))
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

func collectRowIDs(ctx context.Context, tx *sql.Tx, query string, args []any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("resolving rowids", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scanning rowid", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", vector.ErrStore, op, err)
}

func inList(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func decodeFloat32(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func decodeMetadata(s string) map[string]string {
	var m map[string]string
	if json.Unmarshal([]byte(s), &m) != nil || len(m) == 0 {
		return nil
	}
	return m
}
