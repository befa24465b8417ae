package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// SQLiteStore implements Store on a local SQLite database. Vectors are stored
// as little-endian float32 blobs and scored in Go, which keeps the purego
// build working without any native extension.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	area       TEXT NOT NULL,
	language   TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	text       TEXT NOT NULL,
	vector     BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file);
`

// NewSQLiteStore opens or creates the database at dbPath and initializes the
// schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for read concurrency, single writer as SQLite prefers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file, area, language, start_line, end_line, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file = excluded.file,
			area = excluded.area,
			language = excluded.language,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			text = excluded.text,
			vector = excluded.vector`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var blob []byte
		if len(r.Vector) > 0 {
			blob = serializeVector(r.Vector)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.File, r.Area, r.Language,
			r.StartLine, r.EndLine, r.Text, blob); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file, area, language, start_line, end_line, text, vector
		FROM chunks WHERE vector IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Record
		var blob []byte
		if err := rows.Scan(&r.ID, &r.File, &r.Area, &r.Language,
			&r.StartLine, &r.EndLine, &r.Text, &blob); err != nil {
			return nil, err
		}
		r.Vector = deserializeVector(blob)
		results = append(results, Result{Record: r, Score: cosineSimilarity(vector, r.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *SQLiteStore) DeleteByFile(ctx context.Context, file string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE file = ?", file)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", file, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file, area, language, start_line, end_line, text, vector
		FROM chunks ORDER BY file, start_line`)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var blob []byte
		if err := rows.Scan(&r.ID, &r.File, &r.Area, &r.Language,
			&r.StartLine, &r.EndLine, &r.Text, &blob); err != nil {
			return nil, err
		}
		r.Vector = deserializeVector(blob)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return Stats{}, err
	}

	var blob []byte
	dim := 0
	err := s.db.QueryRowContext(ctx, "SELECT vector FROM chunks WHERE vector IS NOT NULL LIMIT 1").Scan(&blob)
	if err == nil {
		dim = len(blob) / 4
	} else if err != sql.ErrNoRows {
		return Stats{}, err
	}

	return Stats{Count: count, Dimension: dim, Location: s.path}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// serializeVector encodes a float32 slice as a little-endian blob.
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector decodes a little-endian blob back to float32s.
func deserializeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
