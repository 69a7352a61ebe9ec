// Package sqlite persists the index generation as a SQLite database inside a
// dedicated directory that is deleted and recreated on every rebuild.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

const dbFile = "index.db"

// Storage implements vectorstore.Index on top of SQLite.
type Storage struct {
	dir    string
	logger *zap.Logger

	mu         sync.Mutex
	db         *sql.DB
	generation string
}

// NewStorage returns a store rooted at dir. Nothing is touched until Rebuild.
func NewStorage(dir string, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{dir: dir, logger: logger}
}

// Rebuild removes the persisted directory, writes chunks into a staging
// directory and moves it into place. A failure leaves no generation behind.
func (s *Storage) Rebuild(ctx context.Context, chunks []domain.EmbeddedChunk) (vectorstore.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dropLocked(); err != nil {
		return vectorstore.Handle{}, err
	}
	if err := vectorstore.Validate(chunks); err != nil {
		return vectorstore.Handle{}, err
	}

	gen := uuid.NewString()
	staging := s.dir + ".staging-" + gen[:8]
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return vectorstore.Handle{}, fmt.Errorf("create staging dir: %w", err)
	}
	if err := writeGeneration(ctx, filepath.Join(staging, dbFile), gen, chunks); err != nil {
		_ = os.RemoveAll(staging)
		return vectorstore.Handle{}, err
	}
	if err := os.Rename(staging, s.dir); err != nil {
		_ = os.RemoveAll(staging)
		return vectorstore.Handle{}, fmt.Errorf("activate generation: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(s.dir, dbFile))
	if err != nil {
		return vectorstore.Handle{}, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	s.generation = gen
	s.logger.Info("index generation written",
		zap.String("generation", gen),
		zap.String("dir", s.dir),
		zap.Int("chunks", len(chunks)))
	return vectorstore.Handle{Generation: gen, Location: s.dir, Size: len(chunks)}, nil
}

// Query loads the generation's vectors and ranks them against vector.
func (s *Storage) Query(ctx context.Context, h vectorstore.Handle, vector []float64, k int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil || h.Generation != s.generation {
		return nil, fmt.Errorf("%w: generation %q", domain.ErrIndexNotFound, h.Generation)
	}
	// An open handle keeps reading an unlinked file, so check the path itself.
	if _, err := os.Stat(filepath.Join(s.dir, dbFile)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexNotFound, err)
	}
	var stored string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'generation'`).Scan(&stored); err != nil {
		return nil, fmt.Errorf("%w: read generation: %w", domain.ErrIndexNotFound, err)
	}
	if stored != h.Generation {
		return nil, fmt.Errorf("%w: generation %q replaced by %q", domain.ErrIndexNotFound, h.Generation, stored)
	}

	entries, err := readEntries(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return vectorstore.TopK(entries, vector, k), nil
}

// Close releases the database handle. The persisted directory stays on disk.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = ""
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) dropLocked() error {
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	s.generation = ""
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove previous index: %w", err)
	}
	return nil
}

func writeGeneration(ctx context.Context, path, gen string, chunks []domain.EmbeddedChunk) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	schema := `
	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE chunks (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		vector BLOB NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (seq, id, content, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range chunks {
		metadataJSON, err := json.Marshal(c.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, i, c.Chunk.ID, c.Chunk.Text, string(metadataJSON), encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('generation', ?), ('dimensions', ?)`,
		gen, fmt.Sprint(len(chunks[0].Vector))); err != nil {
		return err
	}
	return tx.Commit()
}

func readEntries(ctx context.Context, db *sql.DB) ([]domain.EmbeddedChunk, error) {
	rows, err := db.QueryContext(ctx, `SELECT seq, id, content, metadata, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexNotFound, err)
	}
	defer rows.Close()

	var entries []domain.EmbeddedChunk
	for rows.Next() {
		var (
			seq          int
			id, content  string
			metadataJSON sql.NullString
			blob         []byte
		)
		if err := rows.Scan(&seq, &id, &content, &metadataJSON, &blob); err != nil {
			return nil, err
		}
		chunk := domain.Chunk{ID: id, Text: content, Index: seq}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		entries = append(entries, domain.EmbeddedChunk{Chunk: chunk, Vector: vec})
	}
	return entries, rows.Err()
}

func encodeVector(v []float64) []byte {
	const size = 8
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint64(out[i*size:], math.Float64bits(x))
	}
	return out
}

func decodeVector(b []byte) ([]float64, error) {
	const size = 8
	if len(b)%size != 0 {
		return nil, errors.New("corrupt vector blob")
	}
	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*size:]))
	}
	return out, nil
}
