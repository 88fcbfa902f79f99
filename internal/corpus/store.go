package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/candidex/candidex/internal/chunk"
	"github.com/candidex/candidex/internal/embed"
)

// ArtifactPath returns the artifact file for a dataset name inside dir.
// Each dataset gets its own file, so corpora for different datasets
// coexist and rebuilds only touch their own artifact.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+".corpus.db")
}

// SaveInfo is the metadata stored alongside the vectors.
type SaveInfo struct {
	Model   string
	Dims    int
	BuiltAt time.Time
}

func openArtifact(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus artifact: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return db, nil
}

// Save writes the corpus to a single SQLite artifact at path,
// replacing any previous artifact atomically via rename.
func Save(ctx context.Context, path string, c *Corpus, info SaveInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	// Build in a temp file so a crash mid-save leaves the old artifact
	// intact.
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	db, err := openArtifact(tmp)
	if err != nil {
		return err
	}

	if err := writeArtifact(ctx, db, c, info); err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := db.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func writeArtifact(ctx context.Context, db *sql.DB, c *Corpus, info SaveInfo) error {
	schema := `
	CREATE TABLE corpus_info (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE chunks (
		idx          INTEGER PRIMARY KEY,
		chunk_id     TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		chunk_type   TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		content      TEXT NOT NULL,
		metadata     TEXT NOT NULL,
		vector       BLOB NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create artifact schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin artifact write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	builtAt := info.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	infoRows := map[string]string{
		"model":    info.Model,
		"dims":     strconv.Itoa(c.Dimensions()),
		"chunks":   strconv.Itoa(c.Len()),
		"built_at": builtAt.Format(time.RFC3339),
	}
	for key, value := range infoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO corpus_info (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("write corpus info: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (idx, chunk_id, candidate_id, chunk_type, seq, content, metadata, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < c.Len(); i++ {
		ch := c.Chunk(i)
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			i, ch.ID, ch.CandidateID, string(ch.Type), ch.Seq, ch.Content,
			string(meta), embed.EncodeVector(c.vectors[i])); err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// Load reads a corpus artifact written by Save. A missing file returns
// ErrNotBuilt; a malformed artifact returns a descriptive error.
func Load(ctx context.Context, path string) (*Corpus, SaveInfo, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, SaveInfo{}, ErrNotBuilt
	}

	db, err := openArtifact(path)
	if err != nil {
		return nil, SaveInfo{}, err
	}
	defer func() { _ = db.Close() }()

	info, err := readInfo(ctx, db)
	if err != nil {
		return nil, SaveInfo{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT chunk_id, candidate_id, chunk_type, seq, content, metadata, vector
		FROM chunks ORDER BY idx`)
	if err != nil {
		return nil, SaveInfo{}, fmt.Errorf("read corpus chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []chunk.Chunk
	var vectors [][]float32
	for rows.Next() {
		var ch chunk.Chunk
		var chunkType, meta string
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.CandidateID, &chunkType, &ch.Seq, &ch.Content, &meta, &blob); err != nil {
			return nil, SaveInfo{}, fmt.Errorf("scan corpus chunk: %w", err)
		}
		ch.Type = chunk.Type(chunkType)
		if err := json.Unmarshal([]byte(meta), &ch.Metadata); err != nil {
			return nil, SaveInfo{}, fmt.Errorf("corpus artifact corrupt: metadata: %w", err)
		}
		chunks = append(chunks, ch)
		vectors = append(vectors, embed.DecodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, SaveInfo{}, fmt.Errorf("read corpus chunks: %w", err)
	}

	c, err := New(chunks, vectors)
	if err != nil {
		return nil, SaveInfo{}, fmt.Errorf("corpus artifact corrupt: %w", err)
	}
	if info.Dims != 0 && c.Len() > 0 && c.Dimensions() != info.Dims {
		return nil, SaveInfo{}, fmt.Errorf("corpus artifact corrupt: dims %d, info says %d", c.Dimensions(), info.Dims)
	}
	return c, info, nil
}

func readInfo(ctx context.Context, db *sql.DB) (SaveInfo, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM corpus_info`)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("corpus artifact corrupt: info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var info SaveInfo
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return SaveInfo{}, fmt.Errorf("corpus artifact corrupt: info: %w", err)
		}
		switch key {
		case "model":
			info.Model = value
		case "dims":
			info.Dims, _ = strconv.Atoi(value)
		case "built_at":
			info.BuiltAt, _ = time.Parse(time.RFC3339, value)
		}
	}
	return info, rows.Err()
}
