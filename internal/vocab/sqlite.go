package vocab

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource loads the vocabulary from a SQLite database with an
// embeddings(token TEXT, vector BLOB) table. Vector blobs are little-endian
// float32; every blob must decode to the same dimensionality. Rows are read
// in rowid order so the store's tie-break order is stable across loads.
type SQLiteSource struct {
	Path string
}

// Describe implements Source.
func (s SQLiteSource) Describe() string {
	return fmt.Sprintf("sqlite %s", s.Path)
}

// Load implements Source.
func (s SQLiteSource) Load() (*Store, error) {
	store, err := s.load()
	if err != nil {
		return nil, &LoadError{Source: s.Describe(), Err: err}
	}
	return store, nil
}

func (s SQLiteSource) load() (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+s.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT token, vector FROM embeddings ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var tokens []string
	var vectors [][]float32
	dimensions := 0
	for rows.Next() {
		var token string
		var blob []byte
		if err := rows.Scan(&token, &blob); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(tokens), err)
		}
		if len(blob) == 0 || len(blob)%4 != 0 {
			return nil, fmt.Errorf("token %q: malformed vector blob of %d bytes", token, len(blob))
		}
		vec := decodeFloat32Blob(blob)
		if dimensions == 0 {
			dimensions = len(vec)
		} else if len(vec) != dimensions {
			return nil, fmt.Errorf("token %q: vector dimension mismatch: got %d, expected %d", token, len(vec), dimensions)
		}
		tokens = append(tokens, token)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return NewStore(tokens, vectors)
}

func decodeFloat32Blob(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
