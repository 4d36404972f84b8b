package vocab

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func encodeFloat32Blob(t *testing.T, vec []float32) []byte {
	t.Helper()
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func createEmbeddingsDB(t *testing.T, path string, tokens []string, vectors [][]float32) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE embeddings (token TEXT NOT NULL, vector BLOB NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	for i, tok := range tokens {
		if _, err := db.Exec(`INSERT INTO embeddings (token, vector) VALUES (?, ?)`,
			tok, encodeFloat32Blob(t, vectors[i])); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSQLiteSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.db")
	createEmbeddingsDB(t, path,
		[]string{"cat", "dog", "car"},
		[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}},
	)

	store, err := SQLiteSource{Path: path}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if store.Size() != 3 || store.Dimension() != 2 {
		t.Fatalf("Size=%d Dimension=%d", store.Size(), store.Dimension())
	}
	// rowid order defines the stable iteration order.
	if store.Token(0) != "cat" || store.Token(2) != "car" {
		t.Errorf("order: %q %q %q", store.Token(0), store.Token(1), store.Token(2))
	}
	vec, err := store.Lookup("DOG")
	if err != nil {
		t.Fatal(err)
	}
	if vec[0] != 0.9 {
		t.Errorf("dog vector = %v", vec)
	}
}

func TestSQLiteSource_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.db")
	createEmbeddingsDB(t, path,
		[]string{"a", "b"},
		[][]float32{{1, 0}, {1, 0, 0}},
	)
	_, err := SQLiteSource{Path: path}.Load()
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
}

func TestSQLiteSource_MissingDatabase(t *testing.T) {
	_, err := SQLiteSource{Path: filepath.Join(t.TempDir(), "missing.db")}.Load()
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
}

func TestSQLiteSource_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.db")
	createEmbeddingsDB(t, path, nil, nil)
	if _, err := (SQLiteSource{Path: path}).Load(); err == nil {
		t.Fatal("expected error for empty vocabulary")
	}
}
