package vocab

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Source builds a Store from some persisted representation.
type Source interface {
	// Load parses the source and returns a validated store. Failures are
	// reported as *LoadError.
	Load() (*Store, error)
	// Describe identifies the source for logs and error messages.
	Describe() string
}

// FileSource loads the two-file model layout: a text vocabulary file and a
// NumPy .npy array of vectors (row-major, one row per vocabulary entry).
//
// The vocabulary file starts with a "count dimension" header line followed by
// one token per line, in the order matching the vector rows. The .npy file
// must be a C-order 2D array of little-endian float32 or float64 with shape
// (count, dimension).
type FileSource struct {
	VocabPath   string
	VectorsPath string
}

// Describe implements Source.
func (f FileSource) Describe() string {
	return fmt.Sprintf("files %s + %s", f.VocabPath, f.VectorsPath)
}

// Load implements Source.
func (f FileSource) Load() (*Store, error) {
	tokens, declaredDim, err := readVocabFile(f.VocabPath)
	if err != nil {
		return nil, &LoadError{Source: f.VocabPath, Err: err}
	}
	vectors, err := readNpyVectors(f.VectorsPath, len(tokens), declaredDim)
	if err != nil {
		return nil, &LoadError{Source: f.VectorsPath, Err: err}
	}
	store, err := NewStore(tokens, vectors)
	if err != nil {
		return nil, &LoadError{Source: f.Describe(), Err: err}
	}
	return store, nil
}

// readVocabFile parses the vocabulary file and returns the tokens and the
// declared dimension from the header line.
func readVocabFile(path string) ([]string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("empty vocabulary file")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 2 {
		return nil, 0, fmt.Errorf("malformed header %q, want \"count dimension\"", scanner.Text())
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count <= 0 {
		return nil, 0, fmt.Errorf("invalid vocabulary count %q", fields[0])
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return nil, 0, fmt.Errorf("invalid dimension %q", fields[1])
	}

	tokens := make([]string, 0, count)
	for scanner.Scan() {
		token := scanner.Text()
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if len(tokens) != count {
		return nil, 0, fmt.Errorf("token count mismatch: header declares %d, file has %d", count, len(tokens))
	}
	return tokens, dim, nil
}

var npyMagic = []byte("\x93NUMPY")

// npyHeader holds the fields of a parsed .npy header we care about.
type npyHeader struct {
	itemSize int // 4 for <f4, 8 for <f8
	rows     int
	cols     int
}

// readNpyHeader parses the .npy magic, version, and header dict.
func readNpyHeader(r *bufio.Reader) (*npyHeader, error) {
	preamble := make([]byte, 8)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, fmt.Errorf("read npy preamble: %w", err)
	}
	if !bytes.Equal(preamble[:6], npyMagic) {
		return nil, fmt.Errorf("not a npy file (bad magic)")
	}
	major := preamble[6]

	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d", major)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	header := string(raw)

	descr, err := npyHeaderValue(header, "descr")
	if err != nil {
		return nil, err
	}
	var itemSize int
	switch strings.Trim(descr, "'\" ") {
	case "<f4":
		itemSize = 4
	case "<f8":
		itemSize = 8
	default:
		return nil, fmt.Errorf("unsupported npy dtype %s (want <f4 or <f8)", descr)
	}

	order, err := npyHeaderValue(header, "fortran_order")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(order) != "False" {
		return nil, fmt.Errorf("fortran-order npy arrays are not supported")
	}

	shape, err := npyHeaderValue(header, "shape")
	if err != nil {
		return nil, err
	}
	rows, cols, err := parseNpyShape(shape)
	if err != nil {
		return nil, err
	}
	return &npyHeader{itemSize: itemSize, rows: rows, cols: cols}, nil
}

// npyHeaderValue extracts the raw value for key from the npy header dict.
func npyHeaderValue(header, key string) (string, error) {
	marker := "'" + key + "':"
	i := strings.Index(header, marker)
	if i < 0 {
		return "", fmt.Errorf("npy header missing %q", key)
	}
	rest := header[i+len(marker):]
	if key == "shape" {
		open := strings.Index(rest, "(")
		closing := strings.Index(rest, ")")
		if open < 0 || closing < open {
			return "", fmt.Errorf("malformed npy shape")
		}
		return rest[open+1 : closing], nil
	}
	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		return "", fmt.Errorf("malformed npy header near %q", key)
	}
	return strings.TrimSpace(rest[:end]), nil
}

// parseNpyShape parses "rows, cols" from the shape tuple body.
func parseNpyShape(body string) (int, int, error) {
	parts := strings.Split(body, ",")
	dims := make([]int, 0, 2)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed npy shape element %q", p)
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("npy array must be 2-dimensional, got shape %v", dims)
	}
	return dims[0], dims[1], nil
}

// readNpyVectors reads the flat vector block and validates its shape against
// the vocabulary count and declared dimension.
func readNpyVectors(path string, wantRows, wantCols int) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReaderSize(file, 1<<20)
	header, err := readNpyHeader(r)
	if err != nil {
		return nil, err
	}
	if header.rows != wantRows {
		return nil, fmt.Errorf("vector row count mismatch: npy has %d, vocabulary has %d", header.rows, wantRows)
	}
	if header.cols != wantCols {
		return nil, fmt.Errorf("vector dimension mismatch: npy has %d, vocabulary declares %d", header.cols, wantCols)
	}

	vectors := make([][]float32, header.rows)
	buf := make([]byte, header.cols*header.itemSize)
	for i := 0; i < header.rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("truncated vector data at row %d: %w", i, err)
		}
		row := make([]float32, header.cols)
		for j := 0; j < header.cols; j++ {
			switch header.itemSize {
			case 4:
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
			case 8:
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8 : (j+1)*8])))
			}
		}
		vectors[i] = row
	}
	// A payload longer than the declared shape means the header lies.
	var trailing [1]byte
	if _, err := io.ReadFull(r, trailing[:]); err != io.EOF {
		return nil, fmt.Errorf("trailing data after %d vector rows", header.rows)
	}
	return vectors, nil
}
