// Package cli provides output formatting for the w2vapi command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/neill-k/w2vapi/internal/models"
)

// OutputFormat is the format for CLI result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteEmbedding writes a word's embedding vector to w in the given format.
func WriteEmbedding(w io.Writer, word string, embedding []float32, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"word": word, "embedding": embedding})
	default:
		fmt.Fprintf(w, "%s (%d dimensions)\n", word, len(embedding))
		for i, v := range embedding {
			if i > 0 {
				if i%8 == 0 {
					fmt.Fprintln(w)
				} else {
					fmt.Fprint(w, " ")
				}
			}
			fmt.Fprintf(w, "%9.5f", v)
		}
		fmt.Fprintln(w)
		return nil
	}
}

// WriteSimilarWords writes ranked neighbors to w in the given format.
func WriteSimilarWords(w io.Writer, word string, neighbors []models.SimilarWord, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.SimilarWordsResponse{SimilarWords: neighbors})
	default:
		fmt.Fprintf(w, "Most similar to %q:\n", word)
		for i, n := range neighbors {
			fmt.Fprintf(w, "%3d. %-24s %.4f\n", i+1, n.Word, n.Similarity)
		}
		return nil
	}
}
