// Package models defines the request and response shapes of the embedding API.
package models

import (
	"fmt"
	"strings"
)

// WordRequest asks for the embedding of a single word.
type WordRequest struct {
	Word string `json:"word"`
}

// Validate ensures the request names a non-blank word.
func (r *WordRequest) Validate() error {
	if strings.TrimSpace(r.Word) == "" {
		return fmt.Errorf("word cannot be empty")
	}
	return nil
}

// WordsRequest asks for the embeddings of several words at once.
type WordsRequest struct {
	Words []string `json:"words"`
}

// Validate ensures the batch names at least one word.
func (r *WordsRequest) Validate() error {
	if len(r.Words) == 0 {
		return fmt.Errorf("words cannot be empty")
	}
	return nil
}

// EmbeddingResponse is the single-word response. The vector always has the
// store's full dimensionality.
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// BatchEmbedding is one entry of a batch response. A nil Embedding marshals
// to null and marks a word that is not in the vocabulary; a missing word
// never fails the rest of the batch.
type BatchEmbedding struct {
	Embedding []float32 `json:"embedding"`
}

// BatchEmbeddingResponse maps each requested word (as sent, un-normalized)
// to its embedding or null.
type BatchEmbeddingResponse struct {
	Results map[string]BatchEmbedding `json:"results"`
}

// SimilarWord is one ranked neighbor of the query word.
type SimilarWord struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// SimilarWordsResponse holds neighbors sorted by descending similarity.
type SimilarWordsResponse struct {
	SimilarWords []SimilarWord `json:"similar_words"`
}

// ServiceInfo is the GET / response.
type ServiceInfo struct {
	Message    string `json:"message"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Status     string `json:"status"`
}
