package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/neill-k/w2vapi/internal/models"
	"github.com/neill-k/w2vapi/internal/similarity"
	"github.com/neill-k/w2vapi/internal/vocab"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := models.ServiceInfo{
		Message: "Word Embeddings API",
		Model:   s.config.Model.Name,
		Status:  s.provider.State().String(),
	}
	if store, err := s.provider.Store(); err == nil {
		info.Dimensions = store.Dimension()
		info.Status = "running"
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleEmbedding(w http.ResponseWriter, r *http.Request) {
	var req models.WordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	store, err := s.provider.Store()
	if err != nil {
		s.respondUnavailable(w, err)
		return
	}
	vector, err := store.Lookup(req.Word)
	if err != nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Word %q not found in vocabulary", req.Word))
		return
	}
	s.respondJSON(w, http.StatusOK, models.EmbeddingResponse{Embedding: vector})
}

// handleEmbeddings looks up a batch of words. Unlike the single-word
// endpoint, a missing word maps to a null embedding and never fails the
// rest of the batch.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req models.WordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	store, err := s.provider.Store()
	if err != nil {
		s.respondUnavailable(w, err)
		return
	}
	// Results are keyed by the word as requested, not its normalized form.
	results := make(map[string]models.BatchEmbedding, len(req.Words))
	for _, word := range req.Words {
		vector, err := store.Lookup(word)
		if err != nil {
			results[word] = models.BatchEmbedding{}
			continue
		}
		results[word] = models.BatchEmbedding{Embedding: vector}
	}
	s.respondJSON(w, http.StatusOK, models.BatchEmbeddingResponse{Results: results})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	n := s.config.Similar.DefaultLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid n %q: must be a positive integer", raw))
			return
		}
		n = parsed
	}
	if n > s.config.Similar.MaxLimit {
		n = s.config.Similar.MaxLimit
	}

	store, err := s.provider.Store()
	if err != nil {
		s.respondUnavailable(w, err)
		return
	}
	ranked, err := s.ranker.MostSimilar(store, word, n)
	if err != nil {
		switch {
		case errors.Is(err, vocab.ErrNotFound):
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("Word %q not found in vocabulary", word))
		case errors.Is(err, similarity.ErrInvalidInput):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("similarity ranking failed", zap.String("word", word), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := models.SimilarWordsResponse{SimilarWords: make([]models.SimilarWord, len(ranked))}
	for i, res := range ranked {
		resp.SimilarWords[i] = models.SimilarWord{Word: res.Word, Similarity: res.Similarity}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.provider.State().String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":       s.provider.State().String(),
		"model":       s.config.Model.Name,
		"instance_id": s.instanceID,
	}
	if store, err := s.provider.Store(); err == nil {
		resp["vocabulary_size"] = store.Size()
		resp["dimensions"] = store.Dimension()
	}
	if err := s.provider.Err(); err != nil {
		resp["load_error"] = err.Error()
	}
	resp["config"] = map[string]interface{}{
		"model_source":          s.config.Model.Source,
		"background_load":       s.config.Model.BackgroundLoad,
		"similar_default_limit": s.config.Similar.DefaultLimit,
		"similar_max_limit":     s.config.Similar.MaxLimit,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondUnavailable maps a provider error to a 503 with the current state.
func (s *Server) respondUnavailable(w http.ResponseWriter, err error) {
	s.logger.Debug("request rejected, store not ready",
		zap.String("state", s.provider.State().String()), zap.Error(err))
	s.respondError(w, http.StatusServiceUnavailable,
		fmt.Sprintf("model not available (state: %s)", s.provider.State()))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
