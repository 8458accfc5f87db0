package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pdfqa/internal/store"
)

type documentView struct {
	store.DocumentRecord
	CachedAnswers int64 `json:"cached_answers"`
}

// handleListDocuments lists processed documents with their cached answer counts.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "answer cache disabled", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	records, err := s.store.ListDocuments(ctx)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	docs := make([]documentView, 0, len(records))
	for _, rec := range records {
		n, err := s.store.CountAnswers(ctx, rec.ContentHash)
		if err != nil {
			jsonError(w, "failed to count answers: "+err.Error(), http.StatusInternalServerError)
			return
		}
		docs = append(docs, documentView{DocumentRecord: rec, CachedAnswers: n})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleDeleteDocument deletes a document and its cached answers.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "answer cache disabled", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	if err := s.store.DeleteDocument(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("document deleted", "doc_id", docID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}
