package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eldtechnologies/contextstack/internal/models"
)

const (
	maxIngestDocs  = 100
	indexTimeout   = 10 * time.Second
	maxDocsListing = 200
)

// IngestDocsRequest represents a bulk document ingest.
type IngestDocsRequest struct {
	Docs []models.Doc `json:"docs"`
}

// IngestDocsResponse lists the stored documents and how many were indexed.
type IngestDocsResponse struct {
	Docs    []models.Doc `json:"docs"`
	Indexed int          `json:"indexed"`
}

// DocListResponse represents the documents list response.
type DocListResponse struct {
	Docs []models.Doc `json:"docs"`
}

// IngestDocs handles POST /api/docs/ingest. Documents are stored first;
// indexing them for relevance search is best-effort.
func (h *Handler) IngestDocs(w http.ResponseWriter, r *http.Request) {
	var req IngestDocsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Docs) == 0 {
		h.Error(w, http.StatusBadRequest, "docs is required")
		return
	}
	if len(req.Docs) > maxIngestDocs {
		h.Error(w, http.StatusBadRequest, "too many docs (max 100)")
		return
	}
	for i := range req.Docs {
		doc := &req.Docs[i]
		doc.Title = strings.TrimSpace(doc.Title)
		if doc.Title == "" {
			h.Error(w, http.StatusBadRequest, "every doc needs a title")
			return
		}
		if doc.Source != "" && !models.ValidDocSource(doc.Source) {
			h.Error(w, http.StatusBadRequest, "source must be one of google-drive, notion, local, github")
			return
		}
	}

	created := make([]models.Doc, 0, len(req.Docs))
	for i := range req.Docs {
		doc, err := h.store.CreateDoc(r.Context(), &req.Docs[i])
		if err != nil {
			h.logger.Error().Err(err).Str("title", req.Docs[i].Title).Msg("failed to store doc")
			h.Error(w, http.StatusInternalServerError, "failed to store docs")
			return
		}
		created = append(created, *doc)
	}

	indexed := h.indexDocs(r.Context(), created)

	h.JSON(w, http.StatusCreated, IngestDocsResponse{Docs: created, Indexed: indexed})
}

// indexDocs submits docs to the NLP service and returns how many succeeded.
func (h *Handler) indexDocs(ctx context.Context, docs []models.Doc) int {
	if h.nlp == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexed := 0
	for i := range docs {
		if err := h.nlp.IndexDoc(ctx, &docs[i]); err != nil {
			h.logger.Warn().Err(err).
				Str("doc_id", docs[i].ID.String()).
				Msg("failed to index doc")
			continue
		}
		indexed++
	}
	return indexed
}

// ListDocs handles GET /api/docs.
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocs(r.Context(), queryLimit(r, 50, maxDocsListing))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list docs")
		h.Error(w, http.StatusInternalServerError, "failed to fetch docs")
		return
	}

	h.JSON(w, http.StatusOK, DocListResponse{Docs: docs})
}
