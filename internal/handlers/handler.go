package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/contextstack/internal/models"
	"github.com/eldtechnologies/contextstack/internal/nlp"
	"github.com/eldtechnologies/contextstack/internal/store"
)

// ContextService builds the aggregated context for a message.
type ContextService interface {
	GetContext(ctx context.Context, req models.ContextRequest) (*models.ContextResponse, error)
}

// NLPService is the part of the NLP client used outside aggregation.
type NLPService interface {
	IndexDoc(ctx context.Context, doc *models.Doc) error
	Health(ctx context.Context) (*nlp.HealthResponse, error)
}

// Pinger is implemented by backing stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators shared by all HTTP handlers.
type Deps struct {
	Store    store.DataStore
	Contexts ContextService
	NLP      NLPService
	Cache    Pinger // nil when the cache is in-process
	Logger   zerolog.Logger

	// ContextDefaultLimit applies when a context request carries no limit.
	ContextDefaultLimit int
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store        store.DataStore
	contexts     ContextService
	nlp          NLPService
	cache        Pinger
	logger       zerolog.Logger
	defaultLimit int
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	limit := deps.ContextDefaultLimit
	if limit <= 0 {
		limit = models.DefaultContextLimit
	}
	return &Handler{
		store:        deps.Store,
		contexts:     deps.Contexts,
		nlp:          deps.NLP,
		cache:        deps.Cache,
		logger:       deps.Logger.With().Str("component", "handlers").Logger(),
		defaultLimit: limit,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters, cutting on rune boundaries
	if utf8.RuneCountInString(name) > 100 {
		name = string([]rune(name)[:100])
	}

	return name
}

// queryLimit parses the "limit" query parameter, applying def and max.
func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > max {
		limit = max
	}
	return limit
}
