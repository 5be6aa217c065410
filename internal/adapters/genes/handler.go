// Package genes serves the paginated gene listing API that the
// service-backed source reads from.
package genes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"genecatalog/internal/infra/source/service"
	"genecatalog/pkg/domain"
)

const (
	apiRoot          = "/api/v1/genes"
	defaultListLimit = 100
)

// Logger is the subset of structured logging the handler emits.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Handler provides HTTP access to a gene store.
type Handler struct {
	Store  domain.GeneStore
	Logger Logger
}

// NewHandler constructs a listing service handler over store.
func NewHandler(store domain.GeneStore) *Handler {
	return &Handler{Store: store, Logger: noopLogger{}}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, "gene store not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := r.URL.Path
	switch {
	case path == "/health":
		h.handleHealth(w, r)
	case path == apiRoot || path == apiRoot+"/":
		h.handleList(w, r)
	case path == apiRoot+"/stats/summary":
		h.handleSummary(w, r)
	case strings.HasPrefix(path, apiRoot+"/search/"):
		h.handleSearch(w, r, strings.TrimPrefix(r.URL.EscapedPath(), apiRoot+"/search/"))
	case strings.HasPrefix(path, apiRoot+"/"):
		h.handleGet(w, r, strings.TrimPrefix(path, apiRoot+"/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.logger().Error("gene store ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := intParam(q, "skip", 0)
	if err != nil || skip < 0 {
		writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, err := intParam(q, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > service.MaxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(service.MaxPageSize))
		return
	}
	genes, err := h.Store.List(r.Context(), domain.GeneQuery{
		Skip:       skip,
		Limit:      limit,
		Chromosome: q.Get("chromosome"),
		Biotype:    q.Get("biotype"),
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows(genes))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, remainder string) {
	rowID, err := strconv.ParseInt(remainder, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "gene id must be an integer")
		return
	}
	g, err := h.Store.Get(r.Context(), rowID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.RowFromStored(g))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request, remainder string) {
	kind, term, ok := strings.Cut(remainder, "/")
	if !ok {
		writeError(w, http.StatusNotFound, "search endpoint not found")
		return
	}
	term, err := url.PathUnescape(term)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid search term")
		return
	}
	if strings.TrimSpace(term) == "" {
		writeError(w, http.StatusBadRequest, "search term cannot be empty")
		return
	}

	switch kind {
	case "ensembl":
		g, err := h.Store.FindByAccession(r.Context(), term)
		if err != nil {
			h.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, service.RowFromStored(g))
	case string(domain.SearchSymbol), string(domain.SearchName):
		exact, err := boolParam(r.URL.Query(), "exact")
		if err != nil {
			writeError(w, http.StatusBadRequest, "exact must be a boolean")
			return
		}
		genes, err := h.Store.Search(r.Context(), domain.SearchField(kind), term, exact)
		if err != nil {
			h.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows(genes))
	default:
		writeError(w, http.StatusNotFound, "search endpoint not found")
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Store.Summary(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrGeneNotFound) {
		writeError(w, http.StatusNotFound, "gene not found")
		return
	}
	h.logger().Error("gene store request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "database error: "+err.Error())
}

func (h *Handler) logger() Logger {
	if h.Logger == nil {
		return noopLogger{}
	}
	return h.Logger
}

func rows(genes []domain.StoredGene) []service.Row {
	out := make([]service.Row, len(genes))
	for i, g := range genes {
		out[i] = service.RowFromStored(g)
	}
	return out
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func boolParam(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
