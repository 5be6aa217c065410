// Package catalog exposes the gene catalog to view code over HTTP.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"genecatalog/pkg/catalog"
	"genecatalog/pkg/domain"
)

const apiRoot = "/api/v1/catalog"

// Catalog is the facade surface the handler needs. *catalog.Catalog
// satisfies it.
type Catalog interface {
	LoadGeneData(ctx context.Context) ([]domain.GeneRecord, error)
	Records() []domain.GeneRecord
	Loaded() bool
	CurrentSource() domain.SourceID
	CurrentSourceName() string
	Sources() []domain.SourceDescriptor
	SourceStatus(ctx context.Context) domain.AccessState
	SwitchSource(ctx context.Context, id domain.SourceID) ([]domain.GeneRecord, error)
	ChromosomeHistogram() []catalog.Bucket
	BiotypeHistogramForChromosome(chromosome string) []catalog.Bucket
	ChromosomeSeries(id string) (catalog.Series, error)
	BiotypeSeries(id string) (catalog.Series, error)
	Summary() domain.Summary
}

// Handler provides HTTP access to a Catalog.
type Handler struct {
	Catalog Catalog
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c}
}

type genesResponse struct {
	Source     domain.SourceID     `json:"source"`
	SourceName string              `json:"source_name"`
	Count      int                 `json:"count"`
	Genes      []domain.GeneRecord `json:"genes"`
}

type sourcesResponse struct {
	Current domain.SourceID           `json:"current"`
	Sources []domain.SourceDescriptor `json:"sources"`
}

type switchRequest struct {
	Source domain.SourceID `json:"source"`
}

type bucketsResponse struct {
	Buckets []catalog.Bucket `json:"buckets"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "gene catalog not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	route, ok := strings.CutPrefix(path, apiRoot+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	method := http.MethodGet
	if route == "source" {
		method = http.MethodPost
	}
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch route {
	case "genes":
		h.handleGenes(w, r)
	case "sources":
		writeJSON(w, http.StatusOK, sourcesResponse{Current: h.Catalog.CurrentSource(), Sources: h.Catalog.Sources()})
	case "status":
		writeJSON(w, http.StatusOK, h.Catalog.SourceStatus(r.Context()))
	case "source":
		h.handleSwitch(w, r)
	case "charts/chromosomes":
		h.handleChromosomeChart(w, r)
	case "charts/biotypes":
		h.handleBiotypeChart(w, r)
	case "summary":
		writeJSON(w, http.StatusOK, h.Catalog.Summary())
	default:
		writeError(w, http.StatusNotFound, "catalog endpoint not found")
	}
}

// handleGenes serves the loaded collection, loading it first when nothing
// has been loaded yet or reload=true.
func (h *Handler) handleGenes(w http.ResponseWriter, r *http.Request) {
	reload, _ := strconv.ParseBool(r.URL.Query().Get("reload"))
	if reload || !h.Catalog.Loaded() {
		records, err := h.Catalog.LoadGeneData(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		h.writeGenes(w, records)
		return
	}
	h.writeGenes(w, h.Catalog.Records())
}

func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid source switch payload")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	records, err := h.Catalog.SwitchSource(r.Context(), req.Source)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeGenes(w, records)
}

func (h *Handler) handleChromosomeChart(w http.ResponseWriter, r *http.Request) {
	gene := r.URL.Query().Get("gene")
	if gene == "" {
		writeJSON(w, http.StatusOK, bucketsResponse{Buckets: h.Catalog.ChromosomeHistogram()})
		return
	}
	series, err := h.Catalog.ChromosomeSeries(gene)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *Handler) handleBiotypeChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if gene := q.Get("gene"); gene != "" {
		series, err := h.Catalog.BiotypeSeries(gene)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, series)
		return
	}
	chromosome := q.Get("chromosome")
	if chromosome == "" {
		writeError(w, http.StatusBadRequest, "gene or chromosome is required")
		return
	}
	writeJSON(w, http.StatusOK, bucketsResponse{Buckets: h.Catalog.BiotypeHistogramForChromosome(chromosome)})
}

func (h *Handler) writeGenes(w http.ResponseWriter, records []domain.GeneRecord) {
	if records == nil {
		records = []domain.GeneRecord{}
	}
	writeJSON(w, http.StatusOK, genesResponse{
		Source:     h.Catalog.CurrentSource(),
		SourceName: h.Catalog.CurrentSourceName(),
		Count:      len(records),
		Genes:      records,
	})
}

// StatusFor maps a catalog error onto an HTTP status code.
func StatusFor(err error) int {
	if errors.Is(err, domain.ErrGeneNotFound) {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindUnknownSource:
		return http.StatusNotFound
	case domain.KindSourceUnavailable, domain.KindSuperseded:
		return http.StatusConflict
	case domain.KindNoSourceAvailable:
		return http.StatusServiceUnavailable
	case domain.KindFetchFailed, domain.KindParseFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorBody{Error: err.Error(), Kind: domain.KindOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
