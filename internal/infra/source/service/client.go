// Package service talks to the remote gene listing service and assembles
// complete record sets from its page-limited endpoint.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"genecatalog/internal/infra/source/file"
	"genecatalog/pkg/domain"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultHealthTimeout bounds a health check. It must stay well below
	// DefaultFetchTimeout so a fallback decision never looks like a hang.
	DefaultHealthTimeout = 5 * time.Second
	// DefaultFetchTimeout bounds each data request.
	DefaultFetchTimeout = 10 * time.Second

	apiPrefix     = "/api/v1"
	healthyStatus = "healthy"
	maxErrorBody  = 512
)

// Row is one gene as the listing service encodes it.
type Row struct {
	ID             int64  `json:"id"`
	Ensembl        string `json:"ensembl"`
	GeneSymbol     string `json:"gene_symbol"`
	Name           string `json:"name"`
	Biotype        string `json:"biotype"`
	Chromosome     string `json:"chromosome"`
	SeqRegionStart int64  `json:"seq_region_start"`
	SeqRegionEnd   int64  `json:"seq_region_end"`
}

// Record renames the wire fields onto the canonical model. The server row
// id is not part of the model and is dropped.
func (r Row) Record() domain.GeneRecord {
	return domain.GeneRecord{
		ID:          strings.TrimSpace(r.Ensembl),
		Symbol:      strings.TrimSpace(r.GeneSymbol),
		Description: strings.TrimSpace(r.Name),
		Biotype:     strings.TrimSpace(r.Biotype),
		Chromosome:  strings.TrimSpace(r.Chromosome),
		RegionStart: nonNegative(r.SeqRegionStart),
		RegionEnd:   nonNegative(r.SeqRegionEnd),
	}
}

// UnmarshalJSON decodes a row field by field. A field of the wrong JSON type
// normalizes to its zero value instead of failing the page, and a row that
// is not an object decodes as an empty row, which is later dropped for its
// missing ID.
func (r *Row) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		*r = Row{}
		return nil
	}
	*r = Row{
		ID:             rawInt(fields["id"]),
		Ensembl:        rawText(fields["ensembl"]),
		GeneSymbol:     rawText(fields["gene_symbol"]),
		Name:           rawText(fields["name"]),
		Biotype:        rawText(fields["biotype"]),
		Chromosome:     rawText(fields["chromosome"]),
		SeqRegionStart: rawInt(fields["seq_region_start"]),
		SeqRegionEnd:   rawInt(fields["seq_region_end"]),
	}
	return nil
}

// rawText accepts a JSON string or number; anything else is empty.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawInt accepts a JSON number or numeric string with the same rules as
// file.ParseCoordinate.
func rawInt(raw json.RawMessage) int64 {
	return file.ParseCoordinate(strings.TrimSpace(rawText(raw)))
}

// RowFromStored encodes a stored gene in the listing service wire format.
func RowFromStored(g domain.StoredGene) Row {
	return Row{
		ID:             g.RowID,
		Ensembl:        g.ID,
		GeneSymbol:     g.Symbol,
		Name:           g.Description,
		Biotype:        g.Biotype,
		Chromosome:     g.Chromosome,
		SeqRegionStart: g.RegionStart,
		SeqRegionEnd:   g.RegionEnd,
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Client is a thin JSON client for the listing service.
type Client struct {
	baseURL       string
	http          *http.Client
	healthTimeout time.Duration
	fetchTimeout  time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHealthTimeout overrides DefaultHealthTimeout.
func WithHealthTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewClient constructs a client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       baseURL,
		http:          http.DefaultClient,
		healthTimeout: DefaultHealthTimeout,
		fetchTimeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Health reports whether the service answers its health endpoint with a
// healthy status inside the health timeout.
func (c *Client) Health(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	var body struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/health", &body); err != nil {
		return false, err
	}
	return body.Status == healthyStatus, nil
}

// ListGenes fetches one page of genes.
func (c *Client) ListGenes(ctx context.Context, q domain.GeneQuery) ([]Row, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(q.Skip))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Chromosome != "" {
		params.Set("chromosome", q.Chromosome)
	}
	if q.Biotype != "" {
		params.Set("biotype", q.Biotype)
	}
	var rows []Row
	err := c.fetch(ctx, apiPrefix+"/genes/?"+params.Encode(), &rows)
	return rows, err
}

// Gene fetches a gene by its server row id.
func (c *Client) Gene(ctx context.Context, rowID int64) (Row, error) {
	var row Row
	err := c.fetch(ctx, fmt.Sprintf("%s/genes/%d", apiPrefix, rowID), &row)
	return row, err
}

// ByAccession fetches a gene by its Ensembl accession.
func (c *Client) ByAccession(ctx context.Context, accession string) (Row, error) {
	var row Row
	err := c.fetch(ctx, apiPrefix+"/genes/search/ensembl/"+url.PathEscape(accession), &row)
	return row, err
}

// Search queries the symbol or name search endpoint.
func (c *Client) Search(ctx context.Context, field domain.SearchField, term string, exact bool) ([]Row, error) {
	switch field {
	case domain.SearchSymbol, domain.SearchName:
	default:
		return nil, fmt.Errorf("unsupported search field %q", field)
	}
	path := fmt.Sprintf("%s/genes/search/%s/%s?exact=%t", apiPrefix, field, url.PathEscape(term), exact)
	var rows []Row
	err := c.fetch(ctx, path, &rows)
	return rows, err
}

// Stats fetches the collection summary.
func (c *Client) Stats(ctx context.Context) (domain.Summary, error) {
	var s domain.Summary
	err := c.fetch(ctx, apiPrefix+"/genes/stats/summary", &s)
	return s, err
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.getJSON(ctx, c.baseURL+path, out)
}

// getJSON issues a GET and decodes the body. Transport and status failures
// are FetchFailed; an undecodable body is ParseFailed.
func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.NewError(domain.KindFetchFailed, domain.SourceService,
			&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))})
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.NewError(domain.KindFetchFailed, domain.SourceService, err)
		}
		return domain.NewError(domain.KindParseFailed, domain.SourceService, fmt.Errorf("decode %s: %w", req.URL.Path, err))
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
