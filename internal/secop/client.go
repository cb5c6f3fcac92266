// Package secop queries the datos.gov.co open-data API for SECOP II
// contracting processes.
package secop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"secop_bot/internal/model"
)

// DefaultBaseURL is the Socrata resource endpoint for SECOP II
// contracting processes.
const DefaultBaseURL = "https://www.datos.gov.co/resource/p6dx-8zbt.json"

// MaxLimit caps the number of records requested per query. Larger
// limits are clamped, not rejected.
const MaxLimit = 100

// ErrUpstreamUnavailable marks network failures, timeouts, and non-2xx
// responses from the open-data service.
var ErrUpstreamUnavailable = errors.New("open-data service unavailable")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues filtered queries against the open-data endpoint.
type Client struct {
	client   HTTPClient
	baseURL  string
	appToken string
	timeout  time.Duration
	retries  uint64
}

// New creates a Client with the given HTTP client and the default
// endpoint.
func New(client HTTPClient) *Client {
	return &Client{
		client:  client,
		baseURL: DefaultBaseURL,
		timeout: 10 * time.Second,
		retries: 2,
	}
}

// SetBaseURL overrides the endpoint (useful for testing and mirrors).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetAppToken sets the optional Socrata application token, which lifts
// the anonymous throttling limits.
func (c *Client) SetAppToken(token string) {
	c.appToken = token
}

// processRecord mirrors the dataset's column names.
type processRecord struct {
	ID           string `json:"id_del_proceso"`
	Name         string `json:"nombre_del_procedimiento"`
	Description  string `json:"descripci_n_del_procedimiento"`
	Entity       string `json:"entidad"`
	Department   string `json:"departamento_entidad"`
	City         string `json:"ciudad_entidad"`
	Modality     string `json:"modalidad_de_contratacion"`
	ContractType string `json:"tipo_de_contrato"`
	Phase        string `json:"fase"`
	BasePrice    string `json:"precio_base"`
	PublishedAt  string `json:"fecha_de_publicacion_del"`
	ProcessURL   struct {
		URL string `json:"url"`
	} `json:"urlproceso"`
}

// Query returns processes matching the filters, newest first. The
// limit is clamped to MaxLimit; non-positive values get the maximum.
// Any transport failure, timeout, or non-2xx status surfaces as
// ErrUpstreamUnavailable after retries are exhausted.
func (c *Client) Query(ctx context.Context, filters model.SearchFilters, limit int) ([]model.ProcurementItem, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	if where := BuildWhere(filters); where != "" {
		params.Set("$where", where)
	}
	params.Set("$order", "fecha_de_publicacion_del DESC")
	params.Set("$limit", fmt.Sprintf("%d", limit))

	records, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]model.ProcurementItem, 0, len(records))
	for _, r := range records {
		items = append(items, toItem(r))
	}
	return items, nil
}

// GetProcess looks up a single process by its id. Returns
// ErrNotFound if the dataset has no such record.
func (c *Client) GetProcess(ctx context.Context, id string) (*model.ProcurementItem, error) {
	params := url.Values{}
	params.Set("$where", fmt.Sprintf("id_del_proceso = '%s'", escapeLiteral(id)))
	params.Set("$limit", "1")

	records, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	item := toItem(records[0])
	return &item, nil
}

// ErrNotFound is returned by GetProcess when no record matches the id.
var ErrNotFound = errors.New("process not found")

func (c *Client) get(ctx context.Context, params url.Values) ([]processRecord, error) {
	var records []processRecord

	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		records, err = c.getOnce(ctx, params)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return records, nil
}

func (c *Client) getOnce(ctx context.Context, params url.Values) ([]processRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var records []processRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}

func toItem(r processRecord) model.ProcurementItem {
	name := r.Name
	if name == "" {
		name = r.Description
	}
	return model.ProcurementItem{
		ID:           r.ID,
		Name:         name,
		Entity:       r.Entity,
		Department:   r.Department,
		Municipality: r.City,
		Modality:     r.Modality,
		ContractType: r.ContractType,
		Phase:        r.Phase,
		BasePrice:    r.BasePrice,
		PublishedAt:  r.PublishedAt,
		URL:          r.ProcessURL.URL,
	}
}
