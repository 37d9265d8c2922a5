package greentravel

import (
	"bytes"
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

	"github.com/greentravel/invoice-agent/internal/infrastructure/resilience"
)

const (
	ResourceLiquidaciones = "liquidaciones"
	ResourceProvedores    = "provedores"
)

// deleteAck is returned for 204 responses: the gateway acknowledges the soft
// delete without a body.
const deleteAck = `{"success": true, "message": "Operación completada exitosamente"}`

// Client proxies the GreenTravel gateway's settlement and provider services.
// Responses are passed through as raw JSON; non-2xx statuses become errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

// ListParams carries pagination and the gateway's typed filters. Pointer
// fields are omitted when nil; estado distinguishes 0 (inactive) from unset.
type ListParams struct {
	Page   int
	Limit  int
	Search string

	Estado    *int
	IDReserva *int
	Factura   *int
	Tipo      *int
	Ciudad    *int
}

func (p ListParams) encode() url.Values {
	values := url.Values{}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))
	if p.Search != "" {
		values.Set("search", p.Search)
	}
	setIntParam(values, "estado", p.Estado)
	setIntParam(values, "id_reserva", p.IDReserva)
	setIntParam(values, "factura", p.Factura)
	setIntParam(values, "tipo", p.Tipo)
	setIntParam(values, "ciudad", p.Ciudad)
	return values
}

func setIntParam(values url.Values, key string, v *int) {
	if v != nil {
		values.Set(key, strconv.Itoa(*v))
	}
}

func (c *Client) List(ctx context.Context, resource string, params ListParams) (string, error) {
	path := fmt.Sprintf("/api/v1/%s?%s", resource, params.encode().Encode())
	return c.do(ctx, http.MethodGet, resource+".list", path, nil)
}

func (c *Client) Get(ctx context.Context, resource string, id int) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", resource, id)
	return c.do(ctx, http.MethodGet, resource+".get", path, nil)
}

func (c *Client) Create(ctx context.Context, resource string, body json.RawMessage) (string, error) {
	path := fmt.Sprintf("/api/v1/%s", resource)
	return c.do(ctx, http.MethodPost, resource+".create", path, body)
}

func (c *Client) Update(ctx context.Context, resource string, id int, body json.RawMessage) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", resource, id)
	return c.do(ctx, http.MethodPut, resource+".update", path, body)
}

// Delete performs a soft delete: the record is marked inactive downstream.
func (c *Client) Delete(ctx context.Context, resource string, id int) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/%d", resource, id)
	return c.do(ctx, http.MethodDelete, resource+".delete", path, nil)
}

func (c *Client) Stats(ctx context.Context, resource string) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/stats", resource)
	return c.do(ctx, http.MethodGet, resource+".stats", path, nil)
}

func (c *Client) do(ctx context.Context, method, operation, path string, body json.RawMessage) (string, error) {
	var result string
	call := func(callCtx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNoContent {
			result = deleteAck
			return nil
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read %s response: %w", operation, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{
				operation: operation,
				status:    resp.StatusCode,
				body:      strings.TrimSpace(string(raw)),
			}
		}
		result = string(raw)
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "greentravel."+operation, call, classifyGatewayError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

type statusError struct {
	operation string
	status    int
	body      string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.operation, e.status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.status, e.body)
}

func classifyGatewayError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return resilience.Classification{
			Retryable:     statusErr.status >= 500,
			RecordFailure: statusErr.status >= 500,
		}
	}
	return resilience.Classification{Retryable: true, RecordFailure: true}
}
