package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/greentravel/invoice-agent/internal/infrastructure/resilience"
)

// Client queries the retrieval endpoint. The retrieval/ranking internals are
// an external collaborator; only the answer text matters here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor

	collection        string
	topK              int
	useReranking      bool
	useQueryRewriting bool
}

type Options struct {
	Timeout           time.Duration
	Executor          *resilience.Executor
	Collection        string
	TopK              int
	UseReranking      bool
	UseQueryRewriting bool
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	topK := options.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{Timeout: timeout},
		executor:          options.Executor,
		collection:        options.Collection,
		topK:              topK,
		useReranking:      options.UseReranking,
		useQueryRewriting: options.UseQueryRewriting,
	}
}

// InvoiceQuery composes the natural-language retrieval query from whichever
// identifiers are supplied; with none it asks for all invoice information.
func InvoiceQuery(invoiceNumber, cufe, providerNIT string) string {
	parts := make([]string, 0, 3)
	if invoiceNumber != "" {
		parts = append(parts, "factura número "+invoiceNumber)
	}
	if cufe != "" {
		parts = append(parts, "CUFE "+cufe)
	}
	if providerNIT != "" {
		parts = append(parts, "proveedor NIT "+providerNIT)
	}
	if len(parts) == 0 {
		return "Dame toda la información de la factura"
	}
	return "Dame toda la información de la factura con " + strings.Join(parts, " y ")
}

// Ask posts the question and returns the answer text verbatim.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	payload := map[string]any{
		"question":            question,
		"top_k":               c.topK,
		"collection":          c.collection,
		"use_reranking":       c.useReranking,
		"use_query_rewriting": c.useQueryRewriting,
	}

	var answer string
	call := func(callCtx context.Context) error {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal ask request: %w", err)
		}
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/api/v1/ask", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create ask request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("rag ask request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &askStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
		}

		var decoded struct {
			Answer *string `json:"answer"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("decode ask response: %w", err)
		}
		if decoded.Answer == nil {
			return fmt.Errorf("rag response does not contain the answer field")
		}
		answer = *decoded.Answer
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "rag.ask", call, classifyRAGError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return answer, nil
}

type askStatusError struct {
	status int
	body   string
}

func (e *askStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("rag ask: HTTP %d", e.status)
	}
	return fmt.Sprintf("rag ask: HTTP %d: %s", e.status, e.body)
}

func classifyRAGError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}
	var statusErr *askStatusError
	if errors.As(err, &statusErr) {
		return resilience.Classification{
			Retryable:     statusErr.status >= 500,
			RecordFailure: statusErr.status >= 500,
		}
	}
	return resilience.Classification{Retryable: true, RecordFailure: true}
}
