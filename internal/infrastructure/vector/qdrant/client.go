package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/medassist/chat-backend/internal/core/domain"
)

const (
	denseVectorName  = "text-embedding"
	sparseVectorName = "sparse-embedding"
)

// Client talks to Qdrant over its HTTP API. Every collection is created
// with a named dense vector and a named sparse vector so the same schema
// serves both knowledge collections and per-user memory collections.
type Client struct {
	baseURL    string
	vectorSize int
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  map[string]bool
}

func New(baseURL string, vectorSize int) *Client {
	if vectorSize <= 0 {
		vectorSize = 384
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		vectorSize: vectorSize,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]bool),
	}
}

func (c *Client) EnsureCollection(ctx context.Context, collection string) error {
	c.ensureMu.Lock()
	if c.ensured[collection] {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     c.vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, reqBody, "ensure collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 409 means the collection already exists.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return statusError("ensure collection", resp)
	}

	c.ensureMu.Lock()
	c.ensured[collection] = true
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) QueryDense(ctx context.Context, collection string, vector []float32, limit int) (domain.RankedList, error) {
	return c.query(ctx, collection, map[string]any{
		"query":        vector,
		"using":        denseVectorName,
		"limit":        limit,
		"with_payload": true,
	}, "dense query")
}

func (c *Client) QuerySparse(ctx context.Context, collection string, vector domain.SparseVector, limit int) (domain.RankedList, error) {
	if vector.Empty() {
		return nil, nil
	}
	return c.query(ctx, collection, map[string]any{
		"query": map[string]any{
			"indices": vector.Indices,
			"values":  vector.Values,
		},
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}, "sparse query")
}

func (c *Client) query(ctx context.Context, collection string, reqBody map[string]any, operation string) (domain.RankedList, error) {
	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, reqBody, operation)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError(operation, resp)
	}

	var queryResp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}

	out := make(domain.RankedList, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		out = append(out, domain.CandidateDocument{
			ID:      pointIDString(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return out, nil
}

func (c *Client) Scroll(ctx context.Context, collection string, limit int) ([]domain.CandidateDocument, error) {
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, reqBody, "scroll")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError("scroll", resp)
	}

	var scrollResp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
		return nil, fmt.Errorf("decode scroll response: %w", err)
	}

	out := make([]domain.CandidateDocument, 0, len(scrollResp.Result.Points))
	for _, p := range scrollResp.Result.Points {
		out = append(out, domain.CandidateDocument{
			ID:      pointIDString(p.ID),
			Payload: p.Payload,
		})
	}
	return out, nil
}

func (c *Client) Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	type upsertPoint struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	body := make([]upsertPoint, 0, len(points))
	for _, point := range points {
		vector := map[string]any{
			denseVectorName: point.Dense,
		}
		if !point.Sparse.Empty() {
			vector[sparseVectorName] = map[string]any{
				"indices": point.Sparse.Indices,
				"values":  point.Sparse.Values,
			}
		}
		body = append(body, upsertPoint{
			ID:      point.ID,
			Vector:  vector,
			Payload: point.Payload,
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, map[string]any{"points": body}, "upsert")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("upsert", resp)
	}
	return nil
}

func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, map[string]any{"exact": true}, "count")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, statusError("count", resp)
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Result.Count, nil
}

func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, map[string]any{"points": ids}, "delete")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("delete", resp)
	}
	return nil
}

func (c *Client) DeleteByField(ctx context.Context, collection, field, value string) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": field,
					"match": map[string]any{
						"value": value,
					},
				},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, reqBody, "delete by field")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("delete by field", resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any, operation string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	return resp, nil
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func pointIDString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// HTTPStatusError carries the status code so the resilience layer can tell
// retryable server failures from permanent client errors.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "qdrant status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}
