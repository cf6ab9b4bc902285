package embedding

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/infrastructure/resilience"
)

// ResilientClient wraps the embedding client with retry and circuit
// breaking. Sparse encoding is local and never retried.
type ResilientClient struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientClient(client *Client, executor *resilience.Executor) *ResilientClient {
	return &ResilientClient{client: client, executor: executor}
}

func (c *ResilientClient) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	call := func(ctx context.Context) error {
		var callErr error
		out, callErr = c.client.EmbedDense(ctx, text)
		return callErr
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama.embed", err)
	}
	return out, nil
}

func (c *ResilientClient) EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error) {
	return c.client.EmbedSparse(ctx, text)
}

func classifyEmbedError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyEmbedError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
