package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/infrastructure/resilience"
)

// ResilientGenerator applies retry and circuit breaking to generation
// calls. Only the stream start is protected; once tokens are flowing a
// retry would replay the answer, so mid-stream failures surface as events.
type ResilientGenerator struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientGenerator(client *Client, executor *resilience.Executor) *ResilientGenerator {
	return &ResilientGenerator{client: client, executor: executor}
}

func (g *ResilientGenerator) GenerateStream(ctx context.Context, req domain.GenerationRequest) (<-chan domain.GenerationEvent, error) {
	var out <-chan domain.GenerationEvent
	call := func(ctx context.Context) error {
		var callErr error
		out, callErr = g.client.GenerateStream(ctx, req)
		return callErr
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "ollama.generate_stream", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama.generate_stream", err)
	}
	return out, nil
}

func (g *ResilientGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out string
	call := func(ctx context.Context) error {
		var callErr error
		out, callErr = g.client.GenerateText(ctx, prompt)
		return callErr
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama.generate", err)
	}
	return out, nil
}

func classifyOllamaError(err error) resilience.ErrorClassification {
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
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
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
	class := classifyOllamaError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
