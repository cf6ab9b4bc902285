package qdrant

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/infrastructure/resilience"
)

// ResilientStore wraps the raw client with retry and circuit breaking. It
// satisfies the same vector-store contract, so call sites take either.
type ResilientStore struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientStore(client *Client, executor *resilience.Executor) *ResilientStore {
	return &ResilientStore{client: client, executor: executor}
}

func (s *ResilientStore) EnsureCollection(ctx context.Context, collection string) error {
	return s.execute(ctx, "qdrant.ensure_collection", func(ctx context.Context) error {
		return s.client.EnsureCollection(ctx, collection)
	})
}

func (s *ResilientStore) QueryDense(ctx context.Context, collection string, vector []float32, limit int) (domain.RankedList, error) {
	var out domain.RankedList
	err := s.execute(ctx, "qdrant.query_dense", func(ctx context.Context) error {
		var callErr error
		out, callErr = s.client.QueryDense(ctx, collection, vector, limit)
		return callErr
	})
	return out, err
}

func (s *ResilientStore) QuerySparse(ctx context.Context, collection string, vector domain.SparseVector, limit int) (domain.RankedList, error) {
	var out domain.RankedList
	err := s.execute(ctx, "qdrant.query_sparse", func(ctx context.Context) error {
		var callErr error
		out, callErr = s.client.QuerySparse(ctx, collection, vector, limit)
		return callErr
	})
	return out, err
}

func (s *ResilientStore) Scroll(ctx context.Context, collection string, limit int) ([]domain.CandidateDocument, error) {
	var out []domain.CandidateDocument
	err := s.execute(ctx, "qdrant.scroll", func(ctx context.Context) error {
		var callErr error
		out, callErr = s.client.Scroll(ctx, collection, limit)
		return callErr
	})
	return out, err
}

func (s *ResilientStore) Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error {
	return s.execute(ctx, "qdrant.upsert", func(ctx context.Context) error {
		return s.client.Upsert(ctx, collection, points)
	})
}

func (s *ResilientStore) Count(ctx context.Context, collection string) (int, error) {
	var out int
	err := s.execute(ctx, "qdrant.count", func(ctx context.Context) error {
		var callErr error
		out, callErr = s.client.Count(ctx, collection)
		return callErr
	})
	return out, err
}

func (s *ResilientStore) Delete(ctx context.Context, collection string, ids []string) error {
	return s.execute(ctx, "qdrant.delete", func(ctx context.Context) error {
		return s.client.Delete(ctx, collection, ids)
	})
}

func (s *ResilientStore) DeleteByField(ctx context.Context, collection, field, value string) error {
	return s.execute(ctx, "qdrant.delete_by_field", func(ctx context.Context) error {
		return s.client.DeleteByField(ctx, collection, field, value)
	})
}

func (s *ResilientStore) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, operation, fn, classifyQdrantError)
	} else {
		err = fn(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func classifyQdrantError(err error) resilience.ErrorClassification {
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
	class := classifyQdrantError(err)
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
