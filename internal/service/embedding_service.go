// Package service holds the application services composing the clustering
// engine, naming, ingestion, and query answering.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/keypool"
)

// EmbeddingClient defines the per-credential embedding transport.
type EmbeddingClient interface {
	EmbedDocuments(ctx context.Context, credential string, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, credential, text string) ([]float32, error)
}

// EmbeddingMetrics records per-call embedding outcomes. Nil disables recording.
type EmbeddingMetrics interface {
	RecordEmbeddingCall(ctx context.Context, outcome string, duration time.Duration)
}

// embeddingRotationBudget is how many credential rotations one embed call may
// consume before the pool is treated as exhausted.
const embeddingRotationBudget = 4

// EmbeddingService wraps the embedding client with key-pool rotation and an
// outbound rate limiter shared across requests.
type EmbeddingService struct {
	pool     *keypool.Pool
	client   EmbeddingClient
	provider string
	limiter  *rate.Limiter
	metrics  EmbeddingMetrics
}

// NewEmbeddingService creates an embedding service drawing credentials for
// provider from pool. limiter may be nil to disable rate limiting, metrics
// may be nil to disable recording.
func NewEmbeddingService(pool *keypool.Pool, client EmbeddingClient, provider string, limiter *rate.Limiter, metrics EmbeddingMetrics) *EmbeddingService {
	return &EmbeddingService{
		pool:     pool,
		client:   client,
		provider: provider,
		limiter:  limiter,
		metrics:  metrics,
	}
}

// EmbedDocuments embeds a batch of document texts, rotating credentials on
// rate-limit responses.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	err := s.withRotation(ctx, func(credential string) error {
		var callErr error
		vectors, callErr = s.client.EmbedDocuments(ctx, credential, texts)

		return callErr
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// EmbedQuery embeds one search query, rotating credentials on rate-limit
// responses.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	err := s.withRotation(ctx, func(credential string) error {
		var callErr error
		vector, callErr = s.client.EmbedQuery(ctx, credential, text)

		return callErr
	})
	if err != nil {
		return nil, err
	}

	return vector, nil
}

// withRotation acquires a credential and runs call, penalizing and rotating
// on rate limits. Non-rate-limit failures propagate immediately; exhausting
// the rotation budget surfaces as pool exhaustion, matching what the caller
// should tell the client (retry later).
func (s *EmbeddingService) withRotation(ctx context.Context, call func(credential string) error) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("embedding rate limiter: %w", err)
		}
	}

	for attempt := 0; attempt < embeddingRotationBudget; attempt++ {
		credential, err := s.pool.Acquire(s.provider)
		if err != nil {
			return err
		}

		start := time.Now()
		err = call(credential)
		s.recordCall(ctx, err, time.Since(start))

		if err == nil {
			return nil
		}

		if errors.Is(err, apperrors.ErrRateLimited) {
			s.pool.Penalize(s.provider, credential)
			continue
		}

		return err
	}

	return apperrors.NewExhaustedPoolError(s.provider, "all "+s.provider+" credentials rate limited, retry in 60s")
}

// recordCall maps the provider call result to a bounded outcome label.
func (s *EmbeddingService) recordCall(ctx context.Context, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}

	outcome := "success"
	switch {
	case errors.Is(err, apperrors.ErrRateLimited):
		outcome = "rate_limited"
	case err != nil:
		outcome = "error"
	}

	s.metrics.RecordEmbeddingCall(ctx, outcome, duration)
}
