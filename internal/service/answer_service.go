package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/keypool"
	"github.com/pmsignal/hub/internal/models"
	"github.com/pmsignal/hub/internal/naming"
	"github.com/pmsignal/hub/pkg/cache"
)

// SourceWeights boost information-dense sources post-retrieval. Jira tickets
// and transcripts carry more signal per chunk than Slack messages; without a
// boost, high-volume Slack uploads dominate retrieval.
var SourceWeights = map[models.SourceType]float64{
	models.SourceJira:       1.25,
	models.SourceTranscript: 1.20,
	models.SourceSlack:      1.00,
	models.SourceUnknown:    1.00,
}

const (
	// DefaultQueryCap is the per-session question budget.
	DefaultQueryCap = 4

	// DefaultRetrievalTopK is how many chunks similarity search returns
	// before reranking.
	DefaultRetrievalTopK = 8

	rerankTopN           = 5
	rerankMaxTokens      = 512
	answerMaxTokens      = 1024
	answerTemperature    = 0.1
	answerRotationBudget = 3
	rerankChunkLength    = 200

	answerSystemPrompt = `You are a strict evidence-based assistant helping a product manager analyze uploaded data.

Rules:
1. Answer ONLY from the retrieved chunks provided below.
2. If the chunks lack sufficient information, respond with exactly: "The uploaded data doesn't contain enough information to answer this question."
3. Do not infer or use knowledge outside the chunks.
4. Cite every insight as [CHUNK N] and mark its source: (Slack), (Jira), or (Transcript).
5. Be concise and structured; use bullet points for multiple insights.`

	rerankSystemPrompt = `You are a relevance scoring engine. You will be given a query and a list of text chunks.
Score each chunk from 0-10 by how directly it answers the query (10 = complete answer, 0 = irrelevant).
Return ONLY a JSON array, no explanation, no markdown.
Format: [{"chunk_id": 1, "score": 8}, {"chunk_id": 2, "score": 3}]`
)

// ErrEmptyQuery is returned when the query is blank.
var ErrEmptyQuery = apperrors.NewValidationError("query", "query cannot be empty")

// SimilaritySearcher retrieves the nearest records within a session.
type SimilaritySearcher interface {
	NearestBySession(ctx context.Context, sessionID string, queryEmbedding []float32, limit int) ([]models.ScoredRecord, error)
}

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerService answers PM questions grounded in retrieved session chunks:
// embed query, similarity fetch with source weighting, LLM rerank with
// cosine-order fallback, then grounded answer generation.
type AnswerService struct {
	repo      SimilaritySearcher
	embedder  QueryEmbedder
	pool      *keypool.Pool
	generator naming.Generator
	provider  string

	queryCache *cache.LoaderCache[string, []float32]

	queryCap    int
	mu          sync.Mutex
	queryCounts map[string]int
}

// AnswerServiceParams collects the answer service dependencies.
type AnswerServiceParams struct {
	Repo       SimilaritySearcher
	Embedder   QueryEmbedder
	Pool       *keypool.Pool
	Generator  naming.Generator
	Provider   string
	QueryCache *cache.LoaderCache[string, []float32]
	QueryCap   int
}

// NewAnswerService creates the answer service.
func NewAnswerService(p AnswerServiceParams) *AnswerService {
	if p.QueryCap <= 0 {
		p.QueryCap = DefaultQueryCap
	}

	return &AnswerService{
		repo:        p.Repo,
		embedder:    p.Embedder,
		pool:        p.Pool,
		generator:   p.Generator,
		provider:    p.Provider,
		queryCache:  p.QueryCache,
		queryCap:    p.QueryCap,
		queryCounts: make(map[string]int),
	}
}

// AnswerResult carries the grounded answer and its evidence.
type AnswerResult struct {
	Answer           string                `json:"answer"`
	Sources          []models.ScoredRecord `json:"sources"`
	Query            string                `json:"query"`
	QueriesRemaining int                   `json:"queries_remaining"`
}

// Answer answers one question for a session. The per-session query cap is
// enforced before any external call; the counter advances only on success.
func (s *AnswerService) Answer(ctx context.Context, sessionID, query string, topK int) (*AnswerResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}

	if remaining := s.remaining(sessionID); remaining <= 0 {
		return nil, apperrors.NewLimitExceededError(
			fmt.Sprintf("all %d questions for this session are used, restart to ask more", s.queryCap))
	}

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := s.repo.NearestBySession(ctx, sessionID, queryVec, topK)
	if err != nil {
		return nil, err
	}

	applySourceWeights(chunks)

	top, err := s.rerank(ctx, query, chunks)
	if err != nil {
		return nil, err
	}

	answer, err := s.generateAnswer(ctx, query, top)
	if err != nil {
		return nil, err
	}

	remaining := s.consume(sessionID)

	return &AnswerResult{
		Answer:           answer,
		Sources:          top,
		Query:            query,
		QueriesRemaining: remaining,
	}, nil
}

func (s *AnswerService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	load := func(ctx context.Context, q string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, q)
	}

	if s.queryCache == nil {
		return load(ctx, query)
	}

	return s.queryCache.Get(ctx, query, load)
}

func (s *AnswerService) remaining(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryCap - s.queryCounts[sessionID]
}

// ResetSession clears the question budget for a session, typically when the
// session's data is deleted.
func (s *AnswerService) ResetSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queryCounts, sessionID)
}

func (s *AnswerService) consume(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queryCounts[sessionID]++

	return s.queryCap - s.queryCounts[sessionID]
}

// applySourceWeights re-scores post-retrieval. It does not affect what the
// store fetches, only how chunks rank before reranking.
func applySourceWeights(chunks []models.ScoredRecord) {
	for i := range chunks {
		weight, ok := SourceWeights[chunks[i].SourceType]
		if !ok {
			weight = 1.0
		}

		chunks[i].Score = chunks[i].RawScore * weight
	}

	sort.SliceStable(chunks, func(a, b int) bool {
		return chunks[a].Score > chunks[b].Score
	})
}

type rerankScore struct {
	ChunkID int     `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// rerank asks the LLM to score chunks against the query; any failure falls
// back to the weighted cosine order.
func (s *AnswerService) rerank(ctx context.Context, query string, chunks []models.ScoredRecord) ([]models.ScoredRecord, error) {
	if len(chunks) <= rerankTopN {
		return chunks, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %q\n\nChunks to score:\n", query)
	for i, c := range chunks {
		text := c.Text
		if runes := []rune(text); len(runes) > rerankChunkLength {
			text = string(runes[:rerankChunkLength])
		}

		fmt.Fprintf(&b, "[CHUNK %d]: %q\n", i+1, text)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of scores for all %d chunks.", len(chunks))

	raw, err := s.generate(ctx, rerankSystemPrompt, b.String(), rerankMaxTokens, 0)
	if err != nil {
		if errors.Is(err, apperrors.ErrExhaustedPool) {
			return nil, err
		}

		slog.Warn("rerank failed, using weighted cosine order", "error", err)

		return chunks[:rerankTopN], nil
	}

	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	var scores []rerankScore
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &scores); err != nil {
		slog.Warn("unparsable rerank response, using weighted cosine order", "error", err)

		return chunks[:rerankTopN], nil
	}

	scoreByChunk := make(map[int]float64, len(scores))
	for _, sc := range scores {
		scoreByChunk[sc.ChunkID] = sc.Score
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scoreByChunk[order[a]+1] > scoreByChunk[order[b]+1]
	})

	ranked := make([]models.ScoredRecord, 0, rerankTopN)
	for _, idx := range order[:rerankTopN] {
		ranked = append(ranked, chunks[idx])
	}

	return ranked, nil
}

func (s *AnswerService) generateAnswer(ctx context.Context, query string, chunks []models.ScoredRecord) (string, error) {
	if len(chunks) == 0 {
		return "No relevant context found in your uploaded files for this query. Try rephrasing or uploading more data.", nil
	}

	var b strings.Builder
	b.WriteString("Retrieved chunks (use ONLY these to answer):\n---\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[CHUNK %d] Source: [%s] %s\n%q\n\n",
			i+1, strings.ToUpper(string(c.SourceType)), c.SourceFile, c.Text)
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "PM Question: %s\n\n", query)
	b.WriteString("Answer only from the chunks above, citing [CHUNK N] for every point.\n\nAnswer:")

	return s.generate(ctx, answerSystemPrompt, b.String(), answerMaxTokens, answerTemperature)
}

// generate runs one generation call through the key pool with a bounded
// rotation budget. Rate limits penalize the credential and rotate; other
// failures rotate too. A used-up budget surfaces as pool exhaustion.
func (s *AnswerService) generate(ctx context.Context, system, prompt string, maxTokens int, temperature float64) (string, error) {
	for attempt := 0; attempt < answerRotationBudget; attempt++ {
		credential, err := s.pool.Acquire(s.provider)
		if err != nil {
			return "", err
		}

		raw, err := s.generator.Generate(ctx, credential, system, prompt, maxTokens, temperature)
		if err != nil {
			if errors.Is(err, apperrors.ErrRateLimited) {
				s.pool.Penalize(s.provider, credential)
			}

			continue
		}

		return raw, nil
	}

	return "", apperrors.NewExhaustedPoolError(s.provider, "all "+s.provider+" credentials are cooling down, retry in 60s")
}
