package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/service"
)

type mockAnswerService struct {
	answerFunc func(ctx context.Context, sessionID, query string, topK int) (*service.AnswerResult, error)
}

func (m *mockAnswerService) Answer(ctx context.Context, sessionID, query string, topK int) (*service.AnswerResult, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, sessionID, query, topK)
	}

	return &service.AnswerResult{}, nil
}

const testSessionID = "5f6a7b8c-9d0e-4f1a-8b2c-3d4e5f6a7b8c"

func postQuery(t *testing.T, handler *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "http://test/v1/query", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.Query(rec, req)

	return rec
}

func TestQueryHandler_Query(t *testing.T) {
	t.Run("missing session_id returns 400", func(t *testing.T) {
		handler := NewQueryHandler(&mockAnswerService{})

		rec := postQuery(t, handler, `{"query":"why are logins slow"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed session_id returns 400", func(t *testing.T) {
		handler := NewQueryHandler(&mockAnswerService{})

		rec := postQuery(t, handler, `{"query":"q","session_id":"not-a-uuid"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		handler := NewQueryHandler(&mockAnswerService{})

		rec := postQuery(t, handler, `{"query":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty query returns 400", func(t *testing.T) {
		mock := &mockAnswerService{
			answerFunc: func(context.Context, string, string, int) (*service.AnswerResult, error) {
				return nil, service.ErrEmptyQuery
			},
		}
		handler := NewQueryHandler(mock)

		rec := postQuery(t, handler, `{"query":"  ","session_id":"`+testSessionID+`"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exhausted question budget returns 429", func(t *testing.T) {
		mock := &mockAnswerService{
			answerFunc: func(context.Context, string, string, int) (*service.AnswerResult, error) {
				return nil, apperrors.NewLimitExceededError("all 4 questions used")
			},
		}
		handler := NewQueryHandler(mock)

		rec := postQuery(t, handler, `{"query":"q","session_id":"`+testSessionID+`"}`)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("cooling credential pools return 503", func(t *testing.T) {
		mock := &mockAnswerService{
			answerFunc: func(context.Context, string, string, int) (*service.AnswerResult, error) {
				return nil, apperrors.NewExhaustedPoolError("groq", "all credentials cooling")
			},
		}
		handler := NewQueryHandler(mock)

		rec := postQuery(t, handler, `{"query":"q","session_id":"`+testSessionID+`"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("success returns the grounded answer", func(t *testing.T) {
		mock := &mockAnswerService{
			answerFunc: func(_ context.Context, sessionID, query string, topK int) (*service.AnswerResult, error) {
				assert.Equal(t, testSessionID, sessionID)
				assert.Equal(t, "why are logins slow", query)
				assert.Equal(t, 12, topK)

				return &service.AnswerResult{
					Answer:           "Logins stall during SSO [CHUNK 1] (Jira).",
					Query:            query,
					QueriesRemaining: 3,
				}, nil
			},
		}
		handler := NewQueryHandler(mock)

		rec := postQuery(t, handler, `{"query":"why are logins slow","session_id":"`+testSessionID+`","top_k":12}`)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp service.AnswerResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Logins stall during SSO [CHUNK 1] (Jira).", resp.Answer)
		assert.Equal(t, 3, resp.QueriesRemaining)
	})
}
