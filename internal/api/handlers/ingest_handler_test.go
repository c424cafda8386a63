package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/service"
)

type mockIngestService struct {
	ingestFunc func(ctx context.Context, sessionID, filename string, content []byte) (service.FileResult, error)
}

func (m *mockIngestService) IngestFile(ctx context.Context, sessionID, filename string, content []byte) (service.FileResult, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, sessionID, filename, content)
	}

	return service.FileResult{File: filename, Chunks: 1}, nil
}

func multipartUpload(t *testing.T, sessionID string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if sessionID != "" {
		require.NoError(t, writer.WriteField("session_id", sessionID))
	}

	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func postIngest(t *testing.T, handler *IngestHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "http://test/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Ingest(rec, req)

	return rec
}

func TestIngestHandler_Ingest(t *testing.T) {
	t.Run("upload without files returns 400", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{})
		body, contentType := multipartUpload(t, "", nil)

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed session_id returns 400", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{})
		body, contentType := multipartUpload(t, "not-a-uuid", map[string]string{"a.txt": "feedback"})

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("new session id is generated when absent", func(t *testing.T) {
		var gotSession string
		mock := &mockIngestService{
			ingestFunc: func(_ context.Context, sessionID, filename string, _ []byte) (service.FileResult, error) {
				gotSession = sessionID

				return service.FileResult{File: filename, Chunks: 2}, nil
			},
		}
		handler := NewIngestHandler(mock)
		body, contentType := multipartUpload(t, "", map[string]string{"a.txt": "customer feedback notes"})

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusOK, rec.Code)

		_, err := uuid.Parse(gotSession)
		assert.NoError(t, err)

		var resp IngestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, gotSession, resp.SessionID)
		assert.Equal(t, 2, resp.TotalChunks)
	})

	t.Run("existing session id is reused", func(t *testing.T) {
		mock := &mockIngestService{
			ingestFunc: func(_ context.Context, sessionID, filename string, _ []byte) (service.FileResult, error) {
				assert.Equal(t, testSessionID, sessionID)

				return service.FileResult{File: filename, Chunks: 1}, nil
			},
		}
		handler := NewIngestHandler(mock)
		body, contentType := multipartUpload(t, testSessionID, map[string]string{"a.txt": "more feedback"})

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("validation failures map to 400", func(t *testing.T) {
		mock := &mockIngestService{
			ingestFunc: func(_ context.Context, _, filename string, _ []byte) (service.FileResult, error) {
				return service.FileResult{}, apperrors.NewValidationError("file", filename+" exceeds 10MB limit")
			},
		}
		handler := NewIngestHandler(mock)
		body, contentType := multipartUpload(t, "", map[string]string{"big.txt": "x"})

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pool exhaustion maps to 503", func(t *testing.T) {
		mock := &mockIngestService{
			ingestFunc: func(context.Context, string, string, []byte) (service.FileResult, error) {
				return service.FileResult{}, apperrors.NewExhaustedPoolError("gemini", "all credentials cooling")
			},
		}
		handler := NewIngestHandler(mock)
		body, contentType := multipartUpload(t, "", map[string]string{"a.txt": "x"})

		rec := postIngest(t, handler, body, contentType)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
