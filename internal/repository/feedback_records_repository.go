// Package repository provides Postgres data access for embedded feedback records.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pmsignal/hub/internal/models"
)

// FeedbackRecordsRepository handles data access for the feedback_records table.
// Embeddings are stored as halfvec (2 bytes per dimension); pgvector-go
// converts float32 to float16 when encoding.
type FeedbackRecordsRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRecordsRepository creates a new feedback records repository.
func NewFeedbackRecordsRepository(db *pgxpool.Pool) *FeedbackRecordsRepository {
	return &FeedbackRecordsRepository{db: db}
}

// UpsertBatch inserts the records in one round trip. On ID conflict the
// embedding and text are updated.
func (r *FeedbackRecordsRepository) UpsertBatch(ctx context.Context, records []models.FeedbackRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now()

	for _, rec := range records {
		batch.Queue(`
			INSERT INTO feedback_records (id, session_id, source_file, source_type, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id)
			DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			rec.ID, rec.SessionID, rec.SourceFile, string(rec.SourceType), rec.Text,
			pgvector.NewHalfVector(rec.Embedding), now,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("feedback records upsert: %w", err)
		}
	}

	return nil
}

// FetchAllBySession returns every record for the session, embeddings
// included, in no guaranteed order. Returns an empty slice, not an error,
// when the session has no data.
func (r *FeedbackRecordsRepository) FetchAllBySession(
	ctx context.Context, sessionID string,
) ([]models.FeedbackRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, source_file, source_type, content, embedding, created_at
		FROM feedback_records
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session records: %w", err)
	}
	defer rows.Close()

	records := make([]models.FeedbackRecord, 0)

	for rows.Next() {
		var (
			rec        models.FeedbackRecord
			sourceType string
			vec        pgvector.HalfVector
		)

		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SourceFile, &sourceType, &rec.Text, &vec, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback record: %w", err)
		}

		rec.SourceType = models.ParseSourceType(sourceType)
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session records: %w", err)
	}

	return records, nil
}

// NearestBySession returns the records nearest to queryEmbedding within one
// session. Uses cosine distance (<=>); score = 1 - distance.
func (r *FeedbackRecordsRepository) NearestBySession(
	ctx context.Context, sessionID string, queryEmbedding []float32, limit int,
) ([]models.ScoredRecord, error) {
	queryVec := pgvector.NewHalfVector(queryEmbedding)

	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, source_file, source_type, content, created_at,
		       (1 - (embedding <=> $1)) AS score
		FROM feedback_records
		WHERE session_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, queryVec, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest records: %w", err)
	}
	defer rows.Close()

	results := make([]models.ScoredRecord, 0, limit)

	for rows.Next() {
		var (
			row        models.ScoredRecord
			sourceType string
		)

		if err := rows.Scan(
			&row.ID, &row.SessionID, &row.SourceFile, &sourceType, &row.Text, &row.CreatedAt, &row.Score,
		); err != nil {
			return nil, fmt.Errorf("scan scored record: %w", err)
		}

		row.SourceType = models.ParseSourceType(sourceType)
		row.RawScore = row.Score
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return results, nil
}

// DeleteBySession removes all records for the session and returns the count.
func (r *FeedbackRecordsRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM feedback_records WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session records: %w", err)
	}

	return tag.RowsAffected(), nil
}
