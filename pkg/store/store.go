package store

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/skim/internal/models"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type SummaryStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// SummaryStore keeps every produced summary together with the vocabulary
// fingerprint of its page.
type SummaryStore struct {
	config SummaryStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config SummaryStoreConfig) (*SummaryStore, error) {
	if config.TableName == "" {
		config.TableName = "summaries"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 256
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if !tableName.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name: %q", config.TableName)
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SummaryStore{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *SummaryStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			sentences TEXT[] NOT NULL,
			full_text TEXT,
			fingerprint vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.config.TableName, s.config.VectorDim)

	_, err = s.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_fingerprint_idx
		ON %s
		USING hnsw (fingerprint vector_cosine_ops)`,
		s.config.TableName, s.config.TableName)

	_, err = s.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Save inserts the summary, replacing an earlier one with the same ID.
func (s *SummaryStore) Save(ctx context.Context, summary models.Summary, fingerprint []float32) error {
	if len(fingerprint) != s.config.VectorDim {
		return fmt.Errorf("fingerprint has %d dimensions, want %d", len(fingerprint), s.config.VectorDim)
	}

	sentences := make([]string, len(summary.Sentences))
	for i, sentence := range summary.Sentences {
		sentences[i] = sanitizeUTF8(sentence)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, sentences, full_text, fingerprint, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			sentences = EXCLUDED.sentences,
			full_text = EXCLUDED.full_text,
			fingerprint = EXCLUDED.fingerprint,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at`,
		s.config.TableName)

	_, err := s.pool.Exec(ctx, stmt,
		summary.ID,
		summary.URL,
		sanitizeUTF8(summary.Title),
		sentences,
		sanitizeUTF8(summary.FullText),
		pgvector.NewVector(fingerprint),
		summary.Metadata,
		summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	return nil
}

// Recent returns the latest summaries, newest first.
func (s *SummaryStore) Recent(ctx context.Context, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = s.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, url, title, sentences, full_text, metadata, created_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}

	return scanSummaries(rows)
}

// Similar returns the stored summaries whose fingerprints are closest to
// fingerprint by cosine distance.
func (s *SummaryStore) Similar(ctx context.Context, fingerprint []float32, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = s.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, url, title, sentences, full_text, metadata, created_at
		FROM %s
		ORDER BY fingerprint <=> $1
		LIMIT $2`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(fingerprint), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar summaries: %w", err)
	}

	return scanSummaries(rows)
}

func scanSummaries(rows pgx.Rows) ([]models.Summary, error) {
	defer rows.Close()

	var summaries []models.Summary
	for rows.Next() {
		var summary models.Summary
		err := rows.Scan(
			&summary.ID,
			&summary.URL,
			&summary.Title,
			&summary.Sentences,
			&summary.FullText,
			&summary.Metadata,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return summaries, nil
}

func (s *SummaryStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
