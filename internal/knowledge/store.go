package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// VectorDim is the embedding dimensionality of the documents table.
// gemini-embedding-001 natively outputs 3072 dimensions; it is truncated
// to 768 (Matryoshka representation) to match the vector(768) column.
const VectorDim int32 = 768

// embedTimeout bounds a single embedding API call.
const embedTimeout = 15 * time.Second

// searchTimeout bounds a similarity search, embedding included.
const searchTimeout = 10 * time.Second

// UpsertParams carries one document row for insert-or-update.
type UpsertParams struct {
	ID         string
	Collection string
	Content    string
	Embedding  pgvector.Vector
	Metadata   []byte
	CreatedAt  time.Time
}

// SearchParams carries a vector similarity query.
type SearchParams struct {
	Collection     string
	QueryEmbedding pgvector.Vector
	Limit          int32
}

// SearchRow is one similarity-search result row.
type SearchRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float32
}

// Querier defines the SQL operations Store needs. Interfaces are defined
// by the consumer; *PgxQuerier implements this against pgxpool, and tests
// substitute a mock.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertParams) error
	SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	DeleteCollection(ctx context.Context, collection string) (int64, error)
}

// PgxQuerier implements Querier on a pgx connection pool.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier wraps a pool for use by Store.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

// UpsertDocument inserts a document or replaces its content, embedding, and
// metadata when the ID already exists.
func (q *PgxQuerier) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO documents (id, collection, content, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   collection = EXCLUDED.collection,
		   content    = EXCLUDED.content,
		   embedding  = EXCLUDED.embedding,
		   metadata   = EXCLUDED.metadata`,
		arg.ID, arg.Collection, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	return err
}

// SearchDocuments returns the closest documents in the collection by cosine
// distance, best first.
func (q *PgxQuerier) SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, content, metadata, created_at, 1 - (embedding <=> $1) AS similarity
		 FROM documents
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		arg.QueryEmbedding, arg.Collection, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchRow
	for rows.Next() {
		var r SearchRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountDocuments counts documents in a collection.
func (q *PgxQuerier) CountDocuments(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = $1`, collection).Scan(&count)
	return count, err
}

// DeleteCollection removes every document in a collection and reports how
// many rows were deleted.
func (q *PgxQuerier) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Store manages documentation chunks with vector search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries    Querier
	embedder   ai.Embedder
	collection string
	logger     *slog.Logger
}

// New creates a Store over the given querier and embedder, scoped to one
// collection. A nil logger falls back to slog.Default().
func New(queries Querier, embedder ai.Embedder, collection string, logger *slog.Logger) (*Store, error) {
	if queries == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:    queries,
		embedder:   embedder,
		collection: collection,
		logger:     logger,
	}, nil
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDim
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds a document's content and upserts it into the collection.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	createdAt := doc.CreateAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if err := s.queries.UpsertDocument(ctx, UpsertParams{
		ID:         doc.ID,
		Collection: s.collection,
		Content:    doc.Content,
		Embedding:  vec,
		Metadata:   metadataJSON,
		CreatedAt:  createdAt,
	}); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search embeds the query and returns the most similar documents in the
// collection, relevance-ranked best first. The whole operation is bounded
// by an internal timeout so a slow vector search cannot block the caller
// indefinitely.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchParams{
		Collection:     s.collection,
		QueryEmbedding: vec,
		Limit:          cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}
		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: metadata,
				CreateAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.queries.CountDocuments(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

// Clear removes every document in the collection. Used before a full
// re-ingest to drop stale chunks.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.queries.DeleteCollection(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("clearing collection %q: %w", s.collection, err)
	}
	s.logger.Info("cleared collection", "collection", s.collection, "deleted", deleted)
	return deleted, nil
}
