//go:build integration
// +build integration

package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/helpmate-bot/helpmate/internal/testutil"
)

// unitVector builds a 768-dim vector with a single 1.0 at the given axis.
// Cosine similarity between two such vectors is 1 on the same axis and 0
// on different axes, which makes ranking assertions exact.
func unitVector(axis int) pgvector.Vector {
	v := make([]float32, VectorDim)
	v[axis] = 1
	return pgvector.NewVector(v)
}

func TestPgxQuerier(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := NewPgxQuerier(tdb.Pool)
	const collection = "querier_test"

	docs := []struct {
		id   string
		axis int
	}{
		{"doc-a", 0},
		{"doc-b", 1},
		{"doc-c", 2},
	}
	for _, d := range docs {
		err := q.UpsertDocument(ctx, UpsertParams{
			ID:         d.id,
			Collection: collection,
			Content:    "content of " + d.id,
			Embedding:  unitVector(d.axis),
			Metadata:   []byte(`{"source":"test"}`),
			CreatedAt:  time.Now(),
		})
		if err != nil {
			t.Fatalf("UpsertDocument(%s) = %v", d.id, err)
		}
	}

	t.Run("count", func(t *testing.T) {
		count, err := q.CountDocuments(ctx, collection)
		if err != nil {
			t.Fatalf("CountDocuments() = %v", err)
		}
		if count != 3 {
			t.Errorf("count = %d, want 3", count)
		}
	})

	t.Run("search ranks by cosine similarity", func(t *testing.T) {
		rows, err := q.SearchDocuments(ctx, SearchParams{
			Collection:     collection,
			QueryEmbedding: unitVector(1),
			Limit:          2,
		})
		if err != nil {
			t.Fatalf("SearchDocuments() = %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
		if rows[0].ID != "doc-b" {
			t.Errorf("top result = %q, want doc-b", rows[0].ID)
		}
		if got := rows[0].Similarity; got < 0.999 {
			t.Errorf("top similarity = %f, want ~1", got)
		}
		if got := rows[1].Similarity; got > 0.001 {
			t.Errorf("second similarity = %f, want ~0", got)
		}
	})

	t.Run("search scoped to collection", func(t *testing.T) {
		rows, err := q.SearchDocuments(ctx, SearchParams{
			Collection:     "other_collection",
			QueryEmbedding: unitVector(0),
			Limit:          10,
		})
		if err != nil {
			t.Fatalf("SearchDocuments() = %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("got %d rows from empty collection, want 0", len(rows))
		}
	})

	t.Run("upsert replaces existing document", func(t *testing.T) {
		err := q.UpsertDocument(ctx, UpsertParams{
			ID:         "doc-a",
			Collection: collection,
			Content:    "updated content",
			Embedding:  unitVector(3),
			Metadata:   []byte(`{"source":"test","rev":2}`),
			CreatedAt:  time.Now(),
		})
		if err != nil {
			t.Fatalf("UpsertDocument() = %v", err)
		}

		count, err := q.CountDocuments(ctx, collection)
		if err != nil {
			t.Fatalf("CountDocuments() = %v", err)
		}
		if count != 3 {
			t.Errorf("count after upsert = %d, want 3", count)
		}

		rows, err := q.SearchDocuments(ctx, SearchParams{
			Collection:     collection,
			QueryEmbedding: unitVector(3),
			Limit:          1,
		})
		if err != nil {
			t.Fatalf("SearchDocuments() = %v", err)
		}
		if len(rows) != 1 || rows[0].Content != "updated content" {
			t.Errorf("rows = %+v, want updated doc-a", rows)
		}
	})

	t.Run("delete collection", func(t *testing.T) {
		deleted, err := q.DeleteCollection(ctx, collection)
		if err != nil {
			t.Fatalf("DeleteCollection() = %v", err)
		}
		if deleted != 3 {
			t.Errorf("deleted = %d, want 3", deleted)
		}
		count, err := q.CountDocuments(ctx, collection)
		if err != nil {
			t.Fatalf("CountDocuments() = %v", err)
		}
		if count != 0 {
			t.Errorf("count after delete = %d, want 0", count)
		}
	})
}
