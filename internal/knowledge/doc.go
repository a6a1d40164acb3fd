// Package knowledge manages the documentation knowledge base backed by
// PostgreSQL + pgvector.
//
// The ingestion pipeline writes embedded documentation chunks through
// Store.Add; the serving pipeline reads them back with Store.Search, which
// performs cosine-similarity search over the configured collection.
//
// Store depends on two abstractions:
//   - Querier, a consumer-defined interface over the SQL operations,
//     implemented for pgxpool and mocked in tests;
//   - ai.Embedder (Genkit) for turning text into vectors.
//
// Embeddings are truncated to VectorDim dimensions to match the documents
// table schema (db/migrations).
package knowledge
