// Package ingest populates the knowledge base from a directory of
// documentation files.
//
// The indexer walks the knowledge-base tree, reads every supported file,
// splits it into overlapping chunks, and writes each chunk to the store.
// Embedding happens inside Store.Add, so writes are rate-limited here to
// stay under the embedding API quota.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/helpmate-bot/helpmate/internal/knowledge"
	"github.com/helpmate-bot/helpmate/internal/splitter"
)

// Store is the subset of knowledge.Store the indexer needs.
// Defined by the consumer for testability.
type Store interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// defaultExtensions are the file types indexed when none are configured.
// The knowledge base is Markdown documentation plus the occasional plain
// text file.
var defaultExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// defaultEmbedRate caps document writes (one embedding call each) per second.
const defaultEmbedRate = rate.Limit(5)

// Result summarizes one ingestion run.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// Options configures an Indexer.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Extensions   []string   // file extensions to index; nil means defaults
	EmbedRate    rate.Limit // embedding calls per second; 0 means default
}

// Indexer loads, splits, and stores documentation files.
type Indexer struct {
	store        Store
	chunkSize    int
	chunkOverlap int
	extensions   map[string]bool
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// New creates an Indexer. Chunk parameters are validated up front so a bad
// configuration fails before any file is touched.
func New(store Store, opts Options, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	// Probe the splitter with the configured parameters; Split performs
	// the authoritative validation.
	if _, err := splitter.Split("", opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]bool)
	if len(opts.Extensions) > 0 {
		for _, ext := range opts.Extensions {
			extensions[strings.ToLower(ext)] = true
		}
	} else {
		for ext := range defaultExtensions {
			extensions[ext] = true
		}
	}

	embedRate := opts.EmbedRate
	if embedRate <= 0 {
		embedRate = defaultEmbedRate
	}

	return &Indexer{
		store:        store,
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		extensions:   extensions,
		limiter:      rate.NewLimiter(embedRate, 1),
		logger:       logger,
	}, nil
}

// AddDirectory recursively ingests all supported files under dirPath.
// Individual file failures are counted and logged, not fatal; the walk
// continues so one unreadable file cannot abort a full re-ingest.
func (idx *Indexer) AddDirectory(ctx context.Context, dirPath string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	absDir, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}
	if info, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("reading knowledge base directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("knowledge base path %s is not a directory", absDir)
	}

	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			result.FilesFailed++
			idx.logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !idx.extensions[ext] {
			result.FilesSkipped++
			return nil
		}

		chunks, err := idx.addFile(ctx, path)
		if err != nil {
			result.FilesFailed++
			idx.logger.Warn("failed to index file", "path", path, "error", err)
			return nil
		}

		result.FilesAdded++
		result.ChunksAdded += chunks
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absDir, err)
	}

	result.Duration = time.Since(start)
	idx.logger.Info("ingestion complete",
		"files_added", result.FilesAdded,
		"files_skipped", result.FilesSkipped,
		"files_failed", result.FilesFailed,
		"chunks_added", result.ChunksAdded,
		"duration", result.Duration)
	return result, nil
}

// addFile splits one file and stores its chunks, returning the chunk count.
func (idx *Indexer) addFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the configured knowledge base
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	chunks, err := splitter.Split(string(content), idx.chunkSize, idx.chunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("splitting file: %w", err)
	}

	docBase := docID(path)
	now := time.Now()
	for i, chunk := range chunks {
		if err := idx.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		doc := knowledge.Document{
			ID:      docBase + ":" + strconv.Itoa(i),
			Content: chunk,
			Metadata: map[string]string{
				"source":     path,
				"file_name":  filepath.Base(path),
				"chunk":      strconv.Itoa(i),
				"indexed_at": now.Format(time.RFC3339),
			},
			CreateAt: now,
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			return 0, fmt.Errorf("storing chunk %d: %w", i, err)
		}
	}

	return len(chunks), nil
}

// docID derives a stable document ID prefix from the absolute file path.
func docID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	hash := sha256.Sum256([]byte(abs))
	return "file_" + hex.EncodeToString(hash[:16])
}
