// Package cache provides an EmbeddingService decorator that persists
// vectors in a bbolt database.
//
// Entries are keyed by model name and the SHA-256 of the text, so switching
// models never returns a stale vector. A cache hit returns exactly the
// vector that was stored.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/logger"
	"github.com/custodia-labs/wikirag/internal/vectormath"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

var bucketEmbeddings = []byte("embeddings")

// EmbeddingService wraps another EmbeddingService with a persistent cache.
type EmbeddingService struct {
	inner driven.EmbeddingService
	db    *bbolt.DB
}

// Open opens (or creates) the cache database at path and wraps inner.
func Open(path string, inner driven.EmbeddingService) (*EmbeddingService, error) {
	if inner == nil {
		return nil, fmt.Errorf("open embedding cache: nil embedding service")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &EmbeddingService{inner: inner, db: db}, nil
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves hits from the cache and sends all misses to the
// wrapped service in a single batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	for i, text := range texts {
		keys[i] = s.key(text)
	}

	var missIdx []int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, k := range keys {
			if v := b.Get(k); v != nil {
				// Decode copies, so the vector outlives the transaction.
				out[i] = vectormath.Decode(v)
				continue
			}
			missIdx = append(missIdx, i)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: expected %d vectors, got %d", len(missTexts), len(fresh))
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for j, i := range missIdx {
			out[i] = fresh[j]
			if err := b.Put(keys[i], vectormath.Encode(fresh[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The vectors are valid; only persistence failed.
		logger.Warn("embedding cache write failed: %v", err)
	}

	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missIdx), len(missIdx))
	return out, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache database and the wrapped service.
func (s *EmbeddingService) Close() error {
	dbErr := s.db.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return dbErr
}

func (s *EmbeddingService) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	key := make([]byte, 0, len(s.inner.ModelName())+1+len(sum))
	key = append(key, s.inner.ModelName()...)
	key = append(key, 0)
	return append(key, sum[:]...)
}
