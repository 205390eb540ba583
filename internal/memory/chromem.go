package memory

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex is the embedded Index backend. chromem-go is a pure Go vector
// database, so the collection lives in-process with optional persistence.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

const memoryCollectionName = "memory"

// NewChromemIndex opens (or creates) the memory collection. An empty path
// keeps the collection in memory only.
func NewChromemIndex(path string) (*ChromemIndex, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	}

	// Embeddings are always provided by the caller, so no embedding func.
	collection, err := db.GetOrCreateCollection(memoryCollectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory collection: %w", err)
	}

	return &ChromemIndex{db: db, collection: collection}, nil
}

func (c *ChromemIndex) Insert(ctx context.Context, id string, embedding []float32, document string, metadata map[string]string) error {
	doc := chromem.Document{
		ID:        id,
		Content:   document,
		Embedding: embedding,
		Metadata:  metadata,
	}
	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return IndexError("add document", err)
	}
	return nil
}

func (c *ChromemIndex) Query(ctx context.Context, embedding []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection, so clamp first.
	if count := c.collection.Count(); count < k {
		if count == 0 {
			return nil, nil
		}
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, IndexError("query embedding", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, result := range results {
		similarity := float64(result.Similarity)
		hits = append(hits, SearchHit{
			ID:         result.ID,
			Document:   result.Content,
			Metadata:   result.Metadata,
			Distance:   1 - similarity,
			Similarity: similarity,
		})
	}
	return hits, nil
}
