// Package storage provides the PostgreSQL-backed vector index.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cognirag/cognirag/internal/memory"
)

// memoryModel maps to the memories table.
type memoryModel struct {
	ID       string `gorm:"primaryKey"`
	Document string
	// Metadata is stored as JSONB so retrieval filters stay possible.
	Metadata json.RawMessage `gorm:"type:jsonb"`
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

// PgIndex is the durable memory.Index backend over pgvector.
type PgIndex struct {
	db *gorm.DB
}

// NewPgIndex opens the PostgreSQL pool and verifies connectivity. The
// connection is held for the process lifetime; call Close at shutdown.
func NewPgIndex(ctx context.Context, databaseURL string) (*PgIndex, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PgIndex{db: db}, nil
}

func (p *PgIndex) Insert(ctx context.Context, id string, embedding []float32, document string, metadata map[string]string) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode memory metadata: %w", err)
	}
	record := memoryModel{
		ID:        id,
		Document:  document,
		Metadata:  meta,
		Embedding: vector,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return memory.IndexError("insert memory", err)
	}
	return nil
}

func (p *PgIndex) Query(ctx context.Context, embedding []float32, k int) ([]memory.SearchHit, error) {
	if len(embedding) == 0 || k <= 0 {
		return nil, nil
	}

	// <=> is pgvector's cosine distance operator, already in [0,2].
	query := `
		SELECT id, document, metadata, embedding <=> $1 AS distance
		FROM memories
		WHERE embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT $2`

	var rows []struct {
		ID       string
		Document string
		Metadata json.RawMessage
		Distance float64
	}
	if err := p.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), k).
		Scan(&rows).Error; err != nil {
		return nil, memory.IndexError("search memories", err)
	}

	hits := make([]memory.SearchHit, 0, len(rows))
	for _, row := range rows {
		var meta map[string]string
		if len(row.Metadata) > 0 {
			_ = json.Unmarshal(row.Metadata, &meta)
		}
		hits = append(hits, memory.SearchHit{
			ID:         row.ID,
			Document:   row.Document,
			Metadata:   meta,
			Distance:   row.Distance,
			Similarity: 1 - row.Distance,
		})
	}
	return hits, nil
}

// Close releases the underlying connection pool.
func (p *PgIndex) Close() {
	if p.db == nil {
		return
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
