package retrieval

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knowbot-ai/knowbot/model"
)

// Chunk is a stored document fragment with its embedding.
type Chunk struct {
	ID        uint            `gorm:"primaryKey"`
	Text      string          `gorm:"type:text"`
	Source    string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
}

func (Chunk) TableName() string { return "chunks" }

// PGVectorStore is a VectorStore backed by Postgres with the pgvector
// extension, using cosine distance for ranking.
type PGVectorStore struct {
	db       *gorm.DB
	embedder model.Embedder
}

// NewPGVectorStore connects to Postgres, ensures the vector extension and the
// chunks table exist, and returns the store.
func NewPGVectorStore(dsn string, embedder model.Embedder) (*PGVectorStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("pgvector extension: %w", err)
	}
	if err := db.AutoMigrate(&Chunk{}); err != nil {
		return nil, fmt.Errorf("pgvector migrate: %w", err)
	}
	return &PGVectorStore{db: db, embedder: embedder}, nil
}

// Add embeds the text and stores it as a new chunk.
func (s *PGVectorStore) Add(ctx context.Context, text, source string) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("pgvector add: %w", err)
	}
	chunk := Chunk{Text: text, Source: source, Embedding: pgvector.NewVector(vec)}
	if err := s.db.WithContext(ctx).Create(&chunk).Error; err != nil {
		return fmt.Errorf("pgvector add: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Similar(ctx context.Context, query string, k int) ([]Document, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}

	var chunks []Chunk
	err = s.db.WithContext(ctx).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "embedding <=> ?",
				Vars:               []interface{}{pgvector.NewVector(vec)},
				WithoutParentheses: true,
			},
		}).
		Limit(k).
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}

	docs := make([]Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, Document{Text: c.Text, Source: c.Source})
	}
	return docs, nil
}
