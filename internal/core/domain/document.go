package domain

import (
	"fmt"
	"time"
)

// Document represents an ingested policy document
type Document struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	Area           TopicArea `json:"policy_area"`
	Text           string    `json:"-"` // Extracted plain text, not returned by the API
	ChunkCount     int       `json:"chunks_created"`
	EmbeddingModel string    `json:"embedding_model"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chunk is a bounded text segment of a document and the unit of retrieval
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Area       TopicArea `json:"policy_area"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Position   int       `json:"position"` // Chunk position within document
}

// ChunkID derives the stable id of the n-th chunk of a document
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, position)
}

// ScoredChunk is a chunk returned from a similarity query
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	Area TopicArea // Empty means all areas
}
