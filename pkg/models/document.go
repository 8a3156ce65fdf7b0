package models

import (
	"time"

	"github.com/google/uuid"
)

// docNamespace is the UUID namespace for deterministic document IDs.
// Re-loading the same dataset row always yields the same ID, so re-indexing
// upserts instead of accumulating duplicates.
var docNamespace = uuid.MustParse("7f6c2b1e-4a3d-4f4e-9c2a-1b8d5e0f6a42")

// Document is a text document produced from one dataset row, ready for
// embedding and indexing.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata"`
	Created  time.Time         `json:"created"`
}

// NewDocumentID derives a stable UUIDv5 from the dataset name and row id.
func NewDocumentID(source, rowID string) string {
	return uuid.NewSHA1(docNamespace, []byte(source+"/"+rowID)).String()
}

// SearchResult is a document retrieved from the vector store, ranked by
// similarity to the query.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float32  `json:"score"`
}
