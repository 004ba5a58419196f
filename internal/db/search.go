package db

import "github.com/kailas-cloud/devindex/internal/domain/document"

// SearchResult holds one page of documents in query order and the total hit count.
type SearchResult struct {
	Total     int
	Documents []document.Document
}
