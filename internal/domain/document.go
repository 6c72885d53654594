package domain

import "time"

// MaxEmbedChars bounds the text passed to the vectorizer per document.
// Longer content is truncated before encoding to cap memory and compute.
const MaxEmbedChars = 2000

// SnippetChars bounds the content excerpt returned with a search result.
const SnippetChars = 240

// Magazine is the metadata record owning one or more content rows.
// Read-only at query time.
type Magazine struct {
	ID              int64
	Title           string
	Author          string
	PublicationDate time.Time
	Category        string
}

// Document is one content row: the unit that gets embedded and scored.
// Embedding is nil until the backfill pipeline computes it.
type Document struct {
	ID         int64
	MagazineID int64
	Content    string
	Embedding  []float32
}

// TruncateForEmbedding returns the document text bounded to MaxEmbedChars.
func (d Document) TruncateForEmbedding() string {
	return Truncate(d.Content, MaxEmbedChars)
}

// Truncate cuts s to at most n bytes. Content is ASCII-heavy magazine
// text; byte truncation matches what the store's loader persisted.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
