package server

// IndexRequest is one document sent on the IndexTexts stream.
type IndexRequest struct {
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IndexResponse acknowledges one IndexRequest.
type IndexResponse struct {
	DocumentID string `json:"document_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SearchRequest asks for the Limit nearest documents to Vector. When Vector
// is empty and Query is set, the query text is embedded server-side.
type SearchRequest struct {
	Vector []float32 `json:"vector,omitempty"`
	Query  string    `json:"query,omitempty"`
	Limit  int32     `json:"limit"`
}

// SearchResult is one ranked match.
type SearchResult struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResponse holds results ordered by descending score.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// EmbedSingleRequest asks for the embedding of one text.
type EmbedSingleRequest struct {
	Text string `json:"text"`
}

// EmbedSingleResponse carries the vector for an EmbedSingleRequest.
type EmbedSingleResponse struct {
	Vector []float32 `json:"vector"`
}
