package semantic

// Result represents a single semantic search hit.
type Result struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	Tag    string  `json:"tag,omitempty"`
	Score  float64 `json:"score"`
}

// VectorRecord represents a single song embedding to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // name, artist, tag, song_id
}
