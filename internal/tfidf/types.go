package tfidf

// Result is one ranked snippet returned by the search backend.
type Result struct {
	SourceID string  `json:"source"`
	ChunkID  string  `json:"chunk_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Response is the normalized /chat payload.
type Response struct {
	Query     string   `json:"query"`
	BestScore float64  `json:"best_score"`
	Results   []Result `json:"results"`
}

// Health is the backend's /health payload.
type Health struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

type chatRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}
