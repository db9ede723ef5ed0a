package types

type SubmitRequest struct {
	Message string `json:"message"`
}

type DraftRequest struct {
	Draft string `json:"draft"`
}

type RankedResult struct {
	SourceID string  `json:"sourceId"`
	ChunkID  string  `json:"chunkId"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

type ChatTurn struct {
	ID              string         `json:"id"`
	Text            string         `json:"text"`
	IsFromAssistant bool           `json:"isFromAssistant"`
	CreatedAt       string         `json:"createdAt"`
	RankedResults   []RankedResult `json:"rankedResults,omitempty"`
	UsedContext     bool           `json:"usedContext,omitempty"`
}

// ChatState is everything the browser widget needs to render.
type ChatState struct {
	SessionID string     `json:"sessionId"`
	Turns     []ChatTurn `json:"turns"`
	Busy      bool       `json:"busy"`
	Error     string     `json:"error,omitempty"`
	Draft     string     `json:"draft,omitempty"`
}

type SubmitResponse struct {
	// Accepted is false when the message was blank or a request was already in flight.
	Accepted bool      `json:"accepted"`
	State    ChatState `json:"state"`
}

type BackendHealth struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

type HealthResponse struct {
	Status       string         `json:"status"`
	Backend      *BackendHealth `json:"backend,omitempty"`
	BackendError string         `json:"backendError,omitempty"`
	Sessions     int            `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
