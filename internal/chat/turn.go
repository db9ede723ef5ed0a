package chat

import (
	"time"

	"nexus-chat/internal/tfidf"
)

// TimeFormat is how turn timestamps are displayed.
const TimeFormat = "03:04 PM"

// Turn is one entry of the transcript. Turns are never modified once appended.
type Turn struct {
	ID              string
	Text            string
	IsFromAssistant bool
	CreatedAt       time.Time
	// RankedResults is set on assistant turns that answered a query.
	RankedResults []tfidf.Result
	// UsedContext reports whether earlier user turns were folded into the query.
	UsedContext bool
}

// Timestamp is CreatedAt formatted for display.
func (t Turn) Timestamp() string {
	return t.CreatedAt.Format(TimeFormat)
}

func (t Turn) clone() Turn {
	if t.RankedResults != nil {
		t.RankedResults = append([]tfidf.Result(nil), t.RankedResults...)
	}
	return t
}

// State is a snapshot of everything a view needs to render the chat.
type State struct {
	Turns []Turn
	Busy  bool
	Error string
	Draft string
}

// Exchange describes one settled backend request.
type Exchange struct {
	Query       string
	UsedContext bool
	ResultCount int
	BestScore   float64
	Failed      bool
	ErrorText   string
	StartedAt   time.Time
	Duration    time.Duration
}
