package state

import "time"

// Exchange is one counselor turn: what the student said and the reply.
type Exchange struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"userMessage"`
	Reply       string    `json:"counselorResponse"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}
