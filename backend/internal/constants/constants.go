package constants

import "time"

// Counselor constants
const (
	// CounselorName is how the assistant refers to itself
	CounselorName = "Pathfinder"

	// ReplyTemperature is the sampling temperature for counselor replies
	ReplyTemperature = 0.7

	// MaxMessageLength is the largest chat message accepted, in characters
	MaxMessageLength = 4000

	// HistoryTurns is how many earlier exchanges are replayed into the prompt
	HistoryTurns = 5
)

// Conversation categories select the focus of a counselor reply.
const (
	CategoryGeneral   = "general"
	CategoryAcademic  = "academic"
	CategoryEmotional = "emotional"
	CategorySocial    = "social"
	CategoryFuture    = "future"
)

// Background work limits
const (
	// ExtractionTimeout bounds the post-reply extraction and merge
	ExtractionTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 30 * time.Second
)

// Crisis resources included with every counselor prompt.
const (
	CrisisLifeline = "988"
	CrisisTextLine = "741741"
)
