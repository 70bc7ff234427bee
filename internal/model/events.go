package model

// EventType names a session event pushed to subscribers
type EventType string

const (
	EventSubmissionState EventType = "submission_state"
	EventValidation      EventType = "validation"
	EventUnlocked        EventType = "unlocked"
	EventProgress        EventType = "progress"
	EventSectionChanged  EventType = "section_changed"
	EventFinalized       EventType = "finalized"
)

// Event is a session state change
type Event struct {
	SessionID string    `json:"sessionId"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
}

// SubmissionEvent carries a question's new submission state
type SubmissionEvent struct {
	Pregunta int             `json:"pregunta"`
	State    SubmissionState `json:"state"`
	Error    string          `json:"error,omitempty"`
}

// ValidationEvent reports an answer rejected before reaching the network
type ValidationEvent struct {
	Pregunta int    `json:"pregunta"`
	Message  string `json:"message"`
}

// UnlockedEvent carries the recomputed unlocked set
type UnlockedEvent struct {
	Preguntas []int `json:"preguntas"`
}

// SectionEvent reports the active section after navigation
type SectionEvent struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Total int    `json:"total"`
}
