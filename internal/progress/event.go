package progress

// EventType tags a progress event. A stream observes at most one terminal
// event (complete or error) per session, and nothing after it.
type EventType string

const (
	EventConnected EventType = "connected"
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is the payload pushed to a progress stream. Zero counts are real
// values (first progress event, an import with nothing imported) and stay in
// the JSON; only total is omitted on events that carry no row count.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Total     int       `json:"total,omitempty"`
	Processed int       `json:"processed"`
	Imported  int       `json:"imported"`
	Errors    int       `json:"errors"`
}

// Terminal reports whether the event ends the session's job.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Connected builds the greeting event a stream sends as soon as it opens.
func Connected() Event {
	return Event{Type: EventConnected, Message: "Connected to import progress stream"}
}

// Progress builds an in-flight progress event.
func Progress(message string, total, processed, imported, errorCount int) Event {
	return Event{
		Type:      EventProgress,
		Message:   message,
		Total:     total,
		Processed: processed,
		Imported:  imported,
		Errors:    errorCount,
	}
}

// Complete builds the success terminal event.
func Complete(message string, imported, errorCount int) Event {
	return Event{Type: EventComplete, Message: message, Imported: imported, Errors: errorCount}
}

// Error builds the failure terminal event.
func Error(message string, errorCount int) Event {
	return Event{Type: EventError, Message: message, Errors: errorCount}
}
