package api

// ResponseEventType identifies the kind of a normalized response event.
type ResponseEventType string

const (
	// EventOutputItemDone carries one finalized output item.
	EventOutputItemDone ResponseEventType = "output_item_done"

	// EventCompleted terminates a successful stream and carries the
	// backend-assigned turn identifier.
	EventCompleted ResponseEventType = "completed"
)

// ResponseEvent is the normalized event every backend pipeline emits.
// A successful stream is zero or more EventOutputItemDone events followed
// by exactly one EventCompleted.
type ResponseEvent struct {
	Type       ResponseEventType `json:"type"`
	Item       *ResponseItem     `json:"item,omitempty"`
	ResponseID string            `json:"response_id,omitempty"`
}

// OutputItemDone returns an event carrying a finalized item.
func OutputItemDone(item ResponseItem) ResponseEvent {
	return ResponseEvent{Type: EventOutputItemDone, Item: &item}
}

// Completed returns the terminal event for a turn.
func Completed(responseID string) ResponseEvent {
	return ResponseEvent{Type: EventCompleted, ResponseID: responseID}
}

// IsTerminal reports whether no further events may follow e.
func (e ResponseEvent) IsTerminal() bool {
	return e.Type == EventCompleted
}
