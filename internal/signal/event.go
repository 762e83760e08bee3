package signal

import "encoding/json"

// EventType tags a compilation event on the wire.
type EventType string

const (
	// EventInvalid announces that a build has started and the current
	// bundle is stale.
	EventInvalid EventType = "invalid"

	// EventOk announces a clean build.
	EventOk EventType = "ok"

	// EventStillOk is a heartbeat: a rebuild happened but produced the
	// same output, nothing to do.
	EventStillOk EventType = "still-ok"

	// EventWarnings announces a successful build that produced warnings.
	EventWarnings EventType = "warnings"

	// EventErrors announces a failed build.
	EventErrors EventType = "errors"
)

// Event is a compilation lifecycle notification sent to subscribers as a
// tagged JSON object. Assets is set for ok events; Data carries the
// warning or error lines for warnings/errors events.
type Event struct {
	Type   EventType         `json:"type"`
	Assets map[string]string `json:"assets,omitempty"`
	Data   []string          `json:"data,omitempty"`
}

// Invalid returns a build-started event.
func Invalid() Event { return Event{Type: EventInvalid} }

// Ok returns a clean-build event carrying the asset map.
func Ok(assets map[string]string) Event { return Event{Type: EventOk, Assets: assets} }

// StillOk returns a no-op heartbeat event.
func StillOk() Event { return Event{Type: EventStillOk} }

// Warnings returns a built-with-warnings event.
func Warnings(lines []string) Event { return Event{Type: EventWarnings, Data: lines} }

// Errors returns a build-failed event.
func Errors(lines []string) Event { return Event{Type: EventErrors, Data: lines} }

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a wire payload back into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
