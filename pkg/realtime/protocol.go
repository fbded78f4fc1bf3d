package realtime

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire format of the realtime channel. Events carry no payload
// beyond the room name; they are invalidation signals, not data.
type Frame struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
}

const (
	// EventJoinRoom subscribes the connection to updates for one account.
	EventJoinRoom = "join_room"
	// EventTasksUpdated signals that the account's task set changed and a
	// refetch is due.
	EventTasksUpdated = "tasks_updated"
)

// MarshalFrame serializes a frame for the wire.
func MarshalFrame(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	return data, nil
}

// UnmarshalFrame parses a frame from the wire.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("frame missing event")
	}
	return f, nil
}
