package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventUpdate is the push message name that carries an Update.
const EventUpdate = "update"

// Update is a server-originated live event.
type Update struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type wireUpdate struct {
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeUpdate parses an update payload. The timestamp may be an RFC 3339 string or epoch
// milliseconds; when it is missing or unreadable, receivedAt is used instead.
func DecodeUpdate(data []byte, receivedAt time.Time) (Update, error) {
	var wire wireUpdate
	if err := json.Unmarshal(data, &wire); err != nil {
		return Update{}, fmt.Errorf("realtime: decode update: %w", err)
	}
	if strings.TrimSpace(wire.Type) == "" && strings.TrimSpace(wire.Content) == "" {
		return Update{}, fmt.Errorf("realtime: decode update: empty message")
	}
	return Update{
		Type:      wire.Type,
		Content:   wire.Content,
		Timestamp: parseTimestamp(wire.Timestamp, receivedAt),
	}, nil
}

func parseTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 {
		return fallback
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return parsed
		}
		return fallback
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}
	return fallback
}
