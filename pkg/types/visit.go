package types

import (
	"encoding/json"
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderDoctor    Sender = "doctor"
	SenderAssistant Sender = "ai"
)

// FileRef is the name of a file attached to a message. Only the name survives
// an upload; the binary is never retained client-side.
type FileRef struct {
	Name string `json:"name"`
}

// Message is one turn of a visit transcript.
type Message struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	Files  []FileRef `json:"files,omitempty"`
}

// rawMessage tolerates the field fallbacks the backend is known to use:
// text/message/content for the payload, sender or role for authorship.
type rawMessage struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	Role    string    `json:"role"`
	Text    string    `json:"text"`
	Message string    `json:"message"`
	Content string    `json:"content"`
	Files   []FileRef `json:"files"`
}

// UnmarshalJSON normalizes stored message variants into the canonical shape.
// An explicit sender wins; otherwise any non-"user" role maps to the assistant.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Text = firstNonEmpty(raw.Text, raw.Message, raw.Content)
	m.Files = raw.Files
	switch {
	case raw.Sender != "":
		m.Sender = Sender(raw.Sender)
	case raw.Role == "user":
		m.Sender = SenderDoctor
	default:
		m.Sender = SenderAssistant
	}
	return nil
}

// Visit is one clinical encounter, server-owned, holding a message transcript.
type Visit struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Timestamp string    `json:"timestamp,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
	Date      string    `json:"date,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

type rawVisit struct {
	ID        string    `json:"id"`
	MongoID   string    `json:"_id"`
	PatientID string    `json:"patient_id"`
	Timestamp string    `json:"timestamp"`
	CreatedAt string    `json:"created_at"`
	Date      string    `json:"date"`
	Messages  []Message `json:"messages"`
}

// UnmarshalJSON normalizes backend visit variants into the canonical shape.
func (v *Visit) UnmarshalJSON(data []byte) error {
	var raw rawVisit
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.ID = firstNonEmpty(raw.MongoID, raw.ID)
	v.PatientID = raw.PatientID
	v.Timestamp = raw.Timestamp
	v.CreatedAt = raw.CreatedAt
	v.Date = raw.Date
	v.Messages = raw.Messages
	return nil
}

// visitTimeLayouts are tried in order when parsing backend timestamps.
var visitTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseClinicTime parses a backend timestamp against the known layouts.
func ParseClinicTime(raw string) (time.Time, bool) {
	for _, layout := range visitTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveTime resolves the visit's best-available timestamp: the first
// parseable of timestamp, created-at, date. A zero time means none parsed,
// which sorts such visits last in newest-first order.
func (v *Visit) EffectiveTime() time.Time {
	for _, raw := range []string{v.Timestamp, v.CreatedAt, v.Date} {
		if raw == "" {
			continue
		}
		if t, ok := ParseClinicTime(raw); ok {
			return t
		}
	}
	return time.Time{}
}
