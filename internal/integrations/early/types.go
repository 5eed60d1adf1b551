package early

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a remote identifier. Activities and time entries use string ids,
// tags and mentions use numeric ones; both decode into an ID and encode as a
// JSON string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Activity is a named, colored category time is tracked against.
type Activity struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Note is free text attached to a tracking or a time entry. Its text may
// embed tag and mention placeholder tokens.
//
// A decoded Note keeps the exact JSON it was decoded from and encodes back to
// it, so callers can hand the untouched remote note to the agent.
type Note struct {
	Text     string        `json:"text"`
	Tags     []NoteTag     `json:"tags"`
	Mentions []NoteMention `json:"mentions"`

	raw json.RawMessage
}

// NoteTag references a tag from note text. Indices is empty when the tag is
// attached to the note but not used in its text.
type NoteTag struct {
	ID      ID     `json:"id"`
	Key     string `json:"key"`
	Indices []any  `json:"indices"`
}

// NoteMention references a mention from note text.
type NoteMention struct {
	ID  ID     `json:"id"`
	Key string `json:"key"`
}

func (n *Note) UnmarshalJSON(b []byte) error {
	type plain Note
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*n = Note(p)
	n.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (n Note) MarshalJSON() ([]byte, error) {
	if n.raw != nil {
		return n.raw, nil
	}
	type plain Note
	return json.Marshal(plain(n))
}

// ActivityRef is the activity summary embedded in entries and trackings.
type ActivityRef struct {
	Name string `json:"name"`
}

// Duration is the interval of a time entry.
type Duration struct {
	StartedAt string `json:"startedAt"`
	StoppedAt string `json:"stoppedAt"`
}

// TimeEntry is a closed interval of tracked time.
type TimeEntry struct {
	ID         ID           `json:"id"`
	ActivityID ID           `json:"activityId"`
	Activity   *ActivityRef `json:"activity"`
	Duration   *Duration    `json:"duration"`
	Note       *Note        `json:"note"`
}

// Tracking is the currently running, unterminated entry.
type Tracking struct {
	ActivityID ID           `json:"activityId"`
	Activity   *ActivityRef `json:"activity"`
	StartedAt  string       `json:"startedAt"`
	Note       *Note        `json:"note"`
}

// Tag is a global vocabulary item referenced from notes as #key.
type Tag struct {
	ID    ID     `json:"id"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Mention is a global vocabulary item referenced from notes as @key.
type Mention struct {
	ID    ID     `json:"id"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

// TagsAndMentions is the full tag and mention vocabulary.
type TagsAndMentions struct {
	Tags     []Tag     `json:"tags"`
	Mentions []Mention `json:"mentions"`
}

// --- Request bodies ---

// NoteText is the note payload accepted by write endpoints.
type NoteText struct {
	Text string `json:"text"`
}

// TrackingEdit is the body for PATCH /tracking. Empty fields are not sent.
type TrackingEdit struct {
	Note       *NoteText `json:"note,omitempty"`
	ActivityID string    `json:"activityId,omitempty"`
	StartedAt  string    `json:"startedAt,omitempty"`
}

// NewTimeEntry is the body for POST /time-entries.
type NewTimeEntry struct {
	ActivityID string    `json:"activityId"`
	StartedAt  string    `json:"startedAt"`
	StoppedAt  string    `json:"stoppedAt"`
	Note       *NoteText `json:"note,omitempty"`
}

// TimeEntryUpdate is the body for PATCH /time-entries/{id}. Empty fields are
// not sent.
type TimeEntryUpdate struct {
	ActivityID string    `json:"activityId,omitempty"`
	StartedAt  string    `json:"startedAt,omitempty"`
	StoppedAt  string    `json:"stoppedAt,omitempty"`
	Note       *NoteText `json:"note,omitempty"`
}

// NewTag is the body for POST /tags.
type NewTag struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Scope   string `json:"scope"`
	SpaceID int    `json:"space_id"`
}

// TextNote returns a note payload for text, or nil when text is empty.
func TextNote(text string) *NoteText {
	if text == "" {
		return nil
	}
	return &NoteText{Text: text}
}
