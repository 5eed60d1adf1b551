package early

// DisplayEntry is a time entry flattened for the agent.
type DisplayEntry struct {
	ID           ID     `json:"id"`
	ActivityID   ID     `json:"activity_id"`
	ActivityName string `json:"activity_name"`
	StartedAt    string `json:"started_at"`
	StoppedAt    string `json:"stopped_at"`
	Note         string `json:"note"`
	NoteRaw      *Note  `json:"note_raw"`
}

// DisplayTracking is the running tracking flattened for the agent.
type DisplayTracking struct {
	ActivityID   ID     `json:"activity_id"`
	ActivityName string `json:"activity_name"`
	StartedAt    string `json:"started_at"`
	Note         string `json:"note"`
	NoteRaw      *Note  `json:"note_raw"`
}

// FormatEntry projects a time entry into a DisplayEntry. Missing nested
// fields become empty strings.
func FormatEntry(e TimeEntry) DisplayEntry {
	d := DisplayEntry{
		ID:         e.ID,
		ActivityID: e.ActivityID,
		Note:       FormatNote(e.Note),
		NoteRaw:    e.Note,
	}
	if e.Activity != nil {
		d.ActivityName = e.Activity.Name
	}
	if e.Duration != nil {
		d.StartedAt = e.Duration.StartedAt
		d.StoppedAt = e.Duration.StoppedAt
	}
	return d
}

// FormatEntries projects every entry, always returning a non-nil slice.
func FormatEntries(entries []TimeEntry) []DisplayEntry {
	out := make([]DisplayEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FormatEntry(e))
	}
	return out
}

// FormatTracking projects the running tracking into a DisplayTracking.
func FormatTracking(t Tracking) DisplayTracking {
	d := DisplayTracking{
		ActivityID: t.ActivityID,
		StartedAt:  t.StartedAt,
		Note:       FormatNote(t.Note),
		NoteRaw:    t.Note,
	}
	if t.Activity != nil {
		d.ActivityName = t.Activity.Name
	}
	return d
}
