package models

import "time"

// TranscriptionStatus tracks the progress of a meeting transcript
type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "Pending"
	TranscriptionProcessing TranscriptionStatus = "Processing"
	TranscriptionCompleted  TranscriptionStatus = "Completed"
	TranscriptionFailed     TranscriptionStatus = "Failed"
)

// Segment is one utterance of a transcript. Start and End are seconds from
// the beginning of the recording.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// MeetingNotes holds the transcript of a meeting. Host and Readers record
// who could read the notes when they were saved, so they stay readable once
// the meeting itself is gone.
type MeetingNotes struct {
	ID                  string              `json:"id"`
	MeetingID           string              `json:"meeting_id"`
	Host                string              `json:"host"`
	Readers             []string            `json:"readers,omitempty"`
	TranscriptionStatus TranscriptionStatus `json:"transcription_status"`
	Segments            []Segment           `json:"segments"`
	CreatedAt           time.Time           `json:"created_at"`
}

// Clone returns a deep copy of the notes
func (n *MeetingNotes) Clone() *MeetingNotes {
	if n == nil {
		return nil
	}
	c := *n
	if n.Segments != nil {
		c.Segments = make([]Segment, len(n.Segments))
		copy(c.Segments, n.Segments)
	}
	if n.Readers != nil {
		c.Readers = make([]string, len(n.Readers))
		copy(c.Readers, n.Readers)
	}
	return &c
}

// CanRead reports whether user was allowed to read the notes when they were saved
func (n *MeetingNotes) CanRead(user string) bool {
	if user == "" {
		return false
	}
	if user == n.Host {
		return true
	}
	for _, r := range n.Readers {
		if r == user {
			return true
		}
	}
	return false
}
