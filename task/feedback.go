package task

import "time"

// Feedback is reviewer feedback attached to a task. It has an independent
// lifecycle: created once, never deleted, mutated only by the Processed flag.
type Feedback struct {
	ID         string            `json:"id"`
	TaskID     string            `json:"task_id"`
	Rating     int               `json:"rating,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	Source     string            `json:"source,omitempty"`
	ProvidedBy string            `json:"provided_by,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ProvidedAt time.Time         `json:"provided_at"`
	Processed  bool              `json:"processed"`
}
