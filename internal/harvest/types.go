// Package harvest defines core types shared across subsystems.
package harvest

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a harvest task.
type TaskStatus string

// Task status values held in the registry.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is the registry entry tracked from submission to terminal state.
// Credential is opaque and never serialized into API responses.
type Task struct {
	ID             string     `json:"task_id"`
	Keyword        string     `json:"keyword"`
	RequestedCount int        `json:"requested_count"`
	Credential     string     `json:"-"`
	Status         TaskStatus `json:"status"`
	Progress       int        `json:"progress"`
	CreatedAt      time.Time  `json:"created_at"`
	Error          string     `json:"error,omitempty"`
	ResultLocation string     `json:"result_location,omitempty"`
}

// NoteRecord is one extracted note. Immutable once built; owned by the
// JobResult that contains it.
type NoteRecord struct {
	SourceLink string   `json:"source_link"`
	Title      string   `json:"title"`
	BodyText   string   `json:"body_text"`
	Images     []string `json:"images"`
	Comments   []string `json:"comments"`
}

// JobResult is the durable artifact written once per completed task. Field
// order and naming are a contract: other tools read the stored document
// directly.
type JobResult struct {
	Keyword     string       `json:"keyword"`
	TaskID      string       `json:"task_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Records     []NoteRecord `json:"records"`
	RecordCount int          `json:"record_count"`
}

// SortOrder selects the ranking the source applies to search results.
type SortOrder int

// Sort orders understood by the content source.
const (
	SortDefault SortOrder = iota
	SortMostEngaged
	SortNewest
)

// NoteTypeFilter restricts the content types a search returns.
type NoteTypeFilter int

// Type filters understood by the content source.
const (
	NoteTypeAll NoteTypeFilter = iota
	NoteTypeVideo
	NoteTypeImage
)

// SearchItem is one hit from a mixed search response. ModelType
// distinguishes notes from user/topic hits.
type SearchItem struct {
	ID        string `json:"id"`
	ModelType string `json:"model_type"`
	Token     string `json:"xsec_token"`
}

// ModelTypeNote marks search items that are notes.
const ModelTypeNote = "note"

// ImageEntry is one element of a note's image list. The source returns
// either a structured object carrying a URL or a bare URL string; entries
// with neither shape decode to an empty URL and are skipped upstream.
type ImageEntry struct {
	URL string
}

// UnmarshalJSON accepts {"url": "..."} objects and bare strings.
func (e *ImageEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		e.URL = obj.URL
		return nil
	}
	// Unrecognized shape: tolerated, skipped by the extractor.
	e.URL = ""
	return nil
}

// PostMetadata is the note payload returned by FetchPost.
type PostMetadata struct {
	Title    string       `json:"title"`
	Desc     string       `json:"desc"`
	ImageSet []ImageEntry `json:"image_list"`
}

// Comment is one entry of a comment thread. Raw holds the verbatim text of
// bare-string list entries, which some responses interleave with objects.
type Comment struct {
	Content string
	Replies []Comment
	Raw     string
	IsRaw   bool
}

// UnmarshalJSON accepts comment objects and bare strings.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Raw = s
		c.IsRaw = true
		return nil
	}
	var obj struct {
		Content     string    `json:"content"`
		SubComments []Comment `json:"sub_comments"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Content = obj.Content
	c.Replies = obj.SubComments
	return nil
}

// CommentPage is one page of top-level comments.
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Cursor   string    `json:"cursor"`
	HasMore  bool      `json:"has_more"`
}

// Profile identifies the account a credential belongs to.
type Profile struct {
	Nickname string `json:"nickname"`
}
