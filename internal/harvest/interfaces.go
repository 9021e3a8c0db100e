package harvest

import (
	"context"
	"time"
)

// ContentSource is the external collaborator performing authenticated calls
// against the source platform. Implementations must be safe for concurrent
// use; every runner shares one client.
type ContentSource interface {
	Search(ctx context.Context, keyword string, limit int, sort SortOrder, filter NoteTypeFilter) ([]SearchItem, error)
	FetchPost(ctx context.Context, url string, credential string) (PostMetadata, error)
	FetchComments(ctx context.Context, noteID, cursor, token, credential string) (CommentPage, error)
	ProbeAuth(ctx context.Context, credential string) (Profile, error)
}

// ResultStore persists one JobResult document per task.
type ResultStore interface {
	Save(ctx context.Context, taskID string, result JobResult) (string, error)
	Load(ctx context.Context, taskID string) (JobResult, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs.
type IDGenerator interface {
	NewID() (string, error)
}
