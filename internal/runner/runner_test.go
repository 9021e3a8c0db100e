package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteharvest/internal/extract"
	"noteharvest/internal/harvest"
	"noteharvest/internal/metrics"
	"noteharvest/internal/registry"
)

type seqIDGen struct {
	next int
}

func (g *seqIDGen) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("task-%d", g.next), nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

// stubSource backs both the search phase and the extractor.
type stubSource struct {
	items     []harvest.SearchItem
	searchErr error
	postErr   map[string]error
}

func (s *stubSource) Search(context.Context, string, int, harvest.SortOrder, harvest.NoteTypeFilter) ([]harvest.SearchItem, error) {
	return s.items, s.searchErr
}

func (s *stubSource) FetchPost(_ context.Context, url, _ string) (harvest.PostMetadata, error) {
	for id, err := range s.postErr {
		if err != nil && strings.Contains(url, id) {
			return harvest.PostMetadata{}, err
		}
	}
	return harvest.PostMetadata{Title: "title for " + url}, nil
}

func (s *stubSource) FetchComments(context.Context, string, string, string, string) (harvest.CommentPage, error) {
	return harvest.CommentPage{Comments: []harvest.Comment{{Content: "a comment"}}}, nil
}

func (s *stubSource) ProbeAuth(context.Context, string) (harvest.Profile, error) {
	return harvest.Profile{}, errors.New("not used")
}

type memStore struct {
	mu      sync.Mutex
	saved   map[string]harvest.JobResult
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]harvest.JobResult)}
}

func (m *memStore) Save(_ context.Context, taskID string, result harvest.JobResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved[taskID] = result
	return "file:///results/" + taskID + ".json", nil
}

func (m *memStore) Load(_ context.Context, taskID string) (harvest.JobResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.saved[taskID]
	if !ok {
		return harvest.JobResult{}, harvest.ErrNotFound
	}
	return result, nil
}

func newHarness(source *stubSource, store *memStore) (*Runner, *registry.Registry) {
	metrics.Init()
	reg := registry.New(&seqIDGen{}, fixedClock{})
	extractor := extract.New(source, nil)
	run := New(source, extractor, store, fixedClock{}, Config{}, nil)
	return run, reg
}

func noteItem(id string) harvest.SearchItem {
	return harvest.SearchItem{ID: id, ModelType: harvest.ModelTypeNote, Token: "tok-" + id}
}

func TestRunCompletesTask(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{
		noteItem("n1"),
		{ID: "u1", ModelType: "user"},
		noteItem("n2"),
		noteItem("n3"),
	}}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 100, "cred")
	require.NoError(t, err)

	run.Run(context.Background(), task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "file:///results/"+task.ID+".json", got.ResultLocation)

	result := store.saved[task.ID]
	// Non-note search hits are skipped; the rest are clamped to what the
	// search returned.
	require.Len(t, result.Records, 3)
	assert.Equal(t, 3, result.RecordCount)
	assert.Equal(t, "coffee", result.Keyword)
	assert.Equal(t, task.ID, result.TaskID)
	assert.Equal(t, []string{"a comment"}, result.Records[0].Comments)
}

func TestRunRequestedCountLimitsWork(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{
		noteItem("n1"), noteItem("n2"), noteItem("n3"), noteItem("n4"),
	}}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 2, "cred")
	require.NoError(t, err)
	run.Run(context.Background(), task, writer)

	assert.Len(t, store.saved[task.ID].Records, 2)
}

func TestRunSearchFailureFailsTask(t *testing.T) {
	source := &stubSource{searchErr: errors.New("search backend down")}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 5, "cred")
	require.NoError(t, err)
	run.Run(context.Background(), task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Error, "search backend down")
	assert.Empty(t, store.saved, "no artifact is written for a failed search")
}

func TestRunToleratesSingleNoteFailure(t *testing.T) {
	source := &stubSource{
		items:   []harvest.SearchItem{noteItem("good"), noteItem("bad"), noteItem("fine")},
		postErr: map[string]error{"bad": errors.New("note removed")},
	}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 3, "cred")
	require.NoError(t, err)
	run.Run(context.Background(), task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	result := store.saved[task.ID]
	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.RecordCount)
}

func TestRunSaveFailureFailsTask(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{noteItem("n1")}}
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 1, "cred")
	require.NoError(t, err)
	run.Run(context.Background(), task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Error, "disk full")
}

func TestRunCanceledContextFailsTask(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{noteItem("n1"), noteItem("n2")}}
	store := newMemStore()
	run, reg := newHarness(source, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, writer, err := reg.Create("coffee", 2, "cred")
	require.NoError(t, err)
	run.Run(ctx, task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusFailed, got.Status)
	assert.Contains(t, got.Error, context.Canceled.Error())
	assert.Empty(t, store.saved)
}

func TestRunNoMatchingNotesCompletesEmpty(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{{ID: "u1", ModelType: "user"}}}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("obscure", 5, "cred")
	require.NoError(t, err)
	run.Run(context.Background(), task, writer)

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, harvest.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	result := store.saved[task.ID]
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.RecordCount)
}

func TestDispatchRunsAsynchronously(t *testing.T) {
	source := &stubSource{items: []harvest.SearchItem{noteItem("n1")}}
	store := newMemStore()
	run, reg := newHarness(source, store)

	task, writer, err := reg.Create("coffee", 1, "cred")
	require.NoError(t, err)
	run.Dispatch(context.Background(), task, writer)

	require.Eventually(t, func() bool {
		got, err := reg.Get(task.ID)
		return err == nil && got.Status == harvest.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
