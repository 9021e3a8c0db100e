// Package local_test tests the filesystem result store.
package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteharvest/internal/harvest"
	"noteharvest/internal/store/local"
)

func sampleResult() harvest.JobResult {
	return harvest.JobResult{
		Keyword:   "coffee",
		TaskID:    "task-1",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Records: []harvest.NoteRecord{
			{
				SourceLink: "https://www.xiaohongshu.com/explore/abc?xsec_token=t",
				Title:      "morning brew",
				BodyText:   "notes",
				Images:     []string{"https://img/1.jpg"},
				Comments:   []string{"nice😄", "↳ agreed"},
			},
		},
		RecordCount: 1,
	}
}

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesBaseDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "results")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, statErr := os.Stat(dir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "flat")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	want := sampleResult()
	location, err := store.Save(context.Background(), want.TaskID, want)
	require.NoError(t, err)
	assert.Contains(t, location, "file://")
	assert.Contains(t, location, "task-1.json")

	got, err := store.Load(context.Background(), want.TaskID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	result := sampleResult()
	_, err = store.Save(context.Background(), result.TaskID, result)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "task-1.json"))
	require.NoError(t, err)

	_, err = store.Save(context.Background(), result.TaskID, result)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "task-1.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated saves must be byte-identical")
}

func TestLoadMissingArtifact(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "never-ran")
	assert.True(t, errors.Is(err, harvest.ErrNotFound))
}

func TestLoadMalformedArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600))

	_, err = store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, harvest.IsInputError(err))
}

func TestTaskIDTraversalRejected(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "../escape", sampleResult())
	assert.Error(t, err)
	_, err = store.Load(context.Background(), "../escape")
	assert.Error(t, err)
}

func TestArtifactIsHumanReadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	result := sampleResult()
	_, err = store.Save(context.Background(), result.TaskID, result)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "task-1.json"))
	require.NoError(t, err)
	text := string(data)
	// Stable snake_case field names and indentation are the durable contract.
	assert.Contains(t, text, "\"keyword\": \"coffee\"")
	assert.Contains(t, text, "\"task_id\": \"task-1\"")
	assert.Contains(t, text, "\"record_count\": 1")
	assert.Contains(t, text, "\n  \"records\"")
}
