package harvest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageEntryUnmarshalShapes(t *testing.T) {
	t.Parallel()

	var meta PostMetadata
	payload := `{
		"title": "t",
		"desc": "d",
		"image_list": [
			{"url": "https://img/a.jpg"},
			"https://img/b.jpg",
			{"width": 640},
			42
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &meta))

	require.Len(t, meta.ImageSet, 4)
	assert.Equal(t, "https://img/a.jpg", meta.ImageSet[0].URL)
	assert.Equal(t, "https://img/b.jpg", meta.ImageSet[1].URL)
	assert.Empty(t, meta.ImageSet[2].URL)
	assert.Empty(t, meta.ImageSet[3].URL)
}

func TestCommentUnmarshalShapes(t *testing.T) {
	t.Parallel()

	var page CommentPage
	payload := `{
		"comments": [
			{"content": "hello", "sub_comments": [{"content": "reply"}]},
			"verbatim string",
			{"content": ""}
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &page))

	require.Len(t, page.Comments, 3)
	assert.Equal(t, "hello", page.Comments[0].Content)
	require.Len(t, page.Comments[0].Replies, 1)
	assert.Equal(t, "reply", page.Comments[0].Replies[0].Content)
	assert.True(t, page.Comments[1].IsRaw)
	assert.Equal(t, "verbatim string", page.Comments[1].Raw)
	assert.Empty(t, page.Comments[2].Content)
}

func TestTaskJSONOmitsCredential(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Task{ID: "t1", Credential: "secret-cookie"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-cookie")
}

func TestTaskStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusRunning.Terminal())
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
}
