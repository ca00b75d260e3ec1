package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Values(t *testing.T) {
	assert.Equal(t, JobStatus("queued"), StatusQueued)
	assert.Equal(t, JobStatus("processing"), StatusProcessing)
	assert.Equal(t, JobStatus("completed"), StatusCompleted)
	assert.Equal(t, JobStatus("failed"), StatusFailed)
}

func TestJobStatus_TerminalAndActive(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())

	assert.True(t, StatusQueued.IsActive())
	assert.True(t, StatusProcessing.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusFailed.IsActive())
}

func TestJob_Defaults(t *testing.T) {
	job := &Job{}
	assert.Empty(t, job.ID)
	assert.Equal(t, JobStatus(""), job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, 0, job.Total)
	assert.Nil(t, job.Attrs)
}

func TestJob_SetAttrRejectsCoreFields(t *testing.T) {
	job := &Job{}
	assert.Error(t, job.SetAttr(FieldStatus, "completed"))
	assert.Error(t, job.SetAttr(FieldProgress, 3))

	require.NoError(t, job.SetAttr("catalog_id", "cat-1"))
	v, ok := job.Attr("catalog_id")
	assert.True(t, ok)
	assert.Equal(t, "cat-1", v)
}

func TestJob_JSONRoundTripFlattensAttrs(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	started := created.Add(time.Minute)
	job := &Job{
		ID:                  "job-1",
		Status:              StatusProcessing,
		CreatedAt:           created,
		CreatedBy:           "admin",
		StartedProcessingAt: &started,
		Progress:            2,
		Total:               3,
		Attrs: map[string]any{
			"data":       []any{"a", "b", "c"},
			"catalog_id": "cat-9",
		},
	}

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "job-1", flat["id"])
	assert.Equal(t, "processing", flat["status"])
	assert.Equal(t, "cat-9", flat["catalog_id"])
	assert.NotContains(t, flat, "completed_at")
	assert.NotContains(t, flat, "failure_reason")

	var decoded Job
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Status, decoded.Status)
	assert.True(t, job.CreatedAt.Equal(decoded.CreatedAt))
	require.NotNil(t, decoded.StartedProcessingAt)
	assert.True(t, started.Equal(*decoded.StartedProcessingAt))
	assert.Nil(t, decoded.CompletedAt)
	assert.Equal(t, 2, decoded.Progress)
	assert.Equal(t, 3, decoded.Total)
	assert.Equal(t, []any{"a", "b", "c"}, decoded.Attrs["data"])
	assert.NotContains(t, decoded.Attrs, "id")
}

func TestJob_MarshalCoreFieldsWinOverAttrs(t *testing.T) {
	job := Job{
		ID:     "real-id",
		Status: StatusQueued,
		Attrs:  map[string]any{"id": "fake-id", "status": "completed"},
	}

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "real-id", flat["id"])
	assert.Equal(t, "queued", flat["status"])
}

func TestJob_UnmarshalRejectsBadCoreField(t *testing.T) {
	var job Job
	err := json.Unmarshal([]byte(`{"id":"x","progress":"three"}`), &job)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "progress")
}

func TestJob_CloneCopiesAttrMap(t *testing.T) {
	job := &Job{ID: "a", Attrs: map[string]any{"k": "v"}}
	c := job.Clone()
	c.Attrs["k"] = "changed"
	c.Progress = 5

	assert.Equal(t, "v", job.Attrs["k"])
	assert.Equal(t, 0, job.Progress)
}
