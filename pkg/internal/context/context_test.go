package context

import (
	"context"
	"testing"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

func TestWithJobContextAndGetJobContext(t *testing.T) {
	t.Run("stores and retrieves job context", func(t *testing.T) {
		// Arrange
		baseCtx := context.Background()
		job := &core.Job{ID: "test-job-123", Status: core.StatusProcessing}
		jc := &JobContext{
			Job:        job,
			Identifier: "catalog-sync",
			Index:      4,
		}

		// Act
		ctx := WithJobContext(baseCtx, jc)
		retrieved := GetJobContext(ctx)

		// Assert
		if retrieved == nil || retrieved.Job == nil {
			t.Fatal("job context or job is nil")
		}
		if retrieved.Job.ID != job.ID {
			t.Errorf("expected job ID %q, got %q", job.ID, retrieved.Job.ID)
		}
		if retrieved.Identifier != "catalog-sync" {
			t.Errorf("expected identifier %q, got %q", "catalog-sync", retrieved.Identifier)
		}
		if retrieved.Index != 4 {
			t.Errorf("expected index 4, got %d", retrieved.Index)
		}
	})

	t.Run("returns nil when job context not set", func(t *testing.T) {
		// Arrange
		ctx := context.Background()

		// Act
		jc := GetJobContext(ctx)

		// Assert
		if jc != nil {
			t.Errorf("expected nil, got %v", jc)
		}
	})

	t.Run("overwrites previous job context", func(t *testing.T) {
		// Arrange
		baseCtx := context.Background()
		jc1 := &JobContext{Job: &core.Job{ID: "job-1"}, Index: 0}
		jc2 := &JobContext{Job: &core.Job{ID: "job-2"}, Index: 1}

		// Act
		ctx1 := WithJobContext(baseCtx, jc1)
		ctx2 := WithJobContext(ctx1, jc2)
		retrieved := GetJobContext(ctx2)

		// Assert
		if retrieved.Job.ID != "job-2" {
			t.Errorf("expected job ID %q, got %q", "job-2", retrieved.Job.ID)
		}
		if retrieved.Index != 1 {
			t.Errorf("expected index 1, got %d", retrieved.Index)
		}
	})
}

func TestWithActorAndGetActor(t *testing.T) {
	t.Run("stores and retrieves actor", func(t *testing.T) {
		ctx := WithActor(context.Background(), "importer")

		if got := GetActor(ctx); got != "importer" {
			t.Errorf("expected actor %q, got %q", "importer", got)
		}
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		if got := GetActor(context.Background()); got != "" {
			t.Errorf("expected empty actor, got %q", got)
		}
	})
}
