package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/feedpost/app/pipeline"
)

type PipelineRunner interface {
	Run(ctx context.Context, siteID string) pipeline.RunResult
}

// RunPipelineTask runs the pipeline once for a site. Failed runs are recorded
// in the activity log and never retried, so a partial run cannot post twice.
type RunPipelineTask struct {
	Task
	runner PipelineRunner
}

func NewRunPipelineTask(siteID string, runner PipelineRunner) *RunPipelineTask {
	task := NewTask(TaskTypeRunPipeline, siteID)
	task.MaxRetries = 0

	return &RunPipelineTask{
		Task:   task,
		runner: runner,
	}
}

func (t *RunPipelineTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.runner.Run(ctx, t.SiteID)

	slog.Info("Task completed",
		"type", t.GetType(),
		"site_id", t.SiteID,
		"duration", t.GetDuration(),
		"success", result.Success,
		"message", result.Message)

	return nil
}
