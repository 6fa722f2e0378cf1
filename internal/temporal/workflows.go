// Package temporal provides the pipeline workflow definition.
package temporal

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/burqi/orderflow/internal/activities"
)

// =============================================================================
// WORKFLOW / ACTIVITY NAMES
// =============================================================================

const (
	OrderPipelineWorkflow = "orderPipelineWorkflow"

	ActivityDownloadDataset = "DownloadDataset"
	ActivityExtractRows     = "ExtractRows"
	ActivityLoadStaging     = "LoadStaging"
	ActivityTransformOrders = "TransformOrders"
	ActivityLoadDestination = "LoadDestination"
)

// =============================================================================
// ACTIVITY OPTIONS
// =============================================================================

// One retry after five minutes per task. Parse failures are always
// deterministic; the other kinds mark themselves non-retryable per
// failure, so only ParseError is excluded wholesale.
var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: time.Hour,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:        5 * time.Minute,
		BackoffCoefficient:     1.0,
		MaximumAttempts:        2,
		NonRetryableErrorTypes: []string{"ParseError"},
	},
}

// =============================================================================
// WORKFLOW INPUTS/OUTPUTS
// =============================================================================

// PipelineInput is the input for OrderPipelineWorkflow.
type PipelineInput struct {
	Dataset     string `json:"dataset"`
	DownloadDir string `json:"downloadDir"`
}

// PipelineResult summarizes a completed run.
type PipelineResult struct {
	RunID       string `json:"runId"`
	SourceFile  string `json:"sourceFile"`
	Extracted   int    `json:"extracted"`
	Staged      int    `json:"staged"`
	Cleaned     int    `json:"cleaned"`
	Dropped     int    `json:"dropped"`
	Destination int    `json:"destination"`
}

// =============================================================================
// ORDER PIPELINE WORKFLOW
// =============================================================================

// OrderPipelineWorkflowFunc runs the five pipeline tasks in a strict
// linear chain: download, extract, stage, transform, load. Each task runs
// to completion before the next starts, and any task failure fails the
// run at that step.
func OrderPipelineWorkflowFunc(ctx workflow.Context, input PipelineInput) (*PipelineResult, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	actCtx := workflow.WithActivityOptions(ctx, defaultActivityOptions)

	if input.Dataset == "" {
		return nil, temporal.NewApplicationError("dataset is required", "INVALID_INPUT")
	}
	if input.DownloadDir == "" {
		return nil, temporal.NewApplicationError("downloadDir is required", "INVALID_INPUT")
	}

	runID := info.WorkflowExecution.RunID
	logger.Info("pipeline run starting", "runId", runID, "dataset", input.Dataset)

	// Task 1: download and expand the dataset archive.
	var download activities.DownloadResult
	err := workflow.ExecuteActivity(actCtx, ActivityDownloadDataset, activities.DownloadRequest{
		RunID:       runID,
		Dataset:     input.Dataset,
		DownloadDir: input.DownloadDir,
	}).Get(ctx, &download)
	if err != nil {
		return nil, err
	}

	sourceFile := pickSourceFile(download.Files)
	if sourceFile == "" {
		return nil, temporal.NewApplicationError("download produced no source file", "FetchError")
	}

	// Task 2: parse the source file into raw rows.
	var extracted activities.ExtractResult
	err = workflow.ExecuteActivity(actCtx, ActivityExtractRows, activities.ExtractRequest{
		RunID:    runID,
		FilePath: sourceFile,
	}).Get(ctx, &extracted)
	if err != nil {
		return nil, err
	}

	// Task 3: append new rows to staging.
	var staged activities.StageResult
	err = workflow.ExecuteActivity(actCtx, ActivityLoadStaging, activities.StageRequest{
		RunID:       runID,
		RecordsPath: extracted.RecordsPath,
	}).Get(ctx, &staged)
	if err != nil {
		return nil, err
	}

	// Task 4: clean the full staging contents.
	var transformed activities.TransformResult
	err = workflow.ExecuteActivity(actCtx, ActivityTransformOrders, activities.TransformRequest{
		RunID: runID,
	}).Get(ctx, &transformed)
	if err != nil {
		return nil, err
	}

	// Task 5: replace the destination table.
	var loaded activities.LoadResult
	err = workflow.ExecuteActivity(actCtx, ActivityLoadDestination, activities.LoadRequest{
		RunID:       runID,
		RecordsPath: transformed.RecordsPath,
	}).Get(ctx, &loaded)
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline run complete",
		"extracted", extracted.RowCount,
		"staged", staged.Inserted,
		"cleaned", transformed.RowCount,
		"destination", loaded.RowCount)

	return &PipelineResult{
		RunID:       runID,
		SourceFile:  sourceFile,
		Extracted:   extracted.RowCount,
		Staged:      staged.Inserted,
		Cleaned:     transformed.RowCount,
		Dropped:     transformed.Dropped,
		Destination: loaded.RowCount,
	}, nil
}

// pickSourceFile selects the tabular file from the expanded archive.
func pickSourceFile(files []string) string {
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f), ".csv") {
			return f
		}
	}
	if len(files) > 0 {
		return files[0]
	}
	return ""
}
